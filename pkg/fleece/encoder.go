package fleece

import (
	"bytes"
	"math"
	"sort"

	"github.com/gofleece/fleece/internal/common"
)

// Options configures an Encoder. The zero Options turns string interning
// and key sorting off; DefaultOptions returns the usual defaults.
type Options struct {
	// UniqueStrings enables the string-interning table: strings longer
	// than the inline-length limit are deduplicated by content, and a
	// repeated string gets a pointer to its first emission instead of a
	// second copy.
	UniqueStrings bool
	// SortKeys sorts each dict's keys lexicographically at EndDict,
	// enabling binary-search lookup on the decode side.
	SortKeys bool
	// ReserveSize preallocates the output buffer's capacity.
	ReserveSize int
}

// DefaultOptions returns the Encoder defaults: interning and key sorting
// both on, since most consumers expect sorted dicts.
func DefaultOptions() Options {
	return Options{UniqueStrings: true, SortKeys: true}
}

type childRef struct {
	pos    int
	length int
}

type frame struct {
	isDict     bool
	keys       []childRef
	values     []childRef
	pendingKey bool
}

// Encoder is a streaming, append-only writer for the value format.
// Values are emitted leaves-first: a scalar's bytes land
// directly in the output buffer as soon as it's written, and a
// composite's header and child slots are only written once every child
// has already been emitted, at the matching End call. A write after an
// error is latched (GetError) becomes a no-op.
type Encoder struct {
	opts    Options
	out     []byte
	frames  []frame
	strings map[string]childRef
	root    childRef
	haveRoot bool
	err     error
}

// NewEncoder creates an Encoder with opts, used exactly as given. A
// zero-value Options disables interning and key sorting; most callers
// want DefaultOptions().
func NewEncoder(opts Options) *Encoder {
	e := &Encoder{opts: opts}
	if opts.ReserveSize > 0 {
		e.out = make([]byte, 0, opts.ReserveSize)
	}
	if opts.UniqueStrings {
		e.strings = make(map[string]childRef)
	}
	return e
}

// Reset clears e so it can be reused for a fresh document, keeping the
// already-grown backing array rather than reallocating it.
func (e *Encoder) Reset() {
	e.out = e.out[:0]
	e.frames = e.frames[:0]
	if e.strings != nil {
		for k := range e.strings {
			delete(e.strings, k)
		}
	}
	e.root = childRef{}
	e.haveRoot = false
	e.err = nil
}

// GetError returns the sticky error latched by a prior misuse, if any.
func (e *Encoder) GetError() error { return e.err }

// GetErrorMessage mirrors GetError for callers that want a bare string.
func (e *Encoder) GetErrorMessage() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e *Encoder) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *Encoder) top() *frame {
	if len(e.frames) == 0 {
		return nil
	}
	return &e.frames[len(e.frames)-1]
}

// recordCompleted files a just-emitted value's byte range either into the
// enclosing frame (as a value, or as a key if one is pending) or as the
// document root if there's no enclosing frame.
func (e *Encoder) recordCompleted(ref childRef) {
	f := e.top()
	if f == nil {
		e.root = ref
		e.haveRoot = true
		return
	}
	if f.isDict && !f.pendingKey {
		f.keys = append(f.keys, ref)
		f.pendingKey = true
		return
	}
	f.values = append(f.values, ref)
	if f.isDict {
		f.pendingKey = false
	}
}

func (e *Encoder) emit(fn func(buf []byte) []byte) {
	if e.err != nil {
		return
	}
	start := len(e.out)
	e.out = fn(e.out)
	e.recordCompleted(childRef{pos: start, length: len(e.out) - start})
}

// WriteNull writes a null scalar.
func (e *Encoder) WriteNull() { e.emit(func(b []byte) []byte { return putSpecial(b, specialNull) }) }

// WriteUndefined writes an undefined scalar.
func (e *Encoder) WriteUndefined() {
	e.emit(func(b []byte) []byte { return putSpecial(b, specialUndefined) })
}

// WriteBool writes a boolean scalar.
func (e *Encoder) WriteBool(v bool) {
	e.emit(func(b []byte) []byte {
		if v {
			return putSpecial(b, specialTrue)
		}
		return putSpecial(b, specialFalse)
	})
}

// WriteInt writes a signed integer, using the shortest form that
// represents it exactly.
func (e *Encoder) WriteInt(v int64) { e.emit(func(b []byte) []byte { return putInt(b, v) }) }

// WriteUint writes an unsigned integer.
func (e *Encoder) WriteUint(v uint64) { e.emit(func(b []byte) []byte { return putUint(b, v) }) }

// WriteFloat writes a float32, folding it to the shortest integer tag
// when it carries no fractional part instead of spending a float tag on
// a value an integer already represents exactly.
func (e *Encoder) WriteFloat(v float32) {
	if isIntegral(float64(v)) {
		e.WriteInt(int64(v))
		return
	}
	e.emit(func(b []byte) []byte { return putFloat32(b, v) })
}

// WriteDouble writes a float64, folding it to the shortest integer tag
// when it carries no fractional part instead of spending a float tag on
// a value an integer already represents exactly.
func (e *Encoder) WriteDouble(v float64) {
	if isIntegral(v) {
		e.WriteInt(int64(v))
		return
	}
	e.emit(func(b []byte) []byte { return putFloat64(b, v) })
}

// isIntegral reports whether f is finite, has no fractional part, and
// round-trips exactly through int64.
func isIntegral(f float64) bool {
	return f == math.Trunc(f) && !math.IsInf(f, 0) && f >= -(1<<63) && f < 1<<63
}

// WriteString writes a UTF-8 string, interning it against prior equal
// strings when UniqueStrings is set and the string is long enough to
// benefit from a pointer instead of a second inline copy.
func (e *Encoder) WriteString(s string) {
	if e.err != nil {
		return
	}
	if bytes.IndexByte([]byte(s), 0) >= 0 {
		e.fail(ErrInvalidData)
		return
	}
	if e.strings != nil && len(s) > inlineLenMax {
		if ref, ok := e.strings[s]; ok {
			e.recordCompleted(ref)
			return
		}
	}
	start := len(e.out)
	e.out = putStringOrData(e.out, TagString, []byte(s))
	ref := childRef{pos: start, length: len(e.out) - start}
	if e.strings != nil && len(s) > inlineLenMax {
		e.strings[s] = ref
	}
	e.recordCompleted(ref)
}

// WriteData writes an opaque byte blob. Deduplication is scoped to
// strings only; data blobs are never interned.
func (e *Encoder) WriteData(v []byte) {
	e.emit(func(b []byte) []byte { return putStringOrData(b, TagData, v) })
}

// WriteKey writes a dict key. Valid only immediately inside BeginDict,
// before the corresponding value.
func (e *Encoder) WriteKey(s string) {
	if e.err != nil {
		return
	}
	f := e.top()
	if f == nil || !f.isDict || f.pendingKey {
		e.fail(ErrEncode)
		return
	}
	e.WriteString(s)
}

// WriteKeyInt writes an integer key alias, used instead of WriteKey when
// the dict's keys are small non-negative integers rather than strings.
func (e *Encoder) WriteKeyInt(v uint64) {
	if e.err != nil {
		return
	}
	f := e.top()
	if f == nil || !f.isDict || f.pendingKey {
		e.fail(ErrEncode)
		return
	}
	e.emit(func(b []byte) []byte { return putUint(b, v) })
}

// BeginArray opens a new array frame; elements are written with the
// scalar/composite Write*/Begin* calls until the matching EndArray.
func (e *Encoder) BeginArray() {
	if e.err != nil {
		return
	}
	e.frames = append(e.frames, frame{})
}

// BeginDict opens a new dict frame; each element must be preceded by a
// WriteKey or WriteKeyInt call.
func (e *Encoder) BeginDict() {
	if e.err != nil {
		return
	}
	e.frames = append(e.frames, frame{isDict: true})
}

// EndArray closes the innermost array frame, writing its header and
// child slots.
func (e *Encoder) EndArray() {
	if e.err != nil {
		return
	}
	f := e.popFrame(false)
	if f == nil {
		return
	}
	e.writeComposite(TagArray, f.values, nil)
}

// EndDict closes the innermost dict frame, sorting its keys (unless
// SortKeys is off) and writing its header and child slots.
func (e *Encoder) EndDict() {
	if e.err != nil {
		return
	}
	f := e.popFrame(true)
	if f == nil {
		return
	}
	if len(f.keys) != len(f.values) {
		e.fail(ErrEncode)
		return
	}
	if e.opts.SortKeys {
		e.sortPairs(f.keys, f.values)
	}
	e.writeComposite(TagDict, f.values, f.keys)
}

func (e *Encoder) popFrame(wantDict bool) *frame {
	if len(e.frames) == 0 {
		e.fail(ErrEncode)
		return nil
	}
	f := &e.frames[len(e.frames)-1]
	if f.isDict != wantDict {
		e.fail(ErrEncode)
		return nil
	}
	if f.isDict && f.pendingKey {
		e.fail(ErrEncode)
		return nil
	}
	e.frames = e.frames[:len(e.frames)-1]
	return f
}

// sortPairs reorders keys/values in lockstep by ascending key bytes,
// using an index permutation so the reorder is a single sort.Slice call
// rather than a bespoke swap routine.
func (e *Encoder) sortPairs(keys, values []childRef) {
	idx := make([]int, len(keys))
	for i := range idx {
		idx[i] = i
	}
	keyOf := func(i int) []byte {
		return keyBytes(Value{buf: e.out, pos: keys[idx[i]].pos})
	}
	sort.Slice(idx, func(a, b int) bool {
		return bytes.Compare(keyOf(a), keyOf(b)) < 0
	})
	sortedKeys := make([]childRef, len(keys))
	sortedValues := make([]childRef, len(values))
	for i, j := range idx {
		sortedKeys[i] = keys[j]
		sortedValues[i] = values[j]
	}
	copy(keys, sortedKeys)
	copy(values, sortedValues)
}

// writeComposite appends tag's header and child slots to e.out. For a
// dict, keys and values are interleaved key,value,key,value...; for an
// array, keys is nil and values holds the elements directly.
func (e *Encoder) writeComposite(tag Tag, values, keys []childRef) {
	var children []childRef
	if keys != nil {
		children = make([]childRef, 0, len(keys)*2)
		for i := range keys {
			children = append(children, keys[i], values[i])
		}
	} else {
		children = values
	}
	count := len(values)
	prefixLen := 2
	if count >= wideCountSentinel {
		prefixLen += sizeofUvarint(uint64(count - wideCountSentinel))
	}
	wide := e.chooseWidth(children, prefixLen)
	width := widthOf(wide)
	headerPos := len(e.out)
	e.out = putCompositeHeader(e.out, tag, count, wide)
	for _, c := range children {
		e.writeSlot(c, width)
	}
	e.recordCompleted(childRef{pos: headerPos, length: len(e.out) - headerPos})
}

// chooseWidth picks the narrowest slot width (2, falling back to 4) that
// lets every child either inline (its bytes are exactly width long) or
// reach its value with a fitting back-pointer.
func (e *Encoder) chooseWidth(children []childRef, prefixLen int) bool {
	headerPos := len(e.out)
	for _, wide := range [2]bool{false, true} {
		width := widthOf(wide)
		slotsStart := headerPos + prefixLen
		ok := true
		for i, c := range children {
			if c.length == width {
				continue
			}
			slotPos := slotsStart + i*width
			delta := uint32(slotPos - c.pos)
			if !common.FitsPointer(delta, width) {
				ok = false
				break
			}
		}
		if ok {
			return wide
		}
	}
	return true
}

// writeSlot appends one child slot: an inline copy when c's encoded
// bytes exactly fill width, otherwise a back-pointer to c.pos.
func (e *Encoder) writeSlot(c childRef, width int) {
	slotPos := len(e.out)
	if c.length == width {
		var scratch [4]byte
		copy(scratch[:width], e.out[c.pos:c.pos+c.length])
		e.out = append(e.out, scratch[:width]...)
		return
	}
	e.out = append(e.out, make([]byte, width)...)
	if !putPointer(e.out[slotPos:slotPos+width], width, slotPos, c.pos) {
		e.fail(ErrEncode)
	}
}

// Finish closes the document, appending the trailing narrow root pointer
// and returning the completed buffer. The Encoder retains its buffer;
// call Reset before reusing it for another document.
func (e *Encoder) Finish() ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	if len(e.frames) != 0 {
		e.fail(ErrEncode)
		return nil, e.err
	}
	if !e.haveRoot {
		e.fail(ErrEncode)
		return nil, e.err
	}
	tailPos := len(e.out)
	e.out = append(e.out, 0, 0)
	if !putPointer(e.out[tailPos:tailPos+2], 2, tailPos, e.root.pos) {
		e.fail(ErrEncode)
		return nil, e.err
	}
	return e.out, nil
}
