package fleece

import (
	"bytes"
	"sort"
)

// Dict is a read-only view over an encoded dict's key/value slot pairs.
// Keys are stored in lexicographic order by an encoder with SortKeys on
// (the default), but that
// orderedness isn't itself wire-encoded, so a Dict
// decoded from untrusted data defaults to the safe, unsorted-capable
// lookup path; call AssumeSorted to opt into binary search once the
// caller knows (e.g. it produced the buffer itself) that keys are sorted.
type Dict struct {
	buf        []byte
	childStart int
	count      int
	wide       bool
	sorted     bool
}

// Count returns the number of key/value pairs.
func (d Dict) Count() int { return d.count }

// AssumeSorted returns a copy of d that trusts its keys are already in
// ascending order, enabling Get's O(log n) binary search. Calling it on
// data you don't control the encoding of can make Get miss a present key
// if the assumption is wrong — use GetUnsorted in that case.
func (d Dict) AssumeSorted() Dict {
	d.sorted = true
	return d
}

func (d Dict) keySlot(i int) int {
	width := widthOf(d.wide)
	return d.childStart + i*2*width
}

func (d Dict) valueSlot(i int) int {
	width := widthOf(d.wide)
	return d.childStart + (i*2+1)*width
}

func (d Dict) keyAt(i int) Value {
	width := widthOf(d.wide)
	return resolveChild(d.buf, d.keySlot(i), width)
}

func (d Dict) valueAt(i int) Value {
	width := widthOf(d.wide)
	return resolveChild(d.buf, d.valueSlot(i), width)
}

// keyBytes returns key's raw comparison bytes: a string key's UTF-8 bytes,
// or a big-endian-ish encoding of an integer key alias that preserves
// numeric order for the non-negative small integers key aliases are
// restricted to.
func keyBytes(k Value) []byte {
	if k.buf != nil && tagOf(k.buf[k.pos]) == TagString {
		return k.AsData()
	}
	var b [8]byte
	u := k.AsUnsigned()
	for i := 7; i >= 0; i-- {
		b[i] = byte(u)
		u >>= 8
	}
	return b[:]
}

// Get looks up key, using binary search if AssumeSorted has been called,
// otherwise falling back to a linear scan. A missing key returns
// UndefinedValue, never NullValue.
func (d Dict) Get(key string) Value {
	if d.sorted {
		return d.getSorted([]byte(key))
	}
	return d.GetUnsorted(key)
}

func (d Dict) getSorted(needle []byte) Value {
	i := sort.Search(d.count, func(i int) bool {
		return bytes.Compare(keyBytes(d.keyAt(i)), needle) >= 0
	})
	if i < d.count && bytes.Equal(keyBytes(d.keyAt(i)), needle) {
		return d.valueAt(i)
	}
	return UndefinedValue
}

// GetUnsorted looks up key with a linear scan, safe regardless of whether
// the dict's keys are actually sorted.
func (d Dict) GetUnsorted(key string) Value {
	needle := []byte(key)
	for i := 0; i < d.count; i++ {
		if bytes.Equal(keyBytes(d.keyAt(i)), needle) {
			return d.valueAt(i)
		}
	}
	return UndefinedValue
}

// GetInt looks up an integer key alias, always by linear scan since
// key-alias dicts are small by construction.
func (d Dict) GetInt(key uint64) Value {
	for i := 0; i < d.count; i++ {
		k := d.keyAt(i)
		if k.buf != nil && tagOf(k.buf[k.pos]) != TagString && k.AsUnsigned() == key {
			return d.valueAt(i)
		}
	}
	return UndefinedValue
}

// DictIterator walks a Dict's key/value pairs in encoded order: sorted by
// key when the encoder had SortKeys on, otherwise the order the keys were
// written in.
type DictIterator struct {
	d   Dict
	idx int
}

// Iterator returns a fresh DictIterator positioned before the first pair.
func (d Dict) Iterator() *DictIterator { return &DictIterator{d: d} }

// Next advances the iterator, reporting whether a pair was available.
func (it *DictIterator) Next() bool {
	if it.idx >= it.d.count {
		return false
	}
	it.idx++
	return true
}

// Key returns the current pair's key. Valid only after Next() == true.
func (it *DictIterator) Key() Value { return it.d.keyAt(it.idx - 1) }

// Value returns the current pair's value. Valid only after Next() == true.
func (it *DictIterator) Value() Value { return it.d.valueAt(it.idx - 1) }
