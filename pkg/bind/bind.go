// Package bind maps Go structs and generic any-trees onto the fleece
// value model, the reflection-driven replacement for hand-writing
// Write*/Begin*/End* calls field by field.
package bind

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gofleece/fleece/pkg/fleece"
)

// fieldInfo is one struct field's resolved wire name and reflect path.
type fieldInfo struct {
	index []int
	name  string
}

// Plan is the cached field layout for one struct type, built once and
// reused across every Encode/Decode call for that type.
type Plan struct {
	fields []fieldInfo
}

// Binder caches Plans behind a RWMutex with double-checked locking: a
// read lock first, and only a write lock (re-checking the map) on a
// cache miss, so the common path never contends on a mutex writer.
type Binder struct {
	mu   sync.RWMutex
	plan map[reflect.Type]*Plan
}

// NewBinder creates an empty Binder. The zero Binder is not usable;
// always go through NewBinder (or the package-level default below).
func NewBinder() *Binder {
	return &Binder{plan: make(map[reflect.Type]*Plan)}
}

var defaultBinder = NewBinder()

func (b *Binder) getPlan(t reflect.Type) *Plan {
	b.mu.RLock()
	if p, ok := b.plan[t]; ok {
		b.mu.RUnlock()
		return p
	}
	b.mu.RUnlock()

	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.plan[t]; ok {
		return p
	}

	p := &Plan{}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" && !sf.Anonymous {
			continue
		}
		name := sf.Name
		if tag, ok := sf.Tag.Lookup("fleece"); ok {
			tag = strings.Split(tag, ",")[0]
			if tag == "-" {
				continue
			}
			if tag != "" {
				name = tag
			}
		}
		p.fields = append(p.fields, fieldInfo{index: sf.Index, name: name})
	}
	b.plan[t] = p
	return p
}

// Encode encodes v, a struct or pointer to struct, into a fleece buffer.
func (b *Binder) Encode(v any) ([]byte, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, fleece.ErrInvalidData
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("bind: Encode: %s is not a struct", rv.Kind())
	}
	e := fleece.NewEncoder(fleece.DefaultOptions())
	b.encodeStruct(e, rv)
	return e.Finish()
}

func (b *Binder) encodeStruct(e *fleece.Encoder, rv reflect.Value) {
	plan := b.getPlan(rv.Type())
	e.BeginDict()
	for _, f := range plan.fields {
		e.WriteKey(f.name)
		encodeAny(e, rv.FieldByIndex(f.index))
	}
	e.EndDict()
}

// encodeAny writes an arbitrary reflect.Value's current kind through e.
func encodeAny(e *fleece.Encoder, rv reflect.Value) {
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			e.WriteNull()
			return
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Bool:
		e.WriteBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		e.WriteInt(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		e.WriteUint(rv.Uint())
	case reflect.Float32:
		e.WriteFloat(float32(rv.Float()))
	case reflect.Float64:
		e.WriteDouble(rv.Float())
	case reflect.String:
		e.WriteString(rv.String())
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			e.WriteData(rv.Bytes())
			return
		}
		e.BeginArray()
		for i := 0; i < rv.Len(); i++ {
			encodeAny(e, rv.Index(i))
		}
		e.EndArray()
	case reflect.Map:
		e.BeginDict()
		keys := rv.MapKeys()
		for _, k := range keys {
			e.WriteKey(fmt.Sprint(k.Interface()))
			encodeAny(e, rv.MapIndex(k))
		}
		e.EndDict()
	case reflect.Struct:
		defaultBinder.encodeStruct(e, rv)
	default:
		e.WriteNull()
	}
}

// Decode decodes buf into out, a pointer to struct.
func (b *Binder) Decode(buf []byte, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("bind: Decode: out must be a non-nil pointer")
	}
	root, err := fleece.FromData(buf)
	if err != nil {
		return err
	}
	return b.decodeStruct(root.AsDict(), rv.Elem())
}

func (b *Binder) decodeStruct(d fleece.Dict, rv reflect.Value) error {
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("bind: Decode: target is not a struct")
	}
	plan := b.getPlan(rv.Type())
	for _, f := range plan.fields {
		val := d.GetUnsorted(f.name)
		if val.IsUndefined() {
			continue
		}
		decodeInto(val, rv.FieldByIndex(f.index))
	}
	return nil
}

func decodeInto(v fleece.Value, rv reflect.Value) {
	if !rv.CanSet() {
		return
	}
	switch rv.Kind() {
	case reflect.Bool:
		rv.SetBool(v.AsBool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		rv.SetInt(v.AsInt())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		rv.SetUint(v.AsUnsigned())
	case reflect.Float32, reflect.Float64:
		rv.SetFloat(v.AsDouble())
	case reflect.String:
		rv.SetString(v.AsString())
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			data := v.AsData()
			buf := make([]byte, len(data))
			copy(buf, data)
			rv.SetBytes(buf)
			return
		}
		arr := v.AsArray()
		out := reflect.MakeSlice(rv.Type(), arr.Count(), arr.Count())
		it := arr.Iterator()
		for i := 0; it.Next(); i++ {
			decodeInto(it.Value(), out.Index(i))
		}
		rv.Set(out)
	case reflect.Struct:
		defaultBinder.decodeStruct(v.AsDict(), rv)
	}
}

// Encode encodes v using the package-level default Binder.
func Encode(v any) ([]byte, error) { return defaultBinder.Encode(v) }

// Decode decodes buf into out using the package-level default Binder.
func Decode(buf []byte, out any) error { return defaultBinder.Decode(buf, out) }
