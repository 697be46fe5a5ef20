package fleece

// WriteTo re-encodes node — a Value, *MutableArray, or *MutableDict — into
// e, producing a brand new, fully standalone buffer that reflects every
// mutable override currently in effect. It's the "materialize the edited
// tree" operation a caller runs after a round of
// MutableArray/MutableDict edits to get back an immutable Value they can
// hand to another component.
//
// Unchanged scalar leaves are re-encoded rather than byte-copied from
// their original buffer: a raw copy would carry that subtree's internal
// relative pointers, which are only valid at their original absolute
// offset, so reusing them verbatim at a new offset would require
// re-basing every pointer inside the subtree. Scalars have no internal
// pointers to rebase, so in practice the cost of this is one decode+
// re-encode of each unchanged leaf, not a structural walk of the whole
// original document per leaf.
func WriteTo(e *Encoder, node any) error {
	writeNode(e, node)
	return e.GetError()
}

func writeNode(e *Encoder, node any) {
	switch n := node.(type) {
	case Value:
		writeValue(e, n)
	case *MutableArray:
		writeMutableArray(e, n)
	case *MutableDict:
		writeMutableDict(e, n)
	default:
		e.fail(ErrEncode)
	}
}

func writeValue(e *Encoder, v Value) {
	switch v.TypeOf() {
	case TypeUndefined:
		e.WriteUndefined()
	case TypeNull:
		e.WriteNull()
	case TypeBool:
		e.WriteBool(v.AsBool())
	case TypeNumber:
		writeNumber(e, v)
	case TypeString:
		e.WriteString(v.AsString())
	case TypeData:
		e.WriteData(v.AsData())
	case TypeArray:
		e.BeginArray()
		it := v.AsArray().Iterator()
		for it.Next() {
			writeValue(e, it.Value())
		}
		e.EndArray()
	case TypeDict:
		e.BeginDict()
		it := v.AsDict().Iterator()
		for it.Next() {
			writeKey(e, it.Key())
			writeValue(e, it.Value())
		}
		e.EndDict()
	}
}

func writeKey(e *Encoder, k Value) {
	if k.buf != nil && tagOf(k.buf[k.pos]) == TagString {
		e.WriteKey(k.AsString())
		return
	}
	e.WriteKeyInt(k.AsUnsigned())
}

func writeNumber(e *Encoder, v Value) {
	switch tagOf(v.buf[v.pos]) {
	case TagShortInt:
		e.WriteInt(v.AsInt())
	case TagInt:
		_, unsigned := intSizeAndUnsigned(v.buf[v.pos])
		if unsigned {
			e.WriteUint(v.AsUnsigned())
		} else {
			e.WriteInt(v.AsInt())
		}
	case TagFloat:
		if floatIsWide(v.buf[v.pos]) {
			e.WriteDouble(v.AsDouble())
		} else {
			e.WriteFloat(v.AsFloat())
		}
	}
}

func writeMutableArray(e *Encoder, a *MutableArray) {
	e.BeginArray()
	for i := range a.slots {
		s := &a.slots[i]
		switch {
		case s.arr != nil:
			writeMutableArray(e, s.arr)
		case s.dict != nil:
			writeMutableDict(e, s.dict)
		case s.changed:
			writeValue(e, s.prim)
		default:
			writeValue(e, s.base)
		}
	}
	e.EndArray()
}

func writeMutableDict(e *Encoder, d *MutableDict) {
	e.BeginDict()
	for k, s := range d.slots {
		switch kk := k.(type) {
		case string:
			e.WriteKey(kk)
		case uint64:
			e.WriteKeyInt(kk)
		}
		switch {
		case s.arr != nil:
			writeMutableArray(e, s.arr)
		case s.dict != nil:
			writeMutableDict(e, s.dict)
		case s.changed:
			writeValue(e, s.prim)
		default:
			writeValue(e, s.base)
		}
	}
	e.EndDict()
}
