package fleece

import "testing"

func roundTrip(t *testing.T, build func(e *Encoder)) Value {
	t.Helper()
	e := NewEncoder(DefaultOptions())
	build(e)
	buf, err := e.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	v, err := FromData(buf)
	if err != nil {
		t.Fatalf("FromData: %v", err)
	}
	return v
}

func TestEncodeScalarRoot(t *testing.T) {
	v := roundTrip(t, func(e *Encoder) { e.WriteInt(42) })
	if v.TypeOf() != TypeNumber {
		t.Fatalf("TypeOf = %v, want number", v.TypeOf())
	}
	if v.AsInt() != 42 {
		t.Fatalf("AsInt = %d, want 42", v.AsInt())
	}
}

func TestEncodeStringRoot(t *testing.T) {
	v := roundTrip(t, func(e *Encoder) { e.WriteString("hello fleece") })
	if got := v.AsString(); got != "hello fleece" {
		t.Fatalf("AsString = %q, want %q", got, "hello fleece")
	}
}

func TestEncodeLongStringInterning(t *testing.T) {
	long := "this string is definitely longer than the inline length limit"
	e := NewEncoder(DefaultOptions())
	e.BeginArray()
	e.WriteString(long)
	e.WriteString(long)
	e.EndArray()
	buf, err := e.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	v, err := FromData(buf)
	if err != nil {
		t.Fatalf("FromData: %v", err)
	}
	arr := v.AsArray()
	if arr.Count() != 2 {
		t.Fatalf("Count = %d, want 2", arr.Count())
	}
	if arr.Get(0).AsString() != long || arr.Get(1).AsString() != long {
		t.Fatalf("interned string round-trip mismatch")
	}
}

func TestEncodeArray(t *testing.T) {
	v := roundTrip(t, func(e *Encoder) {
		e.BeginArray()
		e.WriteInt(1)
		e.WriteInt(2)
		e.WriteBool(true)
		e.WriteNull()
		e.EndArray()
	})
	arr := v.AsArray()
	if arr.Count() != 4 {
		t.Fatalf("Count = %d, want 4", arr.Count())
	}
	if arr.Get(0).AsInt() != 1 || arr.Get(1).AsInt() != 2 {
		t.Fatalf("int elements wrong")
	}
	if !arr.Get(2).AsBool() {
		t.Fatalf("bool element wrong")
	}
	if !arr.Get(3).IsNull() {
		t.Fatalf("null element wrong")
	}
	if !arr.Get(99).IsNull() {
		t.Fatalf("out-of-range Get should be NullValue")
	}
}

func TestEncodeDictSortedAndLookup(t *testing.T) {
	v := roundTrip(t, func(e *Encoder) {
		e.BeginDict()
		e.WriteKey("zebra")
		e.WriteInt(1)
		e.WriteKey("apple")
		e.WriteInt(2)
		e.EndDict()
	})
	d := v.AsDict().AssumeSorted()
	if d.Count() != 2 {
		t.Fatalf("Count = %d, want 2", d.Count())
	}
	if d.Get("apple").AsInt() != 2 {
		t.Fatalf("apple lookup wrong")
	}
	if d.Get("zebra").AsInt() != 1 {
		t.Fatalf("zebra lookup wrong")
	}
	if !d.Get("missing").IsUndefined() {
		t.Fatalf("missing key should be UndefinedValue")
	}
	// first key in iteration order must be the lexicographically
	// smaller one, proving SortKeys actually reordered the pairs.
	it := d.Iterator()
	if !it.Next() {
		t.Fatalf("expected at least one pair")
	}
	if it.Key().AsString() != "apple" {
		t.Fatalf("first key = %q, want sorted order apple first", it.Key().AsString())
	}
}

func TestEncodeNestedDictArray(t *testing.T) {
	v := roundTrip(t, func(e *Encoder) {
		e.BeginDict()
		e.WriteKey("items")
		e.BeginArray()
		e.WriteString("a")
		e.WriteString("b")
		e.EndArray()
		e.EndDict()
	})
	d := v.AsDict().AssumeSorted()
	items := d.Get("items").AsArray()
	if items.Count() != 2 {
		t.Fatalf("Count = %d, want 2", items.Count())
	}
	if items.Get(0).AsString() != "a" || items.Get(1).AsString() != "b" {
		t.Fatalf("nested array mismatch")
	}
}

func TestEncodeKeyInt(t *testing.T) {
	v := roundTrip(t, func(e *Encoder) {
		e.BeginDict()
		e.WriteKeyInt(7)
		e.WriteString("seven")
		e.EndDict()
	})
	d := v.AsDict()
	if d.GetInt(7).AsString() != "seven" {
		t.Fatalf("int-key lookup wrong")
	}
}

func TestEncoderMismatchedEndIsError(t *testing.T) {
	e := NewEncoder(DefaultOptions())
	e.BeginArray()
	e.EndDict()
	if e.GetError() == nil {
		t.Fatalf("expected sticky error from mismatched End")
	}
}

func TestEncoderUnclosedFrameFailsFinish(t *testing.T) {
	e := NewEncoder(DefaultOptions())
	e.BeginArray()
	e.WriteInt(1)
	if _, err := e.Finish(); err == nil {
		t.Fatalf("expected Finish to fail with an open frame")
	}
}

func TestEncodeFloatRoundTrip(t *testing.T) {
	v := roundTrip(t, func(e *Encoder) { e.WriteDouble(3.25) })
	if v.AsDouble() != 3.25 {
		t.Fatalf("AsDouble = %v, want 3.25", v.AsDouble())
	}
}

func TestWriteDoubleFoldsIntegralValueToIntTag(t *testing.T) {
	buf, err := func() ([]byte, error) {
		e := NewEncoder(DefaultOptions())
		e.WriteDouble(3.0)
		return e.Finish()
	}()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	v, err := FromData(buf)
	if err != nil {
		t.Fatalf("FromData: %v", err)
	}
	if tagOf(v.buf[v.pos]) == TagFloat {
		t.Fatalf("WriteDouble(3.0) should fold to an int tag, not a float tag")
	}
	if v.AsInt() != 3 {
		t.Fatalf("AsInt = %d, want 3", v.AsInt())
	}
}

func TestWriteFloatFoldsIntegralValueToIntTag(t *testing.T) {
	buf, err := func() ([]byte, error) {
		e := NewEncoder(DefaultOptions())
		e.WriteFloat(-7)
		return e.Finish()
	}()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	v, err := FromData(buf)
	if err != nil {
		t.Fatalf("FromData: %v", err)
	}
	if tagOf(v.buf[v.pos]) == TagFloat {
		t.Fatalf("WriteFloat(-7) should fold to an int tag, not a float tag")
	}
	if v.AsInt() != -7 {
		t.Fatalf("AsInt = %d, want -7", v.AsInt())
	}
}

func TestEncodeWideArray(t *testing.T) {
	long := make([]byte, 1000)
	for i := range long {
		long[i] = byte(i)
	}
	// 70 values of 1004 bytes put the first element more than 65534
	// bytes behind its slot, out of reach of a narrow pointer.
	v := roundTrip(t, func(e *Encoder) {
		e.BeginArray()
		for i := 0; i < 70; i++ {
			e.WriteData(long)
		}
		e.EndArray()
	})
	arr := v.AsArray()
	if arr.Count() != 70 {
		t.Fatalf("Count = %d, want 70", arr.Count())
	}
	if !arr.wide {
		t.Fatalf("array should use wide slots")
	}
	for i := 0; i < 70; i++ {
		got := arr.Get(i).AsData()
		if len(got) != len(long) || got[500] != long[500] {
			t.Fatalf("element %d corrupted", i)
		}
	}
}
