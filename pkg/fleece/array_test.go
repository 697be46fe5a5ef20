package fleece

import "testing"

func TestArrayIterator(t *testing.T) {
	e := NewEncoder(DefaultOptions())
	e.BeginArray()
	e.WriteInt(10)
	e.WriteInt(20)
	e.WriteInt(30)
	e.EndArray()
	buf, err := e.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	v, err := FromData(buf)
	if err != nil {
		t.Fatalf("FromData: %v", err)
	}
	var got []int64
	it := v.AsArray().Iterator()
	for it.Next() {
		got = append(got, it.Value().AsInt())
	}
	if len(got) != 3 || got[0] != 10 || got[1] != 20 || got[2] != 30 {
		t.Fatalf("iterator produced %v", got)
	}
}

func TestZeroArrayIsEmpty(t *testing.T) {
	var a Array
	if a.Count() != 0 {
		t.Fatalf("zero Array Count = %d, want 0", a.Count())
	}
	if !a.Get(0).IsNull() {
		t.Fatalf("zero Array Get(0) should be NullValue")
	}
}
