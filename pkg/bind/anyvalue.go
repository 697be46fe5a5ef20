package bind

import (
	"fmt"

	"github.com/gofleece/fleece/pkg/fleece"
)

// EncodeValue encodes a generic Go value tree — the shape
// encoding/json.Unmarshal produces into an any (nil, bool, float64,
// string, []any, map[string]any) — into a fleece buffer. This is the
// entry point cmd/fleececat drives; it is not a JSON tokenizer, it only
// walks the tree encoding/json already built.
func EncodeValue(v any) ([]byte, error) {
	e := fleece.NewEncoder(fleece.DefaultOptions())
	writeAny(e, v)
	return e.Finish()
}

// writeAny walks a decoded JSON tree. encoding/json can't tell "42" from
// "42.0" once a number is decoded into a float64 — both arrive here as
// the same float64(42) — so the integer-vs-float canonicalization is left
// entirely to Encoder.WriteDouble, which folds an integer-valued float to
// the shortest integer tag on its own.
func writeAny(e *fleece.Encoder, v any) {
	switch t := v.(type) {
	case nil:
		e.WriteNull()
	case bool:
		e.WriteBool(t)
	case string:
		e.WriteString(t)
	case float64:
		e.WriteDouble(t)
	case int:
		e.WriteInt(int64(t))
	case int64:
		e.WriteInt(t)
	case uint64:
		e.WriteUint(t)
	case []byte:
		e.WriteData(t)
	case []any:
		e.BeginArray()
		for _, item := range t {
			writeAny(e, item)
		}
		e.EndArray()
	case map[string]any:
		e.BeginDict()
		for k, item := range t {
			e.WriteKey(k)
			writeAny(e, item)
		}
		e.EndDict()
	default:
		e.WriteString(fmt.Sprint(t))
	}
}
