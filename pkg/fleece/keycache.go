package fleece

import "bytes"

// DictKey caches the outcome of looking a key up in one particular dict
// buffer, so repeated lookups of the same key against dicts sharing the
// same buffer (e.g. the same record decoded twice, or a caller re-reading
// a field from a value it already touched) skip the scan entirely. The
// cache is invalidated automatically when the target buffer's identity
// changes.
type DictKey struct {
	name    string
	raw     []byte
	bufID   *byte
	hintPos int
	hintOK  bool
}

// NewDictKey builds a reusable key handle for name.
func NewDictKey(name string) *DictKey {
	return &DictKey{name: name, raw: []byte(name)}
}

func bufIdentity(buf []byte) *byte {
	if len(buf) == 0 {
		return nil
	}
	return &buf[0]
}

// GetKeyed looks up k in d, using and refreshing k's cached slot position
// when d's buffer matches the identity the cache was built against.
func (d Dict) GetKeyed(k *DictKey) Value {
	id := bufIdentity(d.buf)
	if k.hintOK && k.bufID == id {
		v := d.valueAt(k.hintPos)
		if kv := d.keyAt(k.hintPos); bytes.Equal(keyBytes(kv), k.raw) {
			return v
		}
	}
	for i := 0; i < d.count; i++ {
		if bytes.Equal(keyBytes(d.keyAt(i)), k.raw) {
			k.bufID, k.hintPos, k.hintOK = id, i, true
			return d.valueAt(i)
		}
	}
	k.hintOK = false
	return UndefinedValue
}

// LookupKeys resolves every key in keys against d in a single merged
// linear pass over the dict's pairs, rather than one scan per key —
// useful when a caller wants several fields out of the same record at
// once. Keys not found in d come back as UndefinedValue at the
// corresponding index.
func LookupKeys(d Dict, keys []*DictKey) []Value {
	out := make([]Value, len(keys))
	for i := range out {
		out[i] = UndefinedValue
	}
	remaining := len(keys)
	found := make([]bool, len(keys))
	id := bufIdentity(d.buf)

	// A key already carrying a valid hint for this exact buffer resolves
	// without joining the scan below. Other keys in the batch whose hint
	// already agrees (keyPointerEqual) piggyback on that one validation
	// instead of re-scanning for a slot already known.
	for j, k := range keys {
		if found[j] || !k.hintOK || k.bufID != id {
			continue
		}
		if kv := d.keyAt(k.hintPos); !bytes.Equal(keyBytes(kv), k.raw) {
			continue
		}
		out[j] = d.valueAt(k.hintPos)
		found[j] = true
		remaining--
		for j2 := j + 1; j2 < len(keys); j2++ {
			if !found[j2] && keyPointerEqual(k, keys[j2]) {
				out[j2] = out[j]
				found[j2] = true
				remaining--
			}
		}
	}

	for i := 0; i < d.count && remaining > 0; i++ {
		kv := keyBytes(d.keyAt(i))
		for j, k := range keys {
			if found[j] {
				continue
			}
			if bytes.Equal(kv, k.raw) {
				out[j] = d.valueAt(i)
				k.bufID, k.hintPos, k.hintOK = id, i, true
				found[j] = true
				remaining--
			}
		}
	}
	return out
}

// keyPointerEqual reports whether two DictKeys currently point at the
// same resolved slot in the same buffer, a cheap identity shortcut some
// callers use instead of comparing names.
func keyPointerEqual(a, b *DictKey) bool {
	return a.hintOK && b.hintOK && a.bufID == b.bufID && a.hintPos == b.hintPos
}
