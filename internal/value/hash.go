package value

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"sort"
	"strconv"
)

// SetKeys names object members whose array values are compared as unordered
// sets when hashing or comparing schemas ("required", "type", ...).
type SetKeys func(parent, key string) bool

// Canonical writes a tagged, key-order independent encoding of v into h.
// Numbers are written in exact rational form so 1 and 1.0 hash identically.
// When sets is non-nil, arrays under keys it accepts are encoded as sorted
// sets of their members' encodings.
func Canonical(h hash.Hash, v any, sets SetKeys) {
	writeCanonical(h, v, "", "", sets)
}

func writeCanonical(h hash.Hash, v any, parent, key string, sets SetKeys) {
	switch KindOf(v) {
	case Null:
		h.Write([]byte{'n'})
	case Boolean:
		if v.(bool) {
			h.Write([]byte{'t'})
		} else {
			h.Write([]byte{'f'})
		}
	case Number:
		r, _ := Rat(v)
		h.Write([]byte{'#'})
		writeString(h, r.RatString())
	case String:
		h.Write([]byte{'s'})
		writeString(h, v.(string))
	case Array:
		arr := v.([]any)
		if sets != nil && sets(parent, key) {
			parts := make([]string, len(arr))
			for i, e := range arr {
				parts[i] = Digest(e, nil)
			}
			sort.Strings(parts)
			h.Write([]byte{'S'})
			writeLen(h, len(parts))
			for _, p := range parts {
				writeString(h, p)
			}
			return
		}
		h.Write([]byte{'['})
		writeLen(h, len(arr))
		for _, e := range arr {
			writeCanonical(h, e, key, "", sets)
		}
	case Object:
		obj := v.(map[string]any)
		h.Write([]byte{'{'})
		writeLen(h, len(obj))
		for _, k := range SortedKeys(obj) {
			writeString(h, k)
			writeCanonical(h, obj[k], key, k, sets)
		}
	default:
		h.Write([]byte{'?'})
	}
}

func writeLen(h hash.Hash, n int) {
	h.Write([]byte(strconv.Itoa(n)))
	h.Write([]byte{':'})
}

func writeString(h hash.Hash, s string) {
	writeLen(h, len(s))
	h.Write([]byte(s))
}

// Digest returns the hex sha256 of the canonical encoding of v.
func Digest(v any, sets SetKeys) string {
	h := sha256.New()
	Canonical(h, v, sets)
	return hex.EncodeToString(h.Sum(nil))
}
