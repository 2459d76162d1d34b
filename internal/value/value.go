// Package value holds the helpers the engine needs over decoded JSON values:
// kind detection, exact numeric comparison, structural equality and a
// canonical encoding used for hashing.
//
// A value tree is built from nil, bool, string, json.Number, Go numeric types,
// []any and map[string]any, which is what the source drivers produce.
package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"sort"

	gojson "github.com/goccy/go-json"
)

// Kind enumerates JSON value kinds.
type Kind int

const (
	Invalid Kind = iota
	Null
	Boolean
	Number
	String
	Array
	Object
)

// String returns the JSON Schema type name of the kind.
func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Boolean:
		return "boolean"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "invalid"
	}
}

// KindOf classifies v.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return Null
	case bool:
		return Boolean
	case string:
		return String
	case json.Number, float64, float32,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return Number
	case []any:
		return Array
	case map[string]any:
		return Object
	default:
		return Invalid
	}
}

// TypeName returns the most specific JSON Schema type name for v, reporting
// "integer" for numbers without a fractional part.
func TypeName(v any) string {
	k := KindOf(v)
	if k == Number && IsInteger(v) {
		return "integer"
	}
	return k.String()
}

// Rat converts a numeric value to an exact rational. NaN and infinities are
// rejected.
func Rat(v any) (*big.Rat, bool) {
	switch n := v.(type) {
	case json.Number:
		return ratFromString(string(n))
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, false
		}
		return new(big.Rat).SetFloat64(n), true
	case float32:
		return Rat(float64(n))
	case int:
		return new(big.Rat).SetInt64(int64(n)), true
	case int8:
		return new(big.Rat).SetInt64(int64(n)), true
	case int16:
		return new(big.Rat).SetInt64(int64(n)), true
	case int32:
		return new(big.Rat).SetInt64(int64(n)), true
	case int64:
		return new(big.Rat).SetInt64(n), true
	case uint:
		return new(big.Rat).SetUint64(uint64(n)), true
	case uint8:
		return new(big.Rat).SetUint64(uint64(n)), true
	case uint16:
		return new(big.Rat).SetUint64(uint64(n)), true
	case uint32:
		return new(big.Rat).SetUint64(uint64(n)), true
	case uint64:
		return new(big.Rat).SetUint64(n), true
	}
	return nil, false
}

func ratFromString(s string) (*big.Rat, bool) {
	r, ok := new(big.Rat).SetString(s)
	return r, ok
}

// IsInteger reports whether v is a number with no fractional part (1.0 counts).
func IsInteger(v any) bool {
	r, ok := Rat(v)
	return ok && r.IsInt()
}

// CompareNumbers compares two numeric values exactly. ok is false when either
// side is not a finite number.
func CompareNumbers(a, b any) (cmp int, ok bool) {
	ra, ok1 := Rat(a)
	rb, ok2 := Rat(b)
	if !ok1 || !ok2 {
		return 0, false
	}
	return ra.Cmp(rb), true
}

// IsMultipleOf reports whether v / divisor is an integer.
func IsMultipleOf(v, divisor any) bool {
	rv, ok1 := Rat(v)
	rd, ok2 := Rat(divisor)
	if !ok1 || !ok2 || rd.Sign() == 0 {
		return false
	}
	return new(big.Rat).Quo(rv, rd).IsInt()
}

// Equal reports structural equality; numbers compare by value, so 1 == 1.0.
func Equal(a, b any) bool {
	ka, kb := KindOf(a), KindOf(b)
	if ka != kb {
		return false
	}
	switch ka {
	case Null:
		return true
	case Boolean:
		return a.(bool) == b.(bool)
	case String:
		return a.(string) == b.(string)
	case Number:
		c, ok := CompareNumbers(a, b)
		return ok && c == 0
	case Array:
		aa, ba := a.([]any), b.([]any)
		if len(aa) != len(ba) {
			return false
		}
		for i := range aa {
			if !Equal(aa[i], ba[i]) {
				return false
			}
		}
		return true
	case Object:
		ao, bo := a.(map[string]any), b.(map[string]any)
		if len(ao) != len(bo) {
			return false
		}
		for k, av := range ao {
			bv, ok := bo[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	return false
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Normalize converts arbitrary Go values (structs, typed slices and maps) into
// the generic tree understood by the engine. Trees that are already generic
// are returned unchanged.
func Normalize(v any) (any, error) {
	if isGeneric(v) {
		return v, nil
	}
	b, err := gojson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("value: cannot marshal %T: %w", v, err)
	}
	dec := gojson.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func isGeneric(v any) bool {
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			if !isGeneric(e) {
				return false
			}
		}
		return true
	case map[string]any:
		for _, e := range t {
			if !isGeneric(e) {
				return false
			}
		}
		return true
	case float64:
		return !math.IsNaN(t) && !math.IsInf(t, 0)
	}
	return KindOf(v) != Invalid
}

// JSON renders v as compact JSON text, used when substituting values into
// messages. Numbers keep their exact textual form.
func JSON(v any) string {
	switch t := v.(type) {
	case json.Number:
		return string(t)
	case nil:
		return "null"
	}
	if r, ok := Rat(v); ok {
		return FormatRat(r)
	}
	b, err := gojson.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// FormatRat prints an exact rational in decimal when it terminates and as a
// fraction otherwise.
func FormatRat(r *big.Rat) string {
	if r.IsInt() {
		return r.Num().String()
	}
	if s, exact := r.FloatPrec(); exact {
		return r.FloatString(s)
	}
	return r.RatString()
}
