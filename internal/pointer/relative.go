package pointer

import (
	"fmt"
	"strconv"
)

// Relative is a parsed relative JSON Pointer: climb Up levels from the
// current location, shift the array index by Offset, then either name the
// reached key (Key) or follow Rest.
type Relative struct {
	Up     int
	Offset int
	Key    bool
	Rest   Pointer
}

// ParseRelative parses "<up>[+|-<offset>](#|<pointer>)".
func ParseRelative(s string) (Relative, error) {
	var r Relative
	i := digits(s, 0)
	if i == 0 || (i > 1 && s[0] == '0') {
		return r, fmt.Errorf("%w: relative pointer %q needs a non-negative integer prefix", ErrSyntax, s)
	}
	r.Up, _ = strconv.Atoi(s[:i])
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		j := digits(s, i+1)
		if j == i+1 || (j > i+2 && s[i+1] == '0') {
			return r, fmt.Errorf("%w: relative pointer %q has a bad index offset", ErrSyntax, s)
		}
		r.Offset, _ = strconv.Atoi(s[i+1 : j])
		if s[i] == '-' {
			r.Offset = -r.Offset
		}
		i = j
	}
	if s[i:] == "#" {
		r.Key = true
		return r, nil
	}
	p, err := Parse(s[i:])
	if err != nil {
		return r, err
	}
	r.Rest = p
	return r, nil
}

func digits(s string, from int) int {
	i := from
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i
}

// Resolve evaluates r from location from inside doc. A key lookup yields the
// member name as a string or the array index as an int.
func (r Relative) Resolve(doc any, from Pointer) (any, bool) {
	if r.Up > len(from.tokens) {
		return nil, false
	}
	base := Pointer{tokens: from.tokens[:len(from.tokens)-r.Up]}
	if r.Offset != 0 {
		if base.IsRoot() {
			return nil, false
		}
		parent := Pointer{tokens: base.tokens[:len(base.tokens)-1]}
		arr, ok := parent.resolveArray(doc)
		if !ok {
			return nil, false
		}
		i, ok := arrayIndex(base.Last())
		if !ok || i+r.Offset < 0 || i+r.Offset >= len(arr) {
			return nil, false
		}
		base = parent.Index(i + r.Offset)
	}
	if r.Key {
		if base.IsRoot() {
			return nil, false
		}
		parent := Pointer{tokens: base.tokens[:len(base.tokens)-1]}
		if _, ok := parent.resolveArray(doc); ok {
			i, _ := arrayIndex(base.Last())
			return i, true
		}
		return base.Last(), true
	}
	return base.Concat(r.Rest).Resolve(doc)
}

func (p Pointer) resolveArray(doc any) ([]any, bool) {
	v, ok := p.Resolve(doc)
	if !ok {
		return nil, false
	}
	arr, ok := v.([]any)
	return arr, ok
}
