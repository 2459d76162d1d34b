// Package pointer implements RFC 6901 JSON Pointers over decoded JSON values.
//
// Pointers are immutable: Field, Index and Append return new values and never
// share backing storage with the receiver, so a pointer can be handed to
// concurrently running evaluation branches without copying.
package pointer

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Pointer is a parsed JSON Pointer held as unescaped reference tokens.
type Pointer struct {
	tokens []string
}

// Root is the empty pointer that addresses the whole document.
var Root = Pointer{}

// ErrSyntax is returned for pointer strings that do not follow RFC 6901.
var ErrSyntax = errors.New("pointer: invalid syntax")

// New builds a pointer from unescaped tokens.
func New(tokens ...string) Pointer {
	if len(tokens) == 0 {
		return Root
	}
	return Pointer{tokens: append([]string(nil), tokens...)}
}

// Field returns p extended by an object member name.
func (p Pointer) Field(name string) Pointer { return p.Append(name) }

// Index returns p extended by an array index.
func (p Pointer) Index(i int) Pointer { return p.Append(strconv.Itoa(i)) }

// Append returns p extended by the given tokens.
func (p Pointer) Append(tokens ...string) Pointer {
	if len(tokens) == 0 {
		return p
	}
	out := make([]string, 0, len(p.tokens)+len(tokens))
	out = append(out, p.tokens...)
	out = append(out, tokens...)
	return Pointer{tokens: out}
}

// Concat returns p followed by every token of q.
func (p Pointer) Concat(q Pointer) Pointer { return p.Append(q.tokens...) }

// Tokens returns a copy of the unescaped tokens.
func (p Pointer) Tokens() []string { return append([]string(nil), p.tokens...) }

// Len reports the number of tokens.
func (p Pointer) Len() int { return len(p.tokens) }

// IsRoot reports whether p addresses the whole document.
func (p Pointer) IsRoot() bool { return len(p.tokens) == 0 }

// Last returns the final token, or "" for the root pointer.
func (p Pointer) Last() string {
	if len(p.tokens) == 0 {
		return ""
	}
	return p.tokens[len(p.tokens)-1]
}

// HasPrefix reports whether q is a prefix of p.
func (p Pointer) HasPrefix(q Pointer) bool {
	if len(q.tokens) > len(p.tokens) {
		return false
	}
	for i, t := range q.tokens {
		if p.tokens[i] != t {
			return false
		}
	}
	return true
}

// TrimPrefix removes q from the front of p. It returns p unchanged when q is
// not a prefix.
func (p Pointer) TrimPrefix(q Pointer) Pointer {
	if !p.HasPrefix(q) {
		return p
	}
	return New(p.tokens[len(q.tokens):]...)
}

// Equal reports token-wise equality.
func (p Pointer) Equal(q Pointer) bool {
	return len(p.tokens) == len(q.tokens) && p.HasPrefix(q)
}

// String renders the pointer in its JSON string form; the root is "".
func (p Pointer) String() string {
	if len(p.tokens) == 0 {
		return ""
	}
	b := &strings.Builder{}
	for _, t := range p.tokens {
		b.WriteByte('/')
		b.WriteString(Escape(t))
	}
	return b.String()
}

// Fragment renders the pointer as a URI fragment including the leading '#'.
func (p Pointer) Fragment() string {
	u := url.URL{Fragment: p.String()}
	return "#" + u.EscapedFragment()
}

// Escape applies RFC 6901 escaping ('~' -> "~0", '/' -> "~1").
func Escape(token string) string {
	if !strings.ContainsAny(token, "~/") {
		return token
	}
	return strings.ReplaceAll(strings.ReplaceAll(token, "~", "~0"), "/", "~1")
}

// Unescape reverses Escape.
func Unescape(token string) (string, error) {
	if !strings.Contains(token, "~") {
		return token, nil
	}
	for i := 0; i < len(token); i++ {
		if token[i] == '~' && (i+1 >= len(token) || (token[i+1] != '0' && token[i+1] != '1')) {
			return "", fmt.Errorf("%w: bad escape in %q", ErrSyntax, token)
		}
	}
	return strings.ReplaceAll(strings.ReplaceAll(token, "~1", "/"), "~0", "~"), nil
}

// Parse parses the JSON string form of a pointer.
func Parse(s string) (Pointer, error) {
	if s == "" {
		return Root, nil
	}
	if s[0] != '/' {
		return Root, fmt.Errorf("%w: %q must start with '/'", ErrSyntax, s)
	}
	parts := strings.Split(s[1:], "/")
	tokens := make([]string, len(parts))
	for i, raw := range parts {
		t, err := Unescape(raw)
		if err != nil {
			return Root, err
		}
		tokens[i] = t
	}
	return Pointer{tokens: tokens}, nil
}

// ParseFragment parses a URI fragment (without '#') that holds a pointer.
func ParseFragment(fragment string) (Pointer, error) {
	s, err := url.PathUnescape(fragment)
	if err != nil {
		return Root, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return Parse(s)
}

// Resolve walks doc along p. Objects must be map[string]any and arrays []any.
func (p Pointer) Resolve(doc any) (any, bool) {
	cur := doc
	for _, t := range p.tokens {
		switch v := cur.(type) {
		case map[string]any:
			next, ok := v[t]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, ok := arrayIndex(t)
			if !ok || i >= len(v) {
				return nil, false
			}
			cur = v[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

func arrayIndex(t string) (int, bool) {
	if t == "" || (len(t) > 1 && t[0] == '0') {
		return 0, false
	}
	for i := 0; i < len(t); i++ {
		if t[i] < '0' || t[i] > '9' {
			return 0, false
		}
	}
	i, err := strconv.Atoi(t)
	if err != nil {
		return 0, false
	}
	return i, true
}
