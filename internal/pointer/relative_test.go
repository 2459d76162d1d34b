package pointer

import (
	"errors"
	"testing"
)

func TestRelative_Resolve(t *testing.T) {
	doc := map[string]any{
		"foo":       []any{"bar", "baz"},
		"highly":    map[string]any{"nested": map[string]any{"objects": true}},
		"minAmount": 5,
	}
	from := New("foo", "1")
	cases := []struct {
		rel  string
		want any
	}{
		{"0", "baz"},
		{"1/0", "bar"},
		{"0-1", "bar"},
		{"2/highly/nested/objects", true},
		{"0#", 1},
		{"1#", "foo"},
		{"2/minAmount", 5},
	}
	for _, tc := range cases {
		r, err := ParseRelative(tc.rel)
		if err != nil {
			t.Fatalf("ParseRelative(%q): %v", tc.rel, err)
		}
		got, ok := r.Resolve(doc, from)
		if !ok || got != tc.want {
			t.Errorf("%q from %s = %v (%v), want %v", tc.rel, from, got, ok, tc.want)
		}
	}
}

func TestRelative_Unresolvable(t *testing.T) {
	doc := map[string]any{"a": []any{1}}
	for _, rel := range []string{"3", "0+1", "1/missing", "2#"} {
		r, err := ParseRelative(rel)
		if err != nil {
			t.Fatalf("ParseRelative(%q): %v", rel, err)
		}
		if v, ok := r.Resolve(doc, New("a", "0")); ok {
			t.Errorf("%q resolved to %v", rel, v)
		}
	}
}

func TestRelative_ParseErrors(t *testing.T) {
	for _, rel := range []string{"", "/a", "01", "1+", "0+01", "1a"} {
		if _, err := ParseRelative(rel); !errors.Is(err, ErrSyntax) {
			t.Errorf("ParseRelative(%q) = %v, want ErrSyntax", rel, err)
		}
	}
}
