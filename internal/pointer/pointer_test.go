package pointer

import "testing"

func TestPointer_RoundTripEscaping(t *testing.T) {
	cases := []struct {
		tokens []string
		want   string
	}{
		{nil, ""},
		{[]string{"a"}, "/a"},
		{[]string{"a/b", "c~d"}, "/a~1b/c~0d"},
		{[]string{"", "0"}, "//0"},
	}
	for _, tc := range cases {
		p := New(tc.tokens...)
		if got := p.String(); got != tc.want {
			t.Fatalf("String(%v) = %q, want %q", tc.tokens, got, tc.want)
		}
		back, err := Parse(tc.want)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.want, err)
		}
		if !back.Equal(p) {
			t.Fatalf("Parse(%q) = %v, want %v", tc.want, back.Tokens(), tc.tokens)
		}
	}
}

func TestPointer_ParseErrors(t *testing.T) {
	for _, s := range []string{"a", "/~2", "/a~"} {
		if _, err := Parse(s); err == nil {
			t.Fatalf("expected error for %q", s)
		}
	}
}

func TestPointer_AppendDoesNotAlias(t *testing.T) {
	base := New("a", "b")
	x := base.Field("x")
	y := base.Field("y")
	if x.String() != "/a/b/x" || y.String() != "/a/b/y" {
		t.Fatalf("aliasing detected: %s %s", x, y)
	}
}

func TestPointer_Resolve(t *testing.T) {
	doc := map[string]any{
		"$defs": map[string]any{
			"a/b": []any{"zero", map[string]any{"k": true}},
		},
	}
	p, _ := Parse("/$defs/a~1b/1/k")
	v, ok := p.Resolve(doc)
	if !ok || v != true {
		t.Fatalf("Resolve = %v, %v", v, ok)
	}
	for _, s := range []string{"/$defs/missing", "/$defs/a~1b/01", "/$defs/a~1b/-", "/$defs/a~1b/9"} {
		p, _ := Parse(s)
		if _, ok := p.Resolve(doc); ok {
			t.Fatalf("expected %q to be unresolvable", s)
		}
	}
}

func TestPointer_Fragment(t *testing.T) {
	p := New("$defs", "a b", "%")
	if got := p.Fragment(); got != "#/$defs/a%20b/%25" {
		t.Fatalf("Fragment = %q", got)
	}
	back, err := ParseFragment("/$defs/a%20b/%25")
	if err != nil || !back.Equal(p) {
		t.Fatalf("ParseFragment = %v, %v", back.Tokens(), err)
	}
}

func TestPointer_PrefixOps(t *testing.T) {
	p := New("a", "b", "c")
	q := New("a", "b")
	if !p.HasPrefix(q) || q.HasPrefix(p) {
		t.Fatalf("HasPrefix mismatch")
	}
	if got := p.TrimPrefix(q).String(); got != "/c" {
		t.Fatalf("TrimPrefix = %q", got)
	}
	if p.Last() != "c" || Root.Last() != "" {
		t.Fatalf("Last mismatch")
	}
}
