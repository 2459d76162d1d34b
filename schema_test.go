package jsonskema_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/reoring/jsonskema"
	"github.com/reoring/jsonskema/source"
)

func mustJSON(t *testing.T, text string) *jsonskema.Schema {
	t.Helper()
	s, err := jsonskema.FromJSON([]byte(text))
	if err != nil {
		t.Fatalf("FromJSON(%s): %v", text, err)
	}
	return s
}

func TestSchema_HashIgnoresKeyOrderAndSetOrder(t *testing.T) {
	a := mustJSON(t, `{"type":"object","required":["a","b"],"properties":{"a":{"type":["string","null"]}}}`)
	b := mustJSON(t, `{"properties":{"a":{"type":["null","string"]}},"required":["b","a"],"type":"object"}`)
	if !a.Equal(b) {
		t.Fatalf("expected equal schemas: %s vs %s", a, b)
	}
	if a.Hash() != b.Hash() {
		t.Fatalf("hash mismatch: %s vs %s", a.Hash(), b.Hash())
	}
}

func TestSchema_HashKeepsArrayOrder(t *testing.T) {
	a := mustJSON(t, `{"enum":[1,2]}`)
	b := mustJSON(t, `{"enum":[2,1]}`)
	if a.Equal(b) {
		t.Fatal("enum order must matter")
	}
	c := mustJSON(t, `{"prefixItems":[{"type":"string"},{"type":"number"}]}`)
	d := mustJSON(t, `{"prefixItems":[{"type":"number"},{"type":"string"}]}`)
	if c.Equal(d) {
		t.Fatal("prefixItems order must matter")
	}
}

func TestSchema_DependentRequiredListsAreSets(t *testing.T) {
	a := mustJSON(t, `{"dependentRequired":{"a":["b","c"]}}`)
	b := mustJSON(t, `{"dependentRequired":{"a":["c","b"]}}`)
	if !a.Equal(b) {
		t.Fatal("dependentRequired lists must compare as sets")
	}
}

func TestSchema_DefaultBaseURI(t *testing.T) {
	s := mustJSON(t, `{"type":"string"}`)
	if !strings.HasPrefix(s.BaseURI(), "https://jsonskema.invalid/") {
		t.Fatalf("BaseURI = %q", s.BaseURI())
	}
	if again := mustJSON(t, `{"type":"string"}`); again.BaseURI() != s.BaseURI() {
		t.Fatalf("base URI not deterministic: %q vs %q", again.BaseURI(), s.BaseURI())
	}

	withID := mustJSON(t, `{"$id":"https://example.com/person.json#","type":"object"}`)
	if got := withID.ID(); got != "https://example.com/person.json" {
		t.Fatalf("ID() = %q", got)
	}
	rel, err := jsonskema.FromJSON([]byte(`{"$id":"person.json"}`), jsonskema.WithBaseURI("https://example.com/schemas/root.json"))
	if err != nil {
		t.Fatal(err)
	}
	if got := rel.ID(); got != "https://example.com/schemas/person.json" {
		t.Fatalf("relative ID() = %q", got)
	}
}

func TestSchema_NewRejectsNonSchemas(t *testing.T) {
	for _, v := range []any{nil, 1, "x", []any{}} {
		if _, err := jsonskema.New(v); !errors.Is(err, jsonskema.ErrMalformedKeyword) {
			t.Fatalf("New(%v) err = %v", v, err)
		}
	}
	s, err := jsonskema.New(true)
	if err != nil {
		t.Fatal(err)
	}
	if b, ok := s.Bool(); !ok || !b {
		t.Fatalf("Bool() = %v, %v", b, ok)
	}
}

func TestSchema_FromJSONRejectsDuplicateKeys(t *testing.T) {
	_, err := jsonskema.FromJSON([]byte(`{"type":"string","type":"number"}`))
	var dup *source.DuplicateKeyError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateKeyError, got %v", err)
	}
}

func TestSchema_CompileIsCached(t *testing.T) {
	s := mustJSON(t, `{"type":"string"}`)
	ctx := context.Background()
	c1, err := s.Compile(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	c2, err := s.Compile(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if c1 != c2 {
		t.Fatal("expected the compiled program to be reused")
	}
	c3, err := s.Compile(ctx, &jsonskema.EvaluationOptions{RequireFormatValidation: true})
	if err != nil {
		t.Fatal(err)
	}
	if c3 == c1 {
		t.Fatal("compile-affecting options must produce a new program")
	}
	if c1.Draft() != jsonskema.Draft202012 {
		t.Fatalf("default draft = %s", c1.Draft())
	}
}

func TestSchema_CompileFollowsRegistryChanges(t *testing.T) {
	ctx := context.Background()
	opts := jsonskema.NewEvaluationOptions()
	opts.SchemaRegistry.MustRegister("https://example.com/limit", jsonskema.MustNew(map[string]any{"maximum": 10}))
	s := mustJSON(t, `{"$ref":"https://example.com/limit"}`)

	before, err := s.Compile(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if res := evaluate(t, s, 20, opts); res.Valid {
		t.Fatal("expected 20 to exceed the registered maximum")
	}

	opts.SchemaRegistry.MustRegister("https://example.com/limit", jsonskema.MustNew(map[string]any{"maximum": 100}))
	after, err := s.Compile(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if after == before {
		t.Fatal("re-registering a reference target must recompile")
	}
	if res := evaluate(t, s, 20, opts); !res.Valid {
		t.Fatal("evaluation still uses the replaced reference target")
	}
	again, err := s.Compile(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if again != after {
		t.Fatal("the recompiled program should replace the cached one")
	}
}
