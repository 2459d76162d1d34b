package jsonskema

import (
	"context"
	"fmt"
	"io/fs"
	"sync"

	"github.com/reoring/jsonskema/internal/value"
	"github.com/reoring/jsonskema/source"
)

// defaultBaseHost hosts the generated base URI of schemas without "$id".
const defaultBaseHost = "https://jsonskema.invalid/"

// Schema is an immutable schema document: either a boolean or a keyword map.
// A Schema is safe for concurrent use; compiled programs are cached on it.
type Schema struct {
	value any
	base  string

	hashOnce sync.Once
	hash     string

	compiled sync.Map // compileSlot -> *cachedProgram
}

// SchemaOption customizes New.
type SchemaOption func(*Schema)

// WithBaseURI sets the retrieval address of the document. A relative "$id"
// resolves against it; without "$id" it becomes the document's identifier.
func WithBaseURI(uri string) SchemaOption {
	return func(s *Schema) { s.base = uri }
}

// New wraps a decoded schema document. Structs and typed containers are
// normalized into the generic value tree first.
func New(v any, opts ...SchemaOption) (*Schema, error) {
	n, err := value.Normalize(v)
	if err != nil {
		return nil, err
	}
	switch n.(type) {
	case bool, map[string]any:
	default:
		return nil, malformedf("", "", "schema must be a boolean or an object, got %s", value.KindOf(n))
	}
	s := &Schema{value: n}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// MustNew is New that panics on error. Intended for literals in tests and
// package initialization.
func MustNew(v any, opts ...SchemaOption) *Schema {
	s, err := New(v, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// FromJSON decodes a schema from JSON text. Duplicate keys are rejected.
func FromJSON(data []byte, opts ...SchemaOption) (*Schema, error) {
	v, err := source.JSON(data)
	if err != nil {
		return nil, err
	}
	return New(v, opts...)
}

// FromFile reads a schema (JSON, YAML or MessagePack by extension) from fsys.
func FromFile(fsys fs.FS, name string, opts ...SchemaOption) (*Schema, error) {
	v, err := source.File(fsys, name)
	if err != nil {
		return nil, err
	}
	return New(v, opts...)
}

// Value returns the underlying document. It must not be mutated.
func (s *Schema) Value() any { return s.value }

// Bool reports whether the schema is a boolean literal and its value.
func (s *Schema) Bool() (b, ok bool) {
	b, ok = s.value.(bool)
	return b, ok
}

// BaseURI returns the retrieval address: the configured one, or a
// deterministic address derived from the document hash.
func (s *Schema) BaseURI() string {
	if s.base != "" {
		return s.base
	}
	return defaultBaseHost + s.Hash()[:16]
}

// ID returns the resolved root "$id", or BaseURI when the document has none.
// The draft 6/7 rule that "$ref" hides a sibling "$id" is not applied here.
func (s *Schema) ID() string {
	if m, ok := s.value.(map[string]any); ok {
		if id, ok := m["$id"].(string); ok && id != "" {
			if abs, err := resolveURI(s.BaseURI(), id); err == nil {
				base, _ := splitFragment(abs)
				return base
			}
		}
	}
	base, _ := splitFragment(s.BaseURI())
	return base
}

// declaredMetaSchema returns the root "$schema" value, if any.
func (s *Schema) declaredMetaSchema() string {
	if m, ok := s.value.(map[string]any); ok {
		if ms, ok := m["$schema"].(string); ok {
			return ms
		}
	}
	return ""
}

// setValued lists the keywords whose arrays compare as sets.
func setValued(parent, key string) bool {
	switch key {
	case "required", "type":
		return parent != "properties" && parent != "$defs" && parent != "definitions"
	}
	return parent == "dependentRequired" || parent == "dependencies"
}

// Hash returns a hex digest that is equal for structurally equal schemas,
// independent of key order and of the order of set-valued keyword arrays.
func (s *Schema) Hash() string {
	s.hashOnce.Do(func() { s.hash = value.Digest(s.value, setValued) })
	return s.hash
}

// Equal reports structural equality under the same rules as Hash.
func (s *Schema) Equal(o *Schema) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.Hash() == o.Hash()
}

func (s *Schema) String() string {
	return fmt.Sprintf("Schema(%s)", value.JSON(s.value))
}

// cachedProgram is the latest program compiled for one options slot.
type cachedProgram struct {
	gen compileGen
	c   *Compiled
}

// Compile prepares the schema for repeated evaluation under opts. One program
// is cached per draft, compile-affecting options and registries; it is
// replaced once any of those registries gains entries.
func (s *Schema) Compile(ctx context.Context, opts *EvaluationOptions) (*Compiled, error) {
	opts = opts.orDefault()
	key := opts.compileKey()
	if p, ok := s.compiled.Load(key.slot); ok && p.(*cachedProgram).gen == key.gen {
		return p.(*cachedProgram).c, nil
	}
	c, err := compileSchema(ctx, s, opts)
	if err != nil {
		return nil, err
	}
	if opts.compileKey() == key {
		s.compiled.Store(key.slot, &cachedProgram{gen: key.gen, c: c})
	}
	return c, nil
}

// Evaluate compiles (or reuses) the schema and evaluates instance.
func (s *Schema) Evaluate(ctx context.Context, instance any, opts *EvaluationOptions) (*Results, error) {
	opts = opts.orDefault()
	c, err := s.Compile(ctx, opts)
	if err != nil {
		return nil, err
	}
	return c.Evaluate(ctx, instance, opts)
}
