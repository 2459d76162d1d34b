package jsonskema

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"
	"golang.org/x/sync/singleflight"

	"github.com/reoring/jsonskema/internal/metaschema"
	"github.com/reoring/jsonskema/internal/pointer"
	"github.com/reoring/jsonskema/metrics"
)

// FetchFunc loads the document at uri (fragment stripped). Returning
// (nil, nil) means the address is unknown. ctx carries the values of the
// first caller but not its cancellation, since later callers share the fetch;
// FetchFunc applies its own timeouts.
type FetchFunc func(ctx context.Context, uri string) (any, error)

// registryEntry locates a resource: the document holding it and the pointer
// of the resource root inside that document.
type registryEntry struct {
	doc *Schema
	ptr pointer.Pointer
	uri string
}

// SchemaRegistry maps absolute addresses to schema resources. Lookups consult
// the registry, then the global registry, then Fetch. Fetched documents are
// cached for the registry's lifetime. Concurrent first fetches of the same
// address share one call.
type SchemaRegistry struct {
	// Fetch resolves addresses missing from every table. Set it before the
	// registry is shared.
	Fetch FetchFunc
	// Metrics counts fetches, when set.
	Metrics *metrics.Metrics

	mu           sync.RWMutex
	entries      map[string]registryEntry
	parent       *SchemaRegistry
	vocabularies *VocabularyRegistry
	group        singleflight.Group
	gen          atomic.Uint64
}

var globalRegistry = newGlobalRegistry()

func newGlobalRegistry() *SchemaRegistry {
	r := &SchemaRegistry{entries: map[string]registryEntry{}}
	for _, d := range metaschema.All() {
		s := &Schema{value: d.Value, base: d.ID}
		r.entries[d.ID] = registryEntry{doc: s, ptr: pointer.Root, uri: d.ID}
	}
	return r
}

// GlobalRegistry returns the process-wide registry seeded with the
// meta-schemas of every supported draft.
func GlobalRegistry() *SchemaRegistry { return globalRegistry }

// NewSchemaRegistry returns an empty registry backed by the global one.
func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{entries: map[string]registryEntry{}, parent: globalRegistry}
}

// Register stores s under uri and under the identifiers of every resource it
// embeds. Registering the same address again replaces the entry. A
// meta-schema whose required vocabularies are unknown, or whose "$schema"
// refers back to itself without reaching a known draft, is rejected.
func (r *SchemaRegistry) Register(uri string, s *Schema) error {
	if s.base == "" && uri != "" {
		s = &Schema{value: s.value, base: uri}
	}
	base, _ := splitFragment(uri)
	if err := r.checkMetaSchema(base, s); err != nil {
		return err
	}
	draft := r.registrationDraft(s)
	ix, err := indexDocument(s, draft, nil)
	if err != nil {
		return err
	}
	r.mu.Lock()
	if base != "" {
		r.entries[base] = registryEntry{doc: s, ptr: pointer.Root, uri: base}
	}
	for id, loc := range ix.resources {
		r.entries[id] = registryEntry{doc: s, ptr: loc.ptr, uri: id}
	}
	r.mu.Unlock()
	r.gen.Add(1)
	return nil
}

// MustRegister is Register that panics on error.
func (r *SchemaRegistry) MustRegister(uri string, s *Schema) {
	if err := r.Register(uri, s); err != nil {
		panic(err)
	}
}

// Get returns the resource stored at uri without fetching.
func (r *SchemaRegistry) Get(uri string) (*Schema, bool) {
	e, ok := r.lookup(uri)
	if !ok {
		return nil, false
	}
	return e.schema(), true
}

// Resolve returns the resource at uri, fetching it when necessary.
func (r *SchemaRegistry) Resolve(ctx context.Context, uri string) (*Schema, error) {
	e, err := r.resolve(ctx, uri, logr.FromContextOrDiscard(ctx))
	if err != nil {
		return nil, err
	}
	return e.schema(), nil
}

// Copy returns a registry holding the same entries (shared, not cloned),
// the same parent and fetch callback. Later registrations on either side
// are independent.
func (r *SchemaRegistry) Copy() *SchemaRegistry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &SchemaRegistry{
		Fetch:        r.Fetch,
		Metrics:      r.Metrics,
		entries:      maps.Clone(r.entries),
		parent:       r.parent,
		vocabularies: r.vocabularies,
	}
}

// Generation changes whenever r (or the global registry) gains entries.
// Compiled programs remember it to detect stale reference resolution.
func (r *SchemaRegistry) Generation() uint64 {
	g := r.gen.Load()
	if r.parent != nil {
		g += r.parent.Generation()
	}
	return g
}

func (e registryEntry) schema() *Schema {
	if e.ptr.IsRoot() {
		return e.doc
	}
	v, _ := e.ptr.Resolve(e.doc.value)
	return &Schema{value: v, base: e.uri}
}

func (r *SchemaRegistry) lookup(uri string) (registryEntry, bool) {
	base, _ := splitFragment(uri)
	for cur := r; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		e, ok := cur.entries[base]
		cur.mu.RUnlock()
		if ok {
			return e, true
		}
	}
	return registryEntry{}, false
}

// resolve looks uri up and falls back to Fetch. Fetch failures, including
// (nil, nil), are reported as ErrReferenceNotFound.
func (r *SchemaRegistry) resolve(ctx context.Context, uri string, log logr.Logger) (registryEntry, error) {
	base, _ := splitFragment(uri)
	if e, ok := r.lookup(base); ok {
		return e, nil
	}
	if r.Fetch == nil {
		return registryEntry{}, notFoundf(uri, "", "no schema registered for %q", base)
	}
	// The shared fetch outlives any single caller; each caller waits on its
	// own context.
	fetchCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(base, func() (any, error) {
		if e, ok := r.lookup(base); ok {
			return e, nil
		}
		log.V(1).Info("fetching schema", "uri", base)
		raw, err := r.Fetch(fetchCtx, base)
		r.Metrics.IncFetch(err)
		if err != nil {
			return nil, err
		}
		if raw == nil {
			return nil, fmt.Errorf("fetch returned nothing for %q", base)
		}
		s, err := New(raw, WithBaseURI(base))
		if err != nil {
			return nil, err
		}
		if err := r.Register(base, s); err != nil {
			return nil, err
		}
		e, _ := r.lookup(base)
		return e, nil
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return registryEntry{}, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return registryEntry{}, schemaErr(ErrReferenceNotFound, uri, "", res.Err)
	}
	if res.Shared {
		log.V(2).Info("shared in-flight fetch", "uri", base)
	}
	return res.Val.(registryEntry), nil
}

func (r *SchemaRegistry) vocabularyRegistry() *VocabularyRegistry {
	if r.vocabularies != nil {
		return r.vocabularies
	}
	return globalVocabularies
}

// registrationDraft picks the draft used to find embedded resources. Custom
// meta-schemas already in the registry are followed; otherwise the default
// applies.
func (r *SchemaRegistry) registrationDraft(s *Schema) Draft {
	seen := map[string]bool{}
	meta := s.declaredMetaSchema()
	for meta != "" && !seen[meta] {
		if d := draftOfMetaSchema(meta); d != DraftUnspecified {
			return d
		}
		seen[meta] = true
		e, ok := r.lookup(meta)
		if !ok {
			break
		}
		meta = e.schema().declaredMetaSchema()
	}
	return defaultDraft
}

// checkMetaSchema applies the registration-time checks to documents that
// look like meta-schemas.
func (r *SchemaRegistry) checkMetaSchema(uri string, s *Schema) error {
	m, ok := s.value.(map[string]any)
	if !ok {
		return nil
	}
	id := s.ID()
	if declared, ok := m["$schema"].(string); ok && draftOfMetaSchema(declared) == DraftUnspecified {
		target, _ := splitFragment(declared)
		if target == id || target == uri {
			return circularf(id, "meta-schema %q declares itself as its own meta-schema", target)
		}
	}
	if vocab, ok := m["$vocabulary"].(map[string]any); ok {
		if _, err := readVocabularies(vocab, r.vocabularyRegistry(), id); err != nil {
			return err
		}
	}
	return nil
}
