package jsonskema

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/reoring/jsonskema/i18n"
	"github.com/reoring/jsonskema/internal/pointer"
	"github.com/reoring/jsonskema/internal/value"
)

// Data vocabulary: "data" and "optionalData" build a schema at evaluation
// time from values found in the instance or in other documents.
const (
	VocabData      = "https://json-everything.net/vocabs-data-2023"
	MetaSchemaData = "https://json-everything.net/meta/data-2023"
)

// dataSource resolves one template entry for one evaluation.
type dataSource struct {
	keyword   string
	reference string
	// static holds the value of a URI reference, resolved at compile time.
	static   any
	resolved bool
	absolute *pointer.Pointer
	relative *pointer.Relative
}

func (d dataSource) lookup(root any, at pointer.Pointer) (any, bool) {
	switch {
	case d.resolved:
		return d.static, true
	case d.absolute != nil:
		return d.absolute.Resolve(root)
	case d.relative != nil:
		return d.relative.Resolve(root, at)
	}
	return nil, false
}

func compileData(kc *KeywordCompiler, v any) (KeywordFunc, error) {
	optional := kc.Keyword() == "optionalData"
	m, ok := v.(map[string]any)
	if !ok {
		return nil, kc.Malformed("value must be an object of references")
	}
	var sources []dataSource
	for _, name := range value.SortedKeys(m) {
		ref, ok := m[name].(string)
		if !ok {
			return nil, kc.Malformed("reference for %q must be a string", name)
		}
		if strings.HasPrefix(name, "$") {
			return nil, kc.Malformed("core keyword %q cannot be supplied as data", name)
		}
		src := dataSource{keyword: name, reference: ref}
		switch {
		case ref == "" || ref[0] == '/':
			p, err := pointer.Parse(ref)
			if err != nil {
				return nil, kc.Malformed("invalid pointer %q: %v", ref, err)
			}
			src.absolute = &p
		case ref[0] >= '0' && ref[0] <= '9':
			r, err := pointer.ParseRelative(ref)
			if err != nil {
				return nil, kc.Malformed("invalid relative pointer %q: %v", ref, err)
			}
			src.relative = &r
		default:
			loc, err := kc.resolve(ref)
			if err != nil {
				if optional && errors.Is(err, ErrReferenceNotFound) {
					continue
				}
				return nil, err
			}
			src.static, src.resolved = loc.value, true
		}
		sources = append(sources, src)
	}
	if len(sources) == 0 {
		return nil, nil
	}
	base, _ := splitFragment(kc.loc.resource)
	draft := kc.Draft()
	var cache sync.Map // schema hash -> *Schema
	return func(ctx context.Context, kc *KeywordContext) {
		built := make(map[string]any, len(sources))
		for _, src := range sources {
			v, ok := src.lookup(kc.e.root, kc.r.instLoc)
			if !ok {
				if optional {
					continue
				}
				kc.Fail(map[string]string{"reference": src.reference, "keyword": src.keyword})
				return
			}
			built[src.keyword] = v
		}
		if len(built) == 0 {
			return
		}
		s, err := New(built, WithBaseURI(base))
		if err != nil {
			kc.FailKey(i18n.KeyDataSchema, map[string]string{"error": err.Error()})
			return
		}
		if prev, loaded := cache.LoadOrStore(s.Hash(), s); loaded {
			s = prev.(*Schema)
		}
		opts := *kc.e.opts
		opts.EvaluateAs = draft
		opts.ValidateAgainstMetaSchema = false
		c, err := s.Compile(ctx, &opts)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			kc.FailKey(i18n.KeyDataSchema, map[string]string{"error": err.Error()})
			return
		}
		if !kc.applyOne(ctx, c.root) {
			kc.Invalidate()
		}
	}, nil
}
