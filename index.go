package jsonskema

import (
	"strconv"
	"strings"

	"github.com/reoring/jsonskema/internal/pointer"
	"github.com/reoring/jsonskema/internal/value"
)

// schemaLoc is a schema position inside a document together with the scope
// facts in force there.
type schemaLoc struct {
	doc      *Schema
	ptr      pointer.Pointer
	value    any
	resource string          // identifier of the enclosing resource
	resPtr   pointer.Pointer // pointer of that resource's root
	draft    Draft
	meta     string // effective meta-schema identifier
}

// location is the absolute schema location: resource identifier plus the
// pointer relative to the resource root.
func (l *schemaLoc) location() string {
	return location(l.resource, l.ptr.TrimPrefix(l.resPtr))
}

func (l *schemaLoc) isResourceRoot() bool { return l.ptr.Equal(l.resPtr) }

// docIndex records the identifiers declared in one document.
type docIndex struct {
	doc       *Schema
	root      *schemaLoc
	resources map[string]*schemaLoc // resource identifier -> root
	anchors   map[string]*schemaLoc // "resource#name" -> anchored node
	dynamic   map[string]*schemaLoc // "resource#name" -> $dynamicAnchor node
	byPtr     map[string]*schemaLoc
	draftOf   func(meta string) (Draft, error)
}

// indexDocument walks every subschema position of doc. draft is the
// effective draft of the document root; draftOf resolves embedded "$schema"
// values and may be nil, in which case only built-in drafts are recognized.
func indexDocument(doc *Schema, draft Draft, draftOf func(string) (Draft, error)) (*docIndex, error) {
	ix := &docIndex{
		doc:       doc,
		resources: map[string]*schemaLoc{},
		anchors:   map[string]*schemaLoc{},
		dynamic:   map[string]*schemaLoc{},
		byPtr:     map[string]*schemaLoc{},
		draftOf:   draftOf,
	}
	retrieval, _ := splitFragment(doc.BaseURI())
	meta := doc.declaredMetaSchema()
	if meta == "" || draftOfMetaSchema(meta) != DraftUnspecified && draftOfMetaSchema(meta) != draft {
		meta = draft.MetaSchema()
	}
	seed := &schemaLoc{doc: doc, resource: retrieval, draft: draft, meta: meta}
	root, err := ix.walk(doc.value, pointer.Root, seed)
	if err != nil {
		return nil, err
	}
	ix.root = root
	if _, ok := ix.resources[retrieval]; !ok {
		ix.resources[retrieval] = root
	}
	return ix, nil
}

func (ix *docIndex) walk(v any, ptr pointer.Pointer, parent *schemaLoc) (*schemaLoc, error) {
	loc, err := ix.scope(v, ptr, parent, true)
	if err != nil {
		return nil, err
	}
	ix.byPtr[ptr.String()] = loc
	obj, ok := v.(map[string]any)
	if !ok {
		return loc, nil
	}
	for _, k := range value.SortedKeys(obj) {
		def := lookupKeyword(k, loc.draft)
		if def == nil || def.Shape == ShapeNone {
			continue
		}
		if err := eachSubschema(def.Shape, obj[k], func(sub any, tokens ...string) error {
			_, err := ix.walk(sub, ptr.Append(k).Append(tokens...), loc)
			return err
		}); err != nil {
			return nil, err
		}
	}
	return loc, nil
}

// eachSubschema calls fn for every schema-valued position of a keyword value
// with the given shape. tokens address the position relative to the keyword.
func eachSubschema(shape Shape, v any, fn func(sub any, tokens ...string) error) error {
	isSchema := func(x any) bool {
		switch x.(type) {
		case bool, map[string]any:
			return true
		}
		return false
	}
	switch shape {
	case ShapeSchema:
		if isSchema(v) {
			return fn(v)
		}
	case ShapeSchemaArray, ShapeSchemaOrArray:
		if arr, ok := v.([]any); ok {
			for i, e := range arr {
				if isSchema(e) {
					if err := fn(e, strconv.Itoa(i)); err != nil {
						return err
					}
				}
			}
		} else if shape == ShapeSchemaOrArray && isSchema(v) {
			return fn(v)
		}
	case ShapeSchemaMap, ShapeSchemaOrStrings:
		if m, ok := v.(map[string]any); ok {
			for _, k := range value.SortedKeys(m) {
				if isSchema(m[k]) {
					if err := fn(m[k], k); err != nil {
						return err
					}
				}
			}
		}
	case ShapeSchemaMapOfMap:
		if m, ok := v.(map[string]any); ok {
			for _, k := range value.SortedKeys(m) {
				inner, ok := m[k].(map[string]any)
				if !ok {
					continue
				}
				for _, k2 := range value.SortedKeys(inner) {
					if isSchema(inner[k2]) {
						if err := fn(inner[k2], k, k2); err != nil {
							return err
						}
					}
				}
			}
		}
	}
	return nil
}

// scope derives the location facts of v from its parent: resource changes
// through "$id", draft changes through an embedded "$schema", and anchors.
// Identifiers are recorded only when register is set.
func (ix *docIndex) scope(v any, ptr pointer.Pointer, parent *schemaLoc, register bool) (*schemaLoc, error) {
	loc := &schemaLoc{
		doc:      ix.doc,
		ptr:      ptr,
		value:    v,
		resource: parent.resource,
		resPtr:   parent.resPtr,
		draft:    parent.draft,
		meta:     parent.meta,
	}
	isRoot := ptr.IsRoot()
	if isRoot {
		loc.resPtr = pointer.Root
	}
	obj, ok := v.(map[string]any)
	if !ok {
		if isRoot && register {
			ix.resources[loc.resource] = loc
		}
		return loc, nil
	}
	id, _ := obj["$id"].(string)
	hidden := loc.draft&(Draft6|Draft7) != 0 && hasKey(obj, "$ref")

	if ms, ok := obj["$schema"].(string); ok && !isRoot && id != "" && !hidden {
		d, err := ix.draftFor(ms, loc.draft)
		if err != nil {
			return nil, err
		}
		loc.draft, loc.meta = d, ms
		hidden = loc.draft&(Draft6|Draft7) != 0 && hasKey(obj, "$ref")
	}

	if id != "" && !hidden {
		if loc.draft&(Draft6|Draft7) != 0 && strings.HasPrefix(id, "#") {
			if register {
				if err := ix.addAnchor(ix.anchors, loc.resource, id[1:], loc); err != nil {
					return nil, err
				}
			}
		} else {
			abs, err := resolveURI(loc.resource, id)
			if err != nil {
				return nil, malformedf(loc.location(), "$id", "invalid identifier %q: %v", id, err)
			}
			base, frag := splitFragment(abs)
			loc.resource, loc.resPtr = base, ptr
			if register {
				if prev, taken := ix.resources[base]; taken && !prev.ptr.Equal(ptr) {
					return nil, malformedf(loc.location(), "$id", "identifier %q already declared at %s", base, prev.location())
				}
				ix.resources[base] = loc
				if frag != "" && loc.draft&(Draft6|Draft7) != 0 {
					if err := ix.addAnchor(ix.anchors, base, frag, loc); err != nil {
						return nil, err
					}
				}
			}
		}
	} else if isRoot && register {
		ix.resources[loc.resource] = loc
	}

	if !register || loc.draft&(Draft6|Draft7) != 0 {
		return loc, nil
	}
	if name, ok := obj["$anchor"].(string); ok {
		if err := ix.addAnchor(ix.anchors, loc.resource, name, loc); err != nil {
			return nil, err
		}
	}
	if name, ok := obj["$dynamicAnchor"].(string); ok && loc.draft&(Draft202012|DraftNext) != 0 {
		if err := ix.addAnchor(ix.anchors, loc.resource, name, loc); err != nil {
			return nil, err
		}
		if err := ix.addAnchor(ix.dynamic, loc.resource, name, loc); err != nil {
			return nil, err
		}
	}
	return loc, nil
}

func (ix *docIndex) addAnchor(table map[string]*schemaLoc, resource, name string, loc *schemaLoc) error {
	key := resource + "#" + name
	if prev, ok := table[key]; ok && !prev.ptr.Equal(loc.ptr) {
		return malformedf(loc.location(), "$anchor", "anchor %q already declared at %s", name, prev.location())
	}
	table[key] = loc
	return nil
}

func (ix *docIndex) draftFor(meta string, inherited Draft) (Draft, error) {
	if ix.draftOf != nil {
		return ix.draftOf(meta)
	}
	if d := draftOfMetaSchema(meta); d != DraftUnspecified {
		return d, nil
	}
	return inherited, nil
}

// locate returns the location at ptr. Positions the walk never visited
// (inside unknown keywords, say) are derived from their nearest indexed
// ancestor without registering identifiers.
func (ix *docIndex) locate(ptr pointer.Pointer) (*schemaLoc, bool, error) {
	if loc, ok := ix.byPtr[ptr.String()]; ok {
		return loc, true, nil
	}
	v, ok := ptr.Resolve(ix.doc.value)
	if !ok {
		return nil, false, nil
	}
	tokens := ptr.Tokens()
	var anc *schemaLoc
	for n := len(tokens) - 1; n >= 0; n-- {
		if l, ok := ix.byPtr[pointer.New(tokens[:n]...).String()]; ok {
			anc = l
			break
		}
	}
	if anc == nil {
		anc = ix.root
	}
	loc, err := ix.scope(v, ptr, anc, false)
	if err != nil {
		return nil, false, err
	}
	ix.byPtr[ptr.String()] = loc
	return loc, true, nil
}

func hasKey(m map[string]any, k string) bool {
	_, ok := m[k]
	return ok
}
