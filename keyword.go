package jsonskema

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
)

// Shape describes where a keyword value holds subschemas. The indexer uses
// it to find identifiers and pointer targets.
type Shape uint8

const (
	ShapeNone           Shape = iota
	ShapeSchema               // a single subschema
	ShapeSchemaArray          // an array of subschemas
	ShapeSchemaMap            // an object of subschemas
	ShapeSchemaOrArray        // a subschema or an array of them ("items" before 2020-12)
	ShapeSchemaOrStrings      // an object of subschemas or string arrays ("dependencies")
	ShapeSchemaMapOfMap       // an object of objects of subschemas
)

// CompileFunc turns a keyword value into its evaluator. Returning a nil
// KeywordFunc makes the keyword a no-op at evaluation time.
type CompileFunc func(kc *KeywordCompiler, value any) (KeywordFunc, error)

// KeywordFunc evaluates one keyword against the current instance. Outcomes
// are recorded on kc.
type KeywordFunc func(ctx context.Context, kc *KeywordContext)

// KeywordDefinition declares a keyword handler.
type KeywordDefinition struct {
	Name   string
	Drafts Draft
	// Vocabularies lists the vocabulary identifiers that enable the keyword
	// in 2019-09 and later. Empty means the keyword is custom.
	Vocabularies []string
	// Priority orders keywords of one schema node; lower runs first.
	Priority int
	// DependsOn names keywords whose annotations this keyword reads. They are
	// evaluated first when present on the same node.
	DependsOn []string
	Shape     Shape
	Compile   CompileFunc
}

var (
	catalogMu  sync.RWMutex
	catalog    *keywordCatalog
	catalogGen atomic.Uint64
)

func init() {
	defs := builtinKeywords()
	catalog = indexCatalog(defs)
	globalVocabularies = newGlobalVocabularies(defs)
}

type keywordCatalog struct {
	byName map[string][]*KeywordDefinition
	order  map[*KeywordDefinition]int
	next   int
}

func indexCatalog(defs []*KeywordDefinition) *keywordCatalog {
	c := &keywordCatalog{byName: map[string][]*KeywordDefinition{}, order: map[*KeywordDefinition]int{}}
	for _, d := range defs {
		c.add(d)
	}
	return c
}

func (c *keywordCatalog) add(d *KeywordDefinition) {
	c.byName[d.Name] = append(c.byName[d.Name], d)
	c.order[d] = c.next
	c.next++
}

// RegisterKeyword adds a keyword handler. A definition whose drafts overlap
// an existing one of the same name replaces it for those drafts.
func RegisterKeyword(def KeywordDefinition) error {
	if def.Name == "" || def.Compile == nil {
		return fmt.Errorf("jsonskema: keyword definition needs a name and a compile function")
	}
	if def.Drafts == DraftUnspecified {
		def.Drafts = DraftAll
	}
	def.Vocabularies = slices.Clone(def.Vocabularies)
	def.DependsOn = slices.Clone(def.DependsOn)
	catalogMu.Lock()
	defer catalogMu.Unlock()
	next := &keywordCatalog{byName: map[string][]*KeywordDefinition{}, order: map[*KeywordDefinition]int{}}
	for _, defs := range catalog.byName {
		for _, d := range defs {
			o := catalog.order[d]
			if d.Name == def.Name && d.Drafts&def.Drafts != 0 {
				trimmed := *d
				trimmed.Drafts &^= def.Drafts
				if trimmed.Drafts == 0 {
					continue
				}
				d = &trimmed
			}
			next.byName[d.Name] = append(next.byName[d.Name], d)
			next.order[d] = o
		}
	}
	next.next = catalog.next
	next.add(&def)
	catalog = next
	catalogGen.Add(1)
	return nil
}

func catalogGeneration() uint64 { return catalogGen.Load() }

// lookupKeyword returns the definition of name for draft, or nil.
func lookupKeyword(name string, draft Draft) *KeywordDefinition {
	d, _ := lookupKeywordOrder(name, draft)
	return d
}

func lookupKeywordOrder(name string, draft Draft) (*KeywordDefinition, int) {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	for _, d := range catalog.byName[name] {
		if d.Drafts&draft != 0 {
			return d, catalog.order[d]
		}
	}
	return nil, 0
}

// unconditionalEdge marks keywords whose subschema always applies at the same
// instance location. A static cycle made only of such edges never
// terminates.
func unconditionalEdge(keyword string) bool {
	switch keyword {
	case "$ref", "$dynamicRef", "$recursiveRef", "allOf":
		return true
	}
	return false
}
