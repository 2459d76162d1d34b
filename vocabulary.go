package jsonskema

import (
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/reoring/jsonskema/internal/value"
)

// Vocabulary identifiers of the built-in drafts.
const (
	VocabCore201909        = "https://json-schema.org/draft/2019-09/vocab/core"
	VocabApplicator201909  = "https://json-schema.org/draft/2019-09/vocab/applicator"
	VocabValidation201909  = "https://json-schema.org/draft/2019-09/vocab/validation"
	VocabMetaData201909    = "https://json-schema.org/draft/2019-09/vocab/meta-data"
	VocabFormat201909      = "https://json-schema.org/draft/2019-09/vocab/format"
	VocabContent201909     = "https://json-schema.org/draft/2019-09/vocab/content"
	VocabCore202012        = "https://json-schema.org/draft/2020-12/vocab/core"
	VocabApplicator202012  = "https://json-schema.org/draft/2020-12/vocab/applicator"
	VocabUnevaluated202012 = "https://json-schema.org/draft/2020-12/vocab/unevaluated"
	VocabValidation202012  = "https://json-schema.org/draft/2020-12/vocab/validation"
	VocabMetaData202012    = "https://json-schema.org/draft/2020-12/vocab/meta-data"
	VocabFormatAnnotation  = "https://json-schema.org/draft/2020-12/vocab/format-annotation"
	VocabFormatAssertion   = "https://json-schema.org/draft/2020-12/vocab/format-assertion"
	VocabContent202012     = "https://json-schema.org/draft/2020-12/vocab/content"
	VocabCoreNext          = "https://json-schema.org/draft/next/vocab/core"
	VocabApplicatorNext    = "https://json-schema.org/draft/next/vocab/applicator"
	VocabUnevaluatedNext   = "https://json-schema.org/draft/next/vocab/unevaluated"
	VocabValidationNext    = "https://json-schema.org/draft/next/vocab/validation"
	VocabMetaDataNext      = "https://json-schema.org/draft/next/vocab/meta-data"
	VocabFormatAnnotNext   = "https://json-schema.org/draft/next/vocab/format-annotation"
	VocabFormatAssertNext  = "https://json-schema.org/draft/next/vocab/format-assertion"
	VocabContentNext       = "https://json-schema.org/draft/next/vocab/content"
)

// vocabGroups maps a short group name to its identifiers across drafts.
var vocabGroups = map[string][]string{
	"core":        {VocabCore201909, VocabCore202012, VocabCoreNext},
	"applicator":  {VocabApplicator201909, VocabApplicator202012, VocabApplicatorNext},
	"unevaluated": {VocabApplicator201909, VocabUnevaluated202012, VocabUnevaluatedNext},
	"validation":  {VocabValidation201909, VocabValidation202012, VocabValidationNext},
	"meta-data":   {VocabMetaData201909, VocabMetaData202012, VocabMetaDataNext},
	"format": {VocabFormat201909, VocabFormatAnnotation, VocabFormatAssertion,
		VocabFormatAnnotNext, VocabFormatAssertNext},
	"content": {VocabContent201909, VocabContent202012, VocabContentNext},
}

// formatAssertionVocabs make "format" assert when active.
var formatAssertionVocabs = []string{VocabFormatAssertion, VocabFormatAssertNext}

// Vocabulary is a named set of keywords.
type Vocabulary struct {
	ID       string
	Keywords []string
}

// VocabularyRegistry maps vocabulary identifiers to their keywords.
type VocabularyRegistry struct {
	mu     sync.RWMutex
	vocabs map[string]Vocabulary
	parent *VocabularyRegistry
	gen    atomic.Uint64
}

var globalVocabularies *VocabularyRegistry

func newGlobalVocabularies(defs []*KeywordDefinition) *VocabularyRegistry {
	r := &VocabularyRegistry{vocabs: map[string]Vocabulary{}}
	byID := map[string][]string{}
	for _, def := range defs {
		for _, id := range def.Vocabularies {
			byID[id] = append(byID[id], def.Name)
		}
	}
	for id, kws := range byID {
		r.vocabs[id] = Vocabulary{ID: id, Keywords: kws}
	}
	return r
}

// GlobalVocabularies returns the process-wide registry holding the built-in
// vocabularies.
func GlobalVocabularies() *VocabularyRegistry { return globalVocabularies }

// NewVocabularyRegistry returns an empty registry that falls back to the
// global one.
func NewVocabularyRegistry() *VocabularyRegistry {
	return &VocabularyRegistry{vocabs: map[string]Vocabulary{}, parent: globalVocabularies}
}

// Register adds or replaces a vocabulary.
func (r *VocabularyRegistry) Register(v Vocabulary) {
	r.mu.Lock()
	r.vocabs[v.ID] = Vocabulary{ID: v.ID, Keywords: slices.Clone(v.Keywords)}
	r.mu.Unlock()
	r.gen.Add(1)
}

// Lookup finds a vocabulary here or in the parent registry.
func (r *VocabularyRegistry) Lookup(id string) (Vocabulary, bool) {
	r.mu.RLock()
	v, ok := r.vocabs[id]
	r.mu.RUnlock()
	if ok {
		return v, true
	}
	if r.parent != nil {
		return r.parent.Lookup(id)
	}
	return Vocabulary{}, false
}

// Copy returns an independent registry seeded with r's entries.
func (r *VocabularyRegistry) Copy() *VocabularyRegistry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &VocabularyRegistry{vocabs: maps.Clone(r.vocabs), parent: r.parent}
}

// Generation changes whenever r or its parent gains a vocabulary.
func (r *VocabularyRegistry) Generation() uint64 {
	g := r.gen.Load()
	if r.parent != nil {
		g += r.parent.Generation()
	}
	return g
}

// vocabSet is the outcome of reading a meta-schema's "$vocabulary".
type vocabSet struct {
	// all is set when the draft has no vocabularies or the meta-schema
	// declares none: every keyword of the draft is active.
	all          bool
	active       map[string]bool
	formatAssert bool
}

func (v *vocabSet) allows(ids []string) bool {
	if v.all {
		return true
	}
	for _, id := range ids {
		if v.active[id] {
			return true
		}
	}
	return false
}

// readVocabularies evaluates a meta-schema "$vocabulary" map against the
// registry. Unknown optional vocabularies are ignored; unknown required ones
// fail.
func readVocabularies(declared map[string]any, reg *VocabularyRegistry, loc string) (*vocabSet, error) {
	set := &vocabSet{active: map[string]bool{}}
	for _, id := range value.SortedKeys(declared) {
		required, ok := declared[id].(bool)
		if !ok {
			return nil, malformedf(loc, "$vocabulary", "value for %q must be a boolean", id)
		}
		if _, known := reg.Lookup(id); !known {
			if required {
				return nil, vocabularyf(loc, "required vocabulary %q is not registered", id)
			}
			continue
		}
		set.active[id] = true
		if slices.Contains(formatAssertionVocabs, id) || (id == VocabFormat201909 && required) {
			set.formatAssert = true
		}
	}
	return set, nil
}
