package jsonskema

import (
	"context"
	"runtime"
	"slices"

	"github.com/go-logr/logr"
	"golang.org/x/text/language"

	"github.com/reoring/jsonskema/i18n"
	"github.com/reoring/jsonskema/metrics"
)

// OutputFormat selects the shape of evaluation results.
type OutputFormat int

const (
	// OutputFlag reports validity only.
	OutputFlag OutputFormat = iota
	// OutputList flattens every node that carries errors or annotations
	// under the root.
	OutputList
	// OutputHierarchical keeps one result node per evaluated schema node.
	OutputHierarchical
)

func (f OutputFormat) String() string {
	switch f {
	case OutputFlag:
		return "flag"
	case OutputList:
		return "list"
	case OutputHierarchical:
		return "hierarchical"
	}
	return "unknown"
}

// ParseOutputFormat accepts "flag", "list" and "hierarchical".
func ParseOutputFormat(s string) (OutputFormat, bool) {
	for _, f := range []OutputFormat{OutputFlag, OutputList, OutputHierarchical} {
		if f.String() == s {
			return f, true
		}
	}
	return OutputFlag, false
}

// EvaluationOptions configures compilation and evaluation. The zero value is
// usable: flag output, draft inferred from "$schema", global registries.
type EvaluationOptions struct {
	// EvaluateAs forces a draft. A root "$schema" naming another draft is
	// rejected with ErrMetaSchemaMismatch.
	EvaluateAs Draft
	// ValidateAgainstMetaSchema validates the schema document against its
	// meta-schema before compiling it.
	ValidateAgainstMetaSchema bool
	OutputFormat              OutputFormat
	// RequireFormatValidation makes "format" assert in every draft.
	RequireFormatValidation bool
	// OnlyKnownFormats fails formats without a registered checker.
	OnlyKnownFormats bool
	// ProcessCustomKeywords runs registered keywords that belong to no active
	// vocabulary in 2019-09 and later.
	ProcessCustomKeywords bool
	// PreserveDroppedAnnotations keeps annotations of failed branches in
	// Results.DroppedAnnotations.
	PreserveDroppedAnnotations bool
	// IgnoredAnnotations removes annotations of the named keywords from
	// list and hierarchical output. Keywords still see them internally.
	IgnoredAnnotations []string

	SchemaRegistry     *SchemaRegistry
	VocabularyRegistry *VocabularyRegistry

	// Culture selects the message language; the default is English.
	Culture language.Tag
	// Messages overrides the built-in message catalog.
	Messages *i18n.Catalog

	// MaxConcurrency bounds goroutines used by one evaluation. Zero means
	// GOMAXPROCS; one evaluates sequentially.
	MaxConcurrency int

	// Logger receives V(1) compile/fetch and V(2) evaluation traces. When
	// unset the logger in the context, if any, is used.
	Logger  logr.Logger
	Metrics *metrics.Metrics
}

// DefaultOptions returns the options used when nil is passed.
func DefaultOptions() *EvaluationOptions {
	return &EvaluationOptions{}
}

// NewEvaluationOptions returns options with private registries seeded from
// the global ones, so custom registrations stay local to the caller.
func NewEvaluationOptions() *EvaluationOptions {
	vocabs := NewVocabularyRegistry()
	schemas := NewSchemaRegistry()
	schemas.vocabularies = vocabs
	return &EvaluationOptions{SchemaRegistry: schemas, VocabularyRegistry: vocabs}
}

// Clone copies o. Registries are replaced by children seeded from o's, so
// registrations on the clone do not leak back.
func (o *EvaluationOptions) Clone() *EvaluationOptions {
	o = o.orDefault()
	c := *o
	c.IgnoredAnnotations = slices.Clone(o.IgnoredAnnotations)
	if o.VocabularyRegistry != nil {
		c.VocabularyRegistry = o.VocabularyRegistry.Copy()
	}
	if o.SchemaRegistry != nil {
		c.SchemaRegistry = o.SchemaRegistry.Copy()
		if c.VocabularyRegistry != nil {
			c.SchemaRegistry.vocabularies = c.VocabularyRegistry
		}
	}
	return &c
}

func (o *EvaluationOptions) orDefault() *EvaluationOptions {
	if o == nil {
		return DefaultOptions()
	}
	return o
}

func (o *EvaluationOptions) registry() *SchemaRegistry {
	if o.SchemaRegistry != nil {
		return o.SchemaRegistry
	}
	return GlobalRegistry()
}

func (o *EvaluationOptions) vocabularies() *VocabularyRegistry {
	if o.VocabularyRegistry != nil {
		return o.VocabularyRegistry
	}
	if o.SchemaRegistry != nil && o.SchemaRegistry.vocabularies != nil {
		return o.SchemaRegistry.vocabularies
	}
	return GlobalVocabularies()
}

func (o *EvaluationOptions) logger(ctx context.Context) logr.Logger {
	if o.Logger.GetSink() != nil {
		return o.Logger
	}
	return logr.FromContextOrDiscard(ctx)
}

func (o *EvaluationOptions) translator() i18n.Translator {
	c := o.Messages
	if c == nil {
		c = i18n.Default()
	}
	tag := o.Culture
	if tag == language.Und {
		tag = language.English
	}
	return c.For(tag)
}

func (o *EvaluationOptions) concurrency() int {
	if o.MaxConcurrency > 0 {
		return o.MaxConcurrency
	}
	return runtime.GOMAXPROCS(0)
}

// compileKey captures everything that changes the compiled program. slot
// identifies the cache entry; gen tells whether the cached program is current.
type compileKey struct {
	slot compileSlot
	gen  compileGen
}

type compileSlot struct {
	evaluateAs    Draft
	requireFormat bool
	onlyKnown     bool
	processCustom bool
	validateMeta  bool
	registry      *SchemaRegistry
	vocabularies  *VocabularyRegistry
}

type compileGen struct {
	registry   uint64
	vocabulary uint64
	catalog    uint64
}

func (o *EvaluationOptions) compileKey() compileKey {
	reg := o.registry()
	vocabs := o.vocabularies()
	return compileKey{
		slot: compileSlot{
			evaluateAs:    o.EvaluateAs,
			requireFormat: o.RequireFormatValidation,
			onlyKnown:     o.OnlyKnownFormats,
			processCustom: o.ProcessCustomKeywords,
			validateMeta:  o.ValidateAgainstMetaSchema,
			registry:      reg,
			vocabularies:  vocabs,
		},
		gen: compileGen{
			registry:   reg.Generation(),
			vocabulary: vocabs.Generation(),
			catalog:    catalogGeneration(),
		},
	}
}
