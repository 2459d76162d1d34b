package jsonskema

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/reoring/jsonskema/internal/dag"
	"github.com/reoring/jsonskema/internal/pointer"
	"github.com/reoring/jsonskema/internal/value"
)

// SchemaConstraint is one compiled schema node. Nodes form a graph: a
// recursive schema compiles into a cycle rather than an infinite tree.
type SchemaConstraint struct {
	location string
	boolean  *bool
	keywords []*KeywordConstraint
	unknown  []unknownKeyword
	res      *resource
}

// Location returns the absolute schema location of the node.
func (n *SchemaConstraint) Location() string { return n.location }

// Keywords lists the compiled keywords in evaluation order.
func (n *SchemaConstraint) Keywords() []string {
	out := make([]string, len(n.keywords))
	for i, k := range n.keywords {
		out[i] = k.name
	}
	return out
}

// KeywordConstraint is one compiled keyword of a node.
type KeywordConstraint struct {
	name      string
	priority  int
	dependsOn []string
	eval      KeywordFunc
}

type unknownKeyword struct {
	name  string
	value any
}

// resource is the runtime view of a schema resource: what dynamic
// references may land on when the resource is in the dynamic scope.
type resource struct {
	uri             string
	root            *SchemaConstraint
	recursiveAnchor bool
	dynamicAnchors  map[string]*SchemaConstraint
}

// Compiled is a compiled schema, safe for concurrent evaluation.
type Compiled struct {
	root   *SchemaConstraint
	schema *Schema
	draft  Draft
	nodes  int
}

// Draft returns the draft the root was compiled under.
func (c *Compiled) Draft() Draft { return c.draft }

// Root returns the compiled root node.
func (c *Compiled) Root() *SchemaConstraint { return c.root }

// Nodes returns the number of distinct schema nodes compiled.
func (c *Compiled) Nodes() int { return c.nodes }

// Compile compiles s under opts without consulting the cache on s.
func Compile(ctx context.Context, s *Schema, opts *EvaluationOptions) (*Compiled, error) {
	return compileSchema(ctx, s, opts.orDefault())
}

type compileFrame struct {
	location      string
	unconditional bool
}

type compiler struct {
	ctx    context.Context
	opts   *EvaluationOptions
	reg    *SchemaRegistry
	vocabs *VocabularyRegistry
	log    logr.Logger

	indexes   map[*Schema]*docIndex
	resources map[string]*schemaLoc
	anchors   map[string]*schemaLoc
	dynamic   map[string]*schemaLoc

	nodes    map[string]*SchemaConstraint
	stack    []compileFrame
	onStack  map[string]int
	runtime  map[string]*resource
	pending  []func() error
	metaDraf map[string]Draft
	vocabSet map[string]*vocabSet
}

func compileSchema(ctx context.Context, s *Schema, opts *EvaluationOptions) (*Compiled, error) {
	start := time.Now()
	c := &compiler{
		ctx:       ctx,
		opts:      opts,
		reg:       opts.registry(),
		vocabs:    opts.vocabularies(),
		log:       opts.logger(ctx).WithName("compile"),
		indexes:   map[*Schema]*docIndex{},
		resources: map[string]*schemaLoc{},
		anchors:   map[string]*schemaLoc{},
		dynamic:   map[string]*schemaLoc{},
		nodes:     map[string]*SchemaConstraint{},
		onStack:   map[string]int{},
		runtime:   map[string]*resource{},
		metaDraf:  map[string]Draft{},
		vocabSet:  map[string]*vocabSet{},
	}
	root, draft, err := c.compileRoot(s)
	opts.Metrics.ObserveCompilation(time.Since(start), err)
	if err != nil {
		c.log.V(1).Info("compilation failed", "schema", s.ID(), "error", err.Error())
		return nil, err
	}
	c.log.V(1).Info("compiled schema", "schema", s.ID(), "draft", draft.String(), "nodes", len(c.nodes), "duration", time.Since(start))
	return &Compiled{root: root, schema: s, draft: draft, nodes: len(c.nodes)}, nil
}

func (c *compiler) compileRoot(s *Schema) (*SchemaConstraint, Draft, error) {
	if err := c.ctx.Err(); err != nil {
		return nil, 0, err
	}
	draft, err := c.rootDraft(s)
	if err != nil {
		return nil, 0, err
	}
	if c.opts.ValidateAgainstMetaSchema {
		if err := c.validateMetaSchema(s, draft); err != nil {
			return nil, 0, err
		}
	}
	ix, err := c.index(s, draft)
	if err != nil {
		return nil, 0, err
	}
	root, err := c.compileLoc(ix.root, false)
	if err != nil {
		return nil, 0, err
	}
	for len(c.pending) > 0 {
		next := c.pending[0]
		c.pending = c.pending[1:]
		if err := next(); err != nil {
			return nil, 0, err
		}
	}
	return root, draft, nil
}

// rootDraft reconciles the requested draft with the declared one.
func (c *compiler) rootDraft(s *Schema) (Draft, error) {
	declared := s.declaredMetaSchema()
	var fromSchema Draft
	if declared != "" {
		d, err := c.draftOf(declared)
		if err != nil {
			return 0, err
		}
		fromSchema = d
	}
	switch {
	case c.opts.EvaluateAs != DraftUnspecified:
		if fromSchema != DraftUnspecified && fromSchema != c.opts.EvaluateAs {
			return 0, mismatchf(s.ID(), "schema declares %s but evaluation requires %s", fromSchema, c.opts.EvaluateAs)
		}
		return c.opts.EvaluateAs, nil
	case fromSchema != DraftUnspecified:
		return fromSchema, nil
	}
	return defaultDraft, nil
}

// draftOf follows a meta-schema chain to a built-in draft.
func (c *compiler) draftOf(meta string) (Draft, error) {
	if d, ok := c.metaDraf[meta]; ok {
		return d, nil
	}
	seen := map[string]bool{}
	cur := meta
	for {
		if d := draftOfMetaSchema(cur); d != DraftUnspecified {
			c.metaDraf[meta] = d
			return d, nil
		}
		if isLegacyDraft(cur) {
			return 0, mismatchf(meta, "draft %q is not supported", cur)
		}
		key, _ := splitFragment(cur)
		if seen[key] {
			return 0, circularf(meta, "meta-schema chain loops at %q", key)
		}
		seen[key] = true
		e, err := c.reg.resolve(c.ctx, key, c.log)
		if err != nil {
			if errors.Is(err, ErrReferenceNotFound) {
				return 0, mismatchf(meta, "unknown meta-schema %q", cur)
			}
			return 0, err
		}
		next := e.schema().declaredMetaSchema()
		if next == "" {
			c.metaDraf[meta] = defaultDraft
			return defaultDraft, nil
		}
		cur = next
	}
}

// vocabularies returns the active vocabulary set for a meta-schema.
func (c *compiler) vocabularies(loc *schemaLoc) (*vocabSet, error) {
	if !loc.draft.vocabularyAware() {
		return &vocabSet{all: true}, nil
	}
	if vs, ok := c.vocabSet[loc.meta]; ok {
		return vs, nil
	}
	vs := &vocabSet{all: true}
	if e, err := c.reg.resolve(c.ctx, loc.meta, c.log); err == nil {
		if m, ok := e.schema().value.(map[string]any); ok {
			if declared, ok := m["$vocabulary"].(map[string]any); ok {
				vs, err = readVocabularies(declared, c.vocabs, loc.meta)
				if err != nil {
					return nil, err
				}
			}
		}
	} else if ctxErr := c.ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	c.vocabSet[loc.meta] = vs
	return vs, nil
}

func (c *compiler) validateMetaSchema(s *Schema, draft Draft) error {
	meta := s.declaredMetaSchema()
	if meta == "" {
		meta = draft.MetaSchema()
	}
	e, err := c.reg.resolve(c.ctx, meta, c.log)
	if err != nil {
		return mismatchf(s.ID(), "meta-schema %q: %v", meta, err)
	}
	mo := *c.opts
	mo.ValidateAgainstMetaSchema = false
	mo.EvaluateAs = DraftUnspecified
	mo.OutputFormat = OutputList
	mo.IgnoredAnnotations = nil
	res, err := e.schema().Evaluate(c.ctx, s.value, &mo)
	if err != nil {
		return err
	}
	if !res.Valid {
		return &SchemaError{
			Kind:     ErrMetaSchemaMismatch,
			Location: s.ID(),
			Keyword:  "$schema",
			Err:      fmt.Errorf("schema is invalid against %s", meta),
			Issues:   res.Issues(),
		}
	}
	return nil
}

// index indexes doc once per compilation and merges its identifiers.
func (c *compiler) index(doc *Schema, draft Draft) (*docIndex, error) {
	if ix, ok := c.indexes[doc]; ok {
		return ix, nil
	}
	ix, err := indexDocument(doc, draft, c.draftOf)
	if err != nil {
		return nil, err
	}
	c.indexes[doc] = ix
	for _, k := range sortedLocKeys(ix.resources) {
		if _, ok := c.resources[k]; !ok {
			c.resources[k] = ix.resources[k]
		}
	}
	for _, k := range sortedLocKeys(ix.anchors) {
		if _, ok := c.anchors[k]; !ok {
			c.anchors[k] = ix.anchors[k]
		}
	}
	for _, k := range sortedLocKeys(ix.dynamic) {
		if _, ok := c.dynamic[k]; !ok {
			c.dynamic[k] = ix.dynamic[k]
		}
	}
	return ix, nil
}

func sortedLocKeys(m map[string]*schemaLoc) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// documentDraft is the draft of a referenced document: its own "$schema"
// when present, otherwise the draft of the referencing schema.
func (c *compiler) documentDraft(doc *Schema, inherited Draft) (Draft, error) {
	if meta := doc.declaredMetaSchema(); meta != "" {
		return c.draftOf(meta)
	}
	return inherited, nil
}

// resourceLoc finds the root of the resource named base, loading it from the
// registry when this compilation has not seen it.
func (c *compiler) resourceLoc(base string, from *schemaLoc) (*schemaLoc, error) {
	if l, ok := c.resources[base]; ok {
		return l, nil
	}
	e, err := c.reg.resolve(c.ctx, base, c.log)
	if err != nil {
		var se *SchemaError
		if errors.As(err, &se) {
			se.Location = from.location()
			return nil, se
		}
		return nil, err
	}
	draft, err := c.documentDraft(e.doc, from.draft)
	if err != nil {
		return nil, err
	}
	ix, err := c.index(e.doc, draft)
	if err != nil {
		return nil, err
	}
	l, ok, err := ix.locate(e.ptr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFoundf(from.location(), "", "registry entry for %q is not addressable", base)
	}
	c.resources[base] = l
	return l, nil
}

// resolveRef resolves an absolute reference to a schema location.
func (c *compiler) resolveRef(abs string, from *schemaLoc, keyword string) (*schemaLoc, error) {
	base, frag := splitFragment(abs)
	root, err := c.resourceLoc(base, from)
	if err != nil {
		return nil, err
	}
	if isPointerFragment(frag) {
		p, err := pointer.ParseFragment(frag)
		if err != nil {
			return nil, malformedf(from.location(), keyword, "invalid pointer in %q: %v", abs, err)
		}
		ix := c.indexes[root.doc]
		loc, ok, err := ix.locate(root.ptr.Concat(p))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, notFoundf(from.location(), keyword, "cannot resolve %q", abs)
		}
		return loc, nil
	}
	if loc, ok := c.anchors[root.resource+"#"+frag]; ok {
		return loc, nil
	}
	if loc, ok := c.anchors[base+"#"+frag]; ok {
		return loc, nil
	}
	return nil, notFoundf(from.location(), keyword, "no anchor %q in %s", frag, base)
}

// compileLoc compiles the node at loc, reusing nodes already compiled in
// this compilation. A back edge that closes a cycle made only of
// unconditional edges is reported as a circular reference.
func (c *compiler) compileLoc(loc *schemaLoc, unconditional bool) (*SchemaConstraint, error) {
	if err := c.ctx.Err(); err != nil {
		return nil, err
	}
	key := loc.location()
	if n, ok := c.nodes[key]; ok {
		if i, active := c.onStack[key]; active && unconditional {
			cyclic := true
			path := []string{key}
			for _, f := range c.stack[i+1:] {
				if !f.unconditional {
					cyclic = false
					break
				}
				path = append(path, f.location)
			}
			if cyclic {
				path = append(path, key)
				return nil, circularf(key, "%s", strings.Join(path, " -> "))
			}
		}
		return n, nil
	}
	n := &SchemaConstraint{location: key}
	c.nodes[key] = n
	c.onStack[key] = len(c.stack)
	c.stack = append(c.stack, compileFrame{location: key, unconditional: unconditional})
	defer func() {
		c.stack = c.stack[:len(c.stack)-1]
		delete(c.onStack, key)
	}()
	n.res = c.runtimeResource(loc)
	if err := c.build(n, loc); err != nil {
		return nil, err
	}
	return n, nil
}

// runtimeResource returns the runtime resource enclosing loc. Its dynamic
// anchor targets are compiled after the current compilation pass.
func (c *compiler) runtimeResource(loc *schemaLoc) *resource {
	if r, ok := c.runtime[loc.resource]; ok {
		return r
	}
	r := &resource{uri: loc.resource, dynamicAnchors: map[string]*SchemaConstraint{}}
	c.runtime[loc.resource] = r
	rootLoc, ok := c.resources[loc.resource]
	if !ok {
		return r
	}
	if m, ok := rootLoc.value.(map[string]any); ok && rootLoc.draft == Draft201909 {
		r.recursiveAnchor = m["$recursiveAnchor"] == true
	}
	prefix := loc.resource + "#"
	c.pending = append(c.pending, func() error {
		root, err := c.compileLoc(rootLoc, false)
		if err != nil {
			return err
		}
		r.root = root
		for _, k := range sortedLocKeys(c.dynamic) {
			name, ok := strings.CutPrefix(k, prefix)
			if !ok {
				continue
			}
			n, err := c.compileLoc(c.dynamic[k], false)
			if err != nil {
				return err
			}
			r.dynamicAnchors[name] = n
		}
		return nil
	})
	return r
}

func (c *compiler) keywordActive(def *KeywordDefinition, draft Draft, vs *vocabSet) bool {
	if !draft.vocabularyAware() {
		return true
	}
	if len(def.Vocabularies) == 0 {
		return c.opts.ProcessCustomKeywords
	}
	return vs.allows(def.Vocabularies)
}

type pendingKeyword struct {
	def   *KeywordDefinition
	order int
}

// build compiles the keywords of one node in dependency order.
func (c *compiler) build(n *SchemaConstraint, loc *schemaLoc) error {
	var obj map[string]any
	switch v := loc.value.(type) {
	case bool:
		n.boolean = &v
		return nil
	case map[string]any:
		obj = v
	default:
		return malformedf(loc.location(), "", "schema must be a boolean or an object, got %s", value.KindOf(v))
	}
	vs, err := c.vocabularies(loc)
	if err != nil {
		return err
	}
	refOnly := loc.draft&(Draft6|Draft7) != 0 && hasKey(obj, "$ref")

	present := map[string]pendingKeyword{}
	g := dag.NewDirectedAcyclicGraph[string]()
	for _, k := range value.SortedKeys(obj) {
		if refOnly && k != "$ref" {
			continue
		}
		def, order := lookupKeywordOrder(k, loc.draft)
		if def == nil || !c.keywordActive(def, loc.draft, vs) {
			n.unknown = append(n.unknown, unknownKeyword{name: k, value: obj[k]})
			continue
		}
		present[k] = pendingKeyword{def: def, order: order}
		if err := g.AddVertex(k, def.Priority*1_000_000+order); err != nil {
			return err
		}
	}
	for k, p := range present {
		var deps []string
		for _, d := range p.def.DependsOn {
			if _, ok := present[d]; ok && d != k {
				deps = append(deps, d)
			}
		}
		if err := g.AddDependencies(k, deps); err != nil {
			return err
		}
	}
	ordered, err := g.TopologicalSort()
	if err != nil {
		return malformedf(loc.location(), "", "keyword dependencies: %v", err)
	}
	for _, k := range ordered {
		p := present[k]
		kc := &KeywordCompiler{c: c, node: n, loc: loc, keyword: k, obj: obj, vocab: vs}
		fn, err := p.def.Compile(kc, obj[k])
		if err != nil {
			return err
		}
		if fn == nil {
			continue
		}
		n.keywords = append(n.keywords, &KeywordConstraint{
			name:      k,
			priority:  p.def.Priority,
			dependsOn: p.def.DependsOn,
			eval:      fn,
		})
	}
	return nil
}

// KeywordCompiler is handed to CompileFunc. It exposes the surrounding
// schema node and compiles nested schemas and references.
type KeywordCompiler struct {
	c       *compiler
	node    *SchemaConstraint
	loc     *schemaLoc
	keyword string
	obj     map[string]any
	vocab   *vocabSet
}

// Keyword returns the keyword being compiled.
func (kc *KeywordCompiler) Keyword() string { return kc.keyword }

// Draft returns the draft in force at the node.
func (kc *KeywordCompiler) Draft() Draft { return kc.loc.draft }

// Location returns the absolute location of the keyword.
func (kc *KeywordCompiler) Location() string {
	return location(kc.loc.resource, kc.loc.ptr.TrimPrefix(kc.loc.resPtr).Field(kc.keyword))
}

// Sibling returns the raw value of another keyword of the same node.
func (kc *KeywordCompiler) Sibling(name string) (any, bool) {
	v, ok := kc.obj[name]
	return v, ok
}

// Malformed reports an invalid keyword value.
func (kc *KeywordCompiler) Malformed(format string, a ...any) error {
	return malformedf(kc.Location(), kc.keyword, format, a...)
}

// Subschema compiles the schema found at the keyword value plus tokens.
func (kc *KeywordCompiler) Subschema(tokens ...string) (*SchemaConstraint, error) {
	ptr := kc.loc.ptr.Field(kc.keyword).Append(tokens...)
	ix := kc.c.indexes[kc.loc.doc]
	child, ok, err := ix.locate(ptr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, kc.Malformed("no subschema at %s", ptr)
	}
	switch child.value.(type) {
	case bool, map[string]any:
	default:
		return nil, kc.Malformed("value at %s must be a schema, got %s", ptr, value.KindOf(child.value))
	}
	return kc.c.compileLoc(child, unconditionalEdge(kc.keyword))
}

// Reference resolves ref against the node's base and compiles the target.
func (kc *KeywordCompiler) Reference(ref string) (*SchemaConstraint, error) {
	target, err := kc.resolve(ref)
	if err != nil {
		return nil, err
	}
	return kc.c.compileLoc(target, unconditionalEdge(kc.keyword))
}

func (kc *KeywordCompiler) resolve(ref string) (*schemaLoc, error) {
	abs, err := resolveURI(kc.loc.resource, ref)
	if err != nil {
		return nil, kc.Malformed("invalid reference %q: %v", ref, err)
	}
	return kc.c.resolveRef(abs, kc.loc, kc.keyword)
}

// formatAssertion reports whether "format" should assert at this node.
func (kc *KeywordCompiler) formatAssertion() bool {
	return kc.c.opts.RequireFormatValidation || kc.vocab.formatAssert
}
