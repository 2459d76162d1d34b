package jsonskema

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/reoring/jsonskema/i18n"
	"github.com/reoring/jsonskema/internal/pointer"
	"github.com/reoring/jsonskema/internal/value"
)

// Mode tells KeywordContext.Apply how the applications combine.
type Mode int

const (
	// RequireAll: every application must pass. Flag evaluation stops at the
	// first failure and cancels the rest.
	RequireAll Mode = iota
	// Exhaustive: every application runs to completion.
	Exhaustive
)

// Application applies a compiled subschema to part of the instance.
type Application struct {
	Schema   *SchemaConstraint
	Instance any
	// Location is appended to the instance location. Empty applies the
	// subschema in place.
	Location []string
	// Path is appended to the evaluation path after the keyword.
	Path []string
}

// errShortCircuit stops a RequireAll fan-out in flag mode.
var errShortCircuit = errors.New("short circuit")

// evaluation is the state shared by every branch of one Evaluate call.
type evaluation struct {
	opts   *EvaluationOptions
	root   any
	tr     i18n.Translator
	flag   bool
	sem    *semaphore.Weighted
	log    logr.Logger
	trace  bool
	cancel context.CancelFunc

	fatalOnce sync.Once
	fatal     error
}

func (e *evaluation) abort(err error) {
	e.fatalOnce.Do(func() {
		e.fatal = err
		e.cancel()
	})
}

type scopeFrame struct {
	res    *resource
	parent *scopeFrame
}

type activeFrame struct {
	node   *SchemaConstraint
	inst   string
	parent *activeFrame
}

// result is the outcome of applying one schema node to one instance value.
type result struct {
	node     *SchemaConstraint
	keyword  string
	instance any
	instLoc  pointer.Pointer
	evalPath pointer.Pointer
	inPlace  bool
	scope    *scopeFrame
	active   *activeFrame

	valid       bool
	annotations map[string]any
	errors      map[string]string
	children    []*result
	// condition holds the outcome of "if" for "then"/"else".
	condition *bool
}

func (r *result) annotate(keyword string, v any) {
	if r.annotations == nil {
		r.annotations = map[string]any{}
	}
	r.annotations[keyword] = v
}

func (r *result) fail(keyword, msg string) {
	r.valid = false
	if msg == "" {
		return
	}
	if r.errors == nil {
		r.errors = map[string]string{}
	}
	if prev, ok := r.errors[keyword]; ok && prev != msg {
		msg = prev + "; " + msg
	}
	r.errors[keyword] = msg
}

// Evaluate applies the compiled schema to instance. A non-nil error means the
// evaluation could not complete: a fatal schema problem or cancellation.
func (c *Compiled) Evaluate(ctx context.Context, instance any, opts *EvaluationOptions) (*Results, error) {
	opts = opts.orDefault()
	start := time.Now()
	inst, err := value.Normalize(instance)
	if err != nil {
		return nil, err
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	log := opts.logger(ctx).WithName("evaluate")
	e := &evaluation{
		opts:   opts,
		root:   inst,
		tr:     opts.translator(),
		flag:   opts.OutputFormat == OutputFlag,
		log:    log,
		trace:  log.V(2).Enabled(),
		cancel: cancel,
	}
	if n := opts.concurrency(); n > 1 {
		e.sem = semaphore.NewWeighted(int64(n - 1))
	}
	r := e.evalNode(runCtx, c.root, inst, pointer.Root, pointer.Root, "", nil, nil)
	switch {
	case e.fatal != nil:
		err = e.fatal
	case r == nil:
		err = ctx.Err()
		if err == nil {
			err = context.Canceled
		}
	}
	if err != nil {
		opts.Metrics.ObserveEvaluation(time.Since(start), false, err)
		log.V(1).Info("evaluation aborted", "schema", c.root.location, "error", err.Error())
		return nil, err
	}
	res := buildResults(r, opts)
	opts.Metrics.ObserveEvaluation(time.Since(start), res.Valid, nil)
	return res, nil
}

// evalNode applies n to instance. It returns nil when the branch was
// cancelled or the evaluation aborted.
func (e *evaluation) evalNode(ctx context.Context, n *SchemaConstraint, instance any, instLoc, evalPath pointer.Pointer, keyword string, scope *scopeFrame, active *activeFrame) *result {
	if ctx.Err() != nil {
		return nil
	}
	key := instLoc.String()
	for a := active; a != nil; a = a.parent {
		if a.node == n && a.inst == key {
			e.abort(circularf(n.location, "schema re-entered at instance location %q", key))
			return nil
		}
	}
	if scope == nil || scope.res != n.res {
		scope = &scopeFrame{res: n.res, parent: scope}
	}
	r := &result{
		node:     n,
		keyword:  keyword,
		instance: instance,
		instLoc:  instLoc,
		evalPath: evalPath,
		scope:    scope,
		active:   &activeFrame{node: n, inst: key, parent: active},
		valid:    true,
	}
	if n.boolean != nil {
		if !*n.boolean {
			r.fail("", e.tr.Message(i18n.KeyFalseSchema, nil))
		}
		return r
	}
	for _, u := range n.unknown {
		r.annotate(u.name, u.value)
	}
	for _, k := range n.keywords {
		if e.trace {
			e.log.V(2).Info("keyword", "keyword", k.name, "schema", n.location, "instance", key)
		}
		k.eval(ctx, &KeywordContext{e: e, r: r, kw: k})
		if ctx.Err() != nil {
			return nil
		}
		if !r.valid && e.flag {
			break
		}
	}
	return r
}

// KeywordContext is handed to a KeywordFunc. It exposes the instance under
// evaluation and records the keyword's outcome on the current node.
type KeywordContext struct {
	e  *evaluation
	r  *result
	kw *KeywordConstraint
}

// Keyword returns the keyword being evaluated.
func (kc *KeywordContext) Keyword() string { return kc.kw.name }

// Instance returns the instance value under evaluation.
func (kc *KeywordContext) Instance() any { return kc.r.instance }

// InstanceLocation returns the instance location as a JSON Pointer.
func (kc *KeywordContext) InstanceLocation() string { return kc.r.instLoc.String() }

// Fail marks the node invalid with the keyword's localized message.
func (kc *KeywordContext) Fail(data map[string]string) {
	kc.FailKey(kc.kw.name, data)
}

// FailKey is Fail with an explicit message catalog key.
func (kc *KeywordContext) FailKey(key string, data map[string]string) {
	kc.r.fail(kc.kw.name, kc.e.tr.Message(key, data))
}

// FailMessage marks the node invalid with a literal message.
func (kc *KeywordContext) FailMessage(msg string) {
	kc.r.fail(kc.kw.name, msg)
}

// Invalidate marks the node invalid without a message of its own; the
// failing subschemas carry the details.
func (kc *KeywordContext) Invalidate() {
	kc.r.fail(kc.kw.name, "")
}

// Annotate records the keyword's annotation on the current node.
func (kc *KeywordContext) Annotate(v any) {
	kc.r.annotate(kc.kw.name, v)
}

// LocalAnnotation returns the annotation name produced on this node only.
// name must be listed in the keyword's DependsOn.
func (kc *KeywordContext) LocalAnnotation(name string) (any, bool) {
	v, ok := kc.r.annotations[name]
	return v, ok
}

// Annotations returns the annotations name produced at this instance
// location by this node and by every valid subschema applied in place below
// it. name must be listed in the keyword's DependsOn.
func (kc *KeywordContext) Annotations(name string) []any {
	return collectAnnotations(kc.r, name, nil)
}

func collectAnnotations(r *result, name string, out []any) []any {
	if v, ok := r.annotations[name]; ok {
		out = append(out, v)
	}
	for _, c := range r.children {
		if c.valid && c.inPlace && c.keyword != "not" {
			out = collectAnnotations(c, name, out)
		}
	}
	return out
}

// Apply evaluates subschemas and reports, per application, whether it
// passed. Applications cancelled by a short circuit report true: they add no
// failure of their own.
func (kc *KeywordContext) Apply(ctx context.Context, apps []Application, mode Mode) []bool {
	results := kc.e.fanOut(ctx, kc.r, kc.kw.name, apps, mode)
	valid := make([]bool, len(apps))
	for i, r := range results {
		valid[i] = r == nil || r.valid
		if r != nil {
			kc.r.children = append(kc.r.children, r)
		}
	}
	return valid
}

// applyOne applies a single subschema in place.
func (kc *KeywordContext) applyOne(ctx context.Context, s *SchemaConstraint, path ...string) bool {
	return kc.Apply(ctx, []Application{{Schema: s, Instance: kc.r.instance, Path: path}}, RequireAll)[0]
}

func (e *evaluation) child(ctx context.Context, parent *result, keyword string, a Application) *result {
	instLoc := parent.instLoc.Append(a.Location...)
	evalPath := parent.evalPath.Append(keyword).Append(a.Path...)
	r := e.evalNode(ctx, a.Schema, a.Instance, instLoc, evalPath, keyword, parent.scope, parent.active)
	if r != nil {
		r.inPlace = len(a.Location) == 0
	}
	return r
}

// fanOut runs applications on the shared worker pool. When the pool is
// saturated the calling goroutine runs the task itself, so nested fan-outs
// never wait on each other. Results keep the order of apps; cancelled
// branches are nil.
func (e *evaluation) fanOut(ctx context.Context, parent *result, keyword string, apps []Application, mode Mode) []*result {
	out := make([]*result, len(apps))
	stop := e.flag && mode == RequireAll
	if e.sem == nil || len(apps) < 2 {
		for i, a := range apps {
			out[i] = e.child(ctx, parent, keyword, a)
			if stop && out[i] != nil && !out[i].valid {
				break
			}
		}
		return out
	}
	cctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(cctx)
	for i, a := range apps {
		if gctx.Err() != nil {
			break
		}
		task := func() error {
			r := e.child(gctx, parent, keyword, a)
			out[i] = r
			if stop && r != nil && !r.valid {
				return errShortCircuit
			}
			return nil
		}
		if e.sem.TryAcquire(1) {
			g.Go(func() error {
				defer e.sem.Release(1)
				return task()
			})
			continue
		}
		if err := task(); err != nil {
			cancel()
		}
	}
	_ = g.Wait()
	return out
}

// dynamicTarget searches the dynamic scope, outermost frame first, for a
// resource declaring the dynamic anchor name.
func dynamicTarget(scope *scopeFrame, name string) *SchemaConstraint {
	var frames []*resource
	for f := scope; f != nil; f = f.parent {
		frames = append(frames, f.res)
	}
	for i := len(frames) - 1; i >= 0; i-- {
		if n, ok := frames[i].dynamicAnchors[name]; ok {
			return n
		}
	}
	return nil
}

// recursiveTarget returns the root of the outermost resource in scope that
// sets "$recursiveAnchor".
func recursiveTarget(scope *scopeFrame) *SchemaConstraint {
	var found *SchemaConstraint
	for f := scope; f != nil; f = f.parent {
		if f.res.recursiveAnchor && f.res.root != nil {
			found = f.res.root
		}
	}
	return found
}
