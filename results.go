package jsonskema

import (
	"maps"
	"slices"

	gojson "github.com/goccy/go-json"

	"github.com/reoring/jsonskema/internal/pointer"
)

// Results is an evaluation outcome shaped by the requested OutputFormat.
type Results struct {
	Valid bool
	// Keyword is the keyword that applied this node; empty at the root.
	Keyword          string
	EvaluationPath   string
	SchemaLocation   string
	InstanceLocation string
	Annotations      map[string]any
	// DroppedAnnotations holds annotations of failed branches when
	// PreserveDroppedAnnotations is set.
	DroppedAnnotations map[string]any
	// Errors maps a keyword to its message. The key "" marks a false schema.
	Errors  map[string]string
	Details []*Results

	format OutputFormat
	tree   *result
}

// Format returns the output format the results were built for.
func (r *Results) Format() OutputFormat { return r.format }

func buildResults(root *result, opts *EvaluationOptions) *Results {
	b := resultBuilder{
		ignored:  opts.IgnoredAnnotations,
		preserve: opts.PreserveDroppedAnnotations,
	}
	var out *Results
	switch opts.OutputFormat {
	case OutputHierarchical:
		out = b.hierarchical(root, false)
	case OutputList:
		out = &Results{
			Valid:            root.valid,
			EvaluationPath:   root.evalPath.String(),
			SchemaLocation:   root.node.location,
			InstanceLocation: root.instLoc.String(),
		}
		b.list(root, false, &out.Details)
	default:
		out = &Results{Valid: root.valid}
	}
	out.format = opts.OutputFormat
	out.tree = root
	return out
}

type resultBuilder struct {
	ignored  []string
	preserve bool
}

func (b resultBuilder) node(r *result, dropped bool) *Results {
	out := &Results{
		Valid:            r.valid,
		Keyword:          r.keyword,
		EvaluationPath:   r.evalPath.String(),
		SchemaLocation:   r.node.location,
		InstanceLocation: r.instLoc.String(),
		format:           OutputList,
	}
	if len(r.errors) > 0 {
		out.Errors = maps.Clone(r.errors)
	}
	ann := b.filter(r.annotations)
	switch {
	case len(ann) == 0:
	case dropped || !r.valid:
		if b.preserve {
			out.DroppedAnnotations = ann
		}
	default:
		out.Annotations = ann
	}
	return out
}

func (b resultBuilder) filter(ann map[string]any) map[string]any {
	if len(ann) == 0 {
		return nil
	}
	out := make(map[string]any, len(ann))
	for k, v := range ann {
		if !slices.Contains(b.ignored, k) {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (b resultBuilder) hierarchical(r *result, dropped bool) *Results {
	out := b.node(r, dropped)
	out.format = OutputHierarchical
	dropped = dropped || !r.valid
	for _, c := range r.children {
		out.Details = append(out.Details, b.hierarchical(c, dropped))
	}
	return out
}

func (b resultBuilder) list(r *result, dropped bool, into *[]*Results) {
	n := b.node(r, dropped)
	if len(n.Errors) > 0 || len(n.Annotations) > 0 || len(n.DroppedAnnotations) > 0 {
		*into = append(*into, n)
	}
	dropped = dropped || !r.valid
	for _, c := range r.children {
		b.list(c, dropped, into)
	}
}

// Issues flattens every failure recorded during evaluation, whatever the
// output format, in evaluation order.
func (r *Results) Issues() Issues {
	if r == nil || r.Valid {
		return nil
	}
	var out Issues
	if r.tree != nil {
		out = collectIssues(r.tree, out)
	}
	if len(out) == 0 {
		out = append(out, Issue{Code: "invalid", Message: "instance is invalid", SchemaLocation: r.SchemaLocation})
	}
	return out
}

// collectIssues descends only through failed nodes. A failed "if" is a
// condition, not a failure.
func collectIssues(r *result, out Issues) Issues {
	if r.valid {
		return out
	}
	for _, kw := range sortedStringKeys(r.errors) {
		loc := r.node.location
		code := kw
		if kw != "" {
			loc += "/" + pointer.Escape(kw)
		} else {
			code = "false"
		}
		out = append(out, Issue{
			Path:           r.instLoc.String(),
			Code:           code,
			Message:        r.errors[kw],
			SchemaLocation: loc,
			EvaluationPath: r.evalPath.String(),
		})
	}
	for _, c := range r.children {
		if c.keyword != "if" {
			out = collectIssues(c, out)
		}
	}
	return out
}

func sortedStringKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Err returns nil for valid results and the flattened Issues otherwise.
func (r *Results) Err() error {
	if r == nil || r.Valid {
		return nil
	}
	return r.Issues()
}

type resultsJSON struct {
	Valid              bool              `json:"valid"`
	Keyword            string            `json:"keyword,omitempty"`
	EvaluationPath     string            `json:"evaluationPath"`
	SchemaLocation     string            `json:"schemaLocation"`
	InstanceLocation   string            `json:"instanceLocation"`
	Annotations        map[string]any    `json:"annotations,omitempty"`
	DroppedAnnotations map[string]any    `json:"droppedAnnotations,omitempty"`
	Errors             map[string]string `json:"errors,omitempty"`
	Details            []*Results        `json:"details,omitempty"`
}

// MarshalJSON renders the standard output shapes. Flag output is only
// {"valid": ...}.
func (r *Results) MarshalJSON() ([]byte, error) {
	if r.format == OutputFlag {
		return gojson.Marshal(struct {
			Valid bool `json:"valid"`
		}{r.Valid})
	}
	return gojson.Marshal(resultsJSON{
		Valid:              r.Valid,
		Keyword:            r.Keyword,
		EvaluationPath:     r.EvaluationPath,
		SchemaLocation:     r.SchemaLocation,
		InstanceLocation:   r.InstanceLocation,
		Annotations:        r.Annotations,
		DroppedAnnotations: r.DroppedAnnotations,
		Errors:             r.Errors,
		Details:            r.Details,
	})
}
