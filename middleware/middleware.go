// Package middleware validates JSON request bodies against a schema at HTTP
// boundaries. Framework adapters live in the gin and echo submodules.
package middleware

import (
	"context"
	"errors"
	"net/http"

	gojson "github.com/goccy/go-json"

	"github.com/reoring/jsonskema"
	"github.com/reoring/jsonskema/source"
)

// DefaultMaxBodyBytes caps request bodies read by a Validator.
const DefaultMaxBodyBytes = 1 << 20

type ctxKeyInstance struct{}

type ctxKeyResults struct{}

// ContextWithInstance attaches the decoded request body to the context.
func ContextWithInstance(ctx context.Context, v any) context.Context {
	return context.WithValue(ctx, ctxKeyInstance{}, v)
}

// InstanceFromContext retrieves the decoded request body.
func InstanceFromContext(ctx context.Context) (any, bool) {
	v := ctx.Value(ctxKeyInstance{})
	return v, v != nil
}

// ContextWithResults attaches evaluation results to the context.
func ContextWithResults(ctx context.Context, r *jsonskema.Results) context.Context {
	return context.WithValue(ctx, ctxKeyResults{}, r)
}

// ResultsFromContext retrieves evaluation results from context.
func ResultsFromContext(ctx context.Context) (*jsonskema.Results, bool) {
	r, ok := ctx.Value(ctxKeyResults{}).(*jsonskema.Results)
	return r, ok
}

// DefaultOptions returns a recommended default for HTTP JSON boundaries:
// list output so annotations reach handlers, and format assertion.
func DefaultOptions() *jsonskema.EvaluationOptions {
	return &jsonskema.EvaluationOptions{
		OutputFormat:            jsonskema.OutputList,
		RequireFormatValidation: true,
	}
}

// ErrorPayload shapes Issues for JSON responses.
func ErrorPayload(issues jsonskema.Issues) map[string]any {
	return map[string]any{"issues": issues}
}

// Validator evaluates request bodies against a compiled schema.
type Validator struct {
	compiled *jsonskema.Compiled
	opts     *jsonskema.EvaluationOptions
	// MaxBodyBytes limits the body size; zero uses DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

// NewValidator compiles s once with opts (DefaultOptions when nil).
func NewValidator(ctx context.Context, s *jsonskema.Schema, opts *jsonskema.EvaluationOptions) (*Validator, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	c, err := s.Compile(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Validator{compiled: c, opts: opts}, nil
}

// ErrDecode wraps request bodies that are not JSON, contain duplicate keys,
// or exceed the size limit.
var ErrDecode = errors.New("middleware: cannot decode request body")

// Decode reads and evaluates the request body. It returns ErrDecode for
// unreadable bodies and jsonskema.Issues for invalid ones.
func (v *Validator) Decode(r *http.Request) (any, *jsonskema.Results, error) {
	limit := v.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	body := http.MaxBytesReader(nil, r.Body, limit)
	inst, err := source.JSONReader(body)
	if err != nil {
		return nil, nil, errors.Join(ErrDecode, err)
	}
	res, err := v.compiled.Evaluate(r.Context(), inst, v.opts)
	if err != nil {
		return nil, nil, err
	}
	if !res.Valid {
		return inst, res, res.Issues()
	}
	return inst, res, nil
}

// Status maps a Decode error to an HTTP status and a JSON payload.
func Status(err error) (int, any) {
	if iss, ok := jsonskema.AsIssues(err); ok {
		return http.StatusBadRequest, ErrorPayload(iss)
	}
	if errors.Is(err, ErrDecode) {
		return http.StatusBadRequest, map[string]any{"error": err.Error()}
	}
	return http.StatusInternalServerError, map[string]any{"error": err.Error()}
}

// Handler validates the body before calling next. The decoded instance and
// results are stored in the request context.
func (v *Validator) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inst, res, err := v.Decode(r)
		if err != nil {
			code, payload := Status(err)
			writeJSON(w, code, payload)
			return
		}
		ctx := ContextWithResults(ContextWithInstance(r.Context(), inst), res)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = gojson.NewEncoder(w).Encode(payload)
}
