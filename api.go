package jsonskema

import (
	"context"
	"io"

	"github.com/reoring/jsonskema/source"
)

// Evaluate compiles s under opts (reusing a cached program when possible) and
// evaluates instance. A nil opts uses DefaultOptions.
func Evaluate(ctx context.Context, s *Schema, instance any, opts *EvaluationOptions) (*Results, error) {
	return s.Evaluate(ctx, instance, opts)
}

// EvaluateJSON decodes a JSON instance and evaluates it. Duplicate object
// keys in the instance are rejected before evaluation.
func EvaluateJSON(ctx context.Context, s *Schema, data []byte, opts *EvaluationOptions) (*Results, error) {
	v, err := source.JSON(data)
	if err != nil {
		return nil, err
	}
	return s.Evaluate(ctx, v, opts)
}

// EvaluateReader is EvaluateJSON over a stream.
func EvaluateReader(ctx context.Context, s *Schema, r io.Reader, opts *EvaluationOptions) (*Results, error) {
	v, err := source.JSONReader(r)
	if err != nil {
		return nil, err
	}
	return s.Evaluate(ctx, v, opts)
}

// Validate reports whether instance conforms to s. It returns nil when valid,
// Issues when invalid, and a *SchemaError (or context error) when evaluation
// could not complete.
func Validate(ctx context.Context, s *Schema, instance any) error {
	opts := &EvaluationOptions{OutputFormat: OutputList}
	res, err := s.Evaluate(ctx, instance, opts)
	if err != nil {
		return err
	}
	return res.Err()
}
