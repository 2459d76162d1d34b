package jsonskema

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every *SchemaError matches exactly one of them through
// errors.Is.
var (
	// ErrCircularReference reports a reference cycle that can never make
	// progress: a static chain of "$ref"/"allOf" edges, a meta-schema chain
	// that loops, or re-entering a schema at the same instance location.
	ErrCircularReference = errors.New("circular reference")
	// ErrReferenceNotFound reports a reference that no registry entry, local
	// identifier, or fetch callback could resolve.
	ErrReferenceNotFound = errors.New("reference not found")
	// ErrVocabulary reports a required vocabulary that is not registered.
	ErrVocabulary = errors.New("vocabulary error")
	// ErrMetaSchemaMismatch reports an unknown or unsupported "$schema", a
	// draft conflicting with the requested one, or a schema that fails
	// validation against its meta-schema.
	ErrMetaSchemaMismatch = errors.New("meta-schema mismatch")
	// ErrMalformedKeyword reports a keyword whose value has the wrong shape.
	ErrMalformedKeyword = errors.New("malformed keyword")
)

// SchemaError is a fatal compile or evaluation problem. Ordinary validation
// failures never produce one; they are reported in Results.
type SchemaError struct {
	Kind     error  // one of the Err* sentinels
	Location string // absolute schema location, when known
	Keyword  string
	Err      error
	// Issues holds the meta-schema validation failures behind an
	// ErrMetaSchemaMismatch, if any.
	Issues Issues
}

func (e *SchemaError) Error() string {
	b := &strings.Builder{}
	b.WriteString(e.Kind.Error())
	if e.Location != "" {
		fmt.Fprintf(b, " at %s", e.Location)
	}
	if e.Keyword != "" {
		fmt.Fprintf(b, " (%s)", e.Keyword)
	}
	if e.Err != nil {
		fmt.Fprintf(b, ": %v", e.Err)
	}
	if len(e.Issues) > 0 {
		fmt.Fprintf(b, ": %v", e.Issues)
	}
	return b.String()
}

func (e *SchemaError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func schemaErr(kind error, location, keyword string, err error) *SchemaError {
	return &SchemaError{Kind: kind, Location: location, Keyword: keyword, Err: err}
}

func circularf(location, format string, a ...any) error {
	return schemaErr(ErrCircularReference, location, "", fmt.Errorf(format, a...))
}

func notFoundf(location, keyword, format string, a ...any) error {
	return schemaErr(ErrReferenceNotFound, location, keyword, fmt.Errorf(format, a...))
}

func vocabularyf(location, format string, a ...any) error {
	return schemaErr(ErrVocabulary, location, "$vocabulary", fmt.Errorf(format, a...))
}

func mismatchf(location, format string, a ...any) error {
	return schemaErr(ErrMetaSchemaMismatch, location, "$schema", fmt.Errorf(format, a...))
}

func malformedf(location, keyword, format string, a ...any) error {
	return schemaErr(ErrMalformedKeyword, location, keyword, fmt.Errorf(format, a...))
}

// Issue is one flattened validation failure.
type Issue struct {
	Path           string // instance location as a JSON Pointer
	Code           string // keyword that failed
	Message        string
	SchemaLocation string
	EvaluationPath string
}

// Issues is a collection of validation failures that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := min(n, maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		path := it.Path
		if path == "" {
			path = "/"
		}
		fmt.Fprintf(b, "%s at %s", it.Code, path)
		if it.Message != "" {
			fmt.Fprintf(b, ": %s", it.Message)
		}
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	var se *SchemaError
	if errors.As(err, &se) && len(se.Issues) > 0 {
		return se.Issues, true
	}
	return nil, false
}
