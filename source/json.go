// Package source loads schema and instance documents into the generic value
// trees consumed by jsonskema: JSON (with duplicate key enforcement), YAML,
// MessagePack, and a filesystem-backed reference fetcher.
package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	j "github.com/goccy/go-json"

	"github.com/reoring/jsonskema/internal/pointer"
)

// DuplicateKeyError reports an object member that appears twice.
type DuplicateKeyError struct {
	Path string
	Key  string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key %q at %q", e.Key, e.Path)
}

// ErrTrailingData is returned when a JSON document has content after its
// first value.
var ErrTrailingData = errors.New("source: trailing data after JSON value")

type containerKind int

const (
	kindObject containerKind = iota
	kindArray
)

type frame struct {
	kind containerKind
	obj  map[string]any
	arr  []any
	// key holds the pending member name while its value is decoded.
	key          string
	expectingKey bool
	path         pointer.Pointer
}

// JSON decodes a single JSON document. Numbers are kept as json.Number so
// large and decimal values compare exactly; duplicate object keys are
// rejected with *DuplicateKeyError.
func JSON(data []byte) (any, error) { return JSONReader(bytes.NewReader(data)) }

// JSONReader is JSON over an io.Reader. The reader is consumed fully.
func JSONReader(r io.Reader) (any, error) {
	dec := j.NewDecoder(r)
	dec.UseNumber()

	var (
		stack []*frame
		root  any
		done  bool
	)

	// emit places a finished value into the enclosing container.
	emit := func(v any) {
		if len(stack) == 0 {
			root, done = v, true
			return
		}
		top := stack[len(stack)-1]
		if top.kind == kindArray {
			top.arr = append(top.arr, v)
			return
		}
		top.obj[top.key] = v
		top.expectingKey = true
	}
	childPath := func() pointer.Pointer {
		if len(stack) == 0 {
			return pointer.Root
		}
		top := stack[len(stack)-1]
		if top.kind == kindArray {
			return top.path.Index(len(top.arr))
		}
		return top.path.Field(top.key)
	}

	for !done {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		switch v := tok.(type) {
		case j.Delim:
			switch v {
			case '{':
				stack = append(stack, &frame{kind: kindObject, obj: map[string]any{}, expectingKey: true, path: childPath()})
			case '[':
				stack = append(stack, &frame{kind: kindArray, arr: []any{}, path: childPath()})
			case '}', ']':
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if top.kind == kindObject {
					emit(top.obj)
				} else {
					emit(top.arr)
				}
			}
		case string:
			if n := len(stack); n > 0 {
				top := stack[n-1]
				if top.kind == kindObject && top.expectingKey {
					if _, dup := top.obj[v]; dup {
						return nil, &DuplicateKeyError{Path: top.path.String(), Key: v}
					}
					top.key = v
					top.expectingKey = false
					continue
				}
			}
			emit(v)
		case json.Number:
			emit(v)
		case float64:
			emit(json.Number(fmt.Sprint(v)))
		default:
			// bool and nil
			emit(v)
		}
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, ErrTrailingData
	}
	return root, nil
}
