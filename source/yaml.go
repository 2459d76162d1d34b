package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"strconv"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// YAML decodes every document of a (possibly multi-document) YAML stream.
// Mappings with non-string keys are rejected since they have no JSON form.
func YAML(data []byte) ([]any, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var docs []any
	for {
		var node any
		if err := dec.Decode(&node); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		v, err := normalize(node, "")
		if err != nil {
			return nil, err
		}
		docs = append(docs, v)
	}
	return docs, nil
}

// MsgPack decodes a MessagePack encoded document.
func MsgPack(data []byte) (any, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	var node any
	if err := dec.Decode(&node); err != nil {
		return nil, err
	}
	return normalize(node, "")
}

// normalize converts decoder-specific values into the generic tree: string
// keyed maps, []any, json.Number for every numeric kind.
func normalize(v any, path string) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			n, err := normalize(vv, path+"/"+k)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("source: non-string key %v at %q", k, path)
			}
			n, err := normalize(vv, path+"/"+ks)
			if err != nil {
				return nil, err
			}
			out[ks] = n
		}
		return out, nil
	case []any:
		arr := make([]any, len(t))
		for i := range t {
			n, err := normalize(t[i], path+"/"+strconv.Itoa(i))
			if err != nil {
				return nil, err
			}
			arr[i] = n
		}
		return arr, nil
	case int:
		return json.Number(strconv.Itoa(t)), nil
	case int8, int16, int32, int64:
		return json.Number(fmt.Sprint(t)), nil
	case uint, uint8, uint16, uint32, uint64:
		return json.Number(fmt.Sprint(t)), nil
	case *big.Int:
		return json.Number(t.String()), nil
	case float32:
		return floatNumber(float64(t), path)
	case float64:
		return floatNumber(t, path)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano), nil
	case []byte:
		return string(t), nil
	case nil, bool, string:
		return t, nil
	}
	return nil, fmt.Errorf("source: unsupported value %T at %q", v, path)
}

func floatNumber(f float64, path string) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("source: %v at %q has no JSON form", f, path)
	}
	return json.Number(strconv.FormatFloat(f, 'g', -1, 64)), nil
}
