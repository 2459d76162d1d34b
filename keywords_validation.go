package jsonskema

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/reoring/jsonskema/i18n"
	"github.com/reoring/jsonskema/internal/format"
	"github.com/reoring/jsonskema/internal/value"
)

var typeNames = map[string]bool{
	"null": true, "boolean": true, "object": true, "array": true,
	"number": true, "string": true, "integer": true,
}

func stringList(kc *KeywordCompiler, arr []any) ([]string, error) {
	out := make([]string, len(arr))
	for i, e := range arr {
		s, ok := e.(string)
		if !ok {
			return nil, kc.Malformed("element %d must be a string", i)
		}
		out[i] = s
	}
	return out, nil
}

func joinList(items []string) string { return strings.Join(items, ", ") }

func joinQuoted(names []string) string {
	q := make([]string, len(names))
	for i, n := range names {
		q[i] = strconv.Quote(n)
	}
	return joinList(q)
}

// tokenValue renders an instance or keyword value for a message: strings
// verbatim, everything else as JSON.
func tokenValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return value.JSON(v)
}

func nonNegativeInt(v any) (int, bool) {
	r, ok := value.Rat(v)
	if !ok || !r.IsInt() || r.Sign() < 0 || !r.Num().IsInt64() {
		return 0, false
	}
	n := r.Num().Int64()
	if n > int64(^uint(0)>>1) {
		return 0, false
	}
	return int(n), true
}

func compileType(kc *KeywordCompiler, v any) (KeywordFunc, error) {
	var names []string
	switch t := v.(type) {
	case string:
		names = []string{t}
	case []any:
		var err error
		if names, err = stringList(kc, t); err != nil {
			return nil, err
		}
	default:
		return nil, kc.Malformed("value must be a string or an array of strings")
	}
	for _, n := range names {
		if !typeNames[n] {
			return nil, kc.Malformed("unknown type %q", n)
		}
	}
	expected := joinQuoted(names)
	return func(_ context.Context, kc *KeywordContext) {
		inst := kc.Instance()
		kind := value.KindOf(inst).String()
		for _, n := range names {
			if n == kind || (n == "integer" && kind == "number" && value.IsInteger(inst)) {
				return
			}
		}
		kc.Fail(map[string]string{"received": value.TypeName(inst), "expected": expected})
	}, nil
}

func compileEnum(kc *KeywordCompiler, v any) (KeywordFunc, error) {
	allowed, ok := v.([]any)
	if !ok {
		return nil, kc.Malformed("value must be an array")
	}
	return func(_ context.Context, kc *KeywordContext) {
		for _, a := range allowed {
			if value.Equal(kc.Instance(), a) {
				return
			}
		}
		kc.Fail(nil)
	}, nil
}

func compileConst(_ *KeywordCompiler, v any) (KeywordFunc, error) {
	want := tokenValue(v)
	return func(_ context.Context, kc *KeywordContext) {
		if !value.Equal(kc.Instance(), v) {
			kc.Fail(map[string]string{"value": want})
		}
	}, nil
}

func compileMultipleOf(kc *KeywordCompiler, v any) (KeywordFunc, error) {
	r, ok := value.Rat(v)
	if !ok || r.Sign() <= 0 {
		return nil, kc.Malformed("value must be a number greater than 0")
	}
	divisor := tokenValue(v)
	return func(_ context.Context, kc *KeywordContext) {
		inst := kc.Instance()
		if value.KindOf(inst) != value.Number {
			return
		}
		if !value.IsMultipleOf(inst, v) {
			kc.Fail(map[string]string{"received": tokenValue(inst), "divisor": divisor})
		}
	}, nil
}

// Comparison outcomes (instance vs limit) that fail each bound keyword.
var (
	boundMaximum          = func(cmp int) bool { return cmp > 0 }
	boundExclusiveMaximum = func(cmp int) bool { return cmp >= 0 }
	boundMinimum          = func(cmp int) bool { return cmp < 0 }
	boundExclusiveMinimum = func(cmp int) bool { return cmp <= 0 }
)

func compileBound(fails func(cmp int) bool) CompileFunc {
	return func(kc *KeywordCompiler, v any) (KeywordFunc, error) {
		if _, ok := value.Rat(v); !ok {
			return nil, kc.Malformed("value must be a number")
		}
		limit := tokenValue(v)
		return func(_ context.Context, kc *KeywordContext) {
			inst := kc.Instance()
			cmp, ok := value.CompareNumbers(inst, v)
			if !ok {
				return
			}
			if fails(cmp) {
				kc.Fail(map[string]string{"received": tokenValue(inst), "limit": limit})
			}
		}, nil
	}
}

func compileLength(isMin bool) CompileFunc {
	return func(kc *KeywordCompiler, v any) (KeywordFunc, error) {
		limit, ok := nonNegativeInt(v)
		if !ok {
			return nil, kc.Malformed("value must be a non-negative integer")
		}
		data := map[string]string{"limit": strconv.Itoa(limit)}
		return func(_ context.Context, kc *KeywordContext) {
			s, ok := kc.Instance().(string)
			if !ok {
				return
			}
			n := utf8.RuneCountInString(s)
			if (isMin && n < limit) || (!isMin && n > limit) {
				kc.Fail(data)
			}
		}, nil
	}
}

func compilePattern(kc *KeywordCompiler, v any) (KeywordFunc, error) {
	p, ok := v.(string)
	if !ok {
		return nil, kc.Malformed("value must be a string")
	}
	re, err := format.CompilePattern(p)
	if err != nil {
		return nil, kc.Malformed("invalid pattern %q: %v", p, err)
	}
	data := map[string]string{"pattern": p}
	return func(_ context.Context, kc *KeywordContext) {
		s, ok := kc.Instance().(string)
		if !ok {
			return
		}
		if m, err := re.MatchString(s); err != nil || !m {
			kc.Fail(data)
		}
	}, nil
}

func countItems(v any) (int, bool) {
	arr, ok := v.([]any)
	return len(arr), ok
}

func countProperties(v any) (int, bool) {
	obj, ok := v.(map[string]any)
	return len(obj), ok
}

func compileCount(count func(any) (int, bool), isMin bool) CompileFunc {
	return func(kc *KeywordCompiler, v any) (KeywordFunc, error) {
		limit, ok := nonNegativeInt(v)
		if !ok {
			return nil, kc.Malformed("value must be a non-negative integer")
		}
		data := map[string]string{"limit": strconv.Itoa(limit)}
		return func(_ context.Context, kc *KeywordContext) {
			n, ok := count(kc.Instance())
			if !ok {
				return
			}
			if (isMin && n < limit) || (!isMin && n > limit) {
				kc.Fail(data)
			}
		}, nil
	}
}

func compileUniqueItems(kc *KeywordCompiler, v any) (KeywordFunc, error) {
	unique, ok := v.(bool)
	if !ok {
		return nil, kc.Malformed("value must be a boolean")
	}
	if !unique {
		return nil, nil
	}
	return func(_ context.Context, kc *KeywordContext) {
		arr, ok := kc.Instance().([]any)
		if !ok {
			return
		}
		var pairs []string
		for i := range arr {
			for j := i + 1; j < len(arr); j++ {
				if value.Equal(arr[i], arr[j]) {
					pairs = append(pairs, fmt.Sprintf("(%d, %d)", i, j))
				}
			}
		}
		if len(pairs) > 0 {
			kc.Fail(map[string]string{"duplicates": joinList(pairs)})
		}
	}, nil
}

// compileContainsBound only checks the value; "contains" reads it.
func compileContainsBound(kc *KeywordCompiler, v any) (KeywordFunc, error) {
	if _, ok := nonNegativeInt(v); !ok {
		return nil, kc.Malformed("value must be a non-negative integer")
	}
	return nil, nil
}

func compileRequired(kc *KeywordCompiler, v any) (KeywordFunc, error) {
	arr, ok := v.([]any)
	if !ok {
		return nil, kc.Malformed("value must be an array of strings")
	}
	names, err := stringList(kc, arr)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}
	return func(_ context.Context, kc *KeywordContext) {
		obj, ok := kc.Instance().(map[string]any)
		if !ok {
			return
		}
		var missing []string
		for _, n := range names {
			if _, ok := obj[n]; !ok {
				missing = append(missing, n)
			}
		}
		if len(missing) > 0 {
			kc.Fail(map[string]string{"missing": joinQuoted(missing)})
		}
	}, nil
}

func compileDependentRequired(kc *KeywordCompiler, v any) (KeywordFunc, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, kc.Malformed("value must be an object of string arrays")
	}
	deps := map[string][]string{}
	props := value.SortedKeys(m)
	for _, p := range props {
		arr, ok := m[p].([]any)
		if !ok {
			return nil, kc.Malformed("value for %q must be an array of strings", p)
		}
		names, err := stringList(kc, arr)
		if err != nil {
			return nil, err
		}
		deps[p] = names
	}
	return func(_ context.Context, kc *KeywordContext) {
		obj, ok := kc.Instance().(map[string]any)
		if !ok {
			return
		}
		var missing []string
		for _, p := range props {
			if _, present := obj[p]; !present {
				continue
			}
			for _, d := range deps[p] {
				if _, ok := obj[d]; !ok {
					missing = append(missing, strconv.Quote(p)+" requires "+strconv.Quote(d))
				}
			}
		}
		if len(missing) > 0 {
			kc.Fail(map[string]string{"missing": joinList(missing)})
		}
	}, nil
}

func compileAnnotation(_ *KeywordCompiler, v any) (KeywordFunc, error) {
	return func(_ context.Context, kc *KeywordContext) {
		kc.Annotate(v)
	}, nil
}

// compileFormat always annotates. It asserts when format validation is
// required or the format-assertion vocabulary is active; unknown formats
// fail only under OnlyKnownFormats.
func compileFormat(kc *KeywordCompiler, v any) (KeywordFunc, error) {
	name, ok := v.(string)
	if !ok {
		return nil, kc.Malformed("value must be a string")
	}
	assert := kc.formatAssertion()
	onlyKnown := kc.c.opts.OnlyKnownFormats
	data := map[string]string{"format": name}
	return func(_ context.Context, kc *KeywordContext) {
		kc.Annotate(name)
		checker, ok := format.Lookup(name)
		if !ok {
			if onlyKnown {
				kc.FailKey(i18n.KeyUnknownFormat, data)
			}
			return
		}
		if assert && !checker.Check(kc.Instance()) {
			kc.Fail(data)
		}
	}, nil
}
