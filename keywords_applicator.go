package jsonskema

import (
	"context"
	"slices"
	"strconv"

	"github.com/dlclark/regexp2"

	"github.com/reoring/jsonskema/i18n"
	"github.com/reoring/jsonskema/internal/format"
	"github.com/reoring/jsonskema/internal/value"
)

func schemaList(kc *KeywordCompiler, v any) ([]*SchemaConstraint, error) {
	arr, ok := v.([]any)
	if !ok || len(arr) == 0 {
		return nil, kc.Malformed("value must be a non-empty array of schemas")
	}
	out := make([]*SchemaConstraint, len(arr))
	for i := range arr {
		s, err := kc.Subschema(strconv.Itoa(i))
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func schemaMap(kc *KeywordCompiler, v any) (map[string]*SchemaConstraint, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, kc.Malformed("value must be an object of schemas")
	}
	out := make(map[string]*SchemaConstraint, len(m))
	for _, k := range value.SortedKeys(m) {
		s, err := kc.Subschema(k)
		if err != nil {
			return nil, err
		}
		out[k] = s
	}
	return out, nil
}

func inPlace(kc *KeywordContext, schemas []*SchemaConstraint) []Application {
	apps := make([]Application, len(schemas))
	for i, s := range schemas {
		apps[i] = Application{Schema: s, Instance: kc.Instance(), Path: []string{strconv.Itoa(i)}}
	}
	return apps
}

func countTrue(bs []bool) int {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}

func compileAllOf(kc *KeywordCompiler, v any) (KeywordFunc, error) {
	schemas, err := schemaList(kc, v)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, kc *KeywordContext) {
		if countTrue(kc.Apply(ctx, inPlace(kc, schemas), RequireAll)) != len(schemas) {
			kc.Invalidate()
		}
	}, nil
}

func compileAnyOf(kc *KeywordCompiler, v any) (KeywordFunc, error) {
	schemas, err := schemaList(kc, v)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, kc *KeywordContext) {
		if countTrue(kc.Apply(ctx, inPlace(kc, schemas), Exhaustive)) == 0 {
			kc.Fail(nil)
		}
	}, nil
}

func compileOneOf(kc *KeywordCompiler, v any) (KeywordFunc, error) {
	schemas, err := schemaList(kc, v)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, kc *KeywordContext) {
		if n := countTrue(kc.Apply(ctx, inPlace(kc, schemas), Exhaustive)); n != 1 {
			kc.Fail(map[string]string{"count": strconv.Itoa(n)})
		}
	}, nil
}

func compileNot(kc *KeywordCompiler, _ any) (KeywordFunc, error) {
	s, err := kc.Subschema()
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, kc *KeywordContext) {
		if kc.applyOne(ctx, s) {
			kc.Fail(nil)
		}
	}, nil
}

// compileIf records the outcome for "then" and "else". A failing condition
// never invalidates the node.
func compileIf(kc *KeywordCompiler, _ any) (KeywordFunc, error) {
	s, err := kc.Subschema()
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, kc *KeywordContext) {
		ok := kc.applyOne(ctx, s)
		kc.r.condition = &ok
	}, nil
}

func compileBranch(want bool) CompileFunc {
	return func(kc *KeywordCompiler, _ any) (KeywordFunc, error) {
		if _, ok := kc.Sibling("if"); !ok {
			return nil, nil
		}
		s, err := kc.Subschema()
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, kc *KeywordContext) {
			cond := kc.r.condition
			if cond == nil || *cond != want {
				return
			}
			if !kc.applyOne(ctx, s) {
				kc.Invalidate()
			}
		}, nil
	}
}

var (
	compileThen = compileBranch(true)
	compileElse = compileBranch(false)
)

func compileDependentSchemas(kc *KeywordCompiler, v any) (KeywordFunc, error) {
	schemas, err := schemaMap(kc, v)
	if err != nil {
		return nil, err
	}
	names := sortedSchemaKeys(schemas)
	return func(ctx context.Context, kc *KeywordContext) {
		obj, ok := kc.Instance().(map[string]any)
		if !ok {
			return
		}
		var apps []Application
		for _, name := range names {
			if _, present := obj[name]; present {
				apps = append(apps, Application{Schema: schemas[name], Instance: obj, Path: []string{name}})
			}
		}
		if countTrue(kc.Apply(ctx, apps, RequireAll)) != len(apps) {
			kc.Invalidate()
		}
	}, nil
}

// compileDependencies handles the draft 6/7 form, where each entry is either
// a schema or a list of required property names.
func compileDependencies(kc *KeywordCompiler, v any) (KeywordFunc, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, kc.Malformed("value must be an object")
	}
	schemas := map[string]*SchemaConstraint{}
	required := map[string][]string{}
	for _, name := range value.SortedKeys(m) {
		switch dep := m[name].(type) {
		case []any:
			props, err := stringList(kc, dep)
			if err != nil {
				return nil, err
			}
			required[name] = props
		default:
			s, err := kc.Subschema(name)
			if err != nil {
				return nil, err
			}
			schemas[name] = s
		}
	}
	names := value.SortedKeys(m)
	return func(ctx context.Context, kc *KeywordContext) {
		obj, ok := kc.Instance().(map[string]any)
		if !ok {
			return
		}
		var unmet []string
		var apps []Application
		for _, name := range names {
			if _, present := obj[name]; !present {
				continue
			}
			if s, ok := schemas[name]; ok {
				apps = append(apps, Application{Schema: s, Instance: obj, Path: []string{name}})
				continue
			}
			for _, p := range required[name] {
				if _, ok := obj[p]; !ok {
					unmet = append(unmet, strconv.Quote(name)+" requires "+strconv.Quote(p))
				}
			}
		}
		if len(unmet) > 0 {
			kc.Fail(map[string]string{"properties": joinList(unmet)})
		}
		if len(apps) > 0 && countTrue(kc.Apply(ctx, apps, RequireAll)) != len(apps) {
			kc.Invalidate()
		}
	}, nil
}

// compilePropertyDependencies selects subschemas by the string value of a
// property.
func compilePropertyDependencies(kc *KeywordCompiler, v any) (KeywordFunc, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, kc.Malformed("value must be an object of objects of schemas")
	}
	table := map[string]map[string]*SchemaConstraint{}
	for _, prop := range value.SortedKeys(m) {
		inner, ok := m[prop].(map[string]any)
		if !ok {
			return nil, kc.Malformed("value for %q must be an object of schemas", prop)
		}
		table[prop] = map[string]*SchemaConstraint{}
		for _, val := range value.SortedKeys(inner) {
			s, err := kc.Subschema(prop, val)
			if err != nil {
				return nil, err
			}
			table[prop][val] = s
		}
	}
	props := value.SortedKeys(m)
	return func(ctx context.Context, kc *KeywordContext) {
		obj, ok := kc.Instance().(map[string]any)
		if !ok {
			return
		}
		var apps []Application
		var selectedBy []string
		for _, prop := range props {
			val, ok := obj[prop].(string)
			if !ok {
				continue
			}
			if s, ok := table[prop][val]; ok {
				apps = append(apps, Application{Schema: s, Instance: obj, Path: []string{prop, val}})
				selectedBy = append(selectedBy, prop)
			}
		}
		for i, ok := range kc.Apply(ctx, apps, RequireAll) {
			if !ok {
				kc.Fail(map[string]string{"property": selectedBy[i]})
			}
		}
	}, nil
}

func compilePrefixItems(kc *KeywordCompiler, v any) (KeywordFunc, error) {
	schemas, err := schemaList(kc, v)
	if err != nil {
		return nil, err
	}
	return tupleItems(schemas), nil
}

// tupleItems applies schemas positionally. The annotation is the largest
// index applied, or true when every item was covered.
func tupleItems(schemas []*SchemaConstraint) KeywordFunc {
	return func(ctx context.Context, kc *KeywordContext) {
		arr, ok := kc.Instance().([]any)
		if !ok || len(arr) == 0 {
			return
		}
		n := min(len(arr), len(schemas))
		apps := make([]Application, n)
		for i := range n {
			idx := strconv.Itoa(i)
			apps[i] = Application{Schema: schemas[i], Instance: arr[i], Location: []string{idx}, Path: []string{idx}}
		}
		if n == len(arr) {
			kc.Annotate(true)
		} else {
			kc.Annotate(n - 1)
		}
		if countTrue(kc.Apply(ctx, apps, RequireAll)) != n {
			kc.Invalidate()
		}
	}
}

// restItems applies s to every item from index start on and annotates true
// when it applied to any.
func restItems(s *SchemaConstraint, start int) KeywordFunc {
	return func(ctx context.Context, kc *KeywordContext) {
		arr, ok := kc.Instance().([]any)
		if !ok || len(arr) <= start {
			return
		}
		apps := make([]Application, 0, len(arr)-start)
		for i := start; i < len(arr); i++ {
			apps = append(apps, Application{Schema: s, Instance: arr[i], Location: []string{strconv.Itoa(i)}})
		}
		kc.Annotate(true)
		if countTrue(kc.Apply(ctx, apps, RequireAll)) != len(apps) {
			kc.Invalidate()
		}
	}
}

func compileItems(kc *KeywordCompiler, _ any) (KeywordFunc, error) {
	s, err := kc.Subschema()
	if err != nil {
		return nil, err
	}
	start := 0
	if prefix, ok := kc.Sibling("prefixItems"); ok {
		if arr, ok := prefix.([]any); ok {
			start = len(arr)
		}
	}
	return restItems(s, start), nil
}

func compileLegacyItems(kc *KeywordCompiler, v any) (KeywordFunc, error) {
	if _, ok := v.([]any); ok {
		schemas, err := schemaList(kc, v)
		if err != nil {
			return nil, err
		}
		return tupleItems(schemas), nil
	}
	s, err := kc.Subschema()
	if err != nil {
		return nil, err
	}
	return restItems(s, 0), nil
}

func compileAdditionalItems(kc *KeywordCompiler, _ any) (KeywordFunc, error) {
	items, ok := kc.Sibling("items")
	if !ok {
		return nil, nil
	}
	tuple, ok := items.([]any)
	if !ok {
		return nil, nil
	}
	s, err := kc.Subschema()
	if err != nil {
		return nil, err
	}
	rest := restItems(s, len(tuple))
	return func(ctx context.Context, kc *KeywordContext) {
		if covered, ok := kc.LocalAnnotation("items"); ok && covered == true {
			return
		}
		rest(ctx, kc)
	}, nil
}

func compileContains(kc *KeywordCompiler, _ any) (KeywordFunc, error) {
	s, err := kc.Subschema()
	if err != nil {
		return nil, err
	}
	minimum, hasMin, maximum, hasMax := 1, false, 0, false
	if kc.Draft().vocabularyAware() {
		if v, ok := kc.Sibling("minContains"); ok {
			if n, ok := nonNegativeInt(v); ok {
				minimum, hasMin = n, true
			}
		}
		if v, ok := kc.Sibling("maxContains"); ok {
			if n, ok := nonNegativeInt(v); ok {
				maximum, hasMax = n, true
			}
		}
	}
	annotate := kc.Draft()&(Draft202012|DraftNext) != 0
	return func(ctx context.Context, kc *KeywordContext) {
		arr, ok := kc.Instance().([]any)
		if !ok {
			return
		}
		apps := make([]Application, len(arr))
		for i, item := range arr {
			apps[i] = Application{Schema: s, Instance: item, Location: []string{strconv.Itoa(i)}}
		}
		var matched []int
		for i, ok := range kc.Apply(ctx, apps, Exhaustive) {
			if ok {
				matched = append(matched, i)
			}
		}
		if annotate && len(matched) > 0 {
			kc.Annotate(matched)
		}
		n := len(matched)
		switch {
		case n < minimum && hasMin:
			kc.FailKey(i18n.KeyMinContains, map[string]string{"received": strconv.Itoa(n), "limit": strconv.Itoa(minimum)})
		case n < minimum:
			kc.Fail(nil)
		case hasMax && n > maximum:
			kc.FailKey(i18n.KeyMaxContains, map[string]string{"received": strconv.Itoa(n), "limit": strconv.Itoa(maximum)})
		}
	}, nil
}

func compileProperties(kc *KeywordCompiler, v any) (KeywordFunc, error) {
	schemas, err := schemaMap(kc, v)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, kc *KeywordContext) {
		obj, ok := kc.Instance().(map[string]any)
		if !ok {
			return
		}
		var apps []Application
		var names []string
		for _, name := range value.SortedKeys(obj) {
			if s, ok := schemas[name]; ok {
				apps = append(apps, Application{Schema: s, Instance: obj[name], Location: []string{name}, Path: []string{name}})
				names = append(names, name)
			}
		}
		if len(names) == 0 {
			return
		}
		kc.Annotate(names)
		if countTrue(kc.Apply(ctx, apps, RequireAll)) != len(apps) {
			kc.Invalidate()
		}
	}, nil
}

type compiledPattern struct {
	source string
	re     *regexp2.Regexp
	schema *SchemaConstraint
}

func compilePatternProperties(kc *KeywordCompiler, v any) (KeywordFunc, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, kc.Malformed("value must be an object of schemas")
	}
	var patterns []compiledPattern
	for _, p := range value.SortedKeys(m) {
		re, err := format.CompilePattern(p)
		if err != nil {
			return nil, kc.Malformed("invalid pattern %q: %v", p, err)
		}
		s, err := kc.Subschema(p)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, compiledPattern{source: p, re: re, schema: s})
	}
	return func(ctx context.Context, kc *KeywordContext) {
		obj, ok := kc.Instance().(map[string]any)
		if !ok {
			return
		}
		var apps []Application
		var names []string
		for _, name := range value.SortedKeys(obj) {
			for _, p := range patterns {
				if ok, err := p.re.MatchString(name); err != nil || !ok {
					continue
				}
				apps = append(apps, Application{Schema: p.schema, Instance: obj[name], Location: []string{name}, Path: []string{p.source}})
				if len(names) == 0 || names[len(names)-1] != name {
					names = append(names, name)
				}
			}
		}
		if len(names) == 0 {
			return
		}
		kc.Annotate(names)
		if countTrue(kc.Apply(ctx, apps, RequireAll)) != len(apps) {
			kc.Invalidate()
		}
	}, nil
}

// annotatedNames merges property-name annotations into a set.
func annotatedNames(vals []any, into map[string]bool) {
	for _, v := range vals {
		if names, ok := v.([]string); ok {
			for _, n := range names {
				into[n] = true
			}
		}
	}
}

func compileAdditionalProperties(kc *KeywordCompiler, _ any) (KeywordFunc, error) {
	s, err := kc.Subschema()
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, kc *KeywordContext) {
		obj, ok := kc.Instance().(map[string]any)
		if !ok {
			return
		}
		covered := map[string]bool{}
		for _, kw := range []string{"properties", "patternProperties"} {
			if v, ok := kc.LocalAnnotation(kw); ok {
				annotatedNames([]any{v}, covered)
			}
		}
		restProperties(ctx, kc, s, obj, covered)
	}, nil
}

// restProperties applies s to the properties of obj outside covered and
// annotates the names it applied to.
func restProperties(ctx context.Context, kc *KeywordContext, s *SchemaConstraint, obj map[string]any, covered map[string]bool) {
	var apps []Application
	var names []string
	for _, name := range value.SortedKeys(obj) {
		if covered[name] {
			continue
		}
		apps = append(apps, Application{Schema: s, Instance: obj[name], Location: []string{name}})
		names = append(names, name)
	}
	if len(names) == 0 {
		return
	}
	kc.Annotate(names)
	if countTrue(kc.Apply(ctx, apps, RequireAll)) != len(apps) {
		kc.Invalidate()
	}
}

func compilePropertyNames(kc *KeywordCompiler, _ any) (KeywordFunc, error) {
	s, err := kc.Subschema()
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, kc *KeywordContext) {
		obj, ok := kc.Instance().(map[string]any)
		if !ok || len(obj) == 0 {
			return
		}
		names := value.SortedKeys(obj)
		apps := make([]Application, len(names))
		for i, name := range names {
			apps[i] = Application{Schema: s, Instance: name, Location: []string{name}}
		}
		if countTrue(kc.Apply(ctx, apps, RequireAll)) != len(apps) {
			kc.Invalidate()
		}
	}, nil
}

func compileUnevaluatedItems(kc *KeywordCompiler, _ any) (KeywordFunc, error) {
	s, err := kc.Subschema()
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, kc *KeywordContext) {
		arr, ok := kc.Instance().([]any)
		if !ok || len(arr) == 0 {
			return
		}
		evaluated := make([]bool, len(arr))
		all := false
		for _, kw := range []string{"prefixItems", "items", "additionalItems", "unevaluatedItems"} {
			for _, a := range kc.Annotations(kw) {
				switch t := a.(type) {
				case bool:
					all = all || t
				case int:
					for i := 0; i <= t && i < len(arr); i++ {
						evaluated[i] = true
					}
				}
			}
		}
		if all {
			return
		}
		for _, a := range kc.Annotations("contains") {
			if idx, ok := a.([]int); ok {
				for _, i := range idx {
					if i < len(arr) {
						evaluated[i] = true
					}
				}
			}
		}
		var apps []Application
		for i, done := range evaluated {
			if !done {
				apps = append(apps, Application{Schema: s, Instance: arr[i], Location: []string{strconv.Itoa(i)}})
			}
		}
		if len(apps) == 0 {
			return
		}
		kc.Annotate(true)
		if countTrue(kc.Apply(ctx, apps, RequireAll)) != len(apps) {
			kc.Invalidate()
		}
	}, nil
}

func compileUnevaluatedProperties(kc *KeywordCompiler, _ any) (KeywordFunc, error) {
	s, err := kc.Subschema()
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, kc *KeywordContext) {
		obj, ok := kc.Instance().(map[string]any)
		if !ok || len(obj) == 0 {
			return
		}
		covered := map[string]bool{}
		for _, kw := range []string{"properties", "patternProperties", "additionalProperties", "unevaluatedProperties"} {
			annotatedNames(kc.Annotations(kw), covered)
		}
		restProperties(ctx, kc, s, obj, covered)
	}, nil
}

func sortedSchemaKeys(m map[string]*SchemaConstraint) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
