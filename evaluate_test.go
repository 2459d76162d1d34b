package jsonskema_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/go-logr/logr/testr"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/reoring/jsonskema"
)

func evaluate(t *testing.T, s *jsonskema.Schema, instance any, opts *jsonskema.EvaluationOptions) *jsonskema.Results {
	t.Helper()
	res, err := s.Evaluate(context.Background(), instance, opts)
	if err != nil {
		t.Fatalf("Evaluate(%v): %v", instance, err)
	}
	return res
}

func instanceOf(t *testing.T, text string) any {
	t.Helper()
	s, err := jsonskema.FromJSON([]byte(`{"const":` + text + `}`))
	if err != nil {
		t.Fatalf("instance %s: %v", text, err)
	}
	return s.Value().(map[string]any)["const"]
}

func TestEvaluate_Keywords(t *testing.T) {
	cases := []struct {
		name     string
		schema   string
		instance string
		valid    bool
	}{
		{"type integer", `{"type":"integer"}`, `3.0`, true},
		{"type integer fraction", `{"type":"integer"}`, `3.5`, false},
		{"type list", `{"type":["string","null"]}`, `null`, true},
		{"enum structural", `{"enum":[{"a":[1,2]}]}`, `{"a":[1.0,2]}`, true},
		{"const", `{"const":"x"}`, `"y"`, false},
		{"multipleOf decimal", `{"multipleOf":0.1}`, `0.3`, true},
		{"exclusiveMaximum", `{"exclusiveMaximum":10}`, `10`, false},
		{"minLength runes", `{"minLength":2}`, `"日本"`, true},
		{"maxLength runes", `{"maxLength":1}`, `"日本"`, false},
		{"pattern lookahead", `{"pattern":"^(?=.*\\d)[a-z0-9]+$"}`, `"abc1"`, true},
		{"pattern unanchored", `{"pattern":"b"}`, `"abc"`, true},
		{"uniqueItems", `{"uniqueItems":true}`, `[1,{"a":1},1.0]`, false},
		{"required", `{"required":["a"]}`, `{"b":1}`, false},
		{"required ignores non objects", `{"required":["a"]}`, `[]`, true},
		{"dependentRequired", `{"dependentRequired":{"a":["b"]}}`, `{"a":1}`, false},
		{"minProperties", `{"minProperties":1}`, `{}`, false},
		{"allOf", `{"allOf":[{"type":"number"},{"minimum":2}]}`, `1`, false},
		{"anyOf", `{"anyOf":[{"type":"string"},{"minimum":2}]}`, `3`, true},
		{"oneOf two match", `{"oneOf":[{"type":"number"},{"minimum":2}]}`, `3`, false},
		{"not", `{"not":{"type":"string"}}`, `"x"`, false},
		{"if then", `{"if":{"minimum":10},"then":{"multipleOf":2},"else":{"type":"string"}}`, `11`, false},
		{"if else", `{"if":{"minimum":10},"then":{"multipleOf":2},"else":{"maximum":5}}`, `4`, true},
		{"then without if", `{"then":false}`, `1`, true},
		{"prefixItems and items", `{"prefixItems":[{"type":"string"}],"items":{"type":"number"}}`, `["a",1,2]`, true},
		{"items after prefix fails", `{"prefixItems":[{"type":"string"}],"items":{"type":"number"}}`, `["a","b"]`, false},
		{"contains", `{"contains":{"type":"string"}}`, `[1,2]`, false},
		{"minContains zero", `{"contains":{"type":"string"},"minContains":0}`, `[1]`, true},
		{"maxContains", `{"contains":{"type":"string"},"maxContains":1}`, `["a","b"]`, false},
		{"additionalProperties", `{"properties":{"a":true},"patternProperties":{"^x-":true},"additionalProperties":false}`, `{"a":1,"x-b":2}`, true},
		{"additionalProperties fails", `{"properties":{"a":true},"additionalProperties":false}`, `{"a":1,"b":2}`, false},
		{"propertyNames", `{"propertyNames":{"maxLength":2}}`, `{"abc":1}`, false},
		{"dependentSchemas", `{"dependentSchemas":{"a":{"required":["b"]}}}`, `{"a":1}`, false},
		{"unevaluatedProperties through allOf", `{"allOf":[{"properties":{"a":true}}],"unevaluatedProperties":false}`, `{"a":1}`, true},
		{"unevaluatedProperties ignores failed branch", `{"anyOf":[{"properties":{"a":true},"required":["b"]},true],"unevaluatedProperties":false}`, `{"a":1}`, false},
		{"unevaluatedItems through contains", `{"contains":{"type":"string"},"unevaluatedItems":false}`, `["a","b"]`, true},
		{"false schema", `false`, `1`, false},
		{"true schema", `true`, `1`, true},
		{"unknown keyword", `{"x-vendor":{"anything":true}}`, `1`, true},
		{"content is annotation only", `{"contentMediaType":"application/json","contentSchema":{"type":"object"}}`, `"nope"`, true},
		{"draft 7 dependencies", `{"$schema":"http://json-schema.org/draft-07/schema#","dependencies":{"a":["b"],"c":{"required":["d"]}}}`, `{"a":1,"b":2,"c":3}`, false},
		{"dependencies unknown in 2020-12", `{"dependencies":{"a":["b"]}}`, `{"a":1}`, true},
		{"draft 7 array items", `{"$schema":"http://json-schema.org/draft-07/schema#","items":[{"type":"string"}],"additionalItems":false}`, `["a",1]`, false},
		{"draft next propertyDependencies", `{"$schema":"https://json-schema.org/draft/next/schema","propertyDependencies":{"kind":{"cat":{"required":["meow"]}}}}`, `{"kind":"cat"}`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := mustJSON(t, tc.schema)
			for _, format := range []jsonskema.OutputFormat{jsonskema.OutputFlag, jsonskema.OutputList, jsonskema.OutputHierarchical} {
				res := evaluate(t, s, instanceOf(t, tc.instance), &jsonskema.EvaluationOptions{OutputFormat: format})
				if res.Valid != tc.valid {
					t.Fatalf("%s: valid = %v, want %v (instance %s)", format, res.Valid, tc.valid, tc.instance)
				}
			}
		})
	}
}

func TestEvaluate_MaximumMessage(t *testing.T) {
	s := mustJSON(t, `{"maximum":10}`)
	if res := evaluate(t, s, 5, nil); !res.Valid {
		t.Fatal("5 should be valid")
	}
	err := jsonskema.Validate(context.Background(), s, 15)
	iss, ok := jsonskema.AsIssues(err)
	if !ok || len(iss) != 1 {
		t.Fatalf("expected one issue, got %v", err)
	}
	if iss[0].Code != "maximum" || iss[0].Message != "15 is greater than 10" || iss[0].Path != "" {
		t.Fatalf("unexpected issue: %+v", iss[0])
	}
}

func TestEvaluate_DraftSevenRefHidesSiblings(t *testing.T) {
	s := mustJSON(t, `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"$ref": "#/definitions/a",
		"maximum": 0,
		"definitions": {"a": {"type": "integer"}}
	}`)
	if res := evaluate(t, s, 5, nil); !res.Valid {
		t.Fatal("siblings of $ref must be ignored in draft 7")
	}
	if res := evaluate(t, s, "x", nil); res.Valid {
		t.Fatal("the $ref target must still apply")
	}

	modern := mustJSON(t, `{"$ref":"#/$defs/a","maximum":0,"$defs":{"a":{"type":"integer"}}}`)
	if res := evaluate(t, modern, 5, nil); res.Valid {
		t.Fatal("siblings of $ref apply in 2020-12")
	}
}

func TestEvaluate_UnevaluatedItemsAfterPrefix(t *testing.T) {
	s := mustJSON(t, `{"prefixItems":[{},{},{}],"unevaluatedItems":{"type":"string"}}`)
	if res := evaluate(t, s, []any{1, 2, 3, "a", "b"}, nil); !res.Valid {
		t.Fatal("items covered by prefixItems must not be re-evaluated")
	}
	res := evaluate(t, s, []any{1, 2, 3, 4, "b"}, &jsonskema.EvaluationOptions{OutputFormat: jsonskema.OutputList})
	if res.Valid {
		t.Fatal("index 3 must be evaluated by unevaluatedItems")
	}
	iss := res.Issues()
	if len(iss) != 1 || iss[0].Path != "/3" || iss[0].Code != "type" {
		t.Fatalf("unexpected issues: %v", iss)
	}
}

func TestEvaluate_DynamicRefUsesOutermostAnchor(t *testing.T) {
	s := mustJSON(t, `{
		"$id": "https://test.example/typical-dynamic-resolution/root",
		"$ref": "list",
		"$defs": {
			"foo": {"$dynamicAnchor": "items", "type": "string"},
			"list": {
				"$id": "list",
				"type": "array",
				"items": {"$dynamicRef": "#items"},
				"$defs": {
					"items": {"$dynamicAnchor": "items"}
				}
			}
		}
	}`)
	if res := evaluate(t, s, []any{"foo", "bar"}, nil); !res.Valid {
		t.Fatal("strings should be accepted")
	}
	if res := evaluate(t, s, []any{"foo", 42}, nil); res.Valid {
		t.Fatal("the outer dynamic anchor must constrain items")
	}
}

func TestEvaluate_DynamicRefWithoutOuterAnchorUsesStaticTarget(t *testing.T) {
	s := mustJSON(t, `{
		"$id": "https://test.example/list",
		"type": "array",
		"items": {"$dynamicRef": "#items"},
		"$defs": {"items": {"$dynamicAnchor": "items", "type": "number"}}
	}`)
	if res := evaluate(t, s, []any{1, 2}, nil); !res.Valid {
		t.Fatal("numbers should be accepted")
	}
	if res := evaluate(t, s, []any{"a"}, nil); res.Valid {
		t.Fatal("the static target must apply")
	}
}

func TestEvaluate_RecursiveRefExtendsTree(t *testing.T) {
	opts := jsonskema.NewEvaluationOptions()
	tree := mustJSON(t, `{
		"$schema": "https://json-schema.org/draft/2019-09/schema",
		"$id": "https://example.com/tree",
		"$recursiveAnchor": true,
		"type": "object",
		"properties": {
			"data": true,
			"children": {"type": "array", "items": {"$recursiveRef": "#"}}
		}
	}`)
	if err := opts.SchemaRegistry.Register("https://example.com/tree", tree); err != nil {
		t.Fatal(err)
	}
	strict := mustJSON(t, `{
		"$schema": "https://json-schema.org/draft/2019-09/schema",
		"$id": "https://example.com/strict-tree",
		"$recursiveAnchor": true,
		"$ref": "tree",
		"unevaluatedProperties": false
	}`)
	if res := evaluate(t, strict, instanceOf(t, `{"children":[{"data":1}]}`), opts); !res.Valid {
		t.Fatal("known properties should be accepted")
	}
	if res := evaluate(t, strict, instanceOf(t, `{"children":[{"daat":1}]}`), opts); res.Valid {
		t.Fatal("nested nodes must be evaluated against the strict tree")
	}
}

func TestEvaluate_CircularReferenceAtCompile(t *testing.T) {
	s := mustJSON(t, `{"$ref":"#/$defs/x","$defs":{"x":{"$ref":"#/$defs/x"}}}`)
	_, err := s.Evaluate(context.Background(), 1, nil)
	if !errors.Is(err, jsonskema.ErrCircularReference) {
		t.Fatalf("expected ErrCircularReference, got %v", err)
	}
	var se *jsonskema.SchemaError
	if !errors.As(err, &se) || se.Location == "" {
		t.Fatalf("expected a located SchemaError, got %#v", err)
	}
}

func TestEvaluate_CircularReferenceAtRuntime(t *testing.T) {
	s := mustJSON(t, `{"anyOf":[{"$ref":"#"}]}`)
	if _, err := s.Compile(context.Background(), nil); err != nil {
		t.Fatalf("a conditional cycle must compile: %v", err)
	}
	_, err := s.Evaluate(context.Background(), 1, nil)
	if !errors.Is(err, jsonskema.ErrCircularReference) {
		t.Fatalf("expected ErrCircularReference, got %v", err)
	}
}

func TestEvaluate_RecursionThroughInstanceIsNotCircular(t *testing.T) {
	s := mustJSON(t, `{"type":"object","properties":{"next":{"$ref":"#"}},"additionalProperties":false}`)
	if res := evaluate(t, s, instanceOf(t, `{"next":{"next":{}}}`), nil); !res.Valid {
		t.Fatal("recursion that descends the instance is fine")
	}
	if res := evaluate(t, s, instanceOf(t, `{"next":{"next":{"x":1}}}`), nil); res.Valid {
		t.Fatal("deep failure not reported")
	}
}

func TestEvaluate_SchemaErrors(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name   string
		schema string
		opts   *jsonskema.EvaluationOptions
		want   error
	}{
		{"missing reference", `{"$ref":"https://example.com/nowhere.json"}`, nil, jsonskema.ErrReferenceNotFound},
		{"missing pointer", `{"$ref":"#/$defs/nope"}`, nil, jsonskema.ErrReferenceNotFound},
		{"missing anchor", `{"$ref":"#nope"}`, nil, jsonskema.ErrReferenceNotFound},
		{"draft 4", `{"$schema":"http://json-schema.org/draft-04/schema#"}`, nil, jsonskema.ErrMetaSchemaMismatch},
		{"unknown meta-schema", `{"$schema":"https://example.com/unknown-meta"}`, nil, jsonskema.ErrMetaSchemaMismatch},
		{"conflicting draft", `{"$schema":"http://json-schema.org/draft-07/schema#"}`, &jsonskema.EvaluationOptions{EvaluateAs: jsonskema.Draft202012}, jsonskema.ErrMetaSchemaMismatch},
		{"malformed keyword", `{"type":12}`, nil, jsonskema.ErrMalformedKeyword},
		{"malformed pattern", `{"pattern":"("}`, nil, jsonskema.ErrMalformedKeyword},
		{"invalid against meta-schema", `{"type":12}`, &jsonskema.EvaluationOptions{ValidateAgainstMetaSchema: true}, jsonskema.ErrMetaSchemaMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := mustJSON(t, tc.schema).Evaluate(ctx, 1, tc.opts)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestEvaluate_MetaSchemaIssues(t *testing.T) {
	_, err := mustJSON(t, `{"minLength":-1}`).Evaluate(context.Background(), "x", &jsonskema.EvaluationOptions{ValidateAgainstMetaSchema: true})
	var se *jsonskema.SchemaError
	if !errors.As(err, &se) || len(se.Issues) == 0 {
		t.Fatalf("expected meta-schema issues, got %v", err)
	}
}

func TestEvaluate_EvaluateAsMatchingDraft(t *testing.T) {
	s := mustJSON(t, `{"items":[{"type":"string"}]}`)
	res := evaluate(t, s, []any{1}, &jsonskema.EvaluationOptions{EvaluateAs: jsonskema.Draft7})
	if res.Valid {
		t.Fatal("array-form items applies positionally in draft 7")
	}
	if _, err := s.Evaluate(context.Background(), []any{1}, nil); !errors.Is(err, jsonskema.ErrMalformedKeyword) {
		t.Fatalf("array-form items is malformed in 2020-12, got %v", err)
	}
}

func TestEvaluate_Concurrent(t *testing.T) {
	s := mustJSON(t, `{
		"type": "object",
		"properties": {
			"id": {"type": "integer", "minimum": 0, "title": "identifier"},
			"tags": {"type": "array", "items": {"type": "string"}, "uniqueItems": true},
			"extra": {"x-note": "kept as annotation"}
		},
		"required": ["id"]
	}`)
	c, err := s.Compile(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	instance := func(i int) map[string]any {
		inst := map[string]any{"id": i, "tags": []any{"a", fmt.Sprint(i)}}
		switch i % 10 {
		case 0:
			inst["id"] = -i - 1
		case 5:
			inst["extra"] = i
			inst["tags"] = []any{"dup", "dup"}
		}
		return inst
	}

	const runs = 100
	want := make([]*jsonskema.Results, runs)
	for i := range runs {
		res, err := c.Evaluate(context.Background(), instance(i), &jsonskema.EvaluationOptions{OutputFormat: jsonskema.OutputList, MaxConcurrency: 1})
		if err != nil {
			t.Fatal(err)
		}
		want[i] = res
	}

	var wg sync.WaitGroup
	got := make([]*jsonskema.Results, runs)
	errs := make(chan error, runs)
	for i := range runs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := c.Evaluate(context.Background(), instance(i), &jsonskema.EvaluationOptions{OutputFormat: jsonskema.OutputList, MaxConcurrency: 4})
			if err != nil {
				errs <- err
				return
			}
			got[i] = res
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
	for i := range runs {
		if got[i].Valid != (i%5 != 0) {
			t.Errorf("instance %d: valid = %v", i, got[i].Valid)
		}
		if diff := cmp.Diff(want[i], got[i], cmpopts.IgnoreUnexported(jsonskema.Results{})); diff != "" {
			t.Errorf("instance %d: concurrent results differ from sequential (-want +got):\n%s", i, diff)
		}
	}
}

func TestEvaluate_FlagShortCircuitKeepsValidity(t *testing.T) {
	s := mustJSON(t, `{"items":{"type":"integer"}}`)
	arr := make([]any, 200)
	for i := range arr {
		arr[i] = i
	}
	arr[150] = "x"
	for _, n := range []int{1, 2, 8} {
		res := evaluate(t, s, arr, &jsonskema.EvaluationOptions{MaxConcurrency: n})
		if res.Valid {
			t.Fatalf("MaxConcurrency=%d: expected invalid", n)
		}
	}
}

func TestEvaluate_Cancelled(t *testing.T) {
	s := mustJSON(t, `{"type":"string"}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Evaluate(ctx, "x", nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestEvaluate_Logging(t *testing.T) {
	s := mustJSON(t, `{"properties":{"a":{"type":"string"}}}`)
	opts := &jsonskema.EvaluationOptions{Logger: testr.NewWithOptions(t, testr.Options{Verbosity: 2})}
	if res := evaluate(t, s, map[string]any{"a": "x"}, opts); !res.Valid {
		t.Fatal("expected valid")
	}
}

func TestEvaluateJSON(t *testing.T) {
	s := mustJSON(t, `{"type":"object"}`)
	res, err := jsonskema.EvaluateJSON(context.Background(), s, []byte(`{"a":1}`), nil)
	if err != nil || !res.Valid {
		t.Fatalf("EvaluateJSON = %v, %v", res, err)
	}
	if _, err := jsonskema.EvaluateJSON(context.Background(), s, []byte(`{"a":1,"a":2}`), nil); err == nil {
		t.Fatal("duplicate keys must be rejected")
	}
}
