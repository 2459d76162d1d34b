package jsonskema_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/reoring/jsonskema"
	"github.com/reoring/jsonskema/metrics"
	"github.com/reoring/jsonskema/source"
)

func TestRegistry_FetchOncePerAddress(t *testing.T) {
	opts := jsonskema.NewEvaluationOptions()
	var calls atomic.Int32
	opts.SchemaRegistry.Fetch = func(ctx context.Context, uri string) (any, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		if uri != "https://example.com/shared.json" {
			return nil, nil
		}
		return map[string]any{"type": "string"}, nil
	}

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// A distinct document per goroutine so nothing is shared but the registry.
			s := jsonskema.MustNew(map[string]any{"$ref": "https://example.com/shared.json", "minLength": 1})
			res, err := s.Evaluate(context.Background(), "x", opts)
			if err != nil {
				errs <- err
				return
			}
			if !res.Valid {
				errs <- errors.New("expected valid")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("fetch called %d times, want 1", n)
	}
}

func TestRegistry_SharedFetchOutlivesCancelledCaller(t *testing.T) {
	const uri = "https://example.com/s.json"
	reg := jsonskema.NewSchemaRegistry()
	started := make(chan struct{})
	var once sync.Once
	reg.Fetch = func(ctx context.Context, _ string) (any, error) {
		once.Do(func() { close(started) })
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
		return map[string]any{"type": "string"}, nil
	}

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := reg.Resolve(first, uri)
		firstErr <- err
	}()
	<-started

	secondErr := make(chan error, 1)
	go func() {
		_, err := reg.Resolve(context.Background(), uri)
		secondErr <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller: got %v, want context.Canceled", err)
	}
	if err := <-secondErr; err != nil {
		t.Fatalf("live caller failed: %v", err)
	}
	if _, ok := reg.Get(uri); !ok {
		t.Fatal("fetched schema not registered")
	}
}

func TestRegistry_FetchFromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"name.json": {Data: []byte(`{"type":"string","minLength":1}`)},
		"addr.yaml": {Data: []byte("type: object\nrequired: [city]\nproperties:\n  city: {$ref: name.json}\n")},
	}
	opts := jsonskema.NewEvaluationOptions()
	opts.SchemaRegistry.Fetch = source.FSFetcher(fsys, "https://example.com/schemas/")

	s := mustJSON(t, `{"$id":"https://example.com/schemas/person","properties":{"name":{"$ref":"name.json"},"address":{"$ref":"addr"}}}`)
	if res := evaluate(t, s, instanceOf(t, `{"name":"A","address":{"city":"B"}}`), opts); !res.Valid {
		t.Fatal("expected valid")
	}
	if res := evaluate(t, s, instanceOf(t, `{"name":"A","address":{"city":""}}`), opts); res.Valid {
		t.Fatal("nested reference from the YAML document not applied")
	}

	missing := mustJSON(t, `{"$ref":"https://example.com/schemas/missing.json"}`)
	if _, err := missing.Evaluate(context.Background(), 1, opts); !errors.Is(err, jsonskema.ErrReferenceNotFound) {
		t.Fatalf("expected ErrReferenceNotFound, got %v", err)
	}
}

func TestRegistry_EmbeddedResources(t *testing.T) {
	opts := jsonskema.NewEvaluationOptions()
	bundle := mustJSON(t, `{
		"$id": "https://example.com/bundle",
		"$defs": {
			"pos": {"$id": "positive", "type": "number", "exclusiveMinimum": 0},
			"named": {"$anchor": "label", "type": "string"}
		}
	}`)
	if err := opts.SchemaRegistry.Register("https://example.com/bundle", bundle); err != nil {
		t.Fatal(err)
	}
	if _, ok := opts.SchemaRegistry.Get("https://example.com/positive"); !ok {
		t.Fatal("embedded resource not registered")
	}

	s := mustJSON(t, `{"prefixItems":[{"$ref":"https://example.com/positive"},{"$ref":"https://example.com/bundle#label"}]}`)
	if res := evaluate(t, s, []any{1, "a"}, opts); !res.Valid {
		t.Fatal("expected valid")
	}
	if res := evaluate(t, s, []any{0, "a"}, opts); res.Valid {
		t.Fatal("exclusiveMinimum not applied through the embedded resource")
	}
}

func TestRegistry_IdentifierCollisions(t *testing.T) {
	tests := []struct {
		name   string
		schema string
	}{
		{"anchor", `{"$defs":{"a":{"$anchor":"x"},"b":{"$anchor":"x"}}}`},
		{"dynamic anchor", `{"$defs":{"a":{"$dynamicAnchor":"x"},"b":{"$anchor":"x"}}}`},
		{"embedded id", `{"$defs":{"a":{"$id":"https://example.com/dup","type":"string"},"b":{"$id":"https://example.com/dup","type":"number"}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mustJSON(t, tt.schema)
			_, err := s.Compile(context.Background(), jsonskema.NewEvaluationOptions())
			if !errors.Is(err, jsonskema.ErrMalformedKeyword) {
				t.Fatalf("compile: got %v, want ErrMalformedKeyword", err)
			}
			if !strings.Contains(err.Error(), "already declared") {
				t.Fatalf("error %q does not name the collision", err)
			}
			if err := jsonskema.NewSchemaRegistry().Register("https://example.com/doc", s); !errors.Is(err, jsonskema.ErrMalformedKeyword) {
				t.Fatalf("register: got %v, want ErrMalformedKeyword", err)
			}
		})
	}
}

func TestRegistry_CloneIsolation(t *testing.T) {
	opts := jsonskema.NewEvaluationOptions()
	clone := opts.Clone()
	if err := clone.SchemaRegistry.Register("https://example.com/only-clone", jsonskema.MustNew(true)); err != nil {
		t.Fatal(err)
	}
	if _, ok := opts.SchemaRegistry.Get("https://example.com/only-clone"); ok {
		t.Fatal("registration leaked from the clone")
	}
	if _, ok := clone.SchemaRegistry.Get("https://json-schema.org/draft/2020-12/schema"); !ok {
		t.Fatal("clone lost the built-in meta-schemas")
	}
}

func TestRegistry_UnknownRequiredVocabulary(t *testing.T) {
	opts := jsonskema.NewEvaluationOptions()
	meta := mustJSON(t, `{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"$id": "https://example.com/strict-meta",
		"$vocabulary": {
			"https://json-schema.org/draft/2020-12/vocab/core": true,
			"https://example.com/vocab/unheard-of": true
		}
	}`)
	err := opts.SchemaRegistry.Register("https://example.com/strict-meta", meta)
	if !errors.Is(err, jsonskema.ErrVocabulary) {
		t.Fatalf("expected ErrVocabulary, got %v", err)
	}

	optional := mustJSON(t, `{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"$id": "https://example.com/lenient-meta",
		"$vocabulary": {
			"https://json-schema.org/draft/2020-12/vocab/core": true,
			"https://example.com/vocab/unheard-of": false
		}
	}`)
	if err := opts.SchemaRegistry.Register("https://example.com/lenient-meta", optional); err != nil {
		t.Fatalf("unknown optional vocabulary must be ignored: %v", err)
	}
}

func TestRegistry_MetaSchemaVocabularies(t *testing.T) {
	opts := jsonskema.NewEvaluationOptions()
	meta := mustJSON(t, `{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"$id": "https://example.com/validation-only",
		"$vocabulary": {
			"https://json-schema.org/draft/2020-12/vocab/core": true,
			"https://json-schema.org/draft/2020-12/vocab/validation": true
		}
	}`)
	if err := opts.SchemaRegistry.Register("https://example.com/validation-only", meta); err != nil {
		t.Fatal(err)
	}
	s := mustJSON(t, `{"$schema":"https://example.com/validation-only","type":"object","properties":{"a":false}}`)
	res := evaluate(t, s, map[string]any{"a": 1}, opts)
	if !res.Valid {
		t.Fatal("properties belongs to an inactive vocabulary and must not apply")
	}
	if res := evaluate(t, s, 1, opts); res.Valid {
		t.Fatal("type belongs to an active vocabulary")
	}
}

func TestRegistry_MetaSchemaChainLoop(t *testing.T) {
	opts := jsonskema.NewEvaluationOptions()
	opts.SchemaRegistry.MustRegister("https://example.com/meta-a", mustJSON(t, `{"$schema":"https://example.com/meta-b"}`))
	opts.SchemaRegistry.MustRegister("https://example.com/meta-b", mustJSON(t, `{"$schema":"https://example.com/meta-a"}`))
	s := mustJSON(t, `{"$schema":"https://example.com/meta-a"}`)
	if _, err := s.Evaluate(context.Background(), 1, opts); !errors.Is(err, jsonskema.ErrCircularReference) {
		t.Fatalf("expected ErrCircularReference, got %v", err)
	}

	err := opts.SchemaRegistry.Register("https://example.com/meta-self", mustJSON(t, `{"$schema":"https://example.com/meta-self"}`))
	if !errors.Is(err, jsonskema.ErrCircularReference) {
		t.Fatalf("self-describing meta-schema: expected ErrCircularReference, got %v", err)
	}
}

func TestRegistry_Metrics(t *testing.T) {
	m := metrics.New()
	reg := prometheus.NewRegistry()
	m.MustRegister(reg)

	opts := jsonskema.NewEvaluationOptions()
	opts.Metrics = m
	opts.SchemaRegistry.Metrics = m
	opts.SchemaRegistry.Fetch = func(ctx context.Context, uri string) (any, error) {
		return map[string]any{"type": "integer"}, nil
	}
	s := mustJSON(t, `{"$ref":"https://example.com/int.json"}`)
	evaluate(t, s, 1, opts)
	evaluate(t, s, "x", opts)

	n, err := testutil.GatherAndCount(reg,
		"jsonskema_schema_evaluation_duration_seconds",
		"jsonskema_schema_compilation_duration_seconds",
		"jsonskema_schema_reference_fetches_total",
	)
	if err != nil {
		t.Fatal(err)
	}
	// valid and invalid evaluation series plus one compilation and one fetch series
	if n != 4 {
		t.Fatalf("series = %d, want 4", n)
	}
}
