// Package jsonskema compiles and evaluates JSON Schema documents (draft 6,
// draft 7, 2019-09, 2020-12 and the next draft).
//
// - Schemas compile once into an immutable constraint graph that is safe for
//   concurrent evaluation
// - A stable error model: fatal schema problems are *SchemaError values
//   matching one of the Err* kinds; validation failures are reported in
//   Results and flatten into Issues (JSON Pointer, keyword, message)
// - References resolve through SchemaRegistry values that fall back to a
//   process-wide registry seeded with every supported meta-schema
// - Flag, list and hierarchical output formats with localized messages
//
// Design policy:
// - Keep only public APIs in the root package; put detailed implementations
//   under internal/.
// - Loaders live under source/, message catalogs under i18n/, Prometheus
//   collectors under metrics/ and the CLI under cmd/jsonskema.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	s, err := jsonskema.FromJSON(data)
//	res, err := jsonskema.Evaluate(ctx, s, instance, &jsonskema.EvaluationOptions{
//		OutputFormat: jsonskema.OutputList,
//	})
//	if err := res.Err(); err != nil {
//		iss, _ := jsonskema.AsIssues(err)
//		...
//	}
package jsonskema
