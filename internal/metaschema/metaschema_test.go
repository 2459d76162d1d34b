package metaschema

import "testing"

func TestLookup(t *testing.T) {
	for _, id := range []string{
		"http://json-schema.org/draft-06/schema#",
		"http://json-schema.org/draft-07/schema",
		"https://json-schema.org/draft/2019-09/schema",
		"https://json-schema.org/draft/2019-09/meta/applicator",
		"https://json-schema.org/draft/2020-12/schema",
		"https://json-schema.org/draft/2020-12/meta/format-assertion",
		"https://json-schema.org/draft/next/schema",
		"https://json-schema.org/draft/next/meta/unevaluated",
		"https://json-everything.net/meta/data-2023",
	} {
		if _, ok := Lookup(id); !ok {
			t.Errorf("missing meta-schema %s", id)
		}
	}
	if _, ok := Lookup("http://json-schema.org/draft-04/schema#"); ok {
		t.Error("draft-04 must not be embedded")
	}
}

func TestNextApplicatorHasPropertyDependencies(t *testing.T) {
	m, ok := Lookup("https://json-schema.org/draft/next/meta/applicator")
	if !ok {
		t.Fatal("missing next applicator")
	}
	props := m["properties"].(map[string]any)
	if _, ok := props["propertyDependencies"]; !ok {
		t.Error("propertyDependencies not declared")
	}
}
