package jsonskema

// Evaluation priorities. Keywords of one node run by priority, then by their
// position in the catalog; DependsOn edges override both.
const (
	priorityCore        = 0
	priorityApplicator  = 10
	priorityValidation  = 20
	priorityUnevaluated = 30
	priorityAnnotation  = 40
)

const (
	draftsAll        = DraftAll
	drafts201909Up   = Draft201909 | Draft202012 | DraftNext
	drafts202012Up   = Draft202012 | DraftNext
	draftsTupleItems = Draft6 | Draft7 | Draft201909
	drafts7Up        = Draft7 | Draft201909 | Draft202012 | DraftNext
)

func vocab(group string) []string { return vocabGroups[group] }

// builtinKeywords is the static keyword table of every supported draft.
func builtinKeywords() []*KeywordDefinition {
	core := vocab("core")
	applicator := vocab("applicator")
	unevaluated := vocab("unevaluated")
	validation := vocab("validation")
	metaData := vocab("meta-data")
	formats := vocab("format")
	content := vocab("content")

	noop := func(name string, drafts Draft, shape Shape) *KeywordDefinition {
		return &KeywordDefinition{Name: name, Drafts: drafts, Vocabularies: core, Priority: priorityCore, Shape: shape, Compile: compileNoop}
	}
	def := func(name string, drafts Draft, vocabs []string, priority int, shape Shape, fn CompileFunc, deps ...string) *KeywordDefinition {
		return &KeywordDefinition{Name: name, Drafts: drafts, Vocabularies: vocabs, Priority: priority, DependsOn: deps, Shape: shape, Compile: fn}
	}

	return []*KeywordDefinition{
		// core
		noop("$schema", draftsAll, ShapeNone),
		noop("$vocabulary", drafts201909Up, ShapeNone),
		noop("$id", draftsAll, ShapeNone),
		noop("$anchor", drafts201909Up, ShapeNone),
		noop("$dynamicAnchor", drafts202012Up, ShapeNone),
		noop("$recursiveAnchor", Draft201909, ShapeNone),
		noop("$comment", draftsAll, ShapeNone),
		noop("$defs", drafts201909Up, ShapeSchemaMap),
		noop("definitions", draftsAll, ShapeSchemaMap),
		def("$ref", draftsAll, core, priorityCore, ShapeNone, compileRef),
		def("$dynamicRef", drafts202012Up, core, priorityCore, ShapeNone, compileDynamicRef),
		def("$recursiveRef", Draft201909, core, priorityCore, ShapeNone, compileRecursiveRef),

		// applicator
		def("allOf", draftsAll, applicator, priorityApplicator, ShapeSchemaArray, compileAllOf),
		def("anyOf", draftsAll, applicator, priorityApplicator, ShapeSchemaArray, compileAnyOf),
		def("oneOf", draftsAll, applicator, priorityApplicator, ShapeSchemaArray, compileOneOf),
		def("not", draftsAll, applicator, priorityApplicator, ShapeSchema, compileNot),
		def("if", drafts7Up, applicator, priorityApplicator, ShapeSchema, compileIf),
		def("then", drafts7Up, applicator, priorityApplicator, ShapeSchema, compileThen, "if"),
		def("else", drafts7Up, applicator, priorityApplicator, ShapeSchema, compileElse, "if"),
		def("dependentSchemas", drafts201909Up, applicator, priorityApplicator, ShapeSchemaMap, compileDependentSchemas),
		def("dependencies", Draft6|Draft7, nil, priorityApplicator, ShapeSchemaOrStrings, compileDependencies),
		def("propertyDependencies", DraftNext, applicator, priorityApplicator, ShapeSchemaMapOfMap, compilePropertyDependencies),
		def("prefixItems", drafts202012Up, applicator, priorityApplicator, ShapeSchemaArray, compilePrefixItems),
		def("items", drafts202012Up, applicator, priorityApplicator, ShapeSchema, compileItems, "prefixItems"),
		def("items", draftsTupleItems, applicator, priorityApplicator, ShapeSchemaOrArray, compileLegacyItems),
		def("additionalItems", draftsTupleItems, applicator, priorityApplicator, ShapeSchema, compileAdditionalItems, "items"),
		def("contains", draftsAll, applicator, priorityApplicator, ShapeSchema, compileContains),
		def("properties", draftsAll, applicator, priorityApplicator, ShapeSchemaMap, compileProperties),
		def("patternProperties", draftsAll, applicator, priorityApplicator, ShapeSchemaMap, compilePatternProperties),
		def("additionalProperties", draftsAll, applicator, priorityApplicator, ShapeSchema, compileAdditionalProperties, "properties", "patternProperties"),
		def("propertyNames", draftsAll, applicator, priorityApplicator, ShapeSchema, compilePropertyNames),

		// unevaluated
		def("unevaluatedItems", drafts201909Up, unevaluated, priorityUnevaluated, ShapeSchema, compileUnevaluatedItems,
			"prefixItems", "items", "additionalItems", "contains", "unevaluatedItems"),
		def("unevaluatedProperties", drafts201909Up, unevaluated, priorityUnevaluated, ShapeSchema, compileUnevaluatedProperties,
			"properties", "patternProperties", "additionalProperties", "unevaluatedProperties"),

		// validation
		def("type", draftsAll, validation, priorityValidation, ShapeNone, compileType),
		def("enum", draftsAll, validation, priorityValidation, ShapeNone, compileEnum),
		def("const", draftsAll, validation, priorityValidation, ShapeNone, compileConst),
		def("multipleOf", draftsAll, validation, priorityValidation, ShapeNone, compileMultipleOf),
		def("maximum", draftsAll, validation, priorityValidation, ShapeNone, compileBound(boundMaximum)),
		def("exclusiveMaximum", draftsAll, validation, priorityValidation, ShapeNone, compileBound(boundExclusiveMaximum)),
		def("minimum", draftsAll, validation, priorityValidation, ShapeNone, compileBound(boundMinimum)),
		def("exclusiveMinimum", draftsAll, validation, priorityValidation, ShapeNone, compileBound(boundExclusiveMinimum)),
		def("maxLength", draftsAll, validation, priorityValidation, ShapeNone, compileLength(false)),
		def("minLength", draftsAll, validation, priorityValidation, ShapeNone, compileLength(true)),
		def("pattern", draftsAll, validation, priorityValidation, ShapeNone, compilePattern),
		def("maxItems", draftsAll, validation, priorityValidation, ShapeNone, compileCount(countItems, false)),
		def("minItems", draftsAll, validation, priorityValidation, ShapeNone, compileCount(countItems, true)),
		def("uniqueItems", draftsAll, validation, priorityValidation, ShapeNone, compileUniqueItems),
		def("maxContains", drafts201909Up, validation, priorityValidation, ShapeNone, compileContainsBound),
		def("minContains", drafts201909Up, validation, priorityValidation, ShapeNone, compileContainsBound),
		def("maxProperties", draftsAll, validation, priorityValidation, ShapeNone, compileCount(countProperties, false)),
		def("minProperties", draftsAll, validation, priorityValidation, ShapeNone, compileCount(countProperties, true)),
		def("required", draftsAll, validation, priorityValidation, ShapeNone, compileRequired),
		def("dependentRequired", drafts201909Up, validation, priorityValidation, ShapeNone, compileDependentRequired),

		// meta-data
		def("title", draftsAll, metaData, priorityAnnotation, ShapeNone, compileAnnotation),
		def("description", draftsAll, metaData, priorityAnnotation, ShapeNone, compileAnnotation),
		def("default", draftsAll, metaData, priorityAnnotation, ShapeNone, compileAnnotation),
		def("examples", draftsAll, metaData, priorityAnnotation, ShapeNone, compileAnnotation),
		def("deprecated", drafts201909Up, metaData, priorityAnnotation, ShapeNone, compileAnnotation),
		def("readOnly", drafts7Up, metaData, priorityAnnotation, ShapeNone, compileAnnotation),
		def("writeOnly", drafts7Up, metaData, priorityAnnotation, ShapeNone, compileAnnotation),

		// format
		def("format", draftsAll, formats, priorityValidation, ShapeNone, compileFormat),

		// content
		def("contentMediaType", drafts7Up, content, priorityAnnotation, ShapeNone, compileAnnotation),
		def("contentEncoding", drafts7Up, content, priorityAnnotation, ShapeNone, compileAnnotation),
		def("contentSchema", drafts201909Up, content, priorityAnnotation, ShapeNone, compileAnnotation),

		// data
		def("data", drafts202012Up, []string{VocabData}, priorityApplicator, ShapeNone, compileData),
		def("optionalData", drafts202012Up, []string{VocabData}, priorityApplicator, ShapeNone, compileData),
	}
}

func compileNoop(*KeywordCompiler, any) (KeywordFunc, error) { return nil, nil }
