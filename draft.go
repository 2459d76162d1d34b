package jsonskema

import (
	"strings"
)

// Draft identifies a JSON Schema specification version. Drafts are bit flags
// so keyword definitions can declare their support as a mask.
type Draft uint8

const (
	// DraftUnspecified infers the draft from "$schema", falling back to
	// Draft202012.
	DraftUnspecified Draft = 0
	Draft6           Draft = 1 << (iota - 1)
	Draft7
	Draft201909
	Draft202012
	DraftNext

	// DraftAll is the mask of every supported draft.
	DraftAll = Draft6 | Draft7 | Draft201909 | Draft202012 | DraftNext
)

const defaultDraft = Draft202012

// Meta-schema identifiers of the built-in drafts.
const (
	MetaSchemaDraft6      = "http://json-schema.org/draft-06/schema#"
	MetaSchemaDraft7      = "http://json-schema.org/draft-07/schema#"
	MetaSchemaDraft201909 = "https://json-schema.org/draft/2019-09/schema"
	MetaSchemaDraft202012 = "https://json-schema.org/draft/2020-12/schema"
	MetaSchemaDraftNext   = "https://json-schema.org/draft/next/schema"
)

func (d Draft) String() string {
	switch d {
	case DraftUnspecified:
		return "unspecified"
	case Draft6:
		return "draft-06"
	case Draft7:
		return "draft-07"
	case Draft201909:
		return "2019-09"
	case Draft202012:
		return "2020-12"
	case DraftNext:
		return "next"
	}
	var parts []string
	for _, one := range []Draft{Draft6, Draft7, Draft201909, Draft202012, DraftNext} {
		if d&one != 0 {
			parts = append(parts, one.String())
		}
	}
	return strings.Join(parts, "|")
}

// Has reports whether every draft in other is part of d.
func (d Draft) Has(other Draft) bool { return other != 0 && d&other == other }

// MetaSchema returns the meta-schema identifier of a single draft.
func (d Draft) MetaSchema() string {
	switch d {
	case Draft6:
		return MetaSchemaDraft6
	case Draft7:
		return MetaSchemaDraft7
	case Draft201909:
		return MetaSchemaDraft201909
	case Draft202012:
		return MetaSchemaDraft202012
	case DraftNext:
		return MetaSchemaDraftNext
	}
	return ""
}

// vocabularyAware reports whether "$vocabulary" is honored.
func (d Draft) vocabularyAware() bool { return d&(Draft201909|Draft202012|DraftNext) != 0 }

// ParseDraft accepts short names ("7", "draft-07", "2020-12", "next") and
// meta-schema identifiers.
func ParseDraft(s string) (Draft, bool) {
	if d := draftOfMetaSchema(s); d != DraftUnspecified {
		return d, true
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "6", "draft6", "draft-06", "draft-6":
		return Draft6, true
	case "7", "draft7", "draft-07", "draft-7":
		return Draft7, true
	case "2019-09", "201909", "draft2019-09":
		return Draft201909, true
	case "2020-12", "202012", "draft2020-12":
		return Draft202012, true
	case "next", "draft-next":
		return DraftNext, true
	}
	return DraftUnspecified, false
}

// draftOfMetaSchema maps a built-in meta-schema identifier to its draft. The
// trailing empty fragment is optional for every draft.
func draftOfMetaSchema(uri string) Draft {
	uri = strings.TrimSuffix(uri, "#")
	switch uri {
	case strings.TrimSuffix(MetaSchemaDraft6, "#"):
		return Draft6
	case strings.TrimSuffix(MetaSchemaDraft7, "#"):
		return Draft7
	case MetaSchemaDraft201909:
		return Draft201909
	case MetaSchemaDraft202012:
		return Draft202012
	case MetaSchemaDraftNext:
		return DraftNext
	}
	return DraftUnspecified
}

// isLegacyDraft recognizes draft-04 and older meta-schemas.
func isLegacyDraft(uri string) bool {
	uri = strings.TrimSuffix(uri, "#")
	for _, old := range []string{"draft-04", "draft-03", "draft-02", "draft-01", "draft-00"} {
		if uri == "http://json-schema.org/"+old+"/schema" {
			return true
		}
	}
	return false
}
