package jsonskema

import (
	"net/url"
	"strings"

	"github.com/reoring/jsonskema/internal/pointer"
)

// splitFragment separates "base#fragment". The fragment is returned raw.
func splitFragment(uri string) (string, string) {
	base, frag, _ := strings.Cut(uri, "#")
	return base, frag
}

// resolveURI resolves ref against base (both may carry fragments). The result
// keeps ref's fragment verbatim; only the part before '#' goes through RFC 3986
// reference resolution.
func resolveURI(base, ref string) (string, error) {
	refBase, frag, hasFrag := strings.Cut(ref, "#")
	baseNoFrag, _ := splitFragment(base)
	resolved := baseNoFrag
	if refBase != "" {
		r, err := url.Parse(refBase)
		if err != nil {
			return "", err
		}
		switch {
		case r.IsAbs():
			resolved = r.String()
		case baseNoFrag == "":
			resolved = refBase
		default:
			b, err := url.Parse(baseNoFrag)
			if err != nil {
				return "", err
			}
			resolved = b.ResolveReference(r).String()
		}
	}
	if hasFrag && frag != "" {
		return resolved + "#" + frag, nil
	}
	return resolved, nil
}

// location renders an absolute schema location: the resource URI plus the
// pointer within that resource.
func location(resource string, ptr pointer.Pointer) string {
	base, _ := splitFragment(resource)
	return base + ptr.Fragment()
}

// isPointerFragment reports whether a fragment addresses by JSON Pointer
// rather than by anchor name.
func isPointerFragment(frag string) bool {
	return frag == "" || strings.HasPrefix(frag, "/") || strings.HasPrefix(frag, "%2F") || strings.HasPrefix(frag, "%2f")
}
