package resgen

import (
	"strings"
)

// ResourceID is the canonical, version-independent identifier of a resource.
// It is derived from the shape of a path template: literal segments are
// lowercased and every parameter placeholder becomes "{}".
//
//	/subscriptions/{subscriptionId}/providers/Microsoft.Foo/widgets/{name}
//	  -> /subscriptions/{}/providers/microsoft.foo/widgets/{}
type ResourceID string

// RootResourceID is the id of the root path "/".
const RootResourceID ResourceID = "/"

// ParamToken replaces every parameter placeholder in a ResourceID.
const ParamToken = "{}"

func (id ResourceID) String() string {
	return string(id)
}

// Canonicalize converts a path template into its ResourceID.
//
// The result depends only on the literal/parameter shape of the template and
// its literal values, never on parameter names. Canonicalizing an id returns
// the same id. An empty query ("/a?") is dropped. A template made only of
// parameter segments fails with an error matching ErrMalformedPath.
func Canonicalize(template string) (ResourceID, error) {
	path, query, _ := strings.Cut(template, "?")
	hasQuery := query != ""

	segments, err := splitTemplate(template, path)
	if err != nil {
		return "", err
	}
	if len(segments) == 0 {
		if hasQuery {
			return "", Errorf(CodeMalformedPath, "path template %q has a query but no segments", template)
		}
		return RootResourceID, nil
	}

	var b strings.Builder
	literal := false
	for _, seg := range segments {
		norm, hasLiteral, err := normalizeSegment(template, seg, true)
		if err != nil {
			return "", err
		}
		literal = literal || hasLiteral
		b.WriteByte('/')
		b.WriteString(norm)
	}
	if !literal {
		return "", Errorf(CodeMalformedPath, "path template %q has no literal resource type segment", template).
			WithDetail("path", template)
	}

	if hasQuery {
		b.WriteByte('?')
		b.WriteString(strings.ToLower(query))
	}
	return ResourceID(b.String()), nil
}

// MustCanonicalize is like Canonicalize but panics on a malformed template.
// It is intended for constant templates in tests and examples.
func MustCanonicalize(template string) ResourceID {
	id, err := Canonicalize(template)
	if err != nil {
		panic(err)
	}
	return id
}

// CanonicalTemplate normalizes parameter placeholders to "{}" but keeps the
// literal casing of the template. Two templates with equal canonical templates
// always have equal ResourceIDs; the converse does not hold when they differ
// only in casing.
func CanonicalTemplate(template string) (string, error) {
	path, query, _ := strings.Cut(template, "?")
	hasQuery := query != ""
	segments, err := splitTemplate(template, path)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, seg := range segments {
		norm, _, err := normalizeSegment(template, seg, false)
		if err != nil {
			return "", err
		}
		b.WriteByte('/')
		b.WriteString(norm)
	}
	if b.Len() == 0 {
		b.WriteByte('/')
	}
	if hasQuery {
		b.WriteByte('?')
		b.WriteString(query)
	}
	return b.String(), nil
}

// splitTemplate returns the non-root segments of path. The leading slash is
// optional; a single trailing slash is ignored.
func splitTemplate(template, path string) ([]string, error) {
	path = strings.TrimPrefix(path, "/")
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		return nil, nil
	}

	segments := strings.Split(path, "/")
	for _, seg := range segments {
		if seg == "" {
			return nil, Errorf(CodeMalformedPath, "path template %q has an empty segment", template).
				WithDetail("path", template)
		}
	}
	return segments, nil
}

// normalizeSegment replaces every {placeholder} in seg with ParamToken and,
// if lower is set, lowercases the literal text. It reports whether the segment
// carries any literal text.
func normalizeSegment(template, seg string, lower bool) (string, bool, error) {
	var b strings.Builder
	hasLiteral := false
	for seg != "" {
		open := strings.IndexByte(seg, '{')
		if open < 0 {
			if strings.IndexByte(seg, '}') >= 0 {
				return "", false, Errorf(CodeMalformedPath, "path template %q has an unbalanced '}'", template)
			}
			b.WriteString(caseOf(seg, lower))
			hasLiteral = true
			break
		}
		if open > 0 {
			lit := seg[:open]
			if strings.IndexByte(lit, '}') >= 0 {
				return "", false, Errorf(CodeMalformedPath, "path template %q has an unbalanced '}'", template)
			}
			b.WriteString(caseOf(lit, lower))
			hasLiteral = true
		}
		end := strings.IndexByte(seg[open:], '}')
		if end < 0 {
			return "", false, Errorf(CodeMalformedPath, "path template %q has an unterminated placeholder", template)
		}
		if strings.IndexByte(seg[open+1:open+end], '{') >= 0 {
			return "", false, Errorf(CodeMalformedPath, "path template %q has a nested placeholder", template)
		}
		b.WriteString(ParamToken)
		seg = seg[open+end+1:]
	}
	return b.String(), hasLiteral, nil
}

func caseOf(s string, lower bool) string {
	if lower {
		return strings.ToLower(s)
	}
	return s
}
