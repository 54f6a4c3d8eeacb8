package dts

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// SplitFragment separates the document part of a reference from its
// fragment identifier.
func SplitFragment(ref string) (doc, fragment string) {
	doc, fragment, _ = strings.Cut(ref, "#")
	return doc, fragment
}

// Normalize resolves ref against base and drops any fragment. URLs follow
// RFC 3986 reference resolution; scheme-less references are treated as
// slash-separated paths relative to the directory of base.
func Normalize(ref, base string) (string, error) {
	ref, _ = SplitFragment(strings.TrimSpace(ref))
	base, _ = SplitFragment(base)
	if ref == "" {
		if base == "" {
			return "", fmt.Errorf("empty reference")
		}
		return base, nil
	}
	ref = strings.ReplaceAll(ref, "\\", "/")

	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse reference %q: %w", ref, err)
	}
	if hasScheme(u) {
		return cleanURL(u), nil
	}
	if base == "" {
		return path.Clean(ref), nil
	}

	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base %q: %w", base, err)
	}
	if hasScheme(b) {
		return cleanURL(b.ResolveReference(u)), nil
	}
	if path.IsAbs(ref) {
		return path.Clean(ref), nil
	}
	return path.Join(path.Dir(base), ref), nil
}

// hasScheme rejects single-letter schemes, which are Windows drive letters.
func hasScheme(u *url.URL) bool {
	return len(u.Scheme) > 1
}

func cleanURL(u *url.URL) string {
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path != "" && u.Opaque == "" {
		trailing := strings.HasSuffix(u.Path, "/")
		u.Path = path.Clean(u.Path)
		if trailing && u.Path != "/" {
			u.Path += "/"
		}
		u.RawPath = ""
	}
	return u.String()
}

// IsRemote reports whether uri is fetched over the network.
func IsRemote(uri string) bool {
	return strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://")
}
