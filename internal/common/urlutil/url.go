package urlutil

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Resolve turns ref into an absolute URL relative to base. Data URIs and
// already-absolute URLs are returned unchanged.
func Resolve(base, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("empty reference")
	}
	if strings.HasPrefix(ref, "data:") {
		return ref, nil
	}

	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid reference %q: %w", ref, err)
	}
	if r.IsAbs() {
		return r.String(), nil
	}

	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base %q: %w", base, err)
	}
	return b.ResolveReference(r).String(), nil
}

// Origin returns scheme://host[:port] with default ports dropped, lowercased.
func Origin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return scheme + "://" + host + ":" + port
	}
	return scheme + "://" + host
}

// IsSameOrigin compares scheme, host and port the way a browser does.
func IsSameOrigin(a, b string) bool {
	oa := Origin(a)
	return oa != "" && oa == Origin(b)
}

// ExtractHostname returns the lowercased hostname of a URL without port.
func ExtractHostname(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// BaseName returns the last path segment of a URL, without query or fragment.
func BaseName(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		return ""
	}
	return name
}
