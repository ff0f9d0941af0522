// Package rewrite adjusts upstream responses so the client keeps browsing
// through the proxy instead of escaping to the original origin.
package rewrite

import (
	"fmt"
	"net/url"
	"regexp"
)

// rootRelativeAttr matches href/src/action attribute values that start with a
// single slash. The character after the slash is captured and re-emitted, so
// protocol-relative "//host/..." references never match and stay untouched.
var rootRelativeAttr = regexp.MustCompile(`((?:href|src|action)=["'])/([^/])`)

// RedirectLocation resolves an upstream Location header against the target
// URL that was actually fetched and re-encodes the result into the proxy's
// path convention: "/" followed by the percent-encoded absolute URL. Both
// absolute and relative Location values are handled by standard reference
// resolution.
func RedirectLocation(target *url.URL, location string) (string, error) {
	ref, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("parse redirect location %q: %w", location, err)
	}
	resolved := target.ResolveReference(ref)
	return "/" + url.PathEscape(resolved.String()), nil
}

// HTML rewrites root-relative href/src/action references in an HTML document
// into absolute URLs on the proxy's own origin. scheme and host are the
// proxy's origin as seen by the client. The body must be fully buffered: a
// chunked substitution could split a match across chunk boundaries.
func HTML(body, scheme, host string) string {
	replacement := "${1}" + scheme + "://" + host + "/${2}"
	return rootRelativeAttr.ReplaceAllString(body, replacement)
}
