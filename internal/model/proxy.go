// Package model defines shared types for the proxy.
package model

import (
	"context"
	"io"
	"net/http"
)

// ProxyRequest represents a client request whose path encodes the target URL
// to be fetched.
type ProxyRequest struct {
	Ctx context.Context

	Method string

	// EscapedPath is the percent-encoded request path, including the
	// leading slash. The target URL is recovered from it by the forwarder.
	EscapedPath string

	// RawQuery is the inbound query string without the '?'. It is appended
	// to the target URL unmodified.
	RawQuery string

	// Scheme and Host identify the proxy's own origin as seen by the client.
	// Scheme normalizes scheme-less targets; both are used when rewriting
	// root-relative links in HTML bodies.
	Scheme string
	Host   string

	Header http.Header
	Body   io.ReadCloser
}

// ProxyResponse represents the response returned to the client. For HTML and
// redirect responses the body and headers have already been rewritten; for
// everything else the body is the upstream stream.
type ProxyResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}
