// Package service implements the core forwarding logic.
package service

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"mirror-proxy-go/internal/client"
	"mirror-proxy-go/internal/config"
	"mirror-proxy-go/internal/model"
	"mirror-proxy-go/internal/rewrite"
)

// ErrInvalidTarget is returned when the request path does not decode to a
// well-formed absolute URL.
var ErrInvalidTarget = errors.New("request path does not encode a valid target URL")

// redirectStatuses are the upstream statuses whose Location header is
// rewritten to re-enter the proxy.
var redirectStatuses = map[int]bool{
	http.StatusMovedPermanently:  true,
	http.StatusFound:             true,
	http.StatusSeeOther:          true,
	http.StatusTemporaryRedirect: true,
	http.StatusPermanentRedirect: true,
}

// Forwarder handles one proxied request end-to-end: target derivation,
// outbound fetch, and response rewriting.
type Forwarder struct {
	client *client.UpstreamClient
	cfg    *config.Config
	logger *slog.Logger
}

// NewForwarder creates a Forwarder.
func NewForwarder(c *client.UpstreamClient, cfg *config.Config, logger *slog.Logger) *Forwarder {
	return &Forwarder{
		client: c,
		cfg:    cfg,
		logger: logger.With("component", "forwarder"),
	}
}

// Forward fetches the target URL encoded in the request path and returns the
// rewritten response. Redirect responses carry only their rewritten Location
// (plus Set-Cookie); HTML responses are buffered and their root-relative
// links rewritten; everything else streams through untouched. The caller is
// responsible for closing the response body.
func (f *Forwarder) Forward(pr *model.ProxyRequest) (*model.ProxyResponse, error) {
	target, err := f.buildTargetURL(pr)
	if err != nil {
		return nil, err
	}

	header := f.buildOutboundHeaders(pr.Header)

	f.logger.Debug("forwarding request",
		"method", pr.Method,
		"target_host", target.Host,
	)

	resp, err := f.client.DoStream(pr.Ctx, pr.Method, target.String(), target.Host, header, pr.Body)
	if err != nil {
		return nil, fmt.Errorf("forward to target: %w", err)
	}

	if redirectStatuses[resp.StatusCode] {
		return f.rewriteRedirect(resp, target)
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		if err := f.rewriteHTML(resp, pr); err != nil {
			_ = resp.Body.Close()
			return nil, err
		}
	}

	ApplyResponsePolicy(resp.Header)
	return resp, nil
}

// buildTargetURL recovers the absolute target URL from the percent-encoded
// request path. A target without a scheme is assumed reachable via the same
// scheme the client used to reach the proxy. The inbound query string is
// appended unmodified.
func (f *Forwarder) buildTargetURL(pr *model.ProxyRequest) (*url.URL, error) {
	raw, err := url.PathUnescape(strings.TrimPrefix(pr.EscapedPath, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}

	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = pr.Scheme + "://" + raw
	}

	if pr.RawQuery != "" {
		raw += "?" + pr.RawQuery
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %q has no host", ErrInvalidTarget, raw)
	}
	return u, nil
}

// buildOutboundHeaders derives the header set sent to the target. Platform
// metadata headers (configurable prefix) and Host are dropped; Cookie is
// re-set from the inbound request so it survives any future filter rule. The
// filter is idempotent. Host itself is carried on the outbound request, not
// in this set.
func (f *Forwarder) buildOutboundHeaders(src http.Header) http.Header {
	prefix := strings.ToLower(f.cfg.Proxy.StripHeaderPrefix)

	dst := make(http.Header)
	for key, vals := range src {
		lower := strings.ToLower(key)
		if lower == "host" {
			continue
		}
		if prefix != "" && strings.HasPrefix(lower, prefix) {
			continue
		}
		dst[key] = vals
	}

	if cookie := src.Get("Cookie"); cookie != "" {
		dst.Set("Cookie", cookie)
	}

	return dst
}

// rewriteRedirect replaces the upstream Location with the proxy's own path
// convention so a redirect chain keeps flowing through the proxy. Status and
// body pass through; only Location and Set-Cookie survive from the upstream
// header set.
func (f *Forwarder) rewriteRedirect(resp *model.ProxyResponse, target *url.URL) (*model.ProxyResponse, error) {
	location, err := rewrite.RedirectLocation(target, resp.Header.Get("Location"))
	if err != nil {
		_ = resp.Body.Close()
		return nil, err
	}

	header := make(http.Header)
	header.Set("Location", location)
	if cookies := resp.Header.Values("Set-Cookie"); len(cookies) > 0 {
		header["Set-Cookie"] = cookies
	}

	resp.Header = header
	return resp, nil
}

// rewriteHTML buffers the upstream body and rewrites root-relative links.
// A gzip-encoded body is decompressed first; other encodings cannot be
// rewritten and pass through as-is.
func (f *Forwarder) rewriteHTML(resp *model.ProxyResponse, pr *model.ProxyRequest) error {
	var reader io.Reader = resp.Body

	encoding := strings.ToLower(resp.Header.Get("Content-Encoding"))
	switch encoding {
	case "", "identity":
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("decompress upstream body: %w", err)
		}
		reader = gz
	default:
		f.logger.Warn("skipping HTML rewrite for encoded body", "content_encoding", encoding)
		return nil
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("read upstream body: %w", err)
	}
	_ = resp.Body.Close()

	rewritten := rewrite.HTML(string(body), pr.Scheme, pr.Host)
	resp.Body = io.NopCloser(strings.NewReader(rewritten))

	// Length and encoding no longer describe the rewritten body.
	resp.Header.Del("Content-Length")
	resp.Header.Del("Content-Encoding")
	return nil
}

// ApplyResponsePolicy forces the unconditional response headers: caching off,
// CORS wide open, and a defensive Set-Cookie re-assert. Redirect responses
// are exempt; they carry their own minimal header set.
func ApplyResponsePolicy(h http.Header) {
	if cookies := h.Values("Set-Cookie"); len(cookies) > 0 {
		h["Set-Cookie"] = cookies
	}
	h.Set("Cache-Control", "no-store")
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE")
	h.Set("Access-Control-Allow-Headers", "*")
}
