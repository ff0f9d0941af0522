package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"mirror-proxy-go/internal/model"
	"mirror-proxy-go/internal/service"
)

// ProxyHandler forwards requests to the target URL encoded in the path.
type ProxyHandler struct {
	forwarder *service.Forwarder
	logger    *slog.Logger
}

// NewProxyHandler creates a ProxyHandler.
func NewProxyHandler(f *service.Forwarder, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		forwarder: f,
		logger:    logger.With("component", "proxy_handler"),
	}
}

// Handle fetches the encoded target and streams the rewritten response back.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	pr := &model.ProxyRequest{
		Ctx:         req.Context(),
		Method:      req.Method,
		EscapedPath: req.URL.EscapedPath(),
		RawQuery:    req.URL.RawQuery,
		Scheme:      c.Scheme(),
		Host:        req.Host,
		Header:      req.Header,
		Body:        req.Body,
	}

	resp, err := h.forwarder.Forward(pr)
	if err != nil {
		return h.writeError(c, err)
	}
	defer func() { _ = resp.Body.Close() }()

	for key, vals := range resp.Header {
		for _, v := range vals {
			c.Response().Header().Add(key, v)
		}
	}

	c.Response().WriteHeader(resp.StatusCode)

	// Stream the upstream body directly to the client. If io.Copy fails
	// mid-stream (e.g. client disconnect, network error), the HTTP status
	// code has already been sent, so the client receives a truncated
	// response with the original status. This is an inherent trade-off of
	// streaming proxies — we log the error for observability.
	if _, err := io.Copy(c.Response(), resp.Body); err != nil {
		h.logger.Error("streaming response body",
			"err", err,
			"path", req.URL.Path,
		)
	}

	return nil
}

// writeError converts any pipeline failure into the uniform JSON error
// contract: HTTP 500, {"error": "<message>"}. Error responses carry the same
// cache and CORS policy headers as proxied responses.
func (h *ProxyHandler) writeError(c echo.Context, err error) error {
	h.logger.Error("proxy error",
		"err", err,
		"path", c.Request().URL.Path,
	)

	service.ApplyResponsePolicy(c.Response().Header())
	return c.JSON(http.StatusInternalServerError, map[string]string{
		"error": err.Error(),
	})
}
