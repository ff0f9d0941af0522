package handler

import (
	_ "embed"
	"net/http"

	"github.com/labstack/echo/v4"

	"mirror-proxy-go/internal/service"
)

//go:embed landing.html
var landingPage []byte

// LandingHandler serves the informational page at the root path. The root is
// the only path that never triggers an outbound fetch.
type LandingHandler struct{}

// NewLandingHandler creates a LandingHandler.
func NewLandingHandler() *LandingHandler {
	return &LandingHandler{}
}

// Index returns the static landing page for any method.
func (h *LandingHandler) Index(c echo.Context) error {
	service.ApplyResponsePolicy(c.Response().Header())
	return c.Blob(http.StatusOK, "text/html; charset=utf-8", landingPage)
}
