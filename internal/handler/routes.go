package handler

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes wires all route handlers onto the Echo instance. The health
// and status paths are reserved: they are matched before the catch-all proxy
// route and are never forwarded.
func RegisterRoutes(e *echo.Echo, proxy *ProxyHandler, landing *LandingHandler, health *HealthHandler) {
	e.GET("/healthz", health.Healthz)
	e.GET("/proxy/status", health.Status)

	e.Any("/", landing.Index)
	e.Any("/*", proxy.Handle)
}
