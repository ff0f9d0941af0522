package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/labstack/echo/v4"

	"mirror-proxy-go/internal/config"
)

func TestRegisterRoutes_Wiring(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	proxy := NewProxyHandler(newTestForwarder(t), logger)
	landing := NewLandingHandler()
	health := NewHealthHandler(&config.Config{}, "test")

	e := echo.New()
	RegisterRoutes(e, proxy, landing, health)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"GET / serves landing page", http.MethodGet, "/", http.StatusOK},
		{"POST / serves landing page", http.MethodPost, "/", http.StatusOK},
		{"GET /healthz", http.MethodGet, "/healthz", http.StatusOK},
		{"GET /proxy/status", http.MethodGet, "/proxy/status", http.StatusOK},
		{"encoded target proxied", http.MethodGet, "/" + url.PathEscape(upstream.URL+"/data"), http.StatusOK},
		{"bare target proxied to unreachable host yields error", http.MethodGet, "/" + url.PathEscape("http://127.0.0.1:1/"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRegisterRoutes_RootNeverFetches(t *testing.T) {
	hits := 0
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	proxy := NewProxyHandler(newTestForwarder(t), logger)
	landing := NewLandingHandler()
	health := NewHealthHandler(&config.Config{}, "test")

	e := echo.New()
	RegisterRoutes(e, proxy, landing, health)

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		req := httptest.NewRequest(method, "/", http.NoBody)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s /: status = %d, want %d", method, rec.Code, http.StatusOK)
		}
	}

	if hits != 0 {
		t.Errorf("upstream hits = %d, want 0 for root path", hits)
	}
}
