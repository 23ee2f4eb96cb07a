package httpapi

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/rs/zerolog"

	"github.com/AlreadyKyle/layer-playable-ads/internal/http/handlers"
	"github.com/AlreadyKyle/layer-playable-ads/internal/infra"
)

func newTestRouter(t *testing.T, rateLimit int) http.Handler {
	t.Helper()
	discard := infra.Logger(zerolog.New(os.Stderr).Level(zerolog.Disabled))
	app := &handlers.App{
		Cfg: &infra.Config{
			RateLimitPerMin: rateLimit,
			AllowedOrigins:  []string{"https://studio.example.com"},
		},
		Log: &discard,
	}
	return NewRouter(app)
}

func TestRouterHealthRoute(t *testing.T) {
	router := newTestRouter(t, 100)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /v1/healthz status = %d, want 200", rec.Code)
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	router := newTestRouter(t, 100)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("GET /v1/nope status = %d, want 404", rec.Code)
	}
}

func TestRouterRateLimitsBuildEndpoints(t *testing.T) {
	router := newTestRouter(t, 2)

	var last int
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/analyze", nil)
		req.RemoteAddr = "10.0.0.9:1234"
		router.ServeHTTP(rec, req)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("third analyze status = %d, want 429", last)
	}

	// Read-only routes stay outside the limiter.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/healthz", nil)
	req.RemoteAddr = "10.0.0.9:1234"
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz after limit status = %d, want 200", rec.Code)
	}
}

func TestRouterCORSPreflight(t *testing.T) {
	router := newTestRouter(t, 100)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/v1/builds", nil)
	req.Header.Set("Origin", "https://studio.example.com")
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://studio.example.com" {
		t.Fatalf("allow-origin = %q", got)
	}
}
