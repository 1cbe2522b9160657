package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"chess-coach-backend/internal/shared/config"
	"chess-coach-backend/internal/shared/telemetry"
)

type fakePinger struct{ err error }

func (p fakePinger) PingContext(ctx context.Context) error { return p.err }

type pingRoute struct{}

func (pingRoute) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
}

func newTestRouter(t *testing.T, db Pinger) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	restore := telemetry.SetOutput(io.Discard)
	t.Cleanup(restore)
	return NewRouter(RouterDeps{
		Config:   config.Config{Env: "dev", SubmitRateLimit: 10},
		Handlers: []RouteRegistrar{pingRoute{}},
		DB:       db,
	})
}

func serve(r *gin.Engine, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestHealthWithoutIdentity(t *testing.T) {
	r := newTestRouter(t, fakePinger{})
	if resp := serve(r, "/api/v1/health", nil); resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestHealthReportsDatabaseFailure(t *testing.T) {
	r := newTestRouter(t, fakePinger{err: errors.New("down")})
	if resp := serve(r, "/api/v1/health", nil); resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

func TestFeatureRoutesRequireIdentity(t *testing.T) {
	r := newTestRouter(t, nil)
	if resp := serve(r, "/api/v1/ping", nil); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	if resp := serve(r, "/api/v1/ping", map[string]string{"X-User-Id": "user-1"}); resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestMeEchoesOwner(t *testing.T) {
	r := newTestRouter(t, nil)
	resp := serve(r, "/api/v1/me", map[string]string{"X-Guest-Id": "sess-1"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["ownerId"] != "guest:sess-1" || body["isGuest"] != true {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestMetricsExposed(t *testing.T) {
	r := newTestRouter(t, nil)
	resp := serve(r, "/metrics", nil)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "analysis_started_total") {
		t.Fatalf("unexpected metrics response %d", resp.Code)
	}
}

func TestAddr(t *testing.T) {
	for in, want := range map[string]string{"": ":8080", "9000": ":9000", ":7000": ":7000"} {
		if got := Addr(in); got != want {
			t.Fatalf("Addr(%q) = %q, want %q", in, got, want)
		}
	}
}
