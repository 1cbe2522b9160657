package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"chess-coach-backend/internal/principal"
)

func newIdentityRouter(t *testing.T, seen *principal.Owner) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Identity())
	router.GET("/api/v1/analyses", func(c *gin.Context) {
		*seen = OwnerFromContext(c)
		c.Status(http.StatusOK)
	})
	router.OPTIONS("/api/v1/analyses", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestIdentityAuthenticatedUser(t *testing.T) {
	var seen principal.Owner
	router := newIdentityRouter(t, &seen)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses", nil)
	req.Header.Set(UserIDHeader, "user-42")
	req.Header.Set(GuestIDHeader, "ignored")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	owner, ok := seen.(principal.AuthenticatedOwner)
	if !ok || owner.ID != "user-42" {
		t.Fatalf("expected authenticated owner user-42, got %#v", seen)
	}
}

func TestIdentityGuest(t *testing.T) {
	var seen principal.Owner
	router := newIdentityRouter(t, &seen)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses", nil)
	req.Header.Set(GuestIDHeader, "sess-1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !principal.IsGuest(seen) || seen.OwnerID() != "guest:sess-1" {
		t.Fatalf("expected guest owner, got %#v", seen)
	}
}

func TestIdentityRejectsMissingHeaders(t *testing.T) {
	var seen principal.Owner
	router := newIdentityRouter(t, &seen)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestIdentityRejectsGuestShapedUserID(t *testing.T) {
	var seen principal.Owner
	router := newIdentityRouter(t, &seen)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses", nil)
	req.Header.Set(UserIDHeader, "guest:abc")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestIdentityAcceptsUserIDStartingWithGuestWord(t *testing.T) {
	var seen principal.Owner
	router := newIdentityRouter(t, &seen)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses", nil)
	req.Header.Set(UserIDHeader, "guesthouse-42")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if principal.IsGuest(seen) || seen.OwnerID() != "guesthouse-42" {
		t.Fatalf("expected authenticated owner, got %#v", seen)
	}
}

func TestIdentityAllowsOptionsWithoutIdentity(t *testing.T) {
	var seen principal.Owner
	router := newIdentityRouter(t, &seen)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/analyses", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}
