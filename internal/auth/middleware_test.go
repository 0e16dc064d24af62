package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRequireAccessToken_RejectsRevokedAccount(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := NewMemoryRevocations()
	m := newTestManager(t).WithRevocations(store)

	pair, err := m.IssuePair(time.Now().Add(-time.Minute), "acct-1", "talker")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	r := gin.New()
	r.GET("/x", RequireAccessToken(m), func(c *gin.Context) {
		aid, _ := AccountID(c.Request.Context())
		c.String(200, aid)
	})

	call := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		r.ServeHTTP(w, req)
		return w
	}

	if w := call(); w.Code != 200 || w.Body.String() != "acct-1" {
		t.Fatalf("expected 200 acct-1, got %d %q", w.Code, w.Body.String())
	}

	if err := NewRevoker(store).RevokeAll(context.Background(), "acct-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if w := call(); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after revocation, got %d", w.Code)
	}
}

func TestRequireAccessToken_MissingBearer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", RequireAccessToken(newTestManager(t)), func(c *gin.Context) { c.Status(200) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"missing_token"`) {
		t.Fatalf("expected missing_token code, got %s", w.Body.String())
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]bool{
		"Bearer abc": true,
		"bearer abc": true,
		"Bearer ":    false,
		"Basic abc":  false,
		"abc":        false,
		"":           false,
	}
	for header, want := range cases {
		if _, ok := bearerToken(header); ok != want {
			t.Fatalf("bearerToken(%q) ok=%v, want %v", header, ok, want)
		}
	}
}
