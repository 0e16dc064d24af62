package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"talkline/internal/auth"

	"github.com/gin-gonic/gin"
)

func serveWithIdentity(accountID, role string, chain ...gin.HandlerFunc) int {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	handlers := []gin.HandlerFunc{func(c *gin.Context) {
		ctx := auth.WithIdentity(c.Request.Context(), accountID, role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}}
	handlers = append(handlers, chain...)
	handlers = append(handlers, func(c *gin.Context) { c.Status(200) })
	r.GET("/x", handlers...)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRequireAnyRole_SuperAdminBypasses(t *testing.T) {
	code := serveWithIdentity("u", RoleSuperAdmin, RequireAccount(), RequireAnyRole(RoleTalker))
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAnyRole_DeniesOtherRoles(t *testing.T) {
	code := serveWithIdentity("u", RoleListener, RequireAccount(), RequireAnyRole(RoleTalker))
	if code != 403 {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireAnyRole_UnknownRoleDenied(t *testing.T) {
	code := serveWithIdentity("u", "network_operator", RequireAccount(), RequireAnyRole("network_operator"))
	if code != 403 {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireAccount_Required(t *testing.T) {
	code := serveWithIdentity("", RoleTalker, RequireAccount(), RequireAnyRole(RoleTalker))
	if code != 401 {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestIsReportable(t *testing.T) {
	if !IsReportable(RoleTalker) {
		t.Fatalf("expected talker reportable")
	}
	for _, r := range []string{RoleListener, RoleModerator, RoleSuperAdmin, ""} {
		if IsReportable(r) {
			t.Fatalf("expected %q not reportable", r)
		}
	}
}
