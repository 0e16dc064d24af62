package rbac

import (
	"net/http"

	"talkline/internal/auth"

	"github.com/gin-gonic/gin"
)

// RequireAccount aborts with 401 unless auth middleware put an account on the request.
func RequireAccount() gin.HandlerFunc {
	return func(c *gin.Context) {
		if aid, err := auth.AccountID(c.Request.Context()); err != nil || aid == "" {
			deny(c, http.StatusUnauthorized, "account_required")
			return
		}
		c.Next()
	}
}

// RequireAnyRole admits callers holding one of allowed. super_admin always
// passes and unknown roles never do.
func RequireAnyRole(allowed ...string) gin.HandlerFunc {
	permitted := make(map[string]bool, len(allowed))
	for _, r := range allowed {
		permitted[r] = true
	}

	return func(c *gin.Context) {
		role, err := auth.Role(c.Request.Context())
		switch {
		case err != nil || role == "":
			deny(c, http.StatusUnauthorized, "role_required")
		case IsSuperAdmin(role):
			c.Next()
		case !IsKnownRole(role) || !permitted[role]:
			deny(c, http.StatusForbidden, "forbidden")
		default:
			c.Next()
		}
	}
}

func deny(c *gin.Context, status int, code string) {
	c.AbortWithStatusJSON(status, gin.H{"error": http.StatusText(status), "code": code})
}
