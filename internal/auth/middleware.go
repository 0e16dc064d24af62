package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// RequireAccessToken authenticates the bearer access token and puts the
// caller's identity on both the request and gin contexts. Role checks live
// in internal/rbac.
func RequireAccessToken(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c, "missing_token", "missing bearer token")
			return
		}

		claims, err := m.Authenticate(c.Request.Context(), tok, TokenTypeAccess, time.Now())
		switch {
		case errors.Is(err, ErrTokenRevoked):
			abortUnauthorized(c, "token_revoked", "token revoked")
			return
		case err != nil:
			abortUnauthorized(c, "invalid_token", "invalid token")
			return
		}

		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), claims.AccountID, claims.Role))
		c.Set("account_id", claims.AccountID)
		c.Set("role", claims.Role)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

func abortUnauthorized(c *gin.Context, code, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg, "code": code})
}
