package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"talkline/internal/auth"
	"talkline/internal/moderation"

	"github.com/gin-gonic/gin"
)

// loginRequest carries exactly one credential: an ID token from the identity
// provider, or a refresh token this service issued earlier.
type loginRequest struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
}

// Login is the login gate. It verifies the credential, refuses suspended
// accounts and otherwise issues a fresh token pair.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil || h.Identity == nil || h.Accounts == nil || h.Moderation == nil {
		notConfigured(c, "login")
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}

	accountID, ok := h.authenticateLogin(c, req)
	if !ok {
		return
	}

	role, err := h.Accounts.Role(c.Request.Context(), accountID)
	if errors.Is(err, moderation.ErrNotFound) {
		abortLogin(c, "unknown_account", "unknown account")
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}

	st, err := h.Moderation.Controller.IsSuspended(c.Request.Context(), accountID)
	if err != nil {
		writeError(c, err)
		return
	}
	if st.Active {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":          "account suspended",
			"code":           "account_suspended",
			"remaining_days": st.RemainingDays,
			"resume_at":      st.ResumeAt,
		})
		return
	}

	pair, err := h.Auth.IssuePair(h.now(), accountID, role)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken, "role": role})
}

// authenticateLogin resolves the account the credential proves. A revoked
// refresh token is reported as token_revoked so clients can tell it apart.
func (h Handlers) authenticateLogin(c *gin.Context, req loginRequest) (string, bool) {
	idToken := strings.TrimSpace(req.IDToken)
	refresh := strings.TrimSpace(req.RefreshToken)

	switch {
	case idToken != "" && refresh != "":
		badRequest(c, "send either id_token or refresh_token")
		return "", false
	case idToken != "":
		aid, err := h.Identity.VerifyIdentity(c.Request.Context(), idToken)
		if err != nil {
			abortLogin(c, "invalid_credential", "invalid id_token")
			return "", false
		}
		return aid, true
	case refresh != "":
		claims, err := h.Auth.Authenticate(c.Request.Context(), refresh, auth.TokenTypeRefresh, h.now())
		switch {
		case errors.Is(err, auth.ErrTokenRevoked):
			abortLogin(c, "token_revoked", "token revoked")
			return "", false
		case errors.Is(err, auth.ErrInvalidToken):
			abortLogin(c, "invalid_credential", "invalid refresh_token")
			return "", false
		case err != nil:
			writeError(c, err)
			return "", false
		}
		return claims.AccountID, true
	default:
		abortLogin(c, "credential_required", "id_token or refresh_token required")
		return "", false
	}
}

func abortLogin(c *gin.Context, code, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg, "code": code})
}
