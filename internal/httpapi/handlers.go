package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"talkline/internal/auth"
	"talkline/internal/billing"
	"talkline/internal/calls"
	"talkline/internal/moderation"
	"talkline/internal/payout"
	"talkline/internal/rbac"
	"talkline/internal/reporting"
	"talkline/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AccountDirectory resolves an account's role. It returns moderation.ErrNotFound for unknown ids.
type AccountDirectory interface {
	Role(ctx context.Context, accountID string) (string, error)
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth       *auth.Manager
	Identity   auth.IdentityVerifier
	Accounts   AccountDirectory
	Sessions   *calls.Service
	Packages   billing.PackageSource
	Billing    *billing.Reconciler
	Moderation *moderation.Service
	Payouts    *payout.Service
	Reporting  *reporting.Service

	// Now defaults to time.Now.
	Now func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// caller returns the authenticated account and role, aborting with 401 when absent.
func caller(c *gin.Context) (string, string, bool) {
	aid, err := auth.AccountID(c.Request.Context())
	if err != nil || aid == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account_id required"})
		return "", "", false
	}
	role, _ := auth.Role(c.Request.Context())
	return aid, role, true
}

// selfOrStaff allows the account itself and moderation staff.
func selfOrStaff(c *gin.Context, accountID string) bool {
	aid, role, ok := caller(c)
	if !ok {
		return false
	}
	if aid == accountID || rbac.IsStaff(role) {
		return true
	}
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "code": "forbidden"})
	return false
}

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{calls.ErrNotFound, http.StatusNotFound, "not_found"},
	{billing.ErrNotFound, http.StatusNotFound, "not_found"},
	{moderation.ErrNotFound, http.StatusNotFound, "not_found"},
	{payout.ErrNotFound, http.StatusNotFound, "not_found"},
	{calls.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{calls.ErrResponderBusy, http.StatusConflict, "responder_busy"},
	{billing.ErrAlreadySettled, http.StatusConflict, "already_settled"},
	{moderation.ErrDuplicateReport, http.StatusConflict, "duplicate_report"},
	{calls.ErrInvalidPackage, http.StatusUnprocessableEntity, "invalid_package"},
	{billing.ErrInvalidPackage, http.StatusUnprocessableEntity, "invalid_package"},
	{moderation.ErrInvalidSubject, http.StatusUnprocessableEntity, "invalid_subject"},
	{calls.ErrInvalidArgument, http.StatusBadRequest, "invalid_request"},
	{moderation.ErrInvalidArgument, http.StatusBadRequest, "invalid_request"},
	{payout.ErrInvalidArgument, http.StatusBadRequest, "invalid_request"},
	{reporting.ErrInvalidRequest, http.StatusBadRequest, "invalid_request"},
}

// writeError translates domain sentinels into a status and a stable code.
// Unknown errors are logged and reported as internal.
func writeError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			c.AbortWithStatusJSON(m.status, gin.H{"error": err.Error(), "code": m.code})
			return
		}
	}
	logger.FromGin(c).Error("request failed", "err", err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "internal"})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg, "code": "invalid_request"})
}

func notConfigured(c *gin.Context, what string) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": what + " not configured", "code": "internal"})
}
