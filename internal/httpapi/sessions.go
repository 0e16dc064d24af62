package httpapi

import (
	"net/http"
	"strings"

	"talkline/internal/calls"
	"talkline/internal/rbac"

	"github.com/gin-gonic/gin"
)

type openSessionRequest struct {
	ResponderID string     `json:"responder_id"`
	Kind        calls.Kind `json:"call_kind"`
	PackageID   string     `json:"package_id"`
	ChannelRef  string     `json:"channel_ref,omitempty"`
}

// OpenSession starts a metered call for the caller against one of their paid packages.
func (h Handlers) OpenSession(c *gin.Context) {
	if h.Sessions == nil || h.Packages == nil {
		notConfigured(c, "sessions")
		return
	}
	aid, role, ok := caller(c)
	if !ok {
		return
	}
	var req openSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	req.PackageID = strings.TrimSpace(req.PackageID)
	if req.PackageID == "" {
		badRequest(c, "package_id required")
		return
	}

	pkg, err := h.Packages.GetPackage(c.Request.Context(), req.PackageID)
	if err != nil {
		writeError(c, err)
		return
	}
	if pkg.PayerID != aid && !rbac.IsSuperAdmin(role) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "package belongs to another account", "code": "forbidden"})
		return
	}

	sess, err := h.Sessions.Open(c.Request.Context(), calls.OpenRequest{
		InitiatorID:      pkg.PayerID,
		ResponderID:      req.ResponderID,
		Kind:             req.Kind,
		PackageID:        pkg.ID,
		MinutesPurchased: pkg.MinutesPurchased,
		ChannelRef:       req.ChannelRef,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

// loadParticipantSession fetches the :id session and checks that the caller
// takes part in it, is staff, or is the transport.
func (h Handlers) loadParticipantSession(c *gin.Context) (calls.Session, bool) {
	if h.Sessions == nil {
		notConfigured(c, "sessions")
		return calls.Session{}, false
	}
	aid, role, ok := caller(c)
	if !ok {
		return calls.Session{}, false
	}
	sess, err := h.Sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return calls.Session{}, false
	}
	if aid != sess.InitiatorID && aid != sess.ResponderID && !rbac.IsStaff(role) && !rbac.IsTransport(role) {
		// Hide sessions the caller is not part of.
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": calls.ErrNotFound.Error(), "code": "not_found"})
		return calls.Session{}, false
	}
	return sess, true
}

func (h Handlers) GetSession(c *gin.Context) {
	sess, ok := h.loadParticipantSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess)
}

// ActivateSession and ReportElapsed are mounted for the transport role only.
// Participants never drive the meter, since the responder is also the payee.
func (h Handlers) ActivateSession(c *gin.Context) {
	sess, ok := h.loadParticipantSession(c)
	if !ok {
		return
	}
	out, err := h.Sessions.Activate(c.Request.Context(), sess.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type elapsedRequest struct {
	ElapsedMinutes *calls.Minutes `json:"elapsed_minutes"`
}

// ReportElapsed accrues a slice of talk time. elapsed_minutes accepts 9, 0.25 or "0.25".
func (h Handlers) ReportElapsed(c *gin.Context) {
	sess, ok := h.loadParticipantSession(c)
	if !ok {
		return
	}
	var req elapsedRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ElapsedMinutes == nil {
		badRequest(c, "elapsed_minutes required")
		return
	}
	out, err := h.Sessions.ReportElapsed(c.Request.Context(), sess.ID, *req.ElapsedMinutes)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session":           out,
		"remaining_minutes": out.Remaining(),
	})
}

type endRequest struct {
	Reason string `json:"reason,omitempty"`
}

// EndSession lets either participant hang up, as well as the transport.
func (h Handlers) EndSession(c *gin.Context) {
	sess, ok := h.loadParticipantSession(c)
	if !ok {
		return
	}
	var req endRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid json")
			return
		}
	}
	out, err := h.Sessions.End(c.Request.Context(), sess.ID, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// SettleSession runs the one-shot billing split of a terminated session.
func (h Handlers) SettleSession(c *gin.Context) {
	if h.Billing == nil {
		notConfigured(c, "billing")
		return
	}
	sess, ok := h.loadParticipantSession(c)
	if !ok {
		return
	}
	st, err := h.Billing.Settle(c.Request.Context(), sess.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}
