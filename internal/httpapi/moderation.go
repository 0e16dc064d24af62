package httpapi

import (
	"net/http"

	"talkline/internal/moderation"
	"talkline/pkg/logger"

	"github.com/gin-gonic/gin"
)

type reportRequest struct {
	SubjectID   string            `json:"subject_account_id"`
	Reason      moderation.Reason `json:"reason"`
	Description string            `json:"description,omitempty"`
}

// SubmitReport files a complaint from the caller and escalates on the threshold.
func (h Handlers) SubmitReport(c *gin.Context) {
	if h.Moderation == nil {
		notConfigured(c, "moderation")
		return
	}
	aid, _, ok := caller(c)
	if !ok {
		return
	}
	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}

	out, err := h.Moderation.Report(c.Request.Context(), moderation.SubmitRequest{
		SubjectID:   req.SubjectID,
		ReporterID:  aid,
		Reason:      req.Reason,
		Description: req.Description,
	})
	if err != nil {
		if out.Report.ID != "" {
			// The report is recorded; only escalation failed.
			logger.FromGin(c).Error("escalation failed", "subject_account_id", out.Report.SubjectID, "err", err)
			c.JSON(http.StatusCreated, out)
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h Handlers) ReportCount(c *gin.Context) {
	if h.Moderation == nil {
		notConfigured(c, "moderation")
		return
	}
	subject := c.Param("id")
	if !selfOrStaff(c, subject) {
		return
	}
	n, err := h.Moderation.Ledger.CountFor(c.Request.Context(), subject)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subject_account_id": subject, "count": n})
}

func (h Handlers) SuspensionStatus(c *gin.Context) {
	if h.Moderation == nil {
		notConfigured(c, "moderation")
		return
	}
	subject := c.Param("id")
	if !selfOrStaff(c, subject) {
		return
	}
	st, err := h.Moderation.Controller.IsSuspended(c.Request.Context(), subject)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
