package httpapi

import (
	"net/http"
	"strings"
	"time"

	"talkline/internal/rbac"
	"talkline/internal/reporting"

	"github.com/gin-gonic/gin"
)

// PayoutBalance returns the caller's payout balance for ?currency=.
func (h Handlers) PayoutBalance(c *gin.Context) {
	if h.Payouts == nil {
		notConfigured(c, "payouts")
		return
	}
	aid, _, ok := caller(c)
	if !ok {
		return
	}
	currency := strings.ToUpper(strings.TrimSpace(c.Query("currency")))
	if currency == "" {
		badRequest(c, "currency required")
		return
	}
	bal, err := h.Payouts.Balance(c.Request.Context(), aid, currency)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bal)
}

// summaryScope parses ?from=&to= (RFC 3339) and ?account_id=, which only staff may set.
func summaryScope(c *gin.Context) (string, reporting.TimeRange, bool) {
	aid, role, ok := caller(c)
	if !ok {
		return "", reporting.TimeRange{}, false
	}
	if other := strings.TrimSpace(c.Query("account_id")); other != "" && other != aid {
		if !rbac.IsStaff(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "code": "forbidden"})
			return "", reporting.TimeRange{}, false
		}
		aid = other
	}
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		badRequest(c, "from must be RFC 3339")
		return "", reporting.TimeRange{}, false
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		badRequest(c, "to must be RFC 3339")
		return "", reporting.TimeRange{}, false
	}
	return aid, reporting.TimeRange{From: from.UTC(), To: to.UTC()}, true
}

func (h Handlers) SessionsSummary(c *gin.Context) {
	if h.Reporting == nil {
		notConfigured(c, "reporting")
		return
	}
	aid, rng, ok := summaryScope(c)
	if !ok {
		return
	}
	out, err := h.Reporting.SessionsSummary(c.Request.Context(), reporting.SessionsSummaryRequest{
		AccountID: aid,
		Side:      reporting.Side(c.Query("side")),
		Range:     rng,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) EarningsSummary(c *gin.Context) {
	if h.Reporting == nil {
		notConfigured(c, "reporting")
		return
	}
	aid, rng, ok := summaryScope(c)
	if !ok {
		return
	}
	out, err := h.Reporting.EarningsSummary(c.Request.Context(), reporting.EarningsSummaryRequest{
		PayeeID:  aid,
		Range:    rng,
		Currency: c.Query("currency"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
