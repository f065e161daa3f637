package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"callnotes/internal/audit"
	"callnotes/internal/reporting"

	"github.com/gin-gonic/gin"
)

const defaultSummaryRange = 30 * 24 * time.Hour

// UsageSummary reports aggregate call volume. Query params from/to are RFC 3339 or YYYY-MM-DD;
// both default to the last 30 days ending now.
func (h Handlers) UsageSummary(c *gin.Context) {
	now := time.Now().UTC()
	to, err := parseTimeParam(c.Query("to"), now)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid to", "code": "invalid_input"})
		return
	}
	from, err := parseTimeParam(c.Query("from"), to.Add(-defaultSummaryRange))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid from", "code": "invalid_input"})
		return
	}

	out, err := h.Reports.UsageSummary(c.Request.Context(), reporting.UsageSummaryRequest{
		Range: reporting.TimeRange{From: from, To: to},
	})
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func parseTimeParam(v string, def time.Time) (time.Time, error) {
	if v == "" {
		return def, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, v)
}

// ListAuditEvents returns the audit trail, newest first, optionally narrowed by user_id and call_id.
func (h Handlers) ListAuditEvents(c *gin.Context) {
	f := audit.Filter{
		ActorUserID: c.Query("user_id"),
		CallID:      c.Query("call_id"),
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid limit", "code": "invalid_input"})
			return
		}
		f.Limit = n
	}

	events, err := h.Audit.List(c.Request.Context(), f)
	if err != nil {
		abortError(c, err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
