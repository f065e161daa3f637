package httpapi

import (
	"context"
	"net/http"

	"callnotes/internal/audit"
	"callnotes/internal/auth"
	"callnotes/internal/calls"
	"callnotes/internal/reporting"
	"callnotes/internal/users"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse input, call internal services, return JSON.
type Handlers struct {
	Calls   *calls.Service
	Users   *users.Service
	Reports *reporting.Service
	Audit   *audit.Service
	Checks  []HealthCheck
}

// HealthCheck probes one dependency.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// owner resolves the authenticated user or aborts with 401.
func owner(c *gin.Context) (string, bool) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		abortError(c, calls.ErrUnauthorized)
		return "", false
	}
	return uid, true
}

func (h Handlers) Healthz(c *gin.Context) {
	status := http.StatusOK
	deps := gin.H{}
	for _, hc := range h.Checks {
		if err := hc.Check(c.Request.Context()); err != nil {
			status = http.StatusServiceUnavailable
			deps[hc.Name] = "down"
			continue
		}
		deps[hc.Name] = "ok"
	}
	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	c.JSON(status, gin.H{"status": overall, "deps": deps})
}
