package httpapi

import (
	"errors"
	"net/http"

	"callnotes/internal/audit"
	"callnotes/internal/calls"
	"callnotes/internal/reporting"
	"callnotes/internal/users"
	"callnotes/pkg/logger"

	"github.com/gin-gonic/gin"
)

type apiError struct {
	status  int
	code    string
	message string
}

// classify maps domain errors onto status, kind and a client-safe message.
func classify(err error) apiError {
	switch {
	case errors.Is(err, calls.ErrUnauthorized):
		return apiError{http.StatusUnauthorized, "unauthorized", "Unauthorized"}
	case errors.Is(err, calls.ErrInvalidInput), errors.Is(err, users.ErrInvalidInput):
		return apiError{http.StatusBadRequest, "invalid_input", err.Error()}
	case errors.Is(err, calls.ErrNotFound):
		return apiError{http.StatusNotFound, "not_found", "Call not found"}
	case errors.Is(err, calls.ErrBusy):
		return apiError{http.StatusTooManyRequests, "busy", "Too many analyses in progress, try again shortly"}
	case errors.Is(err, calls.ErrAnalysisFailed):
		return apiError{http.StatusBadGateway, "analysis_failed", "Failed to analyze transcript"}
	case errors.Is(err, calls.ErrPersistenceFailed):
		return apiError{http.StatusInternalServerError, "persistence_failed", "Failed to save call"}
	case errors.Is(err, users.ErrConflict):
		return apiError{http.StatusConflict, "conflict", err.Error()}
	case errors.Is(err, users.ErrInvalidCredentials):
		return apiError{http.StatusUnauthorized, "unauthorized", "Invalid credentials"}
	case errors.Is(err, users.ErrNotFound):
		return apiError{http.StatusNotFound, "not_found", "User not found"}
	case errors.Is(err, reporting.ErrInvalidRequest):
		return apiError{http.StatusBadRequest, "invalid_input", "from must be before to and the range at most a year"}
	case errors.Is(err, audit.ErrInvalidFilter):
		return apiError{http.StatusBadRequest, "invalid_input", err.Error()}
	default:
		return apiError{http.StatusInternalServerError, "internal", "Internal server error"}
	}
}

func abortError(c *gin.Context, err error) {
	e := classify(err)
	if e.status >= 500 {
		logger.FromGin(c).Error("request failed", "code", e.code, "err", err)
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(e.status, gin.H{"error": e.message, "code": e.code})
}

func abortBadJSON(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json", "code": "invalid_input"})
}
