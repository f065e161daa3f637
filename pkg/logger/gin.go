package logger

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	headerRequestID = "X-Request-Id"

	ginKeyLogger = "logger"
	ginKeyUserID = "user_id"
)

// Middleware injects request_id, exposes a request-scoped logger to handlers (gin context)
// and services (request context), and logs one summary line per request.
// Successful requests to quietPaths (health probes) are logged at debug level.
func Middleware(l *slog.Logger, quietPaths ...string) gin.HandlerFunc {
	quiet := make(map[string]struct{}, len(quietPaths))
	for _, p := range quietPaths {
		quiet[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()

		rid := c.GetHeader(headerRequestID)
		if rid == "" || len(rid) > 128 {
			rid = uuid.NewString()
		}
		c.Writer.Header().Set(headerRequestID, rid)
		attach(c, l.With("request_id", rid))

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration_ms", float64(time.Since(start).Microseconds()) / 1000,
			"bytes", c.Writer.Size(),
			"client_ip", c.ClientIP(),
		}
		// The scoped logger already carries user_id once SetUser ran.
		reqLogger := FromGin(c)

		switch _, isQuiet := quiet[path]; {
		case len(c.Errors) > 0:
			attrs = append(attrs, "errors", c.Errors.String())
			reqLogger.Error("request", attrs...)
		case status >= 500:
			reqLogger.Warn("request", attrs...)
		case isQuiet:
			reqLogger.Debug("request", attrs...)
		default:
			reqLogger.Info("request", attrs...)
		}
	}
}

// SetUser records the authenticated user on the gin context and adds user_id to the
// request-scoped logger seen by handlers and services.
func SetUser(c *gin.Context, userID string) {
	c.Set(ginKeyUserID, userID)
	attach(c, FromGin(c).With(ginKeyUserID, userID))
}

func attach(c *gin.Context, l *slog.Logger) {
	c.Set(ginKeyLogger, l)
	c.Request = c.Request.WithContext(With(c.Request.Context(), l))
}

// FromGin pulls the request-scoped logger from Gin context.
func FromGin(c *gin.Context) *slog.Logger {
	if v, ok := c.Get(ginKeyLogger); ok {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}
