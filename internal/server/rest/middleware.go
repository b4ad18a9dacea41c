package rest

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/userhub/internal/common"
	"github.com/dmitrijs2005/userhub/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDContextKey = "request_id"
	maxRequestIDLen     = 128
)

// RequestIDFromContext returns the request id or an empty string when the
// middleware did not run.
func RequestIDFromContext(c *gin.Context) string {
	return c.GetString(requestIDContextKey)
}

// RequestID keeps a caller supplied X-Request-ID or generates one, and
// echoes it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := normalizeRequestID(c.GetHeader(common.RequestIDHeaderName))
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set(requestIDContextKey, requestID)
		c.Writer.Header().Set(common.RequestIDHeaderName, requestID)

		c.Next()
	}
}

// AccessLog writes one line per request.
func AccessLog(l logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startedAt := time.Now()

		c.Next()

		args := []any{
			"request_id", RequestIDFromContext(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", float64(time.Since(startedAt).Microseconds()) / 1000.0,
			"client_ip", c.ClientIP(),
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			l.Warn(c.Request.Context(), "request", args...)
			return
		}
		l.Info(c.Request.Context(), "request", args...)
	}
}

// Recovery turns a handler panic into a 500 with the usual error body.
func Recovery(l logging.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		l.Error(c.Request.Context(), "panic recovered", "request_id", RequestIDFromContext(c), "panic", rec)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
	})
}

func normalizeRequestID(raw string) string {
	candidate := strings.TrimSpace(raw)
	if len(candidate) > maxRequestIDLen {
		candidate = candidate[:maxRequestIDLen]
	}
	return candidate
}
