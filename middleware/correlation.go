package middleware

import (
	"fmt"
	"time"

	"github.com/GasperHribersek/SOA-project-fintech/logbus"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CorrelationHeader is the request/response header carrying the correlation id.
const CorrelationHeader = "X-Correlation-Id"

// CorrelationIDKey is the gin context key for the correlation id.
const CorrelationIDKey = "correlation_id"

// RequestLogger is the logging surface the correlation middleware needs.
// Satisfied by *logbus.Logger.
type RequestLogger interface {
	Info(url, correlationID, message string, extra map[string]interface{})
	Log(level, url, correlationID, message string, extra map[string]interface{})
}

// Correlation assigns or propagates the per-request correlation id and emits
// the request-received / request-completed log pair around the handler chain.
func Correlation(logger RequestLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(CorrelationHeader)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		c.Set(CorrelationIDKey, correlationID)
		c.Writer.Header().Set(CorrelationHeader, correlationID)

		url := c.Request.URL.String()
		method := c.Request.Method
		start := time.Now()

		logger.Info(url, correlationID, method+" request received", map[string]interface{}{
			"method": method,
			"path":   c.Request.URL.Path,
			"query":  c.Request.URL.Query(),
			"ip":     c.ClientIP(),
		})

		c.Next()

		status := c.Writer.Status()
		duration := time.Since(start).Milliseconds()
		level := logbus.LevelInfo
		if status >= 400 {
			level = logbus.LevelError
		}

		logger.Log(level, url, correlationID,
			fmt.Sprintf("%s request completed - Status: %d - Duration: %dms", method, status, duration),
			map[string]interface{}{
				"method":     method,
				"statusCode": status,
				"duration":   duration,
			})
	}
}

// CorrelationIDFrom returns the correlation id assigned to the request.
func CorrelationIDFrom(c *gin.Context) string {
	if id, ok := c.Get(CorrelationIDKey); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
