package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/railconnect/booking-ledger/internal/utils"
	"github.com/sirupsen/logrus"
)

// RequestLogger logs one structured line per completed request. Server errors log at
// Error, client errors at Warn and the rest at Info.
func RequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		agent := utils.ParseUserAgent(c.Request.UserAgent())
		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      c.Request.URL.RawQuery,
			"ip":         utils.ClientIP(c),
			"latency_ms": time.Since(start).Milliseconds(),
			"device":     agent.DeviceType,
			"os":         agent.OS,
			"browser":    agent.Browser,
			"has_auth":   c.GetHeader("Authorization") != "",
		}
		if agent.IsBot {
			fields["bot"] = true
		}
		if userCtx, ok := GetUserContext(c); ok {
			fields["user_id"] = userCtx.UserID
		}

		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
			return
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed")
		}
	}
}
