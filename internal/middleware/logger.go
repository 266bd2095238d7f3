package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/sftpfs/internal/endpoint"
	"github.com/charlesng35/sftpfs/pkg/logger"
)

// Logger writes a concise structured access log for each request. The path
// query parameter is logged with any embedded password redacted.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method
		target := redactTarget(c.Query("path"))

		c.Next()

		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		}
		if target != "" {
			fields = append(fields, zap.String("target", target))
		}

		logger.WithModule("http").Info("request", fields...)
	}
}

func redactTarget(raw string) string {
	if !endpoint.HasPrefix(raw) {
		return raw
	}
	params, err := endpoint.Parse(raw)
	if err != nil {
		// Unparseable endpoints may still carry credentials.
		return endpoint.Scheme + "<invalid>"
	}
	return params.String()
}
