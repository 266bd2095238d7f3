package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/charlesng35/sftpfs/pkg/errors"
	"github.com/charlesng35/sftpfs/pkg/logger"
	"github.com/charlesng35/sftpfs/pkg/response"
)

// Recovery converts panics into a 500 response and logs the error with the
// requested file redacted. A panic after a file body started streaming only
// aborts; appending a JSON envelope would corrupt the partial content.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			fields := []zap.Field{
				zap.String("path", c.Request.URL.Path),
				zap.Any("error", r),
				zap.Bool("streaming", c.Writer.Written()),
			}
			if target := redactTarget(c.Query("path")); target != "" {
				fields = append(fields, zap.String("target", target))
			}
			logger.WithModule("http").Error("panic", fields...)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			// Avoid leaking internals to clients
			response.Error(c, apperrors.ErrInternalServer)
			c.Abort()
		}()
		c.Next()
	}
}

var errRouteNotFound = apperrors.New("NOT_FOUND", "Route not found", http.StatusNotFound)

// NotFoundHandler returns a JSON 404 response for unknown routes.
func NotFoundHandler(c *gin.Context) {
	response.Error(c, errRouteNotFound.Newf("route %s not found", c.Request.URL.Path))
}
