package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/sftpfs/internal/filesystem"
	"github.com/charlesng35/sftpfs/pkg/response"
)

type backendLister interface {
	Describe() []filesystem.Descriptor
}

// Health returns a simple status payload useful for readiness checks, listing
// the registered filesystem backends.
func Health(backends backendLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload := gin.H{"status": "ok"}
		if backends != nil {
			payload["filesystems"] = backends.Describe()
		}
		response.Success(c, http.StatusOK, payload)
	}
}
