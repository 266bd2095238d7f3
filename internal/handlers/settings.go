package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/sftpfs/internal/settings"
	apperrors "github.com/charlesng35/sftpfs/pkg/errors"
	"github.com/charlesng35/sftpfs/pkg/response"
)

type settingsLister interface {
	List(ctx context.Context) ([]settings.Entry, error)
	Encrypted() bool
}

// SettingsHandler exposes the persisted sftp settings read-only. Secret
// values are always masked; changes go through the CLI.
type SettingsHandler struct {
	store settingsLister
}

// NewSettingsHandler constructs a handler over store.
func NewSettingsHandler(store settingsLister) *SettingsHandler {
	return &SettingsHandler{store: store}
}

// List returns every stored setting.
func (h *SettingsHandler) List(c *gin.Context) {
	if h == nil || h.store == nil {
		response.Error(c, apperrors.ErrConfig.Newf("Settings store is not configured"))
		return
	}

	entries, err := h.store.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"encrypted": h.store.Encrypted(),
		"settings":  entries,
	})
}
