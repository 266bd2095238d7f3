package handlers

import (
	"context"
	"errors"
	"net/http"
	"os"
	stdpath "path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/sftpfs/internal/filesystem"
	apperrors "github.com/charlesng35/sftpfs/pkg/errors"
	"github.com/charlesng35/sftpfs/pkg/logger"
	"github.com/charlesng35/sftpfs/pkg/response"
)

type fileOpener interface {
	Open(ctx context.Context, path string, flags int) (filesystem.File, error)
	Exists(ctx context.Context, path string) bool
}

// FilesHandler serves read-only access to files reachable through the
// filesystem registry.
type FilesHandler struct {
	files fileOpener
}

type fileStatDTO struct {
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
	Seekable   bool      `json:"seekable"`
}

// NewFilesHandler constructs a handler over files.
func NewFilesHandler(files fileOpener) *FilesHandler {
	return &FilesHandler{files: files}
}

// Content streams the file named by the path query parameter. Range requests
// are answered with positional reads against the open handle.
func (h *FilesHandler) Content(c *gin.Context) {
	path, ok := h.requirePath(c)
	if !ok {
		return
	}

	f, err := h.files.Open(c.Request.Context(), path, os.O_RDONLY)
	if err != nil {
		response.Error(c, mapFileError(err))
		return
	}
	defer closeFile(f)

	c.Header("Cache-Control", "no-store")
	http.ServeContent(c.Writer, c.Request, stdpath.Base(f.Path()), f.ModTime(), f)
}

// Stat reports size and modification time without transferring content.
func (h *FilesHandler) Stat(c *gin.Context) {
	path, ok := h.requirePath(c)
	if !ok {
		return
	}

	f, err := h.files.Open(c.Request.Context(), path, os.O_RDONLY)
	if err != nil {
		response.Error(c, mapFileError(err))
		return
	}
	defer closeFile(f)

	response.Success(c, http.StatusOK, fileStatDTO{
		Path:       f.Path(),
		Size:       f.Size(),
		ModifiedAt: f.ModTime().UTC(),
		Seekable:   true,
	})
}

// Exists answers whether the path opens and holds data.
func (h *FilesHandler) Exists(c *gin.Context) {
	path, ok := h.requirePath(c)
	if !ok {
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"exists": h.files.Exists(c.Request.Context(), path),
	})
}

func (h *FilesHandler) requirePath(c *gin.Context) (string, bool) {
	if h == nil || h.files == nil {
		response.Error(c, apperrors.ErrInternalServer)
		return "", false
	}

	path := strings.TrimSpace(c.Query("path"))
	if path == "" {
		response.Error(c, apperrors.NewBadRequest("path query parameter is required"))
		return "", false
	}
	return path, true
}

func closeFile(f filesystem.File) {
	if err := f.Close(); err != nil {
		logger.WithModule("http").Warn("close file", zap.String("path", f.Path()), zap.Error(err))
	}
}

func mapFileError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, filesystem.ErrNoFileSystem) {
		return apperrors.NewBadRequest("no filesystem can handle the requested path")
	}
	if errors.Is(err, os.ErrNotExist) {
		return apperrors.ErrFileOpen.Newf("Unable to open file: No such file").WithInternal(err)
	}
	if errors.Is(err, os.ErrPermission) {
		return apperrors.ErrFileOpen.Newf("Unable to open file: Permission denied").WithInternal(err)
	}
	return apperrors.Wrap(err, "file operation failed")
}
