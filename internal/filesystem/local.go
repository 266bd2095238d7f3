package filesystem

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	// LocalID is the registry identifier of the local backend.
	LocalID = "local"

	fileScheme = "file://"
)

var _ FileSystem = (*LocalFileSystem)(nil)

// LocalFileSystem serves plain paths and file:// URLs from the local disk.
type LocalFileSystem struct{}

// NewLocal returns the local backend.
func NewLocal() *LocalFileSystem {
	return &LocalFileSystem{}
}

func (l *LocalFileSystem) Descriptor() Descriptor {
	return Descriptor{ID: LocalID, Title: "LocalFileSystem", Scheme: fileScheme, SortOrder: 100}
}

func (l *LocalFileSystem) Name() string { return "LocalFileSystem" }

// CanHandle accepts file:// URLs and anything without a scheme.
func (l *LocalFileSystem) CanHandle(path string) bool {
	return strings.HasPrefix(path, fileScheme) || !strings.Contains(path, "://")
}

func (l *LocalFileSystem) Open(_ context.Context, path string, flags int) (File, error) {
	name := localPath(path)
	f, err := os.OpenFile(name, flags, 0o644)
	if err != nil {
		return nil, err
	}
	return &localFile{File: f, path: name}, nil
}

func (l *LocalFileSystem) Exists(_ context.Context, path string) bool {
	info, err := os.Stat(localPath(path))
	return err == nil && info.Mode().IsRegular()
}

// Glob expands ** patterns with doublestar.
func (l *LocalFileSystem) Glob(_ context.Context, pattern string) ([]string, error) {
	return doublestar.FilepathGlob(localPath(pattern))
}

func (l *LocalFileSystem) CanSeek() bool { return true }

func (l *LocalFileSystem) OnDisk() bool { return true }

func (l *LocalFileSystem) IsPipe(path string) bool {
	info, err := os.Stat(localPath(path))
	return err == nil && info.Mode()&os.ModeNamedPipe != 0
}

func (l *LocalFileSystem) PathSeparator(string) string { return string(filepath.Separator) }

func (l *LocalFileSystem) Capabilities() Capabilities {
	return Capabilities{
		Seek:      true,
		OnDisk:    true,
		Pipe:      true,
		Write:     true,
		Glob:      true,
		Separator: string(filepath.Separator),
	}
}

func localPath(path string) string {
	return filepath.FromSlash(strings.TrimPrefix(path, fileScheme))
}

type localFile struct {
	*os.File
	path string
}

func (f *localFile) Position() int64 {
	pos, err := f.File.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0
	}
	return pos
}

func (f *localFile) Size() int64 {
	info, err := f.File.Stat()
	if err != nil {
		return 0
	}
	return info.Size()
}

func (f *localFile) ModTime() time.Time {
	info, err := f.File.Stat()
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

func (f *localFile) VersionTag() string { return "" }

func (f *localFile) Path() string { return f.path }
