package filesystem

import (
	"context"
	"io"
	"time"
)

// FileSystem is the host-facing contract every backend implements.
type FileSystem interface {
	// Descriptor identifies the backend in registries and listings.
	Descriptor() Descriptor
	Name() string

	// CanHandle reports whether path belongs to this backend.
	CanHandle(path string) bool
	Open(ctx context.Context, path string, flags int) (File, error)
	// Exists reports whether path can be opened and is non-empty. It never
	// returns an error.
	Exists(ctx context.Context, path string) bool
	Glob(ctx context.Context, pattern string) ([]string, error)

	CanSeek() bool
	OnDisk() bool
	IsPipe(path string) bool
	PathSeparator(path string) string
	Capabilities() Capabilities
}

// File is an open file returned by a FileSystem.
type File interface {
	io.Reader
	io.ReaderAt
	io.Seeker
	io.Writer
	io.WriterAt
	io.Closer

	Position() int64
	Size() int64
	ModTime() time.Time
	VersionTag() string
	Sync() error
	Path() string
}

// Descriptor summarises backend metadata for the registry.
type Descriptor struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Scheme    string `json:"scheme,omitempty"`
	SortOrder int    `json:"sort_order"`
}

// Capabilities list what a backend supports.
type Capabilities struct {
	Seek      bool   `json:"seek"`
	OnDisk    bool   `json:"on_disk"`
	Pipe      bool   `json:"pipe"`
	Write     bool   `json:"write"`
	Glob      bool   `json:"glob"`
	Separator string `json:"separator"`
}
