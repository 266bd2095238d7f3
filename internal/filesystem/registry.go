package filesystem

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrNilFileSystem signals an attempt to register a nil backend.
	ErrNilFileSystem = errors.New("filesystem: nil filesystem")
	// ErrEmptyID indicates a descriptor with no identifier value.
	ErrEmptyID = errors.New("filesystem: descriptor id is required")
	// ErrDuplicateID indicates a registration conflict.
	ErrDuplicateID = errors.New("filesystem: descriptor id already registered")
	// ErrNoFileSystem is returned when no backend accepts a path.
	ErrNoFileSystem = errors.New("filesystem: no filesystem can handle path")
)

// Registry dispatches paths to registered backends with concurrency safety.
// Backends are consulted by SortOrder then ID; the fallback serves paths no
// backend claims.
type Registry struct {
	mu          sync.RWMutex
	filesystems map[string]FileSystem
	fallback    FileSystem
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{filesystems: make(map[string]FileSystem)}
}

// NewDefaultRegistry registers sftp and local backends, with local as the fallback.
func NewDefaultRegistry(sftp *SFTPFileSystem) *Registry {
	r := NewRegistry()
	local := NewLocal()
	r.MustRegister(sftp)
	r.MustRegister(local)
	r.SetFallback(local)
	return r
}

// NewRemoteRegistry registers only the sftp backend and has no fallback, so
// plain paths fail with ErrNoFileSystem.
func NewRemoteRegistry(sftp *SFTPFileSystem) *Registry {
	r := NewRegistry()
	r.MustRegister(sftp)
	return r
}

// Register adds a backend after descriptor validation.
func (r *Registry) Register(fs FileSystem) error {
	if fs == nil {
		return ErrNilFileSystem
	}

	id := strings.TrimSpace(fs.Descriptor().ID)
	if id == "" {
		return ErrEmptyID
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.filesystems[id]; exists {
		return ErrDuplicateID
	}

	r.filesystems[id] = fs
	return nil
}

// MustRegister wraps Register and panics on validation errors.
func (r *Registry) MustRegister(fs FileSystem) {
	if err := r.Register(fs); err != nil {
		panic(err)
	}
}

// SetFallback sets the backend used when no registered backend handles a path.
func (r *Registry) SetFallback(fs FileSystem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = fs
}

// Get returns the backend registered for id when present.
func (r *Registry) Get(id string) (FileSystem, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fs, ok := r.filesystems[strings.TrimSpace(id)]
	return fs, ok
}

// Describe returns descriptors sorted by SortOrder then ID.
func (r *Registry) Describe() []Descriptor {
	all := r.All()
	descriptors := make([]Descriptor, 0, len(all))
	for _, fs := range all {
		descriptors = append(descriptors, fs.Descriptor())
	}
	return descriptors
}

// Capabilities returns the capabilities of the backend registered as id.
func (r *Registry) Capabilities(id string) (Capabilities, error) {
	fs, ok := r.Get(id)
	if !ok {
		return Capabilities{}, errors.New("filesystem: unknown filesystem " + id)
	}
	return fs.Capabilities(), nil
}

// All returns every backend sorted by SortOrder then ID.
func (r *Registry) All() []FileSystem {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]FileSystem, 0, len(r.filesystems))
	for _, fs := range r.filesystems {
		all = append(all, fs)
	}

	sort.SliceStable(all, func(i, j int) bool {
		di, dj := all[i].Descriptor(), all[j].Descriptor()
		if di.SortOrder == dj.SortOrder {
			return di.ID < dj.ID
		}
		return di.SortOrder < dj.SortOrder
	})

	return all
}

// ForPath returns the first backend that can handle path.
func (r *Registry) ForPath(path string) (FileSystem, error) {
	for _, fs := range r.All() {
		if fs.CanHandle(path) {
			return fs, nil
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, ErrNoFileSystem
}

// Open dispatches to the backend for path.
func (r *Registry) Open(ctx context.Context, path string, flags int) (File, error) {
	fs, err := r.ForPath(path)
	if err != nil {
		return nil, err
	}
	return fs.Open(ctx, path, flags)
}

// Exists dispatches to the backend for path; unknown paths do not exist.
func (r *Registry) Exists(ctx context.Context, path string) bool {
	fs, err := r.ForPath(path)
	if err != nil {
		return false
	}
	return fs.Exists(ctx, path)
}

// Glob dispatches to the backend for pattern.
func (r *Registry) Glob(ctx context.Context, pattern string) ([]string, error) {
	fs, err := r.ForPath(pattern)
	if err != nil {
		return nil, err
	}
	return fs.Glob(ctx, pattern)
}

// Reset clears the registry. Exported for testing only.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filesystems = make(map[string]FileSystem)
	r.fallback = nil
}
