package filesystem

import (
	"context"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/charlesng35/sftpfs/internal/endpoint"
	"github.com/charlesng35/sftpfs/internal/remote"
	"github.com/charlesng35/sftpfs/internal/settings"
	"github.com/charlesng35/sftpfs/pkg/logger"
)

const (
	// SFTPID is the registry identifier of the SFTP backend.
	SFTPID = "sftp"
	// SFTPName is the name the SFTP backend reports to hosts.
	SFTPName = "SFTPFileSystem"
)

var (
	_ FileSystem = (*SFTPFileSystem)(nil)
	_ File       = (*remote.Handle)(nil)
)

// SFTPFileSystem opens sftp:// endpoints as read-only remote handles.
type SFTPFileSystem struct {
	settings settings.Provider
	options  []remote.Option

	// credentialHosts limits which hosts receive configured credentials when
	// restricted is set.
	credentialHosts []string
	restricted      bool
}

// NewSFTP builds the SFTP backend. provider supplies credentials the endpoint
// omits and may be nil; opts are passed to every remote.Open.
func NewSFTP(provider settings.Provider, opts ...remote.Option) *SFTPFileSystem {
	return &SFTPFileSystem{settings: provider, options: opts}
}

// WithCredentialHosts returns a copy that fills in configured credentials only
// for hosts matching one of patterns (doublestar syntax, case-insensitive).
// An empty list means endpoints must carry their own credentials.
func (s *SFTPFileSystem) WithCredentialHosts(patterns []string) *SFTPFileSystem {
	restricted := *s
	restricted.restricted = true
	restricted.credentialHosts = make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if pattern = strings.ToLower(strings.TrimSpace(pattern)); pattern != "" {
			restricted.credentialHosts = append(restricted.credentialHosts, pattern)
		}
	}
	return &restricted
}

func (s *SFTPFileSystem) credentialsAllowed(host string) bool {
	if !s.restricted {
		return true
	}
	host = strings.ToLower(host)
	for _, pattern := range s.credentialHosts {
		if ok, _ := doublestar.Match(pattern, host); ok {
			return true
		}
	}
	return false
}

func (s *SFTPFileSystem) Descriptor() Descriptor {
	return Descriptor{ID: SFTPID, Title: SFTPName, Scheme: endpoint.Scheme, SortOrder: 10}
}

func (s *SFTPFileSystem) Name() string { return SFTPName }

func (s *SFTPFileSystem) CanHandle(path string) bool {
	return endpoint.HasPrefix(path)
}

// Open parses path, overlays configured credentials and opens the remote file.
func (s *SFTPFileSystem) Open(ctx context.Context, path string, flags int) (File, error) {
	handle, err := s.OpenHandle(ctx, path, flags)
	if err != nil {
		return nil, err
	}
	return handle, nil
}

// OpenHandle is Open returning the concrete remote handle.
func (s *SFTPFileSystem) OpenHandle(ctx context.Context, path string, flags int) (*remote.Handle, error) {
	params, err := endpoint.Parse(path)
	if err != nil {
		return nil, err
	}
	if s.credentialsAllowed(params.Host) {
		params, err = settings.Apply(ctx, s.settings, params)
		if err != nil {
			return nil, err
		}
	} else {
		logger.WithModule("filesystem").Debug("configured credentials withheld",
			zap.String("host", params.Host),
		)
	}

	opts := append([]remote.Option{}, s.options...)
	opts = append(opts, remote.WithFlags(flags))
	return remote.Open(ctx, params, opts...)
}

// Exists opens path fully; any failure or an empty file reports false.
func (s *SFTPFileSystem) Exists(ctx context.Context, path string) bool {
	handle, err := s.OpenHandle(ctx, path, 0)
	if err != nil {
		logger.WithModule("filesystem").Debug("sftp exists check failed", zap.Error(err))
		return false
	}
	defer handle.Close()
	return handle.Size() > 0
}

// Glob performs no expansion on remote paths.
func (s *SFTPFileSystem) Glob(_ context.Context, pattern string) ([]string, error) {
	return []string{pattern}, nil
}

func (s *SFTPFileSystem) CanSeek() bool { return true }

func (s *SFTPFileSystem) OnDisk() bool { return false }

func (s *SFTPFileSystem) IsPipe(string) bool { return false }

func (s *SFTPFileSystem) PathSeparator(string) string { return "/" }

func (s *SFTPFileSystem) Capabilities() Capabilities {
	return Capabilities{Seek: true, Separator: "/"}
}
