package remote

import (
	"context"
	"errors"
	"io"
	"net"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	pkgsftp "github.com/pkg/sftp"
	"go.uber.org/zap"
	gossh "golang.org/x/crypto/ssh"

	"github.com/charlesng35/sftpfs/internal/endpoint"
	apperrors "github.com/charlesng35/sftpfs/pkg/errors"
	"github.com/charlesng35/sftpfs/pkg/logger"
	"github.com/charlesng35/sftpfs/pkg/metrics"
)

// State tracks how far a handle got through its open sequence.
type State int

const (
	StateUnopened State = iota
	StateConnecting
	StateAuthenticating
	StateSessionReady
	StateFileOpen
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateSessionReady:
		return "session_ready"
	case StateFileOpen:
		return "file_open"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Handle is a read-only, seekable view of one remote file. It owns the TCP
// socket, the SSH client, the SFTP client and the open file, and releases
// them together on Close. A handle dropped without Close releases them when
// it is garbage collected.
//
// cursor is the position callers observe; position is where the next
// sequential SFTP read starts. Read realigns position to cursor first.
type Handle struct {
	mu sync.Mutex

	id     string
	params endpoint.Params
	flags  int
	state  State
	log    *zap.Logger

	resources  *resourceGroup
	cleanup    runtime.Cleanup
	sshClient  *gossh.Client
	sftpClient *pkgsftp.Client
	file       *pkgsftp.File

	size    int64
	modTime time.Time

	cursor   int64
	position int64
}

// Open connects to params.Host, authenticates, starts an SFTP session and
// opens params.FilePath read-only. Anything acquired before a failure is
// released before the error is returned.
func Open(ctx context.Context, params endpoint.Params, opts ...Option) (*Handle, error) {
	o := newOptions(opts)
	if params.Port == 0 {
		params.Port = endpoint.DefaultPort
	}

	id := uuid.NewString()
	h := &Handle{
		id:        id,
		params:    params,
		flags:     o.flags,
		state:     StateUnopened,
		resources: &resourceGroup{},
		log: logger.WithModule("remote").With(
			zap.String("handle_id", id),
			zap.String("host", params.Host),
			zap.Int("port", params.Port),
			zap.String("path", params.FilePath),
		),
	}

	start := time.Now()
	err := h.initialize(ctx, o)
	metrics.OpenDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.OpenTotal.WithLabelValues("failure").Inc()
		h.state = StateFailed
		if releaseErr := h.resources.release(h.log); releaseErr != nil {
			h.log.Warn("release after failed open", zap.Error(releaseErr))
		}
		h.log.Debug("open failed", zap.Error(err))
		return nil, err
	}

	metrics.OpenTotal.WithLabelValues("success").Inc()
	metrics.OpenHandles.Inc()
	h.cleanup = runtime.AddCleanup(h, releaseAbandoned, abandonedHandle{resources: h.resources, log: h.log})
	h.log.Debug("remote file opened", zap.Int64("size", h.size))
	return h, nil
}

// abandonedHandle is what the garbage collector needs to release a handle
// that was never closed. It must not point back at the Handle.
type abandonedHandle struct {
	resources *resourceGroup
	log       *zap.Logger
}

func releaseAbandoned(a abandonedHandle) {
	a.log.Warn("remote handle collected without Close")
	if err := a.resources.release(a.log); err != nil {
		a.log.Warn("release abandoned handle", zap.Error(err))
	}
	metrics.OpenHandles.Dec()
}

func (h *Handle) initialize(ctx context.Context, o options) error {
	if err := h.params.Validate(); err != nil {
		return err
	}

	h.setState(StateConnecting)
	transport := &Transport{Resolver: o.resolver, DialTimeout: o.dialTimeout}
	conn, err := transport.Connect(ctx, h.params.Host, h.params.Port)
	if err != nil {
		return err
	}
	h.resources.push("socket", func() error {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			return err
		}
		return nil
	})

	h.setState(StateAuthenticating)
	client, err := handshake(conn, h.params, o.hostKeyCallback)
	if err != nil {
		return err
	}
	h.sshClient = client
	h.resources.push("ssh client", func() error {
		if err := client.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			return err
		}
		return nil
	})

	sftpClient, err := newSFTPClient(client, o.maxPacket)
	if err != nil {
		return err
	}
	h.sftpClient = sftpClient
	h.resources.push("sftp client", sftpClient.Close)
	h.setState(StateSessionReady)

	file, info, err := openRemoteFile(sftpClient, h.params.FilePath)
	if err != nil {
		return err
	}
	h.file = file
	h.resources.push("file", file.Close)

	h.size = info.Size()
	h.modTime = info.ModTime()
	h.setState(StateFileOpen)
	return nil
}

func (h *Handle) setState(state State) {
	h.state = state
	h.log.Debug("remote handle stage", zap.Stringer("stage", state))
}

// ID returns the identifier used in this handle's log entries.
func (h *Handle) ID() string {
	return h.id
}

// Path returns the endpoint with the password redacted.
func (h *Handle) Path() string {
	return h.params.String()
}

// Flags returns the open flags the handle was created with.
func (h *Handle) Flags() int {
	return h.flags
}

// State reports the lifecycle stage of the handle.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Size returns the file size captured at open time.
func (h *Handle) Size() int64 {
	return h.size
}

// ModTime returns the modification time captured at open time.
func (h *Handle) ModTime() time.Time {
	return h.modTime
}

// VersionTag is always empty; SFTP exposes no content version.
func (h *Handle) VersionTag() string {
	return ""
}

// Position returns the logical cursor.
func (h *Handle) Position() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor
}

// Read fills p from the cursor and advances the cursor by the bytes returned.
// At end of file it returns 0, io.EOF.
func (h *Handle) Read(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.ensureOpen(); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}

	if h.position != h.cursor {
		if err := h.seekProtocol(h.cursor); err != nil {
			return 0, err
		}
	}

	n, err := h.readFull(p)
	h.cursor += int64(n)
	if err == io.EOF {
		if n == 0 {
			return 0, io.EOF
		}
		return n, nil
	}
	return n, err
}

// ReadAt reads len(p) bytes starting at off without moving the cursor. A
// short read returns io.EOF alongside the count.
func (h *Handle) ReadAt(p []byte, off int64) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.ensureOpen(); err != nil {
		return 0, err
	}
	if off < 0 {
		return 0, apperrors.ErrInvalidSeek.Newf("Invalid read offset %d", off)
	}

	saved := h.cursor
	if err := h.seekProtocol(off); err != nil {
		return 0, err
	}
	n, err := h.readFull(p)
	if seekErr := h.seekProtocol(saved); seekErr != nil && err == nil {
		err = seekErr
	}
	return n, err
}

// Seek moves the cursor. Targets past the end of file are allowed and read
// as empty; negative targets are rejected.
func (h *Handle) Seek(offset int64, whence int) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.ensureOpen(); err != nil {
		return 0, err
	}

	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = h.cursor + offset
	case io.SeekEnd:
		target = h.size + offset
	default:
		return 0, apperrors.ErrInvalidSeek.Newf("Invalid seek whence %d", whence)
	}
	if target < 0 {
		return 0, apperrors.ErrInvalidSeek.Newf("Invalid seek to negative offset %d", target)
	}

	if err := h.seekProtocol(target); err != nil {
		return 0, err
	}
	h.cursor = target
	return target, nil
}

// SeekTo moves the cursor to an absolute location.
func (h *Handle) SeekTo(location int64) error {
	_, err := h.Seek(location, io.SeekStart)
	return err
}

// Write is not supported.
func (h *Handle) Write(p []byte) (int, error) {
	return 0, apperrors.ErrNotImplemented.Newf("SFTP Write not implemented")
}

// WriteAt is not supported.
func (h *Handle) WriteAt(p []byte, off int64) (int, error) {
	return 0, apperrors.ErrNotImplemented.Newf("SFTP Write not implemented")
}

// Sync is not supported.
func (h *Handle) Sync() error {
	return apperrors.ErrNotImplemented.Newf("SFTP FileSync not implemented")
}

// ReadDir is not supported.
func (h *Handle) ReadDir() error {
	return apperrors.ErrNotImplemented.Newf("SFTP ReadDir not implemented")
}

// Close releases the file, the SFTP client, the SSH client and the socket in
// that order. Only the first call does any work.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == StateClosed || h.state == StateFailed {
		return nil
	}

	h.cleanup.Stop()
	err := h.resources.release(h.log)
	h.state = StateClosed
	h.file = nil
	h.sftpClient = nil
	h.sshClient = nil
	metrics.OpenHandles.Dec()
	h.log.Debug("remote handle closed")
	return err
}

func (h *Handle) ensureOpen() error {
	if h.state != StateFileOpen || h.file == nil {
		return apperrors.ErrClosed.Newf("File handle %s is closed", h.params.String())
	}
	return nil
}

func (h *Handle) seekProtocol(offset int64) error {
	if _, err := h.file.Seek(offset, io.SeekStart); err != nil {
		return apperrors.ErrInvalidSeek.Newf("Unable to seek to %d", offset).WithInternal(err)
	}
	h.position = offset
	return nil
}

// readFull loops sequential reads from position until p is full, the remote
// reports end of data, or a read fails.
func (h *Handle) readFull(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := h.file.Read(p[total:])
		total += n
		h.position += int64(n)
		if n > 0 {
			metrics.BytesRead.Add(float64(n))
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return total, io.EOF
			}
			return total, apperrors.ErrRead.
				Newf("Error read file %s: %s", h.params.FilePath, StatusText(StatusFromError(err))).
				WithInternal(err)
		}
		if n == 0 {
			return total, io.EOF
		}
	}
	return total, nil
}
