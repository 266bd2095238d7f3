package remote_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/charlesng35/sftpfs/internal/endpoint"
	"github.com/charlesng35/sftpfs/internal/remote"
	"github.com/charlesng35/sftpfs/internal/remote/remotetest"
	apperrors "github.com/charlesng35/sftpfs/pkg/errors"
	"github.com/charlesng35/sftpfs/pkg/logger"
)

const (
	testUser     = "tester"
	testPassword = "secret"
)

func openURL(t *testing.T, raw string, opts ...remote.Option) (*remote.Handle, error) {
	t.Helper()
	params, err := endpoint.Parse(raw)
	require.NoError(t, err)
	return remote.Open(context.Background(), params, opts...)
}

func mustOpen(t *testing.T, raw string, opts ...remote.Option) *remote.Handle {
	t.Helper()
	handle, err := openURL(t, raw, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = handle.Close()
	})
	return handle
}

func pattern(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func requireReleased(t *testing.T, server *remotetest.Server) {
	t.Helper()
	require.Eventually(t, func() bool {
		return server.ActiveConnections() == 0
	}, 5*time.Second, 20*time.Millisecond)
}

func TestOpenReadsWholeFile(t *testing.T) {
	server := remotetest.NewServer(t, remotetest.WithPassword(testUser, testPassword))
	data := pattern(100_000)
	path := server.WriteFile(t, "data/file.bin", data)

	handle := mustOpen(t, server.URL(testUser, testPassword, path))

	require.Equal(t, remote.StateFileOpen, handle.State())
	require.Equal(t, int64(len(data)), handle.Size())
	require.Empty(t, handle.VersionTag())
	require.NotEmpty(t, handle.ID())
	require.NotContains(t, handle.Path(), testPassword)

	info, err := os.Stat(filepath.FromSlash(path))
	require.NoError(t, err)
	require.WithinDuration(t, info.ModTime(), handle.ModTime(), time.Second)

	buf := make([]byte, len(data))
	n, err := handle.Read(buf)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.Equal(t, data, buf)
	require.Equal(t, int64(len(data)), handle.Position())
}

func TestReadAtLeavesPositionUnchanged(t *testing.T) {
	server := remotetest.NewServer(t, remotetest.WithPassword(testUser, testPassword))
	data := []byte("0123456789abcdefghij")
	path := server.WriteFile(t, "readat.txt", data)

	handle := mustOpen(t, server.URL(testUser, testPassword, path))

	head := make([]byte, 4)
	_, err := handle.Read(head)
	require.NoError(t, err)
	require.Equal(t, "0123", string(head))

	buf := make([]byte, 5)
	n, err := handle.ReadAt(buf, 10)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "abcde", string(buf))
	require.Equal(t, int64(4), handle.Position())

	next := make([]byte, 3)
	_, err = handle.Read(next)
	require.NoError(t, err)
	require.Equal(t, "456", string(next))
}

func TestReadAtShortReadReturnsEOF(t *testing.T) {
	server := remotetest.NewServer(t, remotetest.WithPassword(testUser, testPassword))
	path := server.WriteFile(t, "short.txt", []byte("hello"))

	handle := mustOpen(t, server.URL(testUser, testPassword, path))

	buf := make([]byte, 10)
	n, err := handle.ReadAt(buf, 2)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, 3, n)
	require.Equal(t, "llo", string(buf[:n]))
	require.Equal(t, int64(0), handle.Position())

	_, err = handle.ReadAt(buf, -1)
	require.ErrorIs(t, err, apperrors.ErrInvalidSeek)
}

func TestSeekThenReadAdvancesPosition(t *testing.T) {
	server := remotetest.NewServer(t, remotetest.WithPassword(testUser, testPassword))
	data := pattern(4096)
	path := server.WriteFile(t, "seek.bin", data)

	handle := mustOpen(t, server.URL(testUser, testPassword, path))

	require.NoError(t, handle.SeekTo(1000))
	buf := make([]byte, 24)
	n, err := handle.Read(buf)
	require.NoError(t, err)
	require.Equal(t, data[1000:1024], buf[:n])
	require.Equal(t, int64(1000+n), handle.Position())

	pos, err := handle.Seek(-24, io.SeekCurrent)
	require.NoError(t, err)
	require.Equal(t, int64(1000), pos)

	pos, err = handle.Seek(-10, io.SeekEnd)
	require.NoError(t, err)
	require.Equal(t, int64(4086), pos)

	_, err = handle.Seek(-1, io.SeekStart)
	require.ErrorIs(t, err, apperrors.ErrInvalidSeek)
	require.Equal(t, int64(4086), handle.Position())
}

func TestReadAtEndOfFile(t *testing.T) {
	server := remotetest.NewServer(t, remotetest.WithPassword(testUser, testPassword))
	path := server.WriteFile(t, "eof.txt", []byte("abc"))

	handle := mustOpen(t, server.URL(testUser, testPassword, path))

	buf := make([]byte, 8)
	n, err := handle.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	n, err = handle.Read(buf)
	require.Equal(t, 0, n)
	require.ErrorIs(t, err, io.EOF)
	require.False(t, errors.Is(err, apperrors.ErrRead))

	require.NoError(t, handle.SeekTo(1<<20))
	n, err = handle.Read(buf)
	require.Equal(t, 0, n)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, int64(1<<20), handle.Position())
}

func TestReadAllThroughIOHelpers(t *testing.T) {
	server := remotetest.NewServer(t, remotetest.WithPassword(testUser, testPassword))
	data := pattern(70_000)
	path := server.WriteFile(t, "all.bin", data)

	handle := mustOpen(t, server.URL(testUser, testPassword, path))

	got, err := io.ReadAll(io.NewSectionReader(handle, 100, 50_000))
	require.NoError(t, err)
	require.Equal(t, data[100:50_100], got)
	require.Equal(t, int64(0), handle.Position())
}

func TestCloseIsIdempotent(t *testing.T) {
	server := remotetest.NewServer(t, remotetest.WithPassword(testUser, testPassword))
	path := server.WriteFile(t, "close.txt", []byte("close me"))

	handle, err := openURL(t, server.URL(testUser, testPassword, path))
	require.NoError(t, err)

	require.NoError(t, handle.Close())
	require.NoError(t, handle.Close())
	require.Equal(t, remote.StateClosed, handle.State())
	requireReleased(t, server)

	_, err = handle.Read(make([]byte, 1))
	require.ErrorIs(t, err, apperrors.ErrClosed)
	_, err = handle.Seek(0, io.SeekStart)
	require.ErrorIs(t, err, apperrors.ErrClosed)
	_, err = handle.ReadAt(make([]byte, 1), 0)
	require.ErrorIs(t, err, apperrors.ErrClosed)
}

func TestAbandonedHandleIsReleased(t *testing.T) {
	server := remotetest.NewServer(t, remotetest.WithPassword(testUser, testPassword))
	path := server.WriteFile(t, "dropped.txt", []byte("never closed"))

	func() {
		handle, err := openURL(t, server.URL(testUser, testPassword, path))
		require.NoError(t, err)
		require.Equal(t, remote.StateFileOpen, handle.State())
	}()
	require.EqualValues(t, 1, server.ActiveConnections())

	require.Eventually(t, func() bool {
		runtime.GC()
		return server.ActiveConnections() == 0
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWriteIsNotImplemented(t *testing.T) {
	server := remotetest.NewServer(t, remotetest.WithPassword(testUser, testPassword))
	original := []byte("untouched")
	path := server.WriteFile(t, "ro.txt", original)

	handle := mustOpen(t, server.URL(testUser, testPassword, path))

	_, err := handle.Write([]byte("overwrite"))
	require.ErrorIs(t, err, apperrors.ErrNotImplemented)
	require.Contains(t, err.Error(), "SFTP Write not implemented")

	_, err = handle.WriteAt([]byte("x"), 0)
	require.ErrorIs(t, err, apperrors.ErrNotImplemented)

	err = handle.Sync()
	require.ErrorIs(t, err, apperrors.ErrNotImplemented)
	require.Contains(t, err.Error(), "SFTP FileSync not implemented")

	require.ErrorIs(t, handle.ReadDir(), apperrors.ErrNotImplemented)

	onDisk, err := os.ReadFile(filepath.FromSlash(path))
	require.NoError(t, err)
	require.Equal(t, original, onDisk)
}

func TestAuthenticationPriority(t *testing.T) {
	keyPEM, publicKey := remotetest.GenerateKey(t, "")

	t.Run("private key in memory", func(t *testing.T) {
		server := remotetest.NewServer(t,
			remotetest.WithPassword(testUser, testPassword),
			remotetest.WithAuthorizedKey(testUser, publicKey),
		)
		path := server.WriteFile(t, "k.txt", []byte("key"))

		params, err := endpoint.Parse(server.URL(testUser, "wrong", path))
		require.NoError(t, err)
		params.PrivateKey = string(keyPEM)
		params.IdentityFile = filepath.Join(t.TempDir(), "missing")

		handle, err := remote.Open(context.Background(), params)
		require.NoError(t, err)
		require.NoError(t, handle.Close())
		require.Equal(t, []string{"publickey"}, server.AuthMethods())
	})

	t.Run("identity file", func(t *testing.T) {
		server := remotetest.NewServer(t,
			remotetest.WithPassword(testUser, testPassword),
			remotetest.WithAuthorizedKey(testUser, publicKey),
		)
		path := server.WriteFile(t, "k.txt", []byte("key"))
		identity := filepath.Join(t.TempDir(), "id_ed25519")
		require.NoError(t, os.WriteFile(identity, keyPEM, 0o600))

		params, err := endpoint.Parse(server.URL(testUser, "wrong", path))
		require.NoError(t, err)
		params.IdentityFile = identity

		handle, err := remote.Open(context.Background(), params)
		require.NoError(t, err)
		require.NoError(t, handle.Close())
		require.Equal(t, []string{"publickey"}, server.AuthMethods())
	})

	t.Run("password", func(t *testing.T) {
		server := remotetest.NewServer(t,
			remotetest.WithPassword(testUser, testPassword),
			remotetest.WithAuthorizedKey(testUser, publicKey),
		)
		path := server.WriteFile(t, "k.txt", []byte("key"))

		handle, err := openURL(t, server.URL(testUser, testPassword, path))
		require.NoError(t, err)
		require.NoError(t, handle.Close())
		require.Equal(t, []string{"password"}, server.AuthMethods())
	})
}

func TestEncryptedIdentityFileUsesPassphrase(t *testing.T) {
	keyPEM, publicKey := remotetest.GenerateKey(t, "phrase")
	server := remotetest.NewServer(t, remotetest.WithAuthorizedKey(testUser, publicKey))
	path := server.WriteFile(t, "enc.txt", []byte("encrypted key"))
	identity := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, os.WriteFile(identity, keyPEM, 0o600))

	params, err := endpoint.Parse(server.URL(testUser, "", path))
	require.NoError(t, err)
	params.IdentityFile = identity

	_, err = remote.Open(context.Background(), params)
	require.ErrorIs(t, err, apperrors.ErrAuthentication)

	params.PrivateKeyPassword = "phrase"
	handle, err := remote.Open(context.Background(), params)
	require.NoError(t, err)
	require.NoError(t, handle.Close())
}

func TestWrongPasswordIsAuthenticationError(t *testing.T) {
	server := remotetest.NewServer(t, remotetest.WithPassword(testUser, testPassword))
	path := server.WriteFile(t, "a.txt", []byte("a"))

	_, err := openURL(t, server.URL(testUser, "nope", path))
	require.ErrorIs(t, err, apperrors.ErrAuthentication)
	require.Contains(t, err.Error(), "Unable to authenticate")
	requireReleased(t, server)
}

func TestMissingFileIsFileOpenError(t *testing.T) {
	server := remotetest.NewServer(t, remotetest.WithPassword(testUser, testPassword))
	missing := server.WriteFile(t, "present.txt", []byte("x")) + ".missing"

	_, err := openURL(t, server.URL(testUser, testPassword, missing))
	require.ErrorIs(t, err, apperrors.ErrFileOpen)
	require.Contains(t, err.Error(), "No such file")
	requireReleased(t, server)
}

func TestRefusedSubsystemIsSessionInitError(t *testing.T) {
	server := remotetest.NewServer(t, remotetest.WithPassword(testUser, testPassword), remotetest.WithoutSFTP())
	path := server.WriteFile(t, "a.txt", []byte("a"))

	_, err := openURL(t, server.URL(testUser, testPassword, path))
	require.ErrorIs(t, err, apperrors.ErrSessionInit)
	requireReleased(t, server)
}

func TestRefusedConnectionIsConnectionError(t *testing.T) {
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().(*net.TCPAddr)
	require.NoError(t, listener.Close())

	_, err = remote.Open(context.Background(), endpoint.Params{
		Host:     "127.0.0.1",
		Port:     addr.Port,
		FilePath: "/x",
	})
	require.ErrorIs(t, err, apperrors.ErrConnection)
	require.Contains(t, err.Error(), "Unable to connect to 127.0.0.1 on port")
}

func TestNonSSHPeerIsHandshakeError(t *testing.T) {
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	_, err = remote.Open(context.Background(), endpoint.Params{
		Host:     "127.0.0.1",
		Port:     listener.Addr().(*net.TCPAddr).Port,
		Username: testUser,
		Password: testPassword,
		FilePath: "/x",
	})
	require.ErrorIs(t, err, apperrors.ErrHandshake)
}

type staticResolver map[string][]net.IP

func (r staticResolver) LookupIP(_ context.Context, network, host string) ([]net.IP, error) {
	if network != "ip4" {
		return nil, errors.New("unexpected network " + network)
	}
	ips, ok := r[host]
	if !ok {
		return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
	}
	return ips, nil
}

func TestHostnameResolution(t *testing.T) {
	server := remotetest.NewServer(t, remotetest.WithPassword(testUser, testPassword))
	path := server.WriteFile(t, "named.txt", []byte("named"))
	resolver := staticResolver{"files.internal": {net.IPv4(127, 0, 0, 1)}}

	params := endpoint.Params{
		Host:     "files.internal",
		Port:     server.Port,
		Username: testUser,
		Password: testPassword,
		FilePath: path,
	}
	handle, err := remote.Open(context.Background(), params, remote.WithResolver(resolver))
	require.NoError(t, err)
	require.NoError(t, handle.Close())

	params.Host = "unknown.internal"
	_, err = remote.Open(context.Background(), params, remote.WithResolver(resolver))
	require.ErrorIs(t, err, apperrors.ErrConnection)
	require.Contains(t, err.Error(), "no such host")
}

func TestCancelledContextFailsToConnect(t *testing.T) {
	server := remotetest.NewServer(t, remotetest.WithPassword(testUser, testPassword))
	path := server.WriteFile(t, "ctx.txt", []byte("ctx"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	params, err := endpoint.Parse(server.URL(testUser, testPassword, path))
	require.NoError(t, err)
	_, err = remote.Open(ctx, params)
	require.ErrorIs(t, err, apperrors.ErrConnection)
}

func TestOpenLogsStagesWithoutCredentials(t *testing.T) {
	core, recorded := observer.New(zap.DebugLevel)
	logger.Set(zap.New(core))
	t.Cleanup(func() { logger.Set(nil) })

	server := remotetest.NewServer(t, remotetest.WithPassword(testUser, testPassword))
	path := server.WriteFile(t, "log.txt", []byte("log"))

	handle := mustOpen(t, server.URL(testUser, testPassword, path))
	require.NoError(t, handle.Close())

	var stages []string
	for _, entry := range recorded.FilterMessage("remote handle stage").All() {
		fields := entry.ContextMap()
		require.Equal(t, handle.ID(), fields["handle_id"])
		require.Equal(t, "remote", fields["module"])
		stages = append(stages, fields["stage"].(string))
	}
	require.Equal(t, []string{"connecting", "authenticating", "session_ready", "file_open"}, stages)

	for _, entry := range recorded.All() {
		for _, value := range entry.ContextMap() {
			if s, ok := value.(string); ok {
				require.False(t, bytes.Contains([]byte(s), []byte(testPassword)))
			}
		}
	}
}

func TestOpenRecordsFlags(t *testing.T) {
	server := remotetest.NewServer(t, remotetest.WithPassword(testUser, testPassword))
	path := server.WriteFile(t, "flags.txt", []byte("flags"))

	handle := mustOpen(t, server.URL(testUser, testPassword, path), remote.WithFlags(os.O_RDONLY|os.O_SYNC), remote.WithMaxPacket(4096))
	require.Equal(t, os.O_RDONLY|os.O_SYNC, handle.Flags())

	buf := make([]byte, 5)
	n, err := handle.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "flags", string(buf[:n]))
}
