package filesystem_test

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/sftpfs/internal/filesystem"
	"github.com/charlesng35/sftpfs/internal/remote/remotetest"
	"github.com/charlesng35/sftpfs/internal/settings"
	apperrors "github.com/charlesng35/sftpfs/pkg/errors"
)

const (
	testUser     = "tester"
	testPassword = "secret"
)

func TestSFTPFileSystemSurface(t *testing.T) {
	fs := filesystem.NewSFTP(nil)

	require.Equal(t, "SFTPFileSystem", fs.Name())
	require.True(t, fs.CanHandle("sftp://example.com/file.bin"))
	require.False(t, fs.CanHandle("/local/file.bin"))
	require.False(t, fs.CanHandle("s3://bucket/key"))
	require.True(t, fs.CanSeek())
	require.False(t, fs.OnDisk())
	require.False(t, fs.IsPipe("sftp://example.com/file.bin"))
	require.Equal(t, "/", fs.PathSeparator("sftp://example.com/file.bin"))

	matches, err := fs.Glob(context.Background(), "sftp://example.com/data/*.csv")
	require.NoError(t, err)
	require.Equal(t, []string{"sftp://example.com/data/*.csv"}, matches)
}

func TestSFTPFileSystemOpenUsesSettings(t *testing.T) {
	server := remotetest.NewServer(t, remotetest.WithPassword(testUser, testPassword))
	path := server.WriteFile(t, "data/report.csv", []byte("id,value\n1,2\n"))

	fs := filesystem.NewSFTP(settings.Map{
		"sftp_username": testUser,
		"sftp_password": testPassword,
	})

	f, err := fs.Open(context.Background(), server.URL("", "", path), os.O_RDONLY)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	content, err := io.ReadAll(f)
	require.NoError(t, err)
	require.Equal(t, "id,value\n1,2\n", string(content))
	require.Equal(t, int64(len(content)), f.Position())

	_, err = f.Write([]byte("x"))
	require.ErrorIs(t, err, apperrors.ErrNotImplemented)
}

func TestSFTPFileSystemOpenRejectsMalformedPath(t *testing.T) {
	_, err := filesystem.NewSFTP(nil).Open(context.Background(), "sftp://example.com", os.O_RDONLY)
	require.ErrorIs(t, err, apperrors.ErrParse)
}

func TestSFTPFileSystemExists(t *testing.T) {
	server := remotetest.NewServer(t, remotetest.WithPassword(testUser, testPassword))
	present := server.WriteFile(t, "present.bin", []byte("data"))
	empty := server.WriteFile(t, "empty.bin", nil)

	fs := filesystem.NewSFTP(nil)
	ctx := context.Background()

	require.True(t, fs.Exists(ctx, server.URL(testUser, testPassword, present)))
	require.False(t, fs.Exists(ctx, server.URL(testUser, testPassword, empty)))
	require.False(t, fs.Exists(ctx, server.URL(testUser, testPassword, present+".missing")))
	require.False(t, fs.Exists(ctx, server.URL(testUser, "wrong", present)))
	require.False(t, fs.Exists(ctx, "sftp://no-path"))

	require.Eventually(t, func() bool {
		return server.ActiveConnections() == 0
	}, 5*time.Second, 20*time.Millisecond)
}

func TestRegistryDispatchesToSFTPAndLocal(t *testing.T) {
	server := remotetest.NewServer(t, remotetest.WithPassword(testUser, testPassword))
	remotePath := server.WriteFile(t, "r.txt", []byte("remote"))

	registry := filesystem.NewDefaultRegistry(filesystem.NewSFTP(nil))

	f, err := registry.Open(context.Background(), server.URL(testUser, testPassword, remotePath), os.O_RDONLY)
	require.NoError(t, err)
	content, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.Equal(t, "remote", string(content))

	require.True(t, registry.Exists(context.Background(), remotePath))

	fs, err := registry.ForPath("relative/path.txt")
	require.NoError(t, err)
	require.Equal(t, filesystem.LocalID, fs.Descriptor().ID)

	ids := []string{}
	for _, d := range registry.Describe() {
		ids = append(ids, d.ID)
	}
	require.Equal(t, []string{filesystem.SFTPID, filesystem.LocalID}, ids)
}

func TestSFTPFileSystemCredentialHosts(t *testing.T) {
	server := remotetest.NewServer(t, remotetest.WithPassword(testUser, testPassword))
	path := server.WriteFile(t, "report.csv", []byte("data"))
	ctx := context.Background()

	stored := filesystem.NewSFTP(settings.Map{
		"sftp_username": testUser,
		"sftp_password": testPassword,
	})

	allowed := stored.WithCredentialHosts([]string{" 127.0.0.* "})
	f, err := allowed.Open(ctx, server.URL("", "", path), os.O_RDONLY)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	for _, patterns := range [][]string{nil, {"files.example.com"}} {
		withheld := stored.WithCredentialHosts(patterns)
		_, err := withheld.Open(ctx, server.URL(testUser, "", path), os.O_RDONLY)
		require.Error(t, err, patterns)
		require.False(t, withheld.Exists(ctx, server.URL(testUser, "", path)), patterns)

		f, err := withheld.Open(ctx, server.URL(testUser, testPassword, path), os.O_RDONLY)
		require.NoError(t, err, patterns)
		require.NoError(t, f.Close())
	}

	f, err = stored.Open(ctx, server.URL("", "", path), os.O_RDONLY)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}
