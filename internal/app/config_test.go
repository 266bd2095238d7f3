package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata"))
	require.NoError(t, err)

	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "console", cfg.Log.Encoding)

	require.Equal(t, "deploy", cfg.SFTP.Username)
	require.Equal(t, "/home/deploy/.ssh/id_ed25519", cfg.SFTP.IdentityFile)
	require.Equal(t, "phrase", cfg.SFTP.PrivateKeyPassword)
	require.Equal(t, 16384, cfg.SFTP.MaxPacket)
	require.Equal(t, 5*time.Second, cfg.SFTP.DialTimeout)

	require.Equal(t, "sqlite", cfg.Settings.Driver)
	require.Equal(t, "/var/lib/sftpfs/settings.sqlite", cfg.Settings.Path)
	require.Equal(t, "change-me", cfg.Settings.EncryptionKey)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "/internal/metrics", cfg.Server.MetricsEndpoint)
	require.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Encoding)
	require.Equal(t, 32768, cfg.SFTP.MaxPacket)
	require.Zero(t, cfg.SFTP.DialTimeout)
	require.Equal(t, "./data/sftpfs.sqlite", cfg.Settings.Path)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "/metrics", cfg.Server.MetricsEndpoint)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("SFTPFS_SFTP_USERNAME", "env-user")
	t.Setenv("SFTPFS_SERVER_PORT", "7070")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, "env-user", cfg.SFTP.Username)
	require.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadConfigRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [unterminated"), 0o644))

	_, err := LoadConfig(dir)
	require.Error(t, err)
}

func TestRemoteOptions(t *testing.T) {
	opts, err := SFTPConfig{MaxPacket: 1024, DialTimeout: time.Second}.RemoteOptions()
	require.NoError(t, err)
	require.Len(t, opts, 2)

	knownHosts := filepath.Join(t.TempDir(), "known_hosts")
	require.NoError(t, os.WriteFile(knownHosts, nil, 0o600))
	opts, err = SFTPConfig{KnownHostsFile: knownHosts}.RemoteOptions()
	require.NoError(t, err)
	require.Len(t, opts, 3)

	_, err = SFTPConfig{KnownHostsFile: filepath.Join(t.TempDir(), "missing")}.RemoteOptions()
	require.Error(t, err)
}
