package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/sftpfs/internal/database"
	"github.com/charlesng35/sftpfs/internal/filesystem"
	"github.com/charlesng35/sftpfs/internal/settings"
	"github.com/charlesng35/sftpfs/pkg/logger"
)

// SettingsDriverNone disables the persisted settings store.
const SettingsDriverNone = "none"

// Runtime bundles the long-lived pieces shared by the CLI and the server.
type Runtime struct {
	Config   *Config
	Viper    *viper.Viper
	DB       *gorm.DB
	Store    *settings.Store
	SFTP     *filesystem.SFTPFileSystem
	Registry *filesystem.Registry
	// Remote serves untrusted callers: sftp paths only, with configured
	// credentials restricted to server.credential_hosts.
	Remote *filesystem.Registry
}

// ConfigDirs turns a -config flag value into search directories for
// LoadConfig. A file path searches its parent directory.
func ConfigDirs(path string) ([]string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config path %q does not exist", path)
		}
		return nil, fmt.Errorf("stat config path: %w", err)
	}
	if info.IsDir() {
		return []string{path}, nil
	}
	return []string{filepath.Dir(path)}, nil
}

// NewRuntime opens the settings store and builds the filesystem registry from
// an already decoded configuration. Credentials resolve from overrides first,
// then the store, then the sftp config section.
func NewRuntime(ctx context.Context, v *viper.Viper, cfg *Config, overrides ...settings.Provider) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	rt := &Runtime{Config: cfg, Viper: v}
	success := false
	defer func() {
		if !success {
			rt.Close()
		}
	}()

	providers := append(settings.Chain{}, overrides...)
	if !strings.EqualFold(strings.TrimSpace(cfg.Settings.Driver), SettingsDriverNone) {
		db, err := database.OpenAndMigrate(database.Config{
			Driver: strings.ToLower(strings.TrimSpace(cfg.Settings.Driver)),
			Path:   strings.TrimSpace(cfg.Settings.Path),
		})
		if err != nil {
			return nil, fmt.Errorf("open settings database: %w", err)
		}
		rt.DB = db

		store, err := settings.NewStore(ctx, db, cfg.Settings.EncryptionKey)
		if err != nil {
			return nil, err
		}
		rt.Store = store
		providers = append(providers, store)

		logger.WithModule("settings").Debug("settings store opened",
			zap.String("path", cfg.Settings.Path),
			zap.Bool("encrypted", store.Encrypted()),
		)
	}
	providers = append(providers, settings.NewViper(v))

	opts, err := cfg.SFTP.RemoteOptions()
	if err != nil {
		return nil, err
	}
	for _, pattern := range cfg.Server.CredentialHosts {
		if !doublestar.ValidatePattern(strings.TrimSpace(pattern)) {
			return nil, fmt.Errorf("config: invalid credential host pattern %q", pattern)
		}
	}

	rt.SFTP = filesystem.NewSFTP(providers, opts...)
	rt.Registry = filesystem.NewDefaultRegistry(rt.SFTP)
	rt.Remote = filesystem.NewRemoteRegistry(rt.SFTP.WithCredentialHosts(cfg.Server.CredentialHosts))

	success = true
	return rt, nil
}

// Close releases the settings database.
func (r *Runtime) Close() {
	if r == nil || r.DB == nil {
		return
	}
	if err := database.Close(r.DB); err != nil {
		logger.WithModule("settings").Warn("failed to close settings database", zap.Error(err))
	}
	r.DB = nil
}
