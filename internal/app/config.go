package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration shared by the CLI and the server.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	SFTP     SFTPConfig     `mapstructure:"sftp"`
	Settings SettingsConfig `mapstructure:"settings"`
	Server   ServerConfig   `mapstructure:"server"`
}

// LogConfig controls the global zap logger.
type LogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

// SFTPConfig holds fallback credentials and transport tuning for remote files.
// Credentials given in an endpoint take precedence over these.
type SFTPConfig struct {
	IdentityFile       string        `mapstructure:"identity_file"`
	PrivateKey         string        `mapstructure:"private_key"`
	PrivateKeyPassword string        `mapstructure:"private_key_password"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	KnownHostsFile     string        `mapstructure:"known_hosts_file"`
	MaxPacket          int           `mapstructure:"max_packet"`
	DialTimeout        time.Duration `mapstructure:"dial_timeout"`
}

// SettingsConfig locates the persisted settings store.
type SettingsConfig struct {
	Driver        string `mapstructure:"driver"`
	Path          string `mapstructure:"path"`
	EncryptionKey string `mapstructure:"encryption_key"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	MetricsEndpoint string        `mapstructure:"metrics_endpoint"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// CredentialHosts lists host patterns that may receive configured
	// credentials through HTTP requests. Empty withholds them from every host.
	CredentialHosts []string `mapstructure:"credential_hosts"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v, err := NewViper(paths...)
	if err != nil {
		return nil, err
	}
	return Decode(v)
}

// NewViper reads config.yaml from ./config and the given directories, layered
// over defaults and SFTPFS_ environment variables.
func NewViper(paths ...string) (*viper.Viper, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("SFTPFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	return v, nil
}

// Decode unmarshals v into a Config.
func Decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")

	v.SetDefault("sftp.identity_file", "")
	v.SetDefault("sftp.private_key", "")
	v.SetDefault("sftp.private_key_password", "")
	v.SetDefault("sftp.username", "")
	v.SetDefault("sftp.password", "")
	v.SetDefault("sftp.known_hosts_file", "")
	v.SetDefault("sftp.max_packet", 32768)
	v.SetDefault("sftp.dial_timeout", "0s")

	v.SetDefault("settings.driver", "sqlite")
	v.SetDefault("settings.path", "./data/sftpfs.sqlite")
	v.SetDefault("settings.encryption_key", "")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.metrics_endpoint", "/metrics")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.credential_hosts", []string{})
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
