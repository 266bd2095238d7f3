// Package settings supplies fallback credentials for remote endpoints from
// configuration files, static maps or the persisted settings store.
package settings

import (
	"context"
	"slices"
	"strings"

	"github.com/charlesng35/sftpfs/internal/endpoint"
)

// Recognised setting keys.
const (
	KeyIdentityFile       = "identity_file"
	KeyPrivateKey         = "private_key"
	KeyPrivateKeyPassword = "private_key_password"
	KeyUsername           = "username"
	KeyPassword           = "password"
)

// LegacyPrefix is accepted in front of any key, as in sftp_username.
const LegacyPrefix = "sftp_"

var (
	keys       = []string{KeyIdentityFile, KeyPrivateKey, KeyPrivateKeyPassword, KeyUsername, KeyPassword}
	secretKeys = []string{KeyPrivateKey, KeyPrivateKeyPassword, KeyPassword}
)

// Provider looks up a single setting. found is false when the provider has
// no value for key.
type Provider interface {
	Setting(ctx context.Context, key string) (value string, found bool, err error)
}

// Keys returns the recognised setting keys in display order.
func Keys() []string {
	return slices.Clone(keys)
}

// IsSecret reports whether key holds credential material.
func IsSecret(key string) bool {
	return slices.Contains(secretKeys, Normalize(key))
}

// Normalize strips the legacy prefix and surrounding whitespace.
func Normalize(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.TrimPrefix(key, LegacyPrefix)
}

// IsKnown reports whether key (with or without the legacy prefix) is recognised.
func IsKnown(key string) bool {
	return slices.Contains(keys, Normalize(key))
}

// Apply fills the credential fields params left empty from provider. Key
// material and the passphrase are always taken from settings when the
// endpoint has none; username and password are each filled independently.
func Apply(ctx context.Context, provider Provider, params endpoint.Params) (endpoint.Params, error) {
	if provider == nil {
		return params, nil
	}

	var defaults endpoint.Params
	fields := []struct {
		key    string
		set    bool
		target *string
	}{
		{KeyIdentityFile, params.IdentityFile != "", &defaults.IdentityFile},
		{KeyPrivateKey, params.PrivateKey != "", &defaults.PrivateKey},
		{KeyPrivateKeyPassword, params.PrivateKeyPassword != "", &defaults.PrivateKeyPassword},
		{KeyUsername, params.Username != "", &defaults.Username},
		{KeyPassword, params.Password != "", &defaults.Password},
	}

	for _, field := range fields {
		if field.set {
			continue
		}
		value, found, err := provider.Setting(ctx, field.key)
		if err != nil {
			return params, err
		}
		if found {
			*field.target = value
		}
	}

	return params.WithDefaults(defaults), nil
}
