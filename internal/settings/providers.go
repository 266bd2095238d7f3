package settings

import (
	"context"

	"github.com/spf13/viper"
)

// Map is a static provider. Keys may be given with or without the sftp_ prefix.
type Map map[string]string

// Setting implements Provider.
func (m Map) Setting(_ context.Context, key string) (string, bool, error) {
	key = Normalize(key)
	if value, ok := m[key]; ok {
		return value, true, nil
	}
	if value, ok := m[LegacyPrefix+key]; ok {
		return value, true, nil
	}
	return "", false, nil
}

// Viper reads settings from the sftp section of a viper configuration.
type Viper struct {
	v *viper.Viper
}

// NewViper wraps v. A nil v never yields values.
func NewViper(v *viper.Viper) *Viper {
	return &Viper{v: v}
}

// Setting implements Provider. Empty strings count as unset.
func (p *Viper) Setting(_ context.Context, key string) (string, bool, error) {
	if p == nil || p.v == nil {
		return "", false, nil
	}
	value := p.v.GetString("sftp." + Normalize(key))
	if value == "" {
		return "", false, nil
	}
	return value, true, nil
}

// Chain asks each provider in order and returns the first value found.
type Chain []Provider

// Setting implements Provider. The first error stops the lookup.
func (c Chain) Setting(ctx context.Context, key string) (string, bool, error) {
	for _, provider := range c {
		if provider == nil {
			continue
		}
		value, found, err := provider.Setting(ctx, key)
		if err != nil {
			return "", false, err
		}
		if found {
			return value, true, nil
		}
	}
	return "", false, nil
}
