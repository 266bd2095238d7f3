package commands

import (
	"context"
	"fmt"

	"github.com/charlesng35/sftpfs/internal/app"
	"github.com/charlesng35/sftpfs/internal/settings"
)

// loadRuntime reads configuration, configures logging and opens the runtime.
// Callers must Close the returned runtime.
func loadRuntime(ctx context.Context, opts *globalOptions) (*app.Runtime, error) {
	dirs, err := app.ConfigDirs(opts.configPath)
	if err != nil {
		return nil, err
	}
	v, err := app.NewViper(dirs...)
	if err != nil {
		return nil, err
	}
	switch {
	case opts.logLevel != "":
		v.Set("log.level", opts.logLevel)
	case !v.InConfig("log.level"):
		// Quieter than the server unless asked for.
		v.SetDefault("log.level", "warn")
	}

	cfg, err := app.Decode(v)
	if err != nil {
		return nil, err
	}
	if err := app.ConfigureLogging(cfg.Log); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	var overrides []settings.Provider
	if flags := opts.credentials(); len(flags) > 0 {
		overrides = append(overrides, flags)
	}
	return app.NewRuntime(ctx, v, cfg, overrides...)
}

// credentials returns the credential flags that were given.
func (o *globalOptions) credentials() settings.Map {
	m := settings.Map{}
	for key, value := range map[string]string{
		settings.KeyUsername:           o.username,
		settings.KeyPassword:           o.password,
		settings.KeyIdentityFile:       o.identityFile,
		settings.KeyPrivateKeyPassword: o.privateKeyPassword,
	} {
		if value != "" {
			m[key] = value
		}
	}
	return m
}
