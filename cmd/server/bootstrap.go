package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/sftpfs/internal/api"
	"github.com/charlesng35/sftpfs/internal/app"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	*app.Runtime
	Router *gin.Engine
}

// bootstrapRuntime opens the settings store and builds the HTTP router over the
// remote-only registry.
func bootstrapRuntime(ctx context.Context, configPath string, log *zap.Logger) (*runtimeStack, error) {
	dirs, err := app.ConfigDirs(configPath)
	if err != nil {
		return nil, err
	}
	v, err := app.NewViper(dirs...)
	if err != nil {
		return nil, err
	}
	cfg, err := app.Decode(v)
	if err != nil {
		return nil, err
	}

	if err := app.ConfigureLogging(cfg.Log); err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	rt, err := app.NewRuntime(ctx, v, cfg)
	if err != nil {
		return nil, err
	}
	stack := &runtimeStack{Runtime: rt}

	stack.Router, err = api.NewRouter(rt.Remote, rt.Store, cfg)
	if err != nil {
		stack.Shutdown(log)
		return nil, fmt.Errorf("build api router: %w", err)
	}

	return stack, nil
}

// Shutdown releases resources held by the stack.
func (s *runtimeStack) Shutdown(log *zap.Logger) {
	if s == nil {
		return
	}
	log.Debug("releasing runtime resources")
	s.Runtime.Close()
}
