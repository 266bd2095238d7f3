package main

import (
	"context"
	"flag"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/charlesng35/sftpfs/pkg/logger"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600))
	return dir
}

func TestBootstrapRuntimeBuildsRouter(t *testing.T) {
	t.Cleanup(func() { logger.Set(nil) })
	dir := writeConfig(t, `
log:
  level: error
settings:
  driver: sqlite
  path: `+filepath.Join(t.TempDir(), "settings.sqlite")+`
server:
  metrics_endpoint: /internal/metrics
`)

	stack, err := bootstrapRuntime(context.Background(), dir, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(zap.NewNop()) })

	require.NotNil(t, stack.Store)
	require.NotNil(t, stack.Registry)

	for _, path := range []string{"/health", "/internal/metrics", "/api/settings"} {
		w := httptest.NewRecorder()
		stack.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestBootstrapRuntimeMissingConfigPath(t *testing.T) {
	_, err := bootstrapRuntime(context.Background(), filepath.Join(t.TempDir(), "absent"), zap.NewNop())
	require.Error(t, err)
}

func TestRunHelp(t *testing.T) {
	err := run(context.Background(), []string{"-h"})
	require.ErrorIs(t, err, flag.ErrHelp)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	t.Cleanup(func() { logger.Set(nil) })
	dir := writeConfig(t, `
log:
  level: error
settings:
  driver: none
server:
  port: 0
  shutdown_timeout: 1s
`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, run(ctx, []string{"-config", dir}))
}
