package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/charlesng35/sftpfs/internal/app"
	"github.com/charlesng35/sftpfs/internal/filesystem"
	"github.com/charlesng35/sftpfs/internal/handlers"
	"github.com/charlesng35/sftpfs/internal/middleware"
	"github.com/charlesng35/sftpfs/internal/settings"
)

const defaultMetricsEndpoint = "/metrics"

// NewRouter builds the Gin engine, wires middleware and registers the file
// routes. store may be nil, in which case the settings listing is not mounted.
func NewRouter(registry *filesystem.Registry, store *settings.Store, cfg *app.Config) (*gin.Engine, error) {
	if registry == nil {
		return nil, fmt.Errorf("filesystem registry must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	metricsPath := strings.TrimSpace(cfg.Server.MetricsEndpoint)
	if metricsPath == "" {
		metricsPath = defaultMetricsEndpoint
	}
	if !strings.HasPrefix(metricsPath, "/") {
		return nil, fmt.Errorf("metrics endpoint %q must start with /", metricsPath)
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics(metricsPath))

	r.GET("/health", handlers.Health(registry))

	api := r.Group("/api")

	filesHandler := handlers.NewFilesHandler(registry)
	files := api.Group("/files")
	{
		files.GET("/content", filesHandler.Content)
		files.HEAD("/content", filesHandler.Content)
		files.GET("/stat", filesHandler.Stat)
		files.GET("/exists", filesHandler.Exists)
	}

	if store != nil {
		api.GET("/settings", handlers.NewSettingsHandler(store).List)
	}

	// Metrics endpoint
	r.GET(metricsPath, gin.WrapH(promhttp.Handler()))

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
