package app

import (
	"strings"

	"github.com/charlesng35/sftpfs/pkg/logger"
)

// ConfigureLogging initialises the global logger, defaulting to info and json.
func ConfigureLogging(cfg LogConfig) error {
	level := strings.TrimSpace(cfg.Level)
	if level == "" {
		level = "info"
	}
	return logger.InitWithConfig(logger.Config{
		Level:    level,
		Encoding: cfg.Encoding,
	})
}
