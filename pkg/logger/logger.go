package logger

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	globalLogger *zap.Logger
	mu           sync.RWMutex
)

func init() { // library callers that never call Init get a silent logger
	globalLogger = zap.NewNop()
}

// Config selects the level and output encoding of the global logger.
type Config struct {
	Level       string
	Encoding    string // json or console
	Development bool
}

// Init configures the global logger using the provided level string.
func Init(level string) error {
	return InitWithConfig(Config{Level: level})
}

// InitWithConfig configures the global logger from cfg. Unknown levels fall
// back to info, unknown encodings to json.
func InitWithConfig(cfg Config) error {
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(strings.TrimSpace(cfg.Level))); err != nil {
		zapLevel = zapcore.InfoLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(zapLevel)

	switch strings.ToLower(strings.TrimSpace(cfg.Encoding)) {
	case "console":
		zcfg.Encoding = "console"
	case "json":
		zcfg.Encoding = "json"
	}
	zcfg.OutputPaths = []string{"stderr"}

	logger, err := zcfg.Build()
	if err != nil {
		return err
	}

	Set(logger)
	return nil
}

// Set replaces the global logger. A nil logger resets it to a nop logger.
func Set(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}

	mu.Lock()
	defer mu.Unlock()

	globalLogger = logger
}

// Logger returns the configured global logger.
func Logger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()

	return globalLogger
}

// Sync flushes buffered log entries.
func Sync() error {
	return Logger().Sync()
}

// WithModule returns a child logger annotated with the module name.
func WithModule(module string) *zap.Logger {
	return Logger().With(zap.String("module", module))
}

// Info logs an informational message using the global logger.
func Info(msg string, fields ...zap.Field) {
	Logger().Info(msg, fields...)
}

// Error logs an error message using the global logger.
func Error(msg string, fields ...zap.Field) {
	Logger().Error(msg, fields...)
}

// Warn logs a warning message using the global logger.
func Warn(msg string, fields ...zap.Field) {
	Logger().Warn(msg, fields...)
}

// Debug logs a debug message using the global logger.
func Debug(msg string, fields ...zap.Field) {
	Logger().Debug(msg, fields...)
}
