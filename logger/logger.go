// Package logger configures the process-wide logrus logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig controls level, format and the optional rotated log file.
type LogConfig struct {
	Level      string
	Format     string // "json" or "text"
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func DefaultConfig() *LogConfig {
	return &LogConfig{
		Level:      "info",
		Format:     "text",
		MaxSizeMB:  50,
		MaxBackups: 5,
		MaxAgeDays: 14,
	}
}

var (
	appLogger = logrus.New()
	mu        sync.Mutex
	rotator   *lumberjack.Logger
)

// Init applies cfg to the application logger. It may be called again to reconfigure.
func Init(cfg *LogConfig) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var formatter logrus.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	if strings.EqualFold(cfg.Format, "json") {
		formatter = &logrus.JSONFormatter{}
	}

	var out io.Writer = os.Stdout
	var next *lumberjack.Logger
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		next = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, next)
	}

	mu.Lock()
	defer mu.Unlock()
	if rotator != nil {
		_ = rotator.Close()
	}
	rotator = next
	appLogger.SetLevel(level)
	appLogger.SetFormatter(formatter)
	appLogger.SetOutput(out)
	return nil
}

func GetAppLogger() *logrus.Logger {
	return appLogger
}

// Component returns an entry tagged with the component name.
func Component(name string) *logrus.Entry {
	return appLogger.WithField("component", name)
}

// Close flushes and closes the rotated log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if rotator == nil {
		return nil
	}
	err := rotator.Close()
	rotator = nil
	return err
}
