package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/grovetools/phlux/config"
	"github.com/grovetools/phlux/pkg/paths"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex
)

// NewLogger creates and returns a pre-configured logger for a specific component.
// Loggers are cached per component.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}

	var logCfg Config
	if cfg, err := config.LoadOrDefault(); err == nil {
		if err := cfg.UnmarshalExtension("logging", &logCfg); err != nil {
			logrus.Warnf("Failed to parse 'logging' config: %v", err)
		}
	}

	stderr := os.Stderr.Fd()
	interactive := isatty.IsTerminal(stderr) || isatty.IsCygwinTerminal(stderr)

	entry := newLogger(component, logCfg, interactive)
	loggers[component] = entry
	return entry
}

// newLogger builds a logger from an explicit configuration.
func newLogger(component string, logCfg Config, interactive bool) *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(resolveLevel(logCfg))

	if os.Getenv("PHLUX_LOG_CALLER") == "true" || logCfg.ReportCaller {
		logger.SetReportCaller(true)
	}

	switch logCfg.Format.Preset {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "simple":
		logger.SetFormatter(&TextFormatter{Config: FormatConfig{
			DisableTimestamp: true,
			DisableComponent: true,
		}})
	default:
		logger.SetFormatter(&TextFormatter{Config: logCfg.Format})
	}

	var writers []io.Writer

	// The file sink is opt-in
	if logCfg.File.Enabled {
		path := logCfg.File.Path
		if path == "" {
			path = defaultLogPath(component)
		}
		path = expandPath(path)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			logger.Warnf("Failed to create log directory %s: %v", filepath.Dir(path), err)
		} else if file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err != nil {
			logger.Warnf("Failed to open log file %s: %v", path, err)
		} else {
			writers = append(writers, file)
		}
	}

	if toStderr(logCfg.Format.StructuredToStderr, logger.GetLevel(), interactive) {
		writers = append(writers, GetGlobalOutput())
	}

	switch len(writers) {
	case 0:
		logger.SetOutput(io.Discard)
	case 1:
		logger.SetOutput(writers[0])
	default:
		logger.SetOutput(io.MultiWriter(writers...))
	}

	return logger.WithField("component", component)
}

func resolveLevel(logCfg Config) logrus.Level {
	levelStr := "info"
	if env := os.Getenv("PHLUX_LOG_LEVEL"); env != "" {
		levelStr = env
	} else if logCfg.Level != "" {
		levelStr = logCfg.Level
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// toStderr decides whether structured logs reach stderr. In auto mode they do
// when debugging or when stderr is not a terminal (piped, CI).
func toStderr(mode string, level logrus.Level, interactive bool) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	return level >= logrus.DebugLevel || !interactive
}

// SetLevel changes the level of every logger created so far.
func SetLevel(level logrus.Level) {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for _, entry := range loggers {
		entry.Logger.SetLevel(level)
	}
}

// Apply re-reads the logging section of cfg and updates the level of every
// cached logger. Sinks and formats are fixed at creation.
func Apply(cfg *config.Config) error {
	var logCfg Config
	if err := cfg.UnmarshalExtension("logging", &logCfg); err != nil {
		return err
	}
	SetLevel(resolveLevel(logCfg))
	return nil
}

func defaultLogPath(component string) string {
	return filepath.Join(paths.LogsDir(), fmt.Sprintf("%s-%s.log", component, time.Now().Format("2006-01-02")))
}

// expandPath expands tilde in file paths
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
