// Package logger wraps logrus for the edge runtime's own diagnostic output —
// the host process's startup/shutdown/ingress logging, and the per-Runtime
// logger each app's op handlers write to via runtime.Config.Logger. Kept as
// its own package (rather than folded into edgejs/runtime) because both
// cmd/edge-runtime and several edgejs packages construct loggers before any
// Runtime exists.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger wraps *logrus.Logger, tagging every entry with the component that
// created it (the host process, or "app:version" for a per-Runtime logger).
type Logger struct {
	*logrus.Logger
	component string
}

// LoggingConfig parameters logger construction. Mirrors edgejs/config's
// flat, env-overridable style.
type LoggingConfig struct {
	Component  string `mapstructure:"component"`
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePrefix string `mapstructure:"file_prefix"`
}

// New builds a Logger from cfg. An unparseable Level falls back to Info;
// Format defaults to text, Output to stdout.
func New(cfg LoggingConfig) *Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	switch strings.ToLower(cfg.Output) {
	case "file":
		if cfg.FilePrefix == "" {
			cfg.FilePrefix = "edge-runtime"
		}
		logDir := "logs"
		if err := os.MkdirAll(logDir, 0755); err != nil {
			log.Errorf("logger: create log directory: %v", err)
		} else {
			logPath := filepath.Join(logDir, cfg.FilePrefix+".log")
			file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				log.Errorf("logger: open log file: %v", err)
			} else {
				log.SetOutput(io.MultiWriter(os.Stdout, file))
			}
		}
	default:
		log.SetOutput(os.Stdout)
	}

	return &Logger{Logger: log, component: cfg.Component}
}

// NewDefault builds a Logger at info level, text format, stdout output,
// tagged with component (e.g. the app's "name:version" ID, or "host" for the
// top-level process logger).
func NewDefault(component string) *Logger {
	log := logrus.New()
	log.SetLevel(logrus.InfoLevel)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	log.SetOutput(os.Stdout)

	return &Logger{Logger: log, component: component}
}

// WithField returns a log entry carrying key plus the logger's component
// field, if one was set.
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	if l.component == "" {
		return l.Logger.WithField(key, value)
	}
	return l.Logger.WithFields(logrus.Fields{"component": l.component, key: value})
}

// WithFields returns a log entry carrying fields plus the logger's component
// field, if one was set.
func (l *Logger) WithFields(fields logrus.Fields) *logrus.Entry {
	if l.component == "" {
		return l.Logger.WithFields(fields)
	}
	merged := make(logrus.Fields, len(fields)+1)
	merged["component"] = l.component
	for k, v := range fields {
		merged[k] = v
	}
	return l.Logger.WithFields(merged)
}
