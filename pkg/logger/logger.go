// Package logger provides the structured logger shared by every component.
// It is a thin layer over logrus that fixes the service field and the
// formatter so that CLI and stub server output look the same.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus logger bound to one service name.
type Logger struct {
	*logrus.Logger
	service string
}

// Config configures a Logger.
type Config struct {
	Service string
	// Level is one of trace, debug, info, warn, error. Defaults to info.
	Level string
	// Format is "text" or "json". Defaults to text.
	Format string
	Output io.Writer
}

// New creates a logger from cfg.
func New(cfg Config) *Logger {
	base := logrus.New()

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	base.SetOutput(out)

	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	base.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		base.SetFormatter(&logrus.JSONFormatter{})
	} else {
		base.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		})
	}

	return &Logger{Logger: base, service: cfg.Service}
}

// NewDefault creates an info-level text logger for service.
func NewDefault(service string) *Logger {
	return New(Config{Service: service})
}

// NewDiscard creates a logger that drops everything. Used by tests.
func NewDiscard(service string) *Logger {
	return New(Config{Service: service, Output: io.Discard})
}

// Service returns the service name the logger is bound to.
func (l *Logger) Service() string {
	return l.service
}

// WithField returns an entry carrying the service field and key=value.
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.entry().WithField(key, value)
}

// WithFields returns an entry carrying the service field and fields.
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	return l.entry().WithFields(logrus.Fields(fields))
}

// WithError returns an entry carrying the service field and err.
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.entry().WithError(err)
}

// Named derives a logger for a sub-component sharing output and level.
func (l *Logger) Named(component string) *Logger {
	name := component
	if l.service != "" {
		name = l.service + "." + component
	}
	return &Logger{Logger: l.Logger, service: name}
}

func (l *Logger) entry() *logrus.Entry {
	if l.service == "" {
		return logrus.NewEntry(l.Logger)
	}
	return l.Logger.WithField("service", l.service)
}

// OrDefault returns l, or a default logger for service when l is nil.
func OrDefault(l *Logger, service string) *Logger {
	if l != nil {
		return l
	}
	return NewDefault(service)
}
