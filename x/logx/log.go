// Package logx is the structured logger shared by the PAL packages.
package logx

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Component identifies a subsystem for log filtering.
type Component string

const (
	ComponentI2C      Component = "i2c"
	ComponentLock     Component = "lock"
	ComponentPlatform Component = "platform"
	ComponentConfig   Component = "config"
	ComponentCLI      Component = "cli"
)

// Format selects the handler used by SetFormat.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

var (
	mu     sync.RWMutex
	level  = new(slog.LevelVar)
	logger *slog.Logger
)

func init() {
	level.Set(slog.LevelWarn)
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// SetLevel sets the minimum level for all PAL logging.
func SetLevel(l slog.Level) { level.Set(l) }

// Level returns the current minimum level.
func Level() slog.Level { return level.Level() }

// SetLogger replaces the package logger.
func SetLogger(l *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// Logger returns the package logger.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// SetOutput rebuilds the package logger over w using format.
func SetOutput(w io.Writer, format Format) {
	mu.Lock()
	defer mu.Unlock()
	opts := &slog.HandlerOptions{Level: level}
	switch format {
	case FormatJSON:
		logger = slog.New(slog.NewJSONHandler(w, opts))
	default:
		logger = slog.New(slog.NewTextHandler(w, opts))
	}
}

// ParseLevel maps "debug", "info", "warn", "error" to a slog level.
// Unknown names yield warn.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelWarn
	}
	return l
}

func log(l slog.Level, c Component, msg string, args ...any) {
	lg := Logger()
	if !lg.Enabled(context.Background(), l) {
		return
	}
	lg.Log(context.Background(), l, msg, append([]any{"component", string(c)}, args...)...)
}

func Debug(c Component, msg string, args ...any) { log(slog.LevelDebug, c, msg, args...) }
func Info(c Component, msg string, args ...any)  { log(slog.LevelInfo, c, msg, args...) }
func Warn(c Component, msg string, args ...any)  { log(slog.LevelWarn, c, msg, args...) }
func Error(c Component, msg string, args ...any) { log(slog.LevelError, c, msg, args...) }
