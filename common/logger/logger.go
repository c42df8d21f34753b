package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger provides the unified logging facade for the QA pipeline. Components
// log through the package-level functions; the zap backend can be swapped for
// tests.

// LogLevel represents log severity levels.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	mu      sync.RWMutex
	current = LevelInfo
	sugar   = newDefault()
)

func newDefault() *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	cfg.DisableStacktrace = true
	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

// SetLevel sets the minimum log level.
func SetLevel(level LogLevel) {
	mu.Lock()
	current = level
	mu.Unlock()
}

// SetBackend replaces the zap logger, e.g. with zaptest in unit tests.
func SetBackend(l *zap.Logger) {
	mu.Lock()
	sugar = l.Sugar()
	mu.Unlock()
}

// Disable routes all output to a no-op logger.
func Disable() {
	SetBackend(zap.NewNop())
}

func backend(level LogLevel) (*zap.SugaredLogger, bool) {
	mu.RLock()
	defer mu.RUnlock()
	if level < current {
		return nil, false
	}
	return sugar, true
}

// Debugf logs a debug message.
func Debugf(format string, args ...any) {
	if l, ok := backend(LevelDebug); ok {
		l.Debugf(format, args...)
	}
}

// Infof logs an info message.
func Infof(format string, args ...any) {
	if l, ok := backend(LevelInfo); ok {
		l.Infof(format, args...)
	}
}

// Warnf logs a warning message.
func Warnf(format string, args ...any) {
	if l, ok := backend(LevelWarn); ok {
		l.Warnf(format, args...)
	}
}

// Errorf logs an error message.
func Errorf(format string, args ...any) {
	if l, ok := backend(LevelError); ok {
		l.Errorf(format, args...)
	}
}
