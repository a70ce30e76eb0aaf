// Package logging builds the logr.Logger used across monitorbuf, backed by zap.
package logging

import (
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	uberzap "go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbosity levels passed to logger.V().
const (
	DEFAULT = 2
	VERBOSE = 3
	DEBUG   = 4
	TRACE   = 5

	// MaxVerbosity is the highest verbosity zap can represent as a level.
	MaxVerbosity = 127
)

// NewLogger returns a zap backed logr.Logger that emits every V(level) with level <= verbosity.
// development switches to the human readable console encoder.
// verbosity is clamped to [0, MaxVerbosity].
func NewLogger(verbosity int, development bool) (logr.Logger, error) {
	verbosity = min(max(verbosity, 0), MaxVerbosity)
	var cfg uberzap.Config
	if development {
		cfg = uberzap.NewDevelopmentConfig()
	} else {
		cfg = uberzap.NewProductionConfig()
		cfg.Sampling = nil
	}
	// logr V(n) maps to zap level -n.
	cfg.Level = uberzap.NewAtomicLevelAt(zapcore.Level(int8(-1 * verbosity)))

	zl, err := cfg.Build(uberzap.AddCaller())
	if err != nil {
		return logr.Discard(), err
	}
	return zapr.NewLogger(zl), nil
}

// Sync flushes any buffered entries of a zap backed logger. Other loggers are left alone.
func Sync(logger logr.Logger) error {
	if u, ok := logger.GetSink().(zapr.Underlier); ok {
		return u.GetUnderlying().Sync()
	}
	return nil
}

// NewTestLogger creates a new Zap logger using the dev mode.
func NewTestLogger() logr.Logger {
	logger, err := NewLogger(TRACE, true)
	if err != nil {
		return logr.Discard()
	}
	return logger
}
