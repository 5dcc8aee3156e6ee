package logging

import (
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbosity levels used with logr's V.
const (
	DEFAULT = 0
	// VERBOSE logs community rebuilds and the growth rate search.
	VERBOSE = 1
	// DEBUG logs every enumerated MILP solution.
	DEBUG = 2
)

// New builds a zap backed logger enabled up to V(verbosity). The returned
// function flushes buffered entries.
func New(verbosity int, development bool) (logr.Logger, func(), error) {
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(int8(-verbosity)))
	z, err := cfg.Build(zap.AddCaller())
	if err != nil {
		return logr.Discard(), func() {}, err
	}
	return zapr.NewLogger(z), func() { _ = z.Sync() }, nil
}

// NewTestLogger logs everything in development mode.
func NewTestLogger() logr.Logger {
	logger, _, err := New(DEBUG, true)
	if err != nil {
		return logr.Discard()
	}
	return logger
}
