// Package logging builds the zap loggers used by the commands.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a development style console logger at Info level, or Debug
// when debug is set. Extra output paths (files) receive the same entries.
func New(debug bool, paths ...string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	if debug {
		cfg.Level.SetLevel(zap.DebugLevel)
	}
	cfg.OutputPaths = append([]string{"stderr"}, paths...)
	return cfg.Build()
}

// Setup builds a logger with New and installs it as the zap global, so
// library packages defaulting to zap.L() log through it. The returned
// function flushes and restores the previous global.
func Setup(debug bool, paths ...string) (*zap.Logger, func(), error) {
	logger, err := New(debug, paths...)
	if err != nil {
		return nil, nil, err
	}
	undo := zap.ReplaceGlobals(logger)
	return logger, func() {
		_ = logger.Sync()
		undo()
	}, nil
}
