// Package xlog provides the structured logger injected through every
// bcmhost layer. The teacher VM logs with bare fmt.Printf; the wider
// retrieved corpus (caddyserver-caddy) standardizes on zap, so the ambient
// logging stack adopts zap instead of hand-rolling one.
package xlog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a development-friendly console logger. Front-ends are expected
// to build their own *zap.Logger (e.g. production JSON) and pass it down;
// New exists so library tests and the cmd/ smoke binaries have a sane
// default without duplicating zap's config boilerplate everywhere.
func New(debug bool) *zap.Logger {
	lvl := zapcore.InfoLevel
	if debug {
		lvl = zapcore.DebugLevel
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	logger, err := cfg.Build()
	if err != nil {
		// zap's development config never fails to build in practice; fall
		// back to a no-op logger rather than panicking a library caller.
		return zap.NewNop()
	}
	return logger
}

// Nop returns a logger that discards everything, for tests that don't care.
func Nop() *zap.Logger { return zap.NewNop() }
