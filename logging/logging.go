// Package logging builds the zap logger used by ipcwire.
package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bjaus/ipcwire/config"
)

// New builds a logger from cfg. ProdOnly keeps error logs only; otherwise
// debug logs are enabled unless Level says otherwise.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	var zc zap.Config
	if strings.EqualFold(cfg.Encoding, "json") {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(Level(cfg))
	return zc.Build()
}

// Level returns the minimum level cfg enables.
func Level(cfg config.LogConfig) zapcore.Level {
	if cfg.Level != "" {
		if lvl, err := zapcore.ParseLevel(strings.ToLower(cfg.Level)); err == nil {
			return lvl
		}
	}
	if cfg.ProdOnly {
		return zapcore.ErrorLevel
	}
	return zapcore.DebugLevel
}

// Default builds a logger from the environment, falling back to a no-op
// logger when the environment is invalid.
func Default() *zap.Logger {
	cfg, err := config.FromEnv()
	if err != nil {
		return zap.NewNop()
	}
	logger, err := New(cfg.Log)
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
