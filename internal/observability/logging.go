// Package observability builds the daemon's structured loggers. There is
// no separate metrics or tracing stack; the event log is the system of
// record and logging is the runtime signal.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/grumblebean/brawl/internal/config"
)

// NewLogger builds the daemon's root logger. Component loggers derive from
// it with fields like guild_id and encounter_id, so the format and level
// chosen here apply daemon-wide.
//
// JSON is the production shape and samples repeated lines: engines emit a
// debug line per state transition and one tick can touch every live
// encounter. Console is for local runs and keeps every line.
//
// Precondition: cfg.Level is "debug", "info", "warn", or "error";
// cfg.Format is "json" or "console".
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "json":
		zapCfg = zap.NewProductionConfig()
		zapCfg.Sampling = &zap.SamplingConfig{Initial: 50, Thereafter: 100}
		zapCfg.InitialFields = map[string]interface{}{"service": "brawld"}
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("unknown log format %q (want json or console)", cfg.Format)
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}
