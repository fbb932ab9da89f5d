// Package logger builds the zap logger shared by the server and the CLI.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options control the logger shape.
type Options struct {
	Level string
	// Development switches to the colored console encoder.
	Development bool
}

// New returns a console logger in development and a JSON logger otherwise.
// An unparsable level falls back to info.
func New(opts Options) (*zap.Logger, error) {
	var cfg zap.Config
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	level, err := zap.ParseAtomicLevel(opts.Level)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	cfg.Level = level

	log, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return log.With(zap.String("service", "go-proposals")), nil
}

// Must is New with a production fallback, for entrypoints that cannot
// report a logger error anywhere else.
func Must(opts Options) *zap.Logger {
	log, err := New(opts)
	if err != nil {
		log, _ = zap.NewProduction()
	}
	return log
}
