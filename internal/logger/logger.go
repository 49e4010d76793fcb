// Package logger builds the zap logger shared by the console and HTTP
// front ends and carries request-scoped loggers through contexts.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	EnvProd  = "prod"
	EnvDev   = "dev"
	EnvLocal = "local"
)

// New builds the process logger. An optional level ("debug", "warn", ...)
// replaces the profile's default. Output goes to stderr so the chat REPL
// keeps stdout to itself.
func New(env string, level ...string) (*zap.Logger, error) {
	cfg, err := profile(env)
	if err != nil {
		return nil, err
	}

	if len(level) > 0 && level[0] != "" {
		lvl, err := zapcore.ParseLevel(level[0])
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level[0], err)
		}
		cfg.Level.SetLevel(lvl)
	}

	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	l, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return l.Named("docqa"), nil
}

func profile(env string) (zap.Config, error) {
	switch env {
	case EnvProd:
		return zap.NewProductionConfig(), nil
	case EnvDev, EnvLocal:
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg, nil
	}
	return zap.Config{}, fmt.Errorf("unknown logger environment %q", env)
}
