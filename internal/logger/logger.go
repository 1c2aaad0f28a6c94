// Package logger builds the process-wide zap logger.
package logger

import (
	"github.com/bengobox/church-admin/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a colourised console logger in development and a JSON logger
// elsewhere. Every entry carries the service name and environment. An
// unparseable level means info.
func New(app config.AppConfig) (*zap.Logger, error) {
	var cfg zap.Config
	if app.IsDevelopment() {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	level, err := zapcore.ParseLevel(app.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.InitialFields = map[string]any{
		"service": app.ServiceName,
		"env":     app.Environment,
	}
	return cfg.Build()
}

// ZapError is a helper to avoid importing zap in every package.
func ZapError(err error) zap.Field {
	return zap.Error(err)
}
