// Package logging builds the zap.Logger every component logs through.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a development-friendly, colorized console logger when
// pretty is true, and a production JSON logger otherwise.
func New(pretty bool) (*zap.Logger, error) {
	if !pretty {
		return zap.NewProduction()
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
