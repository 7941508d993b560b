package logger

import (
	"sitesupply/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the application logger. Development uses a colored console
// encoder; everything else logs JSON.
func New(appEnv string, cfg config.LoggerConfig) *zap.Logger {
	var zcfg zap.Config
	if appEnv == "development" {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zcfg = zap.NewProductionConfig()
		zcfg.EncoderConfig.TimeKey = "ts"
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	if cfg.Encoding != "" {
		zcfg.Encoding = cfg.Encoding
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}
	zcfg.DisableCaller = cfg.DisableCaller
	zcfg.DisableStacktrace = cfg.DisableStacktrace

	l, err := zcfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}
