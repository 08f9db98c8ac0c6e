package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New cria o logger estruturado do serviço.
// ENV=local usa config de desenvolvimento; LOG_LEVEL (debug|info|warn|error) sobrescreve o nível.
func New(serviceName string, env string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if env == "local" {
		cfg = zap.NewDevelopmentConfig()
	}

	if lvl, ok := os.LookupEnv("LOG_LEVEL"); ok {
		if parsed, err := zapcore.ParseLevel(lvl); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(parsed)
		}
	}

	// sempre garantir que serviço e env entrem como campos padrão
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build(
		zap.Fields(
			zap.String("service", serviceName),
			zap.String("env", env),
		),
	)
}

// RaceFields são os campos padrão de log por corrida
func RaceFields(eventType, raceKey string) []zap.Field {
	return []zap.Field{zap.String("type", eventType), zap.String("race_key", raceKey)}
}
