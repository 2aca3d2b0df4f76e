package config

import (
	"github.com/deepgram/schwab-mcp/pkg/logger"
	"github.com/spf13/viper"
)

// RedisConfig enables the shared refresh lock when URL is set.
type RedisConfig struct {
	URL      string
	Password string
}

func loadRedisConfig(v *viper.Viper) RedisConfig {
	logger.Debug(logger.CONFIG, "Attempting to retrieve Redis URL from environment")
	cfg := RedisConfig{
		URL:      getEnvOrDefault(v, "REDIS_URL", ""),
		Password: getEnvOrDefault(v, "REDIS_PASSWORD", ""),
	}
	if cfg.URL == "" {
		logger.Debug(logger.CONFIG, "Redis URL not set - refresh lock is process-local")
	} else {
		logger.Info(logger.CONFIG, "Redis URL successfully loaded")
	}
	return cfg
}
