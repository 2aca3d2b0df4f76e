package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/deepgram/schwab-mcp/pkg/logger"
	"github.com/spf13/viper"
)

// newViper reads the process environment and, when present, a dotenv file.
// Environment variables always win over the file.
func newViper(envFile string) (*viper.Viper, error) {
	v := viper.New()
	v.AutomaticEnv()

	if envFile == "" {
		return v, nil
	}
	if _, err := os.Stat(envFile); err != nil {
		logger.Debug(logger.CONFIG, "No env file at %s", envFile)
		return v, nil
	}

	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	logger.Info(logger.CONFIG, "Loaded settings from %s", envFile)
	return v, nil
}

// getEnvOrDefault returns the value of a setting or a default value
func getEnvOrDefault(v *viper.Viper, key, defaultValue string) string {
	value := strings.TrimSpace(v.GetString(key))
	if value == "" && defaultValue == "" {
		logger.Debug(logger.CONFIG, "Empty value and default for setting: %s", key)
	}
	if value == "" {
		return defaultValue
	}
	return value
}

func parseEnvInt(v *viper.Viper, key string, defaultValue int) int {
	val := getEnvOrDefault(v, key, "")
	if val == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		logger.Warn(logger.CONFIG, "Invalid value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return parsed
}

// expandHome resolves a leading ~ against the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		logger.Warn(logger.CONFIG, "Unable to resolve home directory: %v", err)
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
