package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/deepgram/schwab-mcp/pkg/logger"
)

const (
	DefaultCallbackURL  = "https://127.0.0.1:8182/callback"
	DefaultTokenPath    = "~/.schwab-mcp/token.json"
	DefaultLogLevel     = "INFO"
	DefaultTimeout      = 30 * time.Second
	DefaultTokenURL     = "https://api.schwabapi.com/v1/oauth/token"
	DefaultAuthorizeURL = "https://api.schwabapi.com/v1/oauth/authorize"
	DefaultTraderURL    = "https://api.schwabapi.com/trader/v1"
	DefaultMarketURL    = "https://api.schwabapi.com/marketdata/v1"
	DefaultEnvFile      = ".env"
)

var ErrMissingCredentials = errors.New("SCHWAB_CLIENT_ID and SCHWAB_CLIENT_SECRET must be set")

// Settings is the process configuration.
type Settings struct {
	ClientID       string
	ClientSecret   string
	CallbackURL    string
	TokenPath      string
	DefaultAccount string
	Timeout        time.Duration

	LogLevel  string
	LogFormat string

	TokenURL     string
	AuthorizeURL string
	TraderURL    string
	MarketURL    string

	Redis RedisConfig

	OTLPEndpoint string
}

// Load reads settings from the environment and the optional env file.
// Client credentials are required.
func Load(envFile string) (*Settings, error) {
	v, err := newViper(envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
	}

	s := &Settings{
		ClientID:       getEnvOrDefault(v, "SCHWAB_CLIENT_ID", ""),
		ClientSecret:   getEnvOrDefault(v, "SCHWAB_CLIENT_SECRET", ""),
		CallbackURL:    getEnvOrDefault(v, "SCHWAB_CALLBACK_URL", DefaultCallbackURL),
		TokenPath:      expandHome(getEnvOrDefault(v, "SCHWAB_TOKEN_PATH", DefaultTokenPath)),
		DefaultAccount: getEnvOrDefault(v, "SCHWAB_DEFAULT_ACCOUNT", ""),
		Timeout:        time.Duration(parseEnvInt(v, "SCHWAB_TIMEOUT", int(DefaultTimeout/time.Second))) * time.Second,
		LogLevel:       getEnvOrDefault(v, "LOG_LEVEL", DefaultLogLevel),
		LogFormat:      getEnvOrDefault(v, "LOG_FORMAT", "console"),
		TokenURL:       getEnvOrDefault(v, "SCHWAB_TOKEN_URL", DefaultTokenURL),
		AuthorizeURL:   getEnvOrDefault(v, "SCHWAB_AUTHORIZE_URL", DefaultAuthorizeURL),
		TraderURL:      getEnvOrDefault(v, "SCHWAB_TRADER_URL", DefaultTraderURL),
		MarketURL:      getEnvOrDefault(v, "SCHWAB_MARKET_URL", DefaultMarketURL),
		Redis:          loadRedisConfig(v),
		OTLPEndpoint:   getEnvOrDefault(v, "OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if s.ClientID == "" || s.ClientSecret == "" {
		logger.Error(logger.CONFIG, "Schwab client credentials are not configured")
		return nil, ErrMissingCredentials
	}

	logger.Debug(logger.CONFIG, "Token path: %s, timeout: %s", s.TokenPath, s.Timeout)
	return s, nil
}
