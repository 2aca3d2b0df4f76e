package services

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/deepgram/schwab-mcp/internal/auth"
	"github.com/deepgram/schwab-mcp/internal/config"
	"github.com/deepgram/schwab-mcp/internal/infrastructure/redis"
	"github.com/deepgram/schwab-mcp/internal/infrastructure/schwab"
	"github.com/deepgram/schwab-mcp/internal/services/authcode"
	"github.com/deepgram/schwab-mcp/internal/services/tools"
	"github.com/rs/zerolog/log"
)

var (
	// Mutex for thread-safe initialization
	servicesMu sync.RWMutex
)

type Services struct {
	authCodeService *authcode.Service
	redisService    *redis.Service
	schwabClient    *schwab.Client
	tokenManager    *auth.Manager
	toolExecutor    *tools.ToolExecutor
	toolService     *tools.Service
}

// InitializeServices wires the credential store, token manager, Schwab
// client and tools from settings.
func InitializeServices(settings *config.Settings) (*Services, error) {
	servicesMu.Lock()
	defer servicesMu.Unlock()

	if settings == nil {
		return nil, fmt.Errorf("settings are required")
	}

	log.Info().Msg("Initializing core services")

	store := auth.NewFileStore(settings.TokenPath)
	log.Info().Str("path", store.Path()).Msg("Initializing credential store")

	// Redis is optional and only shares the refresh lock between processes
	redisService := redis.NewService(settings.Redis)
	managerOpts := []auth.ManagerOption{
		auth.WithTokenURL(settings.TokenURL),
		auth.WithHTTPClient(&http.Client{Timeout: settings.Timeout}),
	}
	if redisService != nil {
		log.Info().Msg("Using Redis refresh lock")
		managerOpts = append(managerOpts, auth.WithLocker(redis.NewLocker(redisService)))
	}

	tokenManager := auth.NewManager(settings.ClientID, settings.ClientSecret, store, managerOpts...)
	log.Info().Msg("Initializing token manager")

	schwabClient := schwab.NewClient(tokenManager,
		schwab.WithTimeout(settings.Timeout),
		schwab.WithBaseURLs(settings.TraderURL, settings.MarketURL),
	)
	log.Info().Msg("Initializing Schwab client")

	toolService := tools.NewService()
	toolExecutor := tools.NewToolExecutor(schwabClient,
		tools.WithDefaultAccount(settings.DefaultAccount),
		tools.WithLocation(time.Local),
	)
	log.Info().Int("tools", len(toolService.Definitions())).Msg("Initializing tool service")

	authCodeService := authcode.NewService(authcode.Settings{
		ClientID:     settings.ClientID,
		ClientSecret: settings.ClientSecret,
		AuthorizeURL: settings.AuthorizeURL,
		TokenURL:     settings.TokenURL,
		CallbackURL:  settings.CallbackURL,
	}, store, authcode.WithHTTPClient(&http.Client{Timeout: settings.Timeout}))

	log.Info().Msg("All services initialized successfully")

	return &Services{
		authCodeService: authCodeService,
		redisService:    redisService,
		schwabClient:    schwabClient,
		tokenManager:    tokenManager,
		toolExecutor:    toolExecutor,
		toolService:     toolService,
	}, nil
}

// GetAuthCodeService returns the authorization code service
func (s *Services) GetAuthCodeService() *authcode.Service {
	return s.authCodeService
}

// GetSchwabClient returns the Schwab API client
func (s *Services) GetSchwabClient() *schwab.Client {
	return s.schwabClient
}

// GetTokenManager returns the token lifecycle manager
func (s *Services) GetTokenManager() *auth.Manager {
	return s.tokenManager
}

// GetToolExecutor returns the tool executor
func (s *Services) GetToolExecutor() *tools.ToolExecutor {
	return s.toolExecutor
}

// GetToolService returns the tool service
func (s *Services) GetToolService() *tools.Service {
	return s.toolService
}

// Close releases the Redis connection when one was opened.
func (s *Services) Close() error {
	if s.redisService != nil {
		return s.redisService.Close()
	}
	return nil
}
