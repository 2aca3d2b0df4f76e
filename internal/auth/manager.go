package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/deepgram/schwab-mcp/pkg/logger"
	"github.com/deepgram/schwab-mcp/pkg/metrics"
	json "github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const maxErrorBody = 64 << 10

var tracer = otel.Tracer("github.com/deepgram/schwab-mcp/internal/auth")

// State describes the in-memory token.
type State string

const (
	StateUnloaded State = "unloaded"
	StateValid    State = "valid"
	StateStale    State = "stale"
)

// Status is a snapshot of the manager for diagnostics.
type Status struct {
	State     State
	ExpiresAt time.Time
	TokenPath string
}

// Manager hands out a valid access token, refreshing it against the OAuth
// token endpoint when it is within ExpiryBuffer of expiring. At most one
// refresh runs per process at a time.
type Manager struct {
	mu sync.Mutex

	clientID     string
	clientSecret string
	tokenURL     string

	store      Store
	locker     RefreshLocker
	httpClient *http.Client
	now        func() time.Time

	token *Token
}

type ManagerOption func(*Manager)

func WithTokenURL(tokenURL string) ManagerOption {
	return func(m *Manager) { m.tokenURL = tokenURL }
}

func WithHTTPClient(client *http.Client) ManagerOption {
	return func(m *Manager) { m.httpClient = client }
}

func WithLocker(locker RefreshLocker) ManagerOption {
	return func(m *Manager) {
		if locker != nil {
			m.locker = locker
		}
	}
}

func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

func NewManager(clientID, clientSecret string, store Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     "https://api.schwabapi.com/v1/oauth/token",
		store:        store,
		locker:       NopLocker{},
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetValidToken returns the current token, loading it from the store on first
// use and refreshing it when stale.
func (m *Manager) GetValidToken(ctx context.Context) (Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureLoaded(); err != nil {
		return Token{}, err
	}

	if !m.token.IsStale(m.now()) {
		return *m.token, nil
	}

	logger.Debug(logger.AUTH, "Token expired, refreshing")
	return m.refreshLocked(ctx, false)
}

// Refresh exchanges the refresh token for a new token regardless of expiry.
func (m *Manager) Refresh(ctx context.Context) (Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureLoaded(); err != nil {
		return Token{}, err
	}
	return m.refreshLocked(ctx, true)
}

// Status reports the manager state without contacting the token endpoint.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := Status{State: StateUnloaded, TokenPath: m.store.Path()}
	if m.token == nil {
		if token, err := m.store.Load(); err == nil && token != nil {
			m.token = token
		}
	}
	if m.token == nil {
		return status
	}

	status.ExpiresAt = m.token.Expiry()
	status.State = StateValid
	if m.token.IsStale(m.now()) {
		status.State = StateStale
	}
	return status
}

// Store returns the backing credential store.
func (m *Manager) Store() Store {
	return m.store
}

// Adopt replaces the in-memory token, for example after an authorization code
// exchange has persisted a new one.
func (m *Manager) Adopt(token Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = &token
}

// ensureLoaded must be called with mu held. A missing token is retried on
// every call so a token written by the auth command is picked up.
func (m *Manager) ensureLoaded() error {
	if m.token != nil {
		return nil
	}

	token, err := m.store.Load()
	if err != nil {
		logger.Error(logger.AUTH, "Failed to load token: %v", err)
	}
	if token == nil {
		return ErrNotAuthenticated
	}

	m.token = token
	return nil
}

// refreshLocked must be called with mu held.
func (m *Manager) refreshLocked(ctx context.Context, force bool) (Token, error) {
	ctx, span := tracer.Start(ctx, "auth.refresh")
	defer span.End()

	unlock, err := m.locker.Lock(ctx, lockKey(m.store.Path()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lock")
		return Token{}, fmt.Errorf("failed to acquire refresh lock: %w", err)
	}
	defer unlock()

	if !force {
		if adopted, ok := m.adoptStored(); ok {
			span.SetAttributes(attribute.Bool("auth.adopted", true))
			metrics.TokenRefreshes.WithLabelValues("adopted").Inc()
			return adopted, nil
		}
	}

	if m.token.RefreshToken == "" {
		return Token{}, ErrNotAuthenticated
	}

	logger.Info(logger.AUTH, "Refreshing access token")
	resp, status, err := m.exchange(ctx, m.token.RefreshToken)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "exchange")
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		logger.Error(logger.AUTH, "Token refresh failed: %v", err)
		return Token{}, err
	}
	if resp.AccessToken == "" || resp.ExpiresIn <= 0 {
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		return Token{}, &AuthError{StatusCode: status, Body: "token response missing access_token or expires_in"}
	}

	token := NewToken(resp, m.now(), m.token.RefreshToken)
	if err := m.store.Save(token); err != nil {
		// The server may already have rotated the refresh token, so the new
		// token is kept in memory even though it could not be written.
		logger.Error(logger.AUTH, "Failed to persist refreshed token: %v", err)
	}
	m.token = &token

	metrics.TokenRefreshes.WithLabelValues("success").Inc()
	logger.Info(logger.AUTH, "Token refreshed successfully, expires at %s", token.Expiry().Format(time.RFC3339))
	return token, nil
}

// adoptStored picks up a fresh token another process wrote while this one
// waited for the refresh lock.
func (m *Manager) adoptStored() (Token, bool) {
	stored, err := m.store.Load()
	if err != nil || stored == nil {
		return Token{}, false
	}
	if stored.AccessToken == m.token.AccessToken || stored.IsStale(m.now()) {
		return Token{}, false
	}

	logger.Info(logger.AUTH, "Adopting token refreshed by another process")
	m.token = stored
	return *stored, true
}

func (m *Manager) exchange(ctx context.Context, refreshToken string) (TokenResponse, int, error) {
	form := url.Values{}
	form.Set("grant_type", GrantTypeRefresh)
	form.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return TokenResponse{}, 0, fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.SetBasicAuth(m.clientID, m.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return TokenResponse{}, 0, fmt.Errorf("failed to make refresh request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return TokenResponse{}, resp.StatusCode, &AuthError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return TokenResponse{}, resp.StatusCode, fmt.Errorf("failed to decode token response: %w", err)
	}
	return tokenResp, resp.StatusCode, nil
}
