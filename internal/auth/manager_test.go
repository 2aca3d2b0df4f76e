package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type oauthServer struct {
	*httptest.Server
	calls        atomic.Int32
	status       int
	body         string
	omitRefresh  bool
	delay        time.Duration
	lastRefresh  atomic.Value
	lastUser     atomic.Value
	lastPassword atomic.Value
}

func newOAuthServer(t *testing.T) *oauthServer {
	t.Helper()
	s := &oauthServer{status: http.StatusOK}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := s.calls.Add(1)
		if s.delay > 0 {
			time.Sleep(s.delay)
		}

		user, pass, _ := r.BasicAuth()
		s.lastUser.Store(user)
		s.lastPassword.Store(pass)
		if err := r.ParseForm(); err == nil {
			s.lastRefresh.Store(r.PostForm.Get("refresh_token"))
			if r.PostForm.Get("grant_type") != GrantTypeRefresh {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
		}

		if s.status != http.StatusOK {
			w.WriteHeader(s.status)
			fmt.Fprint(w, s.body)
			return
		}

		resp := TokenResponse{
			AccessToken: fmt.Sprintf("access-%d", n),
			TokenType:   "Bearer",
			ExpiresIn:   1800,
		}
		if !s.omitRefresh {
			resp.RefreshToken = fmt.Sprintf("refresh-%d", n)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(s.Close)
	return s
}

func seedStore(t *testing.T, token Token) *FileStore {
	t.Helper()
	store := NewFileStore(filepath.Join(t.TempDir(), "token.json"))
	require.NoError(t, store.Save(token))
	return store
}

// readOnlyStore loads from the wrapped store but refuses every write.
type readOnlyStore struct {
	*FileStore
}

func (readOnlyStore) Save(Token) error {
	return errors.New("read-only file system")
}

func newTestManager(store Store, server *oauthServer, opts ...ManagerOption) *Manager {
	opts = append([]ManagerOption{
		WithTokenURL(server.URL),
		WithClock(func() time.Time { return fixedNow }),
	}, opts...)
	return NewManager("client-id", "client-secret", store, opts...)
}

func TestManagerGetValidToken(t *testing.T) {
	t.Run("valid token is returned without refresh", func(t *testing.T) {
		server := newOAuthServer(t)
		stored := Token{AccessToken: "a", RefreshToken: "r", ExpiresAt: at(3600), TokenType: "Bearer"}
		m := newTestManager(seedStore(t, stored), server)

		token, err := m.GetValidToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, stored, token)
		assert.EqualValues(t, 0, server.calls.Load())
	})

	t.Run("expired token triggers exactly one refresh", func(t *testing.T) {
		server := newOAuthServer(t)
		store := seedStore(t, Token{AccessToken: "old", RefreshToken: "old-refresh", ExpiresAt: at(-100), TokenType: "Bearer"})
		m := newTestManager(store, server)

		token, err := m.GetValidToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "access-1", token.AccessToken)
		assert.Equal(t, "refresh-1", token.RefreshToken)
		assert.Equal(t, at(1800), token.ExpiresAt)
		assert.EqualValues(t, 1, server.calls.Load())

		assert.Equal(t, "old-refresh", server.lastRefresh.Load())
		assert.Equal(t, "client-id", server.lastUser.Load())
		assert.Equal(t, "client-secret", server.lastPassword.Load())

		persisted, err := NewFileStore(store.Path()).Load()
		require.NoError(t, err)
		require.NotNil(t, persisted)
		assert.Equal(t, token, *persisted)

		again, err := m.GetValidToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, token, again)
		assert.EqualValues(t, 1, server.calls.Load())
	})

	t.Run("no stored token is not authenticated", func(t *testing.T) {
		server := newOAuthServer(t)
		m := newTestManager(NewFileStore(filepath.Join(t.TempDir(), "token.json")), server)

		_, err := m.GetValidToken(context.Background())
		assert.ErrorIs(t, err, ErrNotAuthenticated)
		assert.EqualValues(t, 0, server.calls.Load())
	})

	t.Run("token written after startup is picked up", func(t *testing.T) {
		server := newOAuthServer(t)
		store := NewFileStore(filepath.Join(t.TempDir(), "token.json"))
		m := newTestManager(store, server)

		_, err := m.GetValidToken(context.Background())
		require.ErrorIs(t, err, ErrNotAuthenticated)

		require.NoError(t, store.Save(Token{AccessToken: "late", RefreshToken: "r", ExpiresAt: at(3600), TokenType: "Bearer"}))

		token, err := m.GetValidToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "late", token.AccessToken)
	})

	t.Run("rejected refresh keeps the in-memory token", func(t *testing.T) {
		server := newOAuthServer(t)
		server.status = http.StatusUnauthorized
		server.body = `{"error":"invalid_grant"}`
		store := seedStore(t, Token{AccessToken: "old", RefreshToken: "old-refresh", ExpiresAt: at(-100), TokenType: "Bearer"})
		m := newTestManager(store, server)

		_, err := m.GetValidToken(context.Background())
		var authErr *AuthError
		require.True(t, errors.As(err, &authErr))
		assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
		assert.Equal(t, `{"error":"invalid_grant"}`, authErr.Body)

		_, err = m.GetValidToken(context.Background())
		require.Error(t, err)
		assert.EqualValues(t, 2, server.calls.Load())
		assert.Equal(t, "old-refresh", server.lastRefresh.Load())
		assert.Equal(t, StateStale, m.Status().State)
	})

	t.Run("refresh without rotated refresh token keeps the old one", func(t *testing.T) {
		server := newOAuthServer(t)
		server.omitRefresh = true
		store := seedStore(t, Token{AccessToken: "old", RefreshToken: "keep-me", ExpiresAt: at(-100), TokenType: "Bearer"})
		m := newTestManager(store, server)

		token, err := m.GetValidToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "access-1", token.AccessToken)
		assert.Equal(t, "keep-me", token.RefreshToken)
	})

	t.Run("save failure keeps the refreshed token in memory", func(t *testing.T) {
		server := newOAuthServer(t)
		store := seedStore(t, Token{AccessToken: "old", RefreshToken: "old-refresh", ExpiresAt: at(-100), TokenType: "Bearer"})
		m := newTestManager(readOnlyStore{store}, server)

		token, err := m.GetValidToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "access-1", token.AccessToken)

		again, err := m.GetValidToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, token, again)
		assert.EqualValues(t, 1, server.calls.Load())

		persisted, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, "old", persisted.AccessToken)
	})

	t.Run("network failure is surfaced", func(t *testing.T) {
		server := newOAuthServer(t)
		store := seedStore(t, Token{AccessToken: "old", RefreshToken: "r", ExpiresAt: at(-100), TokenType: "Bearer"})
		m := newTestManager(store, server)
		server.Close()

		_, err := m.GetValidToken(context.Background())
		require.Error(t, err)
		var authErr *AuthError
		assert.False(t, errors.As(err, &authErr))
	})
}

func TestManagerConcurrentRefresh(t *testing.T) {
	server := newOAuthServer(t)
	server.delay = 50 * time.Millisecond
	store := seedStore(t, Token{AccessToken: "old", RefreshToken: "r", ExpiresAt: at(-100), TokenType: "Bearer"})
	m := newTestManager(store, server)

	const callers = 20
	var wg sync.WaitGroup
	tokens := make(chan Token, callers)
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := m.GetValidToken(context.Background())
			if err != nil {
				errs <- err
				return
			}
			tokens <- token
		}()
	}
	wg.Wait()
	close(tokens)
	close(errs)

	for err := range errs {
		t.Errorf("GetValidToken() error = %v", err)
	}
	for token := range tokens {
		assert.Equal(t, "access-1", token.AccessToken)
	}
	assert.EqualValues(t, 1, server.calls.Load())
}

func TestManagerRefresh(t *testing.T) {
	t.Run("forces a refresh of a valid token", func(t *testing.T) {
		server := newOAuthServer(t)
		store := seedStore(t, Token{AccessToken: "a", RefreshToken: "r", ExpiresAt: at(3600), TokenType: "Bearer"})
		m := newTestManager(store, server)

		token, err := m.Refresh(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "access-1", token.AccessToken)
		assert.EqualValues(t, 1, server.calls.Load())
	})

	t.Run("no token is not authenticated", func(t *testing.T) {
		server := newOAuthServer(t)
		m := newTestManager(NewFileStore(filepath.Join(t.TempDir(), "token.json")), server)

		_, err := m.Refresh(context.Background())
		assert.ErrorIs(t, err, ErrNotAuthenticated)
		assert.EqualValues(t, 0, server.calls.Load())
	})
}

func TestManagerAdoptsTokenFromAnotherProcess(t *testing.T) {
	server := newOAuthServer(t)
	store := seedStore(t, Token{AccessToken: "old", RefreshToken: "r", ExpiresAt: at(-100), TokenType: "Bearer"})

	first := newTestManager(NewFileStore(store.Path()), server)
	second := newTestManager(NewFileStore(store.Path()), server)
	require.Equal(t, StateStale, first.Status().State)
	require.Equal(t, StateStale, second.Status().State)

	refreshed, err := first.GetValidToken(context.Background())
	require.NoError(t, err)

	adopted, err := second.GetValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, refreshed, adopted)
	assert.EqualValues(t, 1, server.calls.Load())
}

type countingLocker struct {
	mu    sync.Mutex
	keys  []string
	calls int
}

func (l *countingLocker) Lock(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	l.keys = append(l.keys, key)
	return func() {}, nil
}

func TestManagerUsesLocker(t *testing.T) {
	server := newOAuthServer(t)
	store := seedStore(t, Token{AccessToken: "old", RefreshToken: "r", ExpiresAt: at(-100), TokenType: "Bearer"})
	locker := &countingLocker{}
	m := newTestManager(store, server, WithLocker(locker))

	_, err := m.GetValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, locker.calls)
	assert.Equal(t, []string{lockKey(store.Path())}, locker.keys)
}

func TestManagerStatus(t *testing.T) {
	server := newOAuthServer(t)

	m := newTestManager(NewFileStore(filepath.Join(t.TempDir(), "token.json")), server)
	assert.Equal(t, StateUnloaded, m.Status().State)

	valid := newTestManager(seedStore(t, Token{AccessToken: "a", RefreshToken: "r", ExpiresAt: at(3600), TokenType: "Bearer"}), server)
	status := valid.Status()
	assert.Equal(t, StateValid, status.State)
	assert.True(t, status.ExpiresAt.Equal(fixedNow.Add(time.Hour)))
}
