package authcode

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/deepgram/schwab-mcp/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenServer(t *testing.T, status int, body string) (*httptest.Server, *url.Values) {
	t.Helper()
	var form url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		r.ParseForm()
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server, &form
}

func newTestService(t *testing.T, tokenURL, callbackURL string) (*Service, *auth.FileStore) {
	t.Helper()
	store := auth.NewFileStore(filepath.Join(t.TempDir(), "token.json"))
	svc := NewService(Settings{
		ClientID:     "client",
		ClientSecret: "secret",
		AuthorizeURL: "https://auth.example.com/v1/oauth/authorize",
		TokenURL:     tokenURL,
		CallbackURL:  callbackURL,
	}, store)
	return svc, store
}

func TestAuthURL(t *testing.T) {
	svc, _ := newTestService(t, "https://auth.example.com/token", "https://127.0.0.1:8182/callback")

	u, err := url.Parse(svc.AuthURL("abc"))
	require.NoError(t, err)

	assert.Equal(t, "auth.example.com", u.Host)
	assert.Equal(t, "/v1/oauth/authorize", u.Path)
	q := u.Query()
	assert.Equal(t, "client", q.Get("client_id"))
	assert.Equal(t, "https://127.0.0.1:8182/callback", q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "abc", q.Get("state"))
}

func TestParseRedirect(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantCode  string
		wantState string
		wantErr   bool
	}{
		{"code and state", "https://127.0.0.1:8182/callback?code=C0DE%40&state=s1", "C0DE@", "s1", false},
		{"code only", " https://127.0.0.1/callback?code=abc ", "abc", "", false},
		{"missing code", "https://127.0.0.1:8182/callback?state=s1", "", "", true},
		{"denied", "https://127.0.0.1:8182/callback?error=access_denied", "", "", true},
		{"garbage", "://nope", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, state, err := ParseRedirect(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantState, state)
		})
	}
}

func TestExchangePersistsToken(t *testing.T) {
	server, form := newTokenServer(t, http.StatusOK,
		`{"access_token":"at","refresh_token":"rt","expires_in":1800,"token_type":"Bearer"}`)
	svc, store := newTestService(t, server.URL, "https://127.0.0.1:8182/callback")

	before := time.Now()
	token, err := svc.Exchange(context.Background(), "the-code")
	require.NoError(t, err)

	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, "the-code", form.Get("code"))
	assert.Equal(t, "https://127.0.0.1:8182/callback", form.Get("redirect_uri"))

	assert.Equal(t, "at", token.AccessToken)
	assert.Equal(t, "rt", token.RefreshToken)
	assert.InDelta(t, float64(before.Unix()+1800), token.ExpiresAt, 5)

	saved, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, token, *saved)
}

func TestExchangeRejected(t *testing.T) {
	server, _ := newTokenServer(t, http.StatusBadRequest, `{"error":"invalid_grant"}`)
	svc, store := newTestService(t, server.URL, "https://127.0.0.1:8182/callback")

	_, err := svc.Exchange(context.Background(), "stale-code")

	var authErr *auth.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusBadRequest, authErr.StatusCode)
	assert.Contains(t, authErr.Body, "invalid_grant")

	saved, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, saved)
}

func TestExchangeMissingRefreshToken(t *testing.T) {
	server, _ := newTokenServer(t, http.StatusOK, `{"access_token":"at","expires_in":1800}`)
	svc, _ := newTestService(t, server.URL, "https://127.0.0.1:8182/callback")

	_, err := svc.Exchange(context.Background(), "code")

	var authErr *auth.AuthError
	assert.ErrorAs(t, err, &authErr)
}

func TestCallbackHandler(t *testing.T) {
	svc, _ := newTestService(t, "https://auth.example.com/token", "https://127.0.0.1:8182/callback")

	t.Run("delivers code", func(t *testing.T) {
		results := make(chan callbackResult, 1)
		w := httptest.NewRecorder()
		svc.callbackHandler("s1", results).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/callback?code=abc&state=s1", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		r := <-results
		require.NoError(t, r.err)
		assert.Equal(t, "abc", r.code)
	})

	t.Run("state mismatch", func(t *testing.T) {
		results := make(chan callbackResult, 1)
		w := httptest.NewRecorder()
		svc.callbackHandler("s1", results).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/callback?code=abc&state=other", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.ErrorIs(t, (<-results).err, ErrStateMismatch)
	})

	t.Run("denied", func(t *testing.T) {
		results := make(chan callbackResult, 1)
		w := httptest.NewRecorder()
		svc.callbackHandler("", results).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/callback?error=access_denied", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), `"error":"access_denied"`)
		assert.ErrorIs(t, (<-results).err, ErrAccessDenied)
	})

	t.Run("other paths", func(t *testing.T) {
		results := make(chan callbackResult, 1)
		w := httptest.NewRecorder()
		svc.callbackHandler("", results).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Empty(t, results)
	})
}

func TestWaitForCode(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	svc, _ := newTestService(t, "https://auth.example.com/token", "http://"+addr+"/callback")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		for i := 0; i < 50; i++ {
			resp, err := http.Get("http://" + addr + "/callback?code=xyz&state=s1")
			if err == nil {
				resp.Body.Close()
				return
			}
			time.Sleep(20 * time.Millisecond)
		}
	}()

	code, err := svc.WaitForCode(ctx, "s1", "", "")
	require.NoError(t, err)
	assert.Equal(t, "xyz", code)
}

func TestWaitForCodeRequiresTLSFiles(t *testing.T) {
	svc, _ := newTestService(t, "https://auth.example.com/token", "https://127.0.0.1:8182/callback")

	_, err := svc.WaitForCode(context.Background(), "", "", "")
	assert.ErrorIs(t, err, ErrTLSRequired)
}
