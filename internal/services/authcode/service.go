package authcode

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/deepgram/schwab-mcp/internal/auth"
	"github.com/deepgram/schwab-mcp/pkg/httpext"
	"github.com/deepgram/schwab-mcp/pkg/logger"
	"github.com/gorilla/mux"
	"golang.org/x/oauth2"
)

const shutdownTimeout = 5 * time.Second

var (
	ErrMissingCode   = errors.New("no authorization code found in redirect URL")
	ErrAccessDenied  = errors.New("authorization denied")
	ErrStateMismatch = errors.New("authorization state does not match")
	ErrTLSRequired   = errors.New("callback URL uses https; a certificate and key are required to listen on it")
)

// Settings configures the authorization-code flow.
type Settings struct {
	ClientID     string
	ClientSecret string
	AuthorizeURL string
	TokenURL     string
	CallbackURL  string
}

// Service obtains the initial token out of band: the user authorizes in a
// browser and the code from the redirect is exchanged and persisted.
type Service struct {
	config     *oauth2.Config
	store      auth.Store
	httpClient *http.Client
}

type Option func(*Service)

func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) { s.httpClient = client }
}

func NewService(settings Settings, store auth.Store, opts ...Option) *Service {
	logger.Info(logger.SERVICE, "Initialising authorization code service")

	s := &Service{
		config: &oauth2.Config{
			ClientID:     settings.ClientID,
			ClientSecret: settings.ClientSecret,
			RedirectURL:  settings.CallbackURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:   settings.AuthorizeURL,
				TokenURL:  settings.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		store:      store,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AuthURL returns the page the user opens to authorize the application.
func (s *Service) AuthURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// ParseRedirect extracts the authorization code and state from the URL the
// browser was redirected to.
func ParseRedirect(redirectURL string) (code, state string, err error) {
	u, err := url.Parse(strings.TrimSpace(redirectURL))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse redirect URL: %w", err)
	}

	q := u.Query()
	if reason := q.Get("error"); reason != "" {
		return "", "", fmt.Errorf("%w: %s", ErrAccessDenied, reason)
	}
	code = q.Get("code")
	if code == "" {
		return "", "", ErrMissingCode
	}
	return code, q.Get("state"), nil
}

// Exchange trades an authorization code for a token and saves it.
func (s *Service) Exchange(ctx context.Context, code string) (auth.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)

	logger.Info(logger.OAUTH, "Exchanging authorization code for token")
	tok, err := s.config.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return auth.Token{}, &auth.AuthError{StatusCode: retrieveErr.Response.StatusCode, Body: string(retrieveErr.Body)}
		}
		return auth.Token{}, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	if tok.AccessToken == "" || tok.RefreshToken == "" || tok.Expiry.IsZero() {
		return auth.Token{}, &auth.AuthError{StatusCode: http.StatusOK, Body: "token response missing access_token, refresh_token or expires_in"}
	}

	tokenType := tok.TokenType
	if tokenType == "" {
		tokenType = auth.DefaultTokenType
	}
	token := auth.Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    float64(tok.Expiry.UnixNano()) / float64(time.Second),
		TokenType:    tokenType,
	}

	if err := s.store.Save(token); err != nil {
		return auth.Token{}, fmt.Errorf("failed to save token: %w", err)
	}

	logger.Info(logger.OAUTH, "Token saved to %s", s.store.Path())
	return token, nil
}

type callbackResult struct {
	code string
	err  error
}

// callbackHandler serves the redirect path of the callback URL and delivers
// the first code it receives to results. An empty state skips the check.
func (s *Service) callbackHandler(state string, results chan<- callbackResult) http.Handler {
	path := "/"
	if u, err := url.Parse(s.config.RedirectURL); err == nil && u.Path != "" {
		path = u.Path
	}

	router := mux.NewRouter()
	router.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		code, gotState, err := ParseRedirect(r.URL.String())
		if err == nil && state != "" && gotState != state {
			err = ErrStateMismatch
		}
		if err != nil {
			logger.Warn(logger.OAUTH, "Rejected authorization callback: %v", err)
			reason := httpext.ErrInvalidRequest
			if errors.Is(err, ErrAccessDenied) {
				reason = httpext.ErrAccessDenied
			}
			httpext.JsonErrorWithDetails(w, http.StatusBadRequest, httpext.ErrorResponse{
				Error:            reason,
				ErrorDescription: err.Error(),
			})
			deliver(results, callbackResult{err: err})
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, "Authorization received. You can close this window.")
		deliver(results, callbackResult{code: code})
	}).Methods(http.MethodGet)

	return router
}

func deliver(results chan<- callbackResult, r callbackResult) {
	select {
	case results <- r:
	default:
	}
}

// WaitForCode listens on the callback URL's host and port until a redirect
// arrives or ctx is done. https callbacks need certFile and keyFile.
func (s *Service) WaitForCode(ctx context.Context, state, certFile, keyFile string) (string, error) {
	u, err := url.Parse(s.config.RedirectURL)
	if err != nil {
		return "", fmt.Errorf("invalid callback URL: %w", err)
	}
	secure := u.Scheme == "https"
	if secure && (certFile == "" || keyFile == "") {
		return "", ErrTLSRequired
	}

	results := make(chan callbackResult, 1)
	server := &http.Server{
		Addr:              u.Host,
		Handler:           s.callbackHandler(state, results),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if secure {
		server.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", u.Host, err)
	}

	go func() {
		var serveErr error
		if secure {
			serveErr = server.ServeTLS(ln, certFile, keyFile)
		} else {
			serveErr = server.Serve(ln)
		}
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			deliver(results, callbackResult{err: serveErr})
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info(logger.OAUTH, "Waiting for authorization callback on %s", s.config.RedirectURL)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-results:
		return r.code, r.err
	}
}
