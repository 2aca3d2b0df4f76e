package auth

import (
	"time"
)

// ExpiryBuffer is how long before expires_at a token is already treated as stale.
const ExpiryBuffer = 60 * time.Second

const DefaultTokenType = "Bearer"

const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeRefresh           = "refresh_token"
)

// Token is the persisted credential. ExpiresAt is seconds since the epoch.
type Token struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	ExpiresAt    float64 `json:"expires_at"`
	TokenType    string  `json:"token_type"`
}

// TokenResponse is the OAuth token endpoint payload.
type TokenResponse struct {
	AccessToken  string  `json:"access_token"`
	TokenType    string  `json:"token_type"`
	ExpiresIn    float64 `json:"expires_in"`
	RefreshToken string  `json:"refresh_token"`
	Scope        string  `json:"scope,omitempty"`
	IDToken      string  `json:"id_token,omitempty"`
}

// IsStale reports whether now is past expires_at minus the buffer.
// A token exactly at the boundary is still usable.
func (t Token) IsStale(now time.Time) bool {
	return epochSeconds(now) > t.ExpiresAt-ExpiryBuffer.Seconds()
}

// Expiry returns ExpiresAt as a time.Time.
func (t Token) Expiry() time.Time {
	sec := int64(t.ExpiresAt)
	nsec := int64((t.ExpiresAt - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}

// NewToken builds a Token from a token endpoint response issued at now.
// previousRefresh is kept when the response does not rotate the refresh token.
func NewToken(resp TokenResponse, now time.Time, previousRefresh string) Token {
	refresh := resp.RefreshToken
	if refresh == "" {
		refresh = previousRefresh
	}
	tokenType := resp.TokenType
	if tokenType == "" {
		tokenType = DefaultTokenType
	}
	return Token{
		AccessToken:  resp.AccessToken,
		RefreshToken: refresh,
		ExpiresAt:    epochSeconds(now) + resp.ExpiresIn,
		TokenType:    tokenType,
	}
}

func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
