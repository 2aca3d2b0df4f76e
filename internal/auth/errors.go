package auth

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated means no usable token exists and the authorization
// code flow has to be run again.
var ErrNotAuthenticated = errors.New("no token available, run the auth command to authenticate")

// AuthError is a rejected token endpoint exchange.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("token endpoint returned status %d: %s", e.StatusCode, e.Body)
}
