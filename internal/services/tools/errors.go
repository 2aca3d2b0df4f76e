package tools

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/deepgram/schwab-mcp/internal/auth"
	"github.com/deepgram/schwab-mcp/internal/infrastructure/schwab"
	"github.com/deepgram/schwab-mcp/internal/services/tools/models"
)

const (
	ErrorTypeNotAuthenticated = "NotAuthenticated"
	ErrorTypeUpstreamAuth     = "UpstreamAuthError"
	ErrorTypeUpstreamRequest  = "UpstreamRequestError"
	ErrorTypeNetwork          = "NetworkError"
	ErrorTypeInvalidArguments = "InvalidArguments"
	ErrorTypeNoAccounts       = "NoAccounts"
	ErrorTypeInternal         = "InternalError"
)

var (
	ErrNoAccounts  = errors.New("no accounts found")
	ErrUnknownTool = errors.New("unknown tool")
)

// ArgumentError is a tool argument that failed validation.
type ArgumentError struct {
	Field  string
	Reason string
}

func (e *ArgumentError) Error() string {
	if e.Field == "" {
		return "invalid arguments: " + e.Reason
	}
	return fmt.Sprintf("invalid argument %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, v ...interface{}) error {
	return &ArgumentError{Field: field, Reason: fmt.Sprintf(format, v...)}
}

// ErrorType maps an error to the error_type reported to the host.
func ErrorType(err error) string {
	var (
		argErr  *ArgumentError
		authErr *auth.AuthError
		reqErr  *schwab.RequestError
		netErr  net.Error
	)

	switch {
	case errors.Is(err, auth.ErrNotAuthenticated):
		return ErrorTypeNotAuthenticated
	case errors.As(err, &argErr):
		return ErrorTypeInvalidArguments
	case errors.As(err, &authErr):
		return ErrorTypeUpstreamAuth
	case errors.As(err, &reqErr):
		return ErrorTypeUpstreamRequest
	case errors.Is(err, ErrNoAccounts):
		return ErrorTypeNoAccounts
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr):
		return ErrorTypeNetwork
	default:
		return ErrorTypeInternal
	}
}

// NewErrorResult builds the structured failure object for err.
func NewErrorResult(err error) models.ErrorResult {
	return models.ErrorResult{
		Error:     true,
		ErrorType: ErrorType(err),
		Message:   err.Error(),
	}
}
