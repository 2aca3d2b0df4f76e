package httpext

import (
	"net/http"

	"github.com/deepgram/schwab-mcp/pkg/logger"
	json "github.com/goccy/go-json"
)

// OAuth error codes used on the authorization callback.
const (
	ErrInvalidRequest = "invalid_request"
	ErrAccessDenied   = "access_denied"
)

// ErrorResponse is an OAuth style error body.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// JsonError writes a JSON error response with the specified status code
func JsonError(w http.ResponseWriter, message string, code int) {
	JsonErrorWithDetails(w, code, ErrorResponse{Error: message})
}

func JsonErrorWithDetails(w http.ResponseWriter, code int, err ErrorResponse) {
	if err.Error == "" {
		err.Error = ErrInvalidRequest
	}
	JsonResponse(w, code, err)
}

// JsonResponse encodes v as the body. Encoding happens before the status is
// written so a failure can still become a 500.
func JsonResponse(w http.ResponseWriter, code int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		logger.Error(logger.HANDLER, "Failed to encode response: %v", err)
		http.Error(w, `{"error":"server_error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(append(body, '\n'))
}
