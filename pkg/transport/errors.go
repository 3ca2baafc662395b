package transport

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// APIError is a non-2xx answer from the remote content store, with the
// server's own message when the body carries one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api: status %d: %s", e.StatusCode, e.Message)
}

func newAPIError(status int, body []byte) *APIError {
	// The server answers errors as {"error": "..."}.
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Message = payload.Error
		if apiErr.Message == "" {
			apiErr.Message = payload.Message
		}
	}
	return apiErr
}

func statusIs(err error, status int) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == status
	}
	return false
}

// IsAuthRequired reports a 401: missing, expired or invalid credentials.
func IsAuthRequired(err error) bool {
	return statusIs(err, http.StatusUnauthorized)
}

// IsPermissionDenied reports a 403: the server refused an operation on
// content the viewer does not own.
func IsPermissionDenied(err error) bool {
	return statusIs(err, http.StatusForbidden)
}

func IsNotFound(err error) bool {
	return statusIs(err, http.StatusNotFound)
}
