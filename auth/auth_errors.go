package auth

import (
	"fmt"
	"net/http"

	"github.com/empowerhr/empower-client/internal/errors"
)

// Sentinels shared with the rest of the client.
var (
	ErrNoRefreshToken = errors.ErrNoRefreshToken
	ErrInvalidToken   = errors.ErrInvalidToken
)

// OAuthError is a structured failure from the token endpoint, carrying the
// error and error_description fields of the OAuth2 error response.
type OAuthError struct {
	Code        string
	Description string
}

func (e *OAuthError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("oauth error: %s", e.Code)
	}
	return fmt.Sprintf("oauth error: %s: %s", e.Code, e.Description)
}

// TransportError is a network or HTTP-level failure reaching the token
// endpoint. StatusCode is zero when no response was received.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// oauthErrorMessages maps the token endpoint's known error codes to the
// strings shown to users. Unknown codes fall back to a generic message.
var oauthErrorMessages = map[string]string{
	"invalid_grant":          "Invalid username or password.",
	"invalid_client":         "Client authentication failed. Please contact support.",
	"unsupported_grant_type": "Login method not supported. Please contact support.",
	"invalid_scope":          "Requested access is not available for this account.",
}

// Message converts an authentication error into a user-facing string.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var oauthErr *OAuthError
	if errors.As(err, &oauthErr) {
		if msg, ok := oauthErrorMessages[oauthErr.Code]; ok {
			return msg
		}
		return "Login failed. Please try again."
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		switch transportErr.StatusCode {
		case http.StatusBadRequest:
			return "Bad Request"
		case http.StatusUnauthorized:
			return "Unauthorized. Please login again."
		case http.StatusForbidden:
			return "Access Forbidden"
		case http.StatusNotFound:
			return "Resource not found"
		case http.StatusInternalServerError:
			return "Internal Server Error"
		default:
			return "An error occurred"
		}
	}

	switch {
	case errors.Is(err, ErrNoRefreshToken):
		return "Your session has ended. Please login again."
	case errors.Is(err, ErrInvalidToken):
		return "Login failed. Please try again."
	}

	return "An error occurred"
}
