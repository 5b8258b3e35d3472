package api

import "fmt"

// Error is a failed API call: either a non-2xx response (StatusCode set) or
// a network failure (Err set).
type Error struct {
	StatusCode int
	Message    string
	Detail     string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error: %s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorResponse is the backend's error body shape.
type ErrorResponse struct {
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
	Message          string `json:"message,omitempty"`
	StatusCode       int    `json:"statusCode,omitempty"`
}
