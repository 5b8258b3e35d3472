package errors

import (
	"errors"
	"fmt"
)

// Common error types for the Empower client
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAuthenticated   = errors.New("not authenticated")

	// Token errors
	ErrInvalidToken   = errors.New("invalid identity token")
	ErrNoRefreshToken = errors.New("no refresh token stored")
	ErrNoAccessToken  = errors.New("token response missing access_token")

	// Storage errors
	ErrNotFound    = errors.New("not found")
	ErrSealedValue = errors.New("sealed value cannot be opened")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
