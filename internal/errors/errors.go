package errors

import (
	"errors"
	"fmt"
)

// Common error types for the dashboard gateway
var (
	// Identity provider errors
	ErrInitTimeout       = errors.New("identity provider initialization timeout")
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrUnknownProvider   = errors.New("unknown or disabled identity provider")
	ErrInvalidState      = errors.New("invalid state parameter")
	ErrInvalidNonce      = errors.New("invalid nonce")
	ErrCallbackError     = errors.New("identity provider returned an error")
	ErrMissingIDToken    = errors.New("no id_token in token response")
	ErrNoRefreshToken    = errors.New("no refresh token")
	ErrNoEndSession      = errors.New("provider has no end_session_endpoint")
	ErrProviderResponded = errors.New("unexpected identity provider response")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrTokenRequired   = errors.New("an access token is required for a live session")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrInternal    = errors.New("internal error")
	ErrUnsupported = errors.New("unsupported operation")
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
