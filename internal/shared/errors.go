package shared

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrLyricsNotFound     = fmt.Errorf("lyrics not found")

	// Process errors
	ErrFatalInit = fmt.Errorf("initialization failed")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// IsAuthError reports whether err means the credential is missing, expired or revoked.
// These require user action and are never retried with backoff.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrNotAuthenticated) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrRefreshFailed) ||
		errors.Is(err, ErrAuthFailed)
}

// IsTransient reports whether err is a network or provider-side failure worth retrying.
func IsTransient(err error) bool {
	if err == nil || IsAuthError(err) {
		return false
	}
	if errors.Is(err, ErrServiceUnavailable) || errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
