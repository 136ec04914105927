// Package common defines shared constants and sentinel errors used across
// DriveGuard components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Validation errors (bad local input).
	ErrorValidation   = errors.New("validation error")
	ErrorFileTooLarge = errors.New("file exceeds maximum allowed size")
	ErrorEmptyName    = errors.New("file name must not be empty")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
