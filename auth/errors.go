package auth

import "errors"

// Signup errors
var (
	ErrInvalidName     = errors.New("invalid-name")
	ErrInvalidEmail    = errors.New("invalid-email")
	ErrWeakPassword    = errors.New("weak-password")
	ErrPasswordTooLong = errors.New("password-too-long")
)

// Login errors
var (
	ErrMissingPassword   = errors.New("missing-password")
	ErrIncorrectPassword = errors.New("incorrect-password")
)
