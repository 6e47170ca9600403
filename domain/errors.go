package domain

import "errors"

// storage
var (
	ErrDuplicateEmail       = errors.New("duplicate-email")
	ErrUserNotFound         = errors.New("user-not-found")
	ErrDurableRoomNotFound  = errors.New("durable-room-not-found")
	ErrDuplicateRoomCode    = errors.New("duplicate-room-code")
	UnexpectedDatabaseError = errors.New("unexpected-database-error")
)

// hashing
var (
	UnexpectedPasswordHashingError        = errors.New("unexpected-password-hashing-error")
	UnexpectedPasswordHashComparisonError = errors.New("unexpected-password-hash-comparison-error")
)

// tokens
var (
	ErrInvalidSigningAlg             = errors.New("invalid-signing-alg")
	ErrExpiredToken                  = errors.New("expired-token")
	ErrInvalidTokenSignature         = errors.New("invalid-token-signature")
	ErrCorruptedToken                = errors.New("corrupted-token")
	UnexpectedTokenGenerationError   = errors.New("unexpected-token-generation-error")
	UnexpectedTokenVerificationError = errors.New("unexpected-token-verification-error")
)
