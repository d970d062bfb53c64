package auth

import "errors"

var (
	// ErrMissingToken means no credential was presented at all.
	ErrMissingToken = errors.New("access token required")
	// ErrInvalidToken means the credential failed signature, expiry or
	// claim checks.
	ErrInvalidToken = errors.New("invalid token")
)
