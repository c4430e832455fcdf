// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service/transport layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict indicates a conditional update matched no row.
	ErrVersionConflict = errors.New("version conflict")

	// ErrUnauthorized indicates failed authentication/authorization.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., username taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates a request failed validation before reaching storage or network.
	ErrInvalidInput = errors.New("invalid input")

	// ErrExpired indicates a one-shot credential (reset token, refresh token) is past its lifetime.
	ErrExpired = errors.New("expired")

	// ErrNoSession indicates no session is bound to the transport.
	ErrNoSession = errors.New("no session")

	// ErrNoRefreshToken indicates a refresh was needed but no refresh token is held.
	ErrNoRefreshToken = errors.New("no refresh token")

	// ErrRefreshFailed indicates the refresh exchange was rejected; the session is gone.
	ErrRefreshFailed = errors.New("token refresh failed")

	// ErrMalformedToken indicates an access token whose claims cannot be decoded.
	ErrMalformedToken = errors.New("malformed token")
)
