// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across client and server layers.
var (
	// ErrUnauthorized indicates an expired, missing or invalid access token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNoRefreshToken indicates that no refresh token is persisted anywhere;
	// the session must fall back to anonymous.
	ErrNoRefreshToken = errors.New("no refresh token")

	// ErrMissingAccessToken indicates an authenticated action was attempted
	// without an access token available.
	ErrMissingAccessToken = errors.New("missing access token")

	// ErrRefreshFailed indicates the token refresh call itself was rejected;
	// local session state has been torn down as a side effect.
	ErrRefreshFailed = errors.New("refresh failed")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., email taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")
)
