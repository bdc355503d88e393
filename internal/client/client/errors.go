package client

import "errors"

var (
	// ErrUnavailable indicates the server could not be reached; callers
	// treat it as "offline" and queue the mutation.
	ErrUnavailable = errors.New("server unavailable")

	// ErrUnauthorized indicates rejected credentials or an expired token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrLocalDataNotAvailable indicates offline login was attempted before
	// any successful online login cached credentials locally.
	ErrLocalDataNotAvailable = errors.New("local auth data not available")
)
