package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrProvider              = errors.New("stats provider failure")
	ErrPayloadSchema         = errors.New("provider payload schema mismatch")
	ErrPersistence           = errors.New("persistence failure")
	ErrCache                 = errors.New("cache failure")
)
