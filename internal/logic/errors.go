package logic

import "errors"

var (
	// ErrValidation marks malformed or too-old reports and query parameters
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized is returned when the shared secret does not match
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	// ErrPersistence wraps store failures on the critical path. Clients retry.
	ErrPersistence = errors.New("persistence failure")
)
