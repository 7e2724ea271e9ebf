package domain

import "errors"

// Wrap these with fmt.Errorf("...: %w", ...); transports map them with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized") // missing or bad credential
	ErrForbidden    = errors.New("forbidden")    // authenticated, but not the owner
	ErrBadRequest   = errors.New("bad request")
)
