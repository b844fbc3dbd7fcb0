// Package apperr holds the sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	// ErrUnavailable marks a backend that could not be reached or answered with a failure.
	ErrUnavailable = errors.New("backend unavailable")
)
