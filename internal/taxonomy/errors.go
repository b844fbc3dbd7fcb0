package taxonomy

import (
	"errors"
	"fmt"

	"github.com/starford/vouch/internal/apperr"
)

// ErrorKind classifies a failed load.
type ErrorKind int

const (
	// NotFound means a requested list definition does not exist. It points at
	// a deployment problem rather than a transient fault.
	NotFound ErrorKind = iota + 1
	// Unavailable covers every other backend failure.
	Unavailable
)

func (k ErrorKind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Error is returned by Store.Load when a list cannot be fetched.
type Error struct {
	Kind ErrorKind
	List string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("taxonomy: load %s: %s: %v", e.List, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets callers match Unavailable errors against apperr.ErrUnavailable.
func (e *Error) Is(target error) bool {
	return e.Kind == Unavailable && target == apperr.ErrUnavailable
}

// KindOf returns the kind of a taxonomy error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return 0
}

func classify(list string, err error) *Error {
	kind := Unavailable
	if errors.Is(err, apperr.ErrNotFound) {
		kind = NotFound
	}
	return &Error{Kind: kind, List: list, Err: err}
}
