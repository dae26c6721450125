package store

import "errors"

var (
	// ErrNotFound indicates a missing booking lookup.
	ErrNotFound = errors.New("record not found")
	// ErrTokenConflict is returned by Create when the confirm token is already taken.
	ErrTokenConflict = errors.New("confirm token already in use")
	// ErrInvalidTransition is returned when a status change is not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")
)
