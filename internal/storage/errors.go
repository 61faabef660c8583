package storage

import "errors"

// Source errors.
var (
	// ErrNotFound is returned when a parameter set or dataset does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when a stored row cannot be decoded.
	ErrInvalidInput = errors.New("invalid input")
)
