package domain

import "errors"

// ErrInvalidArgument is returned when a numeric input is non-finite or
// outside the domain of the calculation it is passed to.
var ErrInvalidArgument = errors.New("invalid argument")
