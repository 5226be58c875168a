package errors

import "errors"

var (
	ErrNotFound = errors.New("passenger not found")

	ErrInvalidCapacity = errors.New("total capacity cannot be negative")

	ErrInvalidSeatCount = errors.New("invalid seat count")
)
