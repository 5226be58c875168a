package errors

import "errors"

var (
	ErrUnknownVertex = errors.New("station not found in network")

	ErrInvalidVertex = errors.New("station identifier cannot be empty")

	ErrInvalidEdge = errors.New("edge must join two distinct stations with a positive distance")

	ErrNoPathFound = errors.New("no path between stations")

	// ErrEmptyPath signals a fare or time derivation over a path with no
	// stations. PathFinder never produces one.
	ErrEmptyPath = errors.New("path has no stations")
)
