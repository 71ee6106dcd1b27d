package expiringmap

import "errors"

var (
	// ErrConcurrentModification is returned by a traversal when another
	// caller added or removed keys after the traversal started.
	ErrConcurrentModification = errors.New("concurrent modification during traversal")

	// ErrNilFunction is returned when a required callback is nil.
	// Nothing is modified.
	ErrNilFunction = errors.New("function must not be nil")

	ErrInvalidTTL = errors.New("ttl must be positive")

	ErrClosed = errors.New("map is closed")
)
