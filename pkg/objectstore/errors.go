package objectstore

import "errors"

var (
	// ErrNotFound indicates the requested object does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrInvalidRange indicates a GetRange call with start >= end or start < 0.
	ErrInvalidRange = errors.New("invalid byte range")

	// ErrUnavailable indicates the store is transiently unreachable. Callers
	// performing their own retry loop (the prefetcher) should treat this as
	// retryable; one-shot callers (Size during stream construction) surface
	// it to the caller.
	ErrUnavailable = errors.New("object store unavailable")
)
