package stream

import "errors"

var (
	// ErrClosedStream indicates an operation was attempted after Close.
	ErrClosedStream = errors.New("stream closed")

	// ErrStalled indicates the reader's bounded wait for a block expired
	// (Config.BlockWaitTimeout) without the prefetcher producing it.
	ErrStalled = errors.New("stream stalled waiting for block")

	// ErrEmptyObjectList indicates Open was called with no source objects.
	ErrEmptyObjectList = errors.New("empty object list")

	// ErrInvalidRange indicates a Seek or internal range computation fell
	// outside the logical stream.
	ErrInvalidRange = errors.New("invalid range")
)
