package tierstore

import "errors"

var (
	// ErrTierFull indicates no configured tier currently has room for a
	// block of the configured size.
	ErrTierFull = errors.New("tier full")

	// ErrBlockNotFound indicates no tier holds a ready copy of the
	// requested block.
	ErrBlockNotFound = errors.New("block not found")

	// ErrStoreClosed indicates an operation was attempted after Close.
	ErrStoreClosed = errors.New("tiered block store closed")
)
