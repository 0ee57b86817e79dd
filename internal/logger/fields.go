package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging. Use these consistently across
// log statements so log aggregation and querying stay uniform.
const (
	// Distributed tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// Stream identity
	KeyStreamID = "stream_id" // Correlation id of the logical stream
	KeyBucket   = "bucket"    // Object-store bucket name
	KeyKey      = "key"       // Object key
	KeyVersion  = "version"   // Object version id

	// Block / tier placement
	KeyTier        = "tier"         // Tier directory
	KeyOffset      = "offset"       // Block offset within its source object
	KeyBlockSize   = "block_size"   // Configured block size
	KeySize        = "size"         // Byte count of a read/write/GetRange
	KeyUsedBytes   = "used_bytes"   // Tier's current used-byte count
	KeyBudgetBytes = "budget_bytes" // Tier's configured byte budget
	KeyPath        = "path"         // Filesystem path of a staged block

	// Retry / backoff
	KeyAttempt    = "attempt"
	KeyMaxRetries = "max_retries"
	KeyBackoff    = "backoff"

	// Operation metadata
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyOperation  = "operation"
)

// Err returns a slog attribute for an error value, or an empty attribute
// (dropped by the handlers) when err is nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Group wraps a set of key-value pairs as a named slog group, useful for
// nesting a block's placement fields under a single "block" key.
func Group(name string, args ...any) slog.Attr {
	return slog.Group(name, args...)
}

// Fmt formats a value as a string field, for callers that need a one-off
// formatted attribute not covered by the standard keys above.
func Fmt(key, format string, args ...any) (string, string) {
	return key, fmt.Sprintf(format, args...)
}
