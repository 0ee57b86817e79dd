package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds stream-scoped logging context: the correlation id of the
// stream a log line belongs to, the object key and tier it concerns (when
// applicable), and tracing identifiers pulled from the active span.
type LogContext struct {
	TraceID   string    // OpenTelemetry trace ID
	SpanID    string    // OpenTelemetry span ID
	StreamID  string    // Stream correlation id (pkg/stream)
	ObjectKey string    // Object key currently being fetched or read
	Tier      string    // Tier directory currently involved
	StartTime time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for the given stream id.
func NewLogContext(streamID string) *LogContext {
	return &LogContext{
		StreamID:  streamID,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:   lc.TraceID,
		SpanID:    lc.SpanID,
		StreamID:  lc.StreamID,
		ObjectKey: lc.ObjectKey,
		Tier:      lc.Tier,
		StartTime: lc.StartTime,
	}
}

// WithObjectKey returns a copy with the object key set
func (lc *LogContext) WithObjectKey(key string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.ObjectKey = key
	}
	return clone
}

// WithTier returns a copy with the tier set
func (lc *LogContext) WithTier(tier string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Tier = tier
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
