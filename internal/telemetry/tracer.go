package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for stream operations, following OpenTelemetry
// semantic conventions where applicable.
const (
	AttrStreamID    = "stream.id"
	AttrBucket      = "storage.bucket"
	AttrKey         = "storage.key"
	AttrVersion     = "storage.version"
	AttrTier        = "tier.path"
	AttrOffset      = "block.offset"
	AttrBlockSize   = "block.size"
	AttrSize        = "io.size"
	AttrAttempt     = "retry.attempt"
	AttrUsedBytes   = "tier.used_bytes"
	AttrBudgetBytes = "tier.budget_bytes"
)

// Span names for internal operations.
const (
	SpanStreamOpen    = "stream.open"
	SpanStreamRead    = "stream.read"
	SpanStreamSeek    = "stream.seek"
	SpanStreamClose   = "stream.close"
	SpanPrefetchBlock = "prefetcher.fetch_block"
	SpanEvictSweep    = "evictor.sweep"
	SpanObjectGet     = "objectstore.get_range"
	SpanObjectSize    = "objectstore.size"
)

// StreamID returns an attribute for the stream correlation id.
func StreamID(id string) attribute.KeyValue {
	return attribute.String(AttrStreamID, id)
}

// Bucket returns an attribute for the object-store bucket name.
func Bucket(bucket string) attribute.KeyValue {
	return attribute.String(AttrBucket, bucket)
}

// Key returns an attribute for the object key.
func Key(key string) attribute.KeyValue {
	return attribute.String(AttrKey, key)
}

// Tier returns an attribute for the tier directory.
func Tier(path string) attribute.KeyValue {
	return attribute.String(AttrTier, path)
}

// Offset returns an attribute for a block offset within its source object.
func Offset(offset uint64) attribute.KeyValue {
	return attribute.Int64(AttrOffset, int64(offset))
}

// Size returns an attribute for a byte count.
func Size(size int64) attribute.KeyValue {
	return attribute.Int64(AttrSize, size)
}

// Attempt returns an attribute for a retry attempt number.
func Attempt(attempt int) attribute.KeyValue {
	return attribute.Int(AttrAttempt, attempt)
}

// UsedBytes returns an attribute for a tier's current used-byte count.
func UsedBytes(used uint64) attribute.KeyValue {
	return attribute.Int64(AttrUsedBytes, int64(used))
}

// StartStreamSpan starts a span for a Stream-level operation (open/read/seek/close).
func StartStreamSpan(ctx context.Context, operation, streamID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{StreamID(streamID)}
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, "stream."+operation, trace.WithAttributes(allAttrs...))
}

// StartObjectSpan starts a span for an object-store operation against a single ref.
func StartObjectSpan(ctx context.Context, operation, bucket, key string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{Bucket(bucket), Key(key)}
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, "objectstore."+operation, trace.WithAttributes(allAttrs...))
}

// StartPrefetchSpan starts a span for the prefetcher placing one block.
func StartPrefetchSpan(ctx context.Context, streamID, tier string, offset uint64) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanPrefetchBlock, trace.WithAttributes(
		StreamID(streamID), Tier(tier), Offset(offset),
	))
}

// StartEvictSpan starts a span for one evictor sweep.
func StartEvictSpan(ctx context.Context, streamID string) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanEvictSweep, trace.WithAttributes(StreamID(streamID)))
}
