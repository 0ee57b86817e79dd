// Package metrics defines the observability surface consumed by pkg/stream,
// decoupled from any particular metrics backend.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StreamMetrics provides observability for the prefetcher, reader and
// evictor. Implementations must be nil-safe: every method on a nil receiver
// is a no-op, so callers can pass a nil StreamMetrics when metrics are
// disabled with zero overhead.
type StreamMetrics interface {
	// ObserveBlockFetched records one block placed by the prefetcher.
	ObserveBlockFetched(tier string, bytes int64, duration time.Duration)

	// ObserveBlockEvicted records one block reclaimed by the evictor.
	ObserveBlockEvicted(tier string, bytes int64)

	// RecordTierUsedBytes records a tier's current used-byte count.
	RecordTierUsedBytes(tier string, used uint64)

	// ObserveReaderWait records how long Read/Seek blocked waiting for a
	// block to become ready.
	ObserveReaderWait(duration time.Duration)
}

var (
	mu       sync.RWMutex
	enabled  bool
	registry *prometheus.Registry
)

// InitRegistry enables metrics collection and creates the Prometheus
// registry backing it. Safe to call more than once; later calls replace the
// registry.
func InitRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()

	enabled = true
	registry = prometheus.NewRegistry()
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// GetRegistry returns the active registry, or nil if metrics are disabled.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// newStreamMetrics is implemented in pkg/metrics/prometheus/stream.go and
// registered from that package's init(). This indirection lets pkg/stream
// depend only on pkg/metrics, avoiding a cycle with the concrete Prometheus
// implementation.
var newStreamMetrics func() StreamMetrics

// RegisterStreamMetricsConstructor registers the Prometheus-backed
// StreamMetrics constructor. Called by pkg/metrics/prometheus during
// package initialization.
func RegisterStreamMetricsConstructor(constructor func() StreamMetrics) {
	newStreamMetrics = constructor
}

// NewStreamMetrics returns a StreamMetrics instance, or nil when metrics are
// disabled. Callers pass the nil result straight into pkg/stream, which
// every method tolerates.
func NewStreamMetrics() StreamMetrics {
	if !IsEnabled() || newStreamMetrics == nil {
		return nil
	}
	return newStreamMetrics()
}

// ObserveBlockFetched is a nil-safe convenience wrapper.
func ObserveBlockFetched(m StreamMetrics, tier string, bytes int64, duration time.Duration) {
	if m != nil {
		m.ObserveBlockFetched(tier, bytes, duration)
	}
}

// ObserveBlockEvicted is a nil-safe convenience wrapper.
func ObserveBlockEvicted(m StreamMetrics, tier string, bytes int64) {
	if m != nil {
		m.ObserveBlockEvicted(tier, bytes)
	}
}

// RecordTierUsedBytes is a nil-safe convenience wrapper.
func RecordTierUsedBytes(m StreamMetrics, tier string, used uint64) {
	if m != nil {
		m.RecordTierUsedBytes(tier, used)
	}
}

// ObserveReaderWait is a nil-safe convenience wrapper.
func ObserveReaderWait(m StreamMetrics, duration time.Duration) {
	if m != nil {
		m.ObserveReaderWait(duration)
	}
}
