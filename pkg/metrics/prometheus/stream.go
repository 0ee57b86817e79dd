// Package prometheus implements pkg/metrics.StreamMetrics on top of
// github.com/prometheus/client_golang.
package prometheus

import (
	"time"

	"github.com/marmos91/rollcache/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func init() {
	metrics.RegisterStreamMetricsConstructor(newStreamMetrics)
}

// streamMetrics is the Prometheus implementation of metrics.StreamMetrics.
type streamMetrics struct {
	blocksFetched *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	fetchBytes    *prometheus.HistogramVec
	blocksEvicted *prometheus.CounterVec
	evictedBytes  *prometheus.CounterVec
	tierUsedBytes *prometheus.GaugeVec
	readerWait    prometheus.Histogram
}

// newStreamMetrics creates a new Prometheus-backed StreamMetrics instance.
// Returns nil if metrics are not enabled (InitRegistry not called).
func newStreamMetrics() metrics.StreamMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &streamMetrics{
		blocksFetched: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "rollcache_blocks_fetched_total",
				Help: "Total number of blocks placed by the prefetcher, by tier",
			},
			[]string{"tier"},
		),
		fetchDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "rollcache_block_fetch_duration_milliseconds",
				Help: "Duration of a single ranged GET plus commit, in milliseconds",
				Buckets: []float64{
					1, 5, 10, 50, 100, 500, 1000, 5000, 10000,
				},
			},
			[]string{"tier"},
		),
		fetchBytes: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "rollcache_block_fetch_bytes",
				Help: "Distribution of fetched block sizes",
				Buckets: []float64{
					1 << 20, 4 << 20, 8 << 20, 16 << 20, 32 << 20, 64 << 20, 128 << 20,
				},
			},
			[]string{"tier"},
		),
		blocksEvicted: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "rollcache_blocks_evicted_total",
				Help: "Total number of blocks reclaimed by the evictor, by tier",
			},
			[]string{"tier"},
		),
		evictedBytes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "rollcache_evicted_bytes_total",
				Help: "Total bytes reclaimed by the evictor, by tier",
			},
			[]string{"tier"},
		),
		tierUsedBytes: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rollcache_tier_used_bytes",
				Help: "Current used bytes per tier",
			},
			[]string{"tier"},
		),
		readerWait: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "rollcache_reader_wait_milliseconds",
				Help: "Time Read/Seek spent blocked waiting for a block to become ready",
				Buckets: []float64{
					0.5, 1, 5, 10, 50, 100, 500, 1000, 5000,
				},
			},
		),
	}
}

func (m *streamMetrics) ObserveBlockFetched(tier string, bytes int64, duration time.Duration) {
	if m == nil {
		return
	}
	m.blocksFetched.WithLabelValues(tier).Inc()
	m.fetchDuration.WithLabelValues(tier).Observe(float64(duration.Milliseconds()))
	if bytes > 0 {
		m.fetchBytes.WithLabelValues(tier).Observe(float64(bytes))
	}
}

func (m *streamMetrics) ObserveBlockEvicted(tier string, bytes int64) {
	if m == nil {
		return
	}
	m.blocksEvicted.WithLabelValues(tier).Inc()
	if bytes > 0 {
		m.evictedBytes.WithLabelValues(tier).Add(float64(bytes))
	}
}

func (m *streamMetrics) RecordTierUsedBytes(tier string, used uint64) {
	if m == nil {
		return
	}
	m.tierUsedBytes.WithLabelValues(tier).Set(float64(used))
}

func (m *streamMetrics) ObserveReaderWait(duration time.Duration) {
	if m == nil {
		return
	}
	m.readerWait.Observe(float64(duration.Milliseconds()))
}
