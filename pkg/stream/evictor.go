package stream

import (
	"context"
	"time"

	"github.com/marmos91/rollcache/internal/logger"
	"github.com/marmos91/rollcache/internal/telemetry"
	"github.com/marmos91/rollcache/pkg/metrics"
)

// runEvictor reclaims consumed blocks on a periodic tick. The final sweep
// on shutdown is performed by Close directly, after this loop has returned.
func (s *Stream) runEvictor(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.EvictionTick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Stream) sweep(ctx context.Context) {
	_, span := telemetry.StartEvictSpan(ctx, s.id)
	defer span.End()

	result := s.blocks.ReclaimConsumed(s.cfg.BlockSize, s.isOwnedBlock)
	if result.Count == 0 {
		return
	}

	logger.Debug("evictor: reclaimed consumed blocks",
		logger.KeyStreamID, s.id, "count", result.Count)

	for tierIdx, bytes := range result.ReclaimedBy {
		metrics.ObserveBlockEvicted(s.metrics, s.blocks.TierDir(tierIdx), int64(bytes))
		metrics.RecordTierUsedBytes(s.metrics, s.blocks.TierDir(tierIdx), s.blocks.UsedBytes(tierIdx))
	}
}
