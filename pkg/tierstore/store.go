// Package tierstore persists staged blocks across an ordered list of local
// storage tiers and tracks per-tier byte budgets.
package tierstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/marmos91/rollcache/internal/logger"
	"github.com/marmos91/rollcache/pkg/tierstore/diskfree"
)

type tierState struct {
	dir    string
	budget uint64 // resolved at construction time; live free space if configured as 0
	used   atomic.Uint64
}

// TieredBlockStore implements place_inflight / lookup / mark_consumed /
// reclaim_consumed / free_budget over an ordered list of tiers.
type TieredBlockStore struct {
	tiers []*tierState

	mu     sync.RWMutex
	closed bool
}

// New resolves any zero-budget tier to its directory's current free space
// and returns a ready store. Each tier's directory must already exist.
func New(tiers []Tier) (*TieredBlockStore, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("tierstore: at least one tier is required")
	}

	states := make([]*tierState, 0, len(tiers))
	for _, t := range tiers {
		budget := t.Budget
		if budget == 0 {
			free, err := diskfree.Bytes(t.Dir)
			if err != nil {
				return nil, fmt.Errorf("tierstore: resolving free space for %q: %w", t.Dir, err)
			}
			budget = free
		}
		states = append(states, &tierState{dir: t.Dir, budget: budget})
	}

	return &TieredBlockStore{tiers: states}, nil
}

// TierCount returns the number of configured tiers.
func (s *TieredBlockStore) TierCount() int {
	return len(s.tiers)
}

// TierDir returns the directory of tier idx.
func (s *TieredBlockStore) TierDir(idx int) string {
	return s.tiers[idx].dir
}

// FreeBudget returns the remaining byte budget of tier idx.
func (s *TieredBlockStore) FreeBudget(idx int) uint64 {
	t := s.tiers[idx]
	used := t.used.Load()
	if used >= t.budget {
		return 0
	}
	return t.budget - used
}

// UsedBytes returns the current accounted-used bytes of tier idx.
func (s *TieredBlockStore) UsedBytes(idx int) uint64 {
	return s.tiers[idx].used.Load()
}

// PlaceInflight creates a hidden in-flight file on tier idx for (key,
// offset). size is the amount debited from the tier's accounted-used bytes
// on Commit, not necessarily the number of bytes written to the file:
// callers that tile in fixed-size blocks (pkg/stream) pass the configured
// block size so a short final block still debits a full block, matching
// what ReclaimConsumed credits back per file. The tier's accounted-used
// bytes are not touched until the returned Writer is committed. Callers
// must Commit or Abort it.
func (s *TieredBlockStore) PlaceInflight(idx int, key string, offset uint64, size uint64) (*Writer, error) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil, ErrStoreClosed
	}

	tmp, final := writerPaths(s.tiers[idx].dir, key, offset)

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}

	return &Writer{
		store:     s,
		tierIdx:   idx,
		size:      size,
		file:      f,
		tmpPath:   tmp,
		finalPath: final,
	}, nil
}

// Lookup searches tiers in order for a ready copy of (key, offset). An
// in-flight sibling, if present, is not considered ready.
func (s *TieredBlockStore) Lookup(key string, offset uint64) (path string, tierIdx int, found bool) {
	canonical := canonicalName(key, offset)

	for i, t := range s.tiers {
		p := filepath.Join(t.dir, canonical)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, i, true
		}
	}

	return "", 0, false
}

// MarkConsumed atomically renames a ready block's path to its
// delete-pending name. The reader calls this exactly once per block, after
// it has returned the block's final byte to the caller.
func (s *TieredBlockStore) MarkConsumed(path string) error {
	dir, base := filepath.Split(path)
	return os.Rename(path, filepath.Join(dir, consumedName(base)))
}

// ReclaimResult summarizes one ReclaimConsumed sweep.
type ReclaimResult struct {
	Count       int
	ReclaimedBy map[int]uint64 // tier index -> bytes reclaimed
}

// ReclaimConsumed unlinks every delete-pending file in every tier whose
// parsed (flattened key, offset) satisfies isOwned, crediting each tier's
// used-byte counter for every block of size blockSize reclaimed. isOwned
// scopes the sweep to this stream's own tiling so stray same-suffix files
// left by another stream sharing a tier are never touched.
func (s *TieredBlockStore) ReclaimConsumed(blockSize uint64, isOwned func(flattenedKey string, offset uint64) bool) ReclaimResult {
	result := ReclaimResult{ReclaimedBy: make(map[int]uint64)}

	for idx, t := range s.tiers {
		entries, err := os.ReadDir(t.dir)
		if err != nil {
			logger.Warn("tierstore: reading tier directory failed",
				logger.KeyTier, t.dir, logger.Err(err))
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}

			key, offset, ok := parseConsumedName(entry.Name())
			if !ok || !isOwned(key, offset) {
				continue
			}

			if err := os.Remove(filepath.Join(t.dir, entry.Name())); err != nil {
				// Already gone is fine; any other error is logged and
				// tolerated, matching the tolerant-unlink policy.
				if !os.IsNotExist(err) {
					logger.Warn("tierstore: unlink of consumed block failed",
						logger.KeyPath, entry.Name(), logger.Err(err))
				}
				continue
			}

			t.used.Add(^(blockSize - 1))
			result.Count++
			result.ReclaimedBy[idx] += blockSize
		}
	}

	return result
}

// Close marks the store closed, rejecting further PlaceInflight calls.
// Callers should run a final ReclaimConsumed before or after Close to honor
// the "every delete-pending file is unlinked by shutdown" guarantee.
func (s *TieredBlockStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
