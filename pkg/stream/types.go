// Package stream implements the rolling prefetch cache: a stream controller
// that owns a prefetcher, an evictor and a reader cooperating over a
// tierstore.TieredBlockStore to serve sequential reads of a concatenation of
// remote objects.
package stream

import (
	"time"

	"github.com/marmos91/rollcache/pkg/objectstore"
	"github.com/marmos91/rollcache/pkg/tierstore"
)

const defaultBlockSize = 32 * 1024 * 1024

// Config controls how a stream stages and serves data.
type Config struct {
	// BlockSize is the fixed transfer/cache unit, in bytes. Default 32MiB.
	BlockSize uint64

	// HeaderBytes is hidden from the caller on every object after the
	// first.
	HeaderBytes uint64

	// Tiers are the ordered staging locations, tried in order for
	// placement. Must be non-empty.
	Tiers []tierstore.Tier

	// EvictionTick is how often the evictor sweeps for consumed blocks.
	// Default 5s.
	EvictionTick time.Duration

	// PrefetchBackoff bounds the prefetcher's sleep between budget-full
	// retries. Default 500ms.
	PrefetchBackoff time.Duration

	// BlockWaitTimeout bounds how long the reader waits for a block to
	// become ready before surfacing ErrStalled. Zero (the default) means
	// wait forever.
	BlockWaitTimeout time.Duration

	// CloseGracePeriod bounds how long Close waits for the prefetcher and
	// evictor to observe the stop flag and exit. Default 5s.
	CloseGracePeriod time.Duration
}

// applyDefaults fills zero-valued fields with their defaults, in place.
func (c *Config) applyDefaults() {
	if c.BlockSize == 0 {
		c.BlockSize = defaultBlockSize
	}
	if c.EvictionTick == 0 {
		c.EvictionTick = 5 * time.Second
	}
	if c.PrefetchBackoff == 0 {
		c.PrefetchBackoff = 500 * time.Millisecond
	}
	if c.CloseGracePeriod == 0 {
		c.CloseGracePeriod = 5 * time.Second
	}
}

// object is one source object in the logical stream, with its resolved
// size.
type object struct {
	ref  objectstore.ObjectRef
	size uint64
}

// blockCount returns the number of blocks tiling this object at the given
// block size.
func (o object) blockCount(blockSize uint64) uint64 {
	if o.size == 0 {
		return 0
	}
	return (o.size + blockSize - 1) / blockSize
}
