package stream

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/rollcache/internal/logger"
	"github.com/marmos91/rollcache/internal/telemetry"
	"github.com/marmos91/rollcache/pkg/metrics"
	"github.com/marmos91/rollcache/pkg/objectstore"
	"github.com/marmos91/rollcache/pkg/tierstore"
)

const sizeQueryConcurrency = 8

// Stream is the consumer-facing handle: open a logical concatenation of
// remote objects, then Read/Seek/Close it like a regular byte stream.
type Stream struct {
	id          string
	cfg         Config
	objects     []object
	flatByKey   map[string]uint64 // flattened key -> object size, for ownership checks
	blocks      *tierstore.TieredBlockStore
	store       objectstore.Store
	logicalSize uint64
	metrics     metrics.StreamMetrics

	stopped atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	mu        sync.Mutex
	closeOnce sync.Once
	closed    bool

	loc       uint64
	objIndex  int
	objOffset uint64
	openBlock *openBlock

	// maxOffsetSeen tracks, per object index, the exclusive end of the
	// furthest block the reader has waited for and opened from staging. It
	// approximates "behind the prefetcher's position" for the re-seek
	// policy: a locate_block miss at or after this mark means the
	// prefetcher likely hasn't produced it yet (wait); a miss before it
	// means the reader already opened that block once and it may have been
	// consumed and reclaimed since (bypass fetch).
	maxOffsetSeen sync.Map // int -> uint64
}

// Open validates paths, sizes each object, constructs the tiered block
// store, and starts the prefetcher and evictor before returning the stream
// handle. Errors here (size queries failing, malformed paths) are fatal.
func Open(ctx context.Context, store objectstore.Store, paths []string, cfg Config, streamMetrics metrics.StreamMetrics) (*Stream, error) {
	if len(paths) == 0 {
		return nil, ErrEmptyObjectList
	}

	cfg.applyDefaults()

	refs := make([]objectstore.ObjectRef, len(paths))
	for i, p := range paths {
		ref, err := objectstore.SplitPath(p)
		if err != nil {
			return nil, fmt.Errorf("stream: %w", err)
		}
		refs[i] = ref
	}

	objects, err := sizeObjects(ctx, store, refs)
	if err != nil {
		return nil, fmt.Errorf("stream: sizing objects: %w", err)
	}

	var logicalSize uint64
	for i, o := range objects {
		if i == 0 {
			logicalSize += o.size
			continue
		}
		if o.size > cfg.HeaderBytes {
			logicalSize += o.size - cfg.HeaderBytes
		}
	}

	blocks, err := tierstore.New(cfg.Tiers)
	if err != nil {
		return nil, fmt.Errorf("stream: %w", err)
	}

	flatByKey := make(map[string]uint64, len(objects))
	for _, o := range objects {
		flatByKey[flattenedKeyOf(o.ref)] = o.size
	}

	s := &Stream{
		id:          uuid.NewString(),
		cfg:         cfg,
		objects:     objects,
		flatByKey:   flatByKey,
		blocks:      blocks,
		store:       store,
		logicalSize: logicalSize,
		metrics:     streamMetrics,
		objOffset:   0,
		stopCh:      make(chan struct{}),
	}

	lc := logger.NewLogContext(s.id)
	logger.InfoCtx(logger.WithContext(ctx, lc), "stream opened",
		logger.KeyStreamID, s.id,
		"objects", len(objects),
		"logical_size", logicalSize,
	)

	s.wg.Add(2)
	go s.runPrefetcher(ctx)
	go s.runEvictor(ctx)

	return s, nil
}

func sizeObjects(ctx context.Context, store objectstore.Store, refs []objectstore.ObjectRef) ([]object, error) {
	objects := make([]object, len(refs))
	errs := make([]error, len(refs))

	sem := make(chan struct{}, sizeQueryConcurrency)
	var wg sync.WaitGroup

	for i, ref := range refs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, ref objectstore.ObjectRef) {
			defer wg.Done()
			defer func() { <-sem }()

			ctx, span := telemetry.StartObjectSpan(ctx, "size", ref.Bucket, ref.Key)
			defer span.End()

			size, err := store.Size(ctx, ref)
			if err != nil {
				errs[i] = err
				return
			}
			objects[i] = object{ref: ref, size: size}
		}(i, ref)
	}

	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("sizing %s: %w", refs[i], err)
		}
	}

	return objects, nil
}

func flattenedKeyOf(ref objectstore.ObjectRef) string {
	return tierstore.FlattenKey(ref.Key)
}

// isOwnedBlock reports whether (flattenedKey, offset) is a valid block of
// this stream's tiling, derived from the object list × block size without
// materializing the full set of blocks.
func (s *Stream) isOwnedBlock(flattenedKey string, offset uint64) bool {
	size, ok := s.flatByKey[flattenedKey]
	if !ok {
		return false
	}
	if offset >= size {
		return false
	}
	return offset%s.cfg.BlockSize == 0
}

// Close sets the stop flag, waits (bounded) for both workers to exit,
// performs the evictor's final sweep, closes any open reader block handle
// and is idempotent.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.stopped.Store(true)
		close(s.stopCh)

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(s.cfg.CloseGracePeriod):
			logger.Warn("stream: workers did not exit within grace period",
				logger.KeyStreamID, s.id)
		}

		result := s.blocks.ReclaimConsumed(s.cfg.BlockSize, s.isOwnedBlock)
		logger.Info("stream: final eviction sweep",
			logger.KeyStreamID, s.id, "reclaimed", result.Count)

		s.mu.Lock()
		if s.openBlock != nil {
			s.openBlock.handle.Close()
			s.openBlock = nil
		}
		s.closed = true
		s.mu.Unlock()

		s.blocks.Close()
	})

	return nil
}

// ID returns the stream's correlation id, attached to every log line and
// span for this stream.
func (s *Stream) ID() string {
	return s.id
}

// Size returns the logical size of the stream in bytes.
func (s *Stream) Size() uint64 {
	return s.logicalSize
}

// TierOccupancy returns the current accounted-used bytes of each
// configured tier, in tier order. Useful for sampling the budget-safety
// property externally (see cmd/rollcat bench).
func (s *Stream) TierOccupancy() []uint64 {
	occupancy := make([]uint64, s.blocks.TierCount())
	for i := range occupancy {
		occupancy[i] = s.blocks.UsedBytes(i)
	}
	return occupancy
}
