package stream

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/marmos91/rollcache/internal/logger"
	"github.com/marmos91/rollcache/internal/telemetry"
	"github.com/marmos91/rollcache/pkg/metrics"
	"github.com/marmos91/rollcache/pkg/tierstore"
)

const locateRetryInterval = 100 * time.Millisecond

// Read returns up to n bytes starting at the current logical position. n<0
// means "until end of logical stream". Returns an empty slice (not an
// error) once the logical position reaches end of stream.
func (s *Stream) Read(ctx context.Context, n int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosedStream
	}
	if n == 0 {
		return []byte{}, nil
	}
	if s.loc >= s.logicalSize {
		return []byte{}, nil
	}

	remaining := s.logicalSize - s.loc
	want := remaining
	if n > 0 && uint64(n) < remaining {
		want = uint64(n)
	}

	ctx, span := telemetry.StartStreamSpan(ctx, "read", s.id, telemetry.Size(int64(want)))
	defer span.End()

	out := make([]byte, 0, want)

	for uint64(len(out)) < want {
		obj := s.objects[s.objIndex]

		if s.objOffset >= obj.size && s.objIndex+1 < len(s.objects) {
			s.objIndex++
			s.objOffset = s.cfg.HeaderBytes
			s.closeCurrentBlock(false)
			continue
		}

		if err := s.ensureBlock(ctx, s.objIndex, s.objOffset); err != nil {
			return out, err
		}

		block := s.openBlock
		readLen := want - uint64(len(out))
		if avail := block.bEnd - s.objOffset; readLen > avail {
			readLen = avail
		}

		buf := make([]byte, readLen)
		if _, err := block.handle.ReadAt(buf, int64(s.objOffset-block.bStart)); err != nil && err != io.EOF {
			return out, err
		}

		out = append(out, buf...)
		s.objOffset += readLen
		s.loc += readLen

		if s.objOffset >= block.bEnd {
			s.closeCurrentBlock(true)
		}

		if s.objOffset >= obj.size && s.objIndex+1 < len(s.objects) {
			s.objIndex++
			s.objOffset = s.cfg.HeaderBytes
			s.closeCurrentBlock(false)
		}
	}

	return out, nil
}

// Seek repositions the logical cursor. Positions beyond end-of-stream clamp
// to end; subsequent reads return empty. Negative resulting positions are
// rejected.
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosedStream
	}

	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = int64(s.loc)
	case io.SeekEnd:
		base = int64(s.logicalSize)
	default:
		return 0, ErrInvalidRange
	}

	newPos := base + offset
	if newPos < 0 {
		return 0, ErrInvalidRange
	}
	if uint64(newPos) > s.logicalSize {
		newPos = int64(s.logicalSize)
	}

	s.closeCurrentBlock(false)

	s.loc = uint64(newPos)
	s.objIndex, s.objOffset = s.logicalToObject(s.loc)

	return newPos, nil
}

// Close is defined on Stream in controller.go; it also releases any open
// reader block handle.

// logicalToObject maps a logical position to the (object index, in-object
// position) it corresponds to, accounting for the header skip applied to
// every object after the first.
func (s *Stream) logicalToObject(pos uint64) (int, uint64) {
	if pos <= s.objects[0].size {
		return 0, pos
	}

	remaining := pos - s.objects[0].size
	for i := 1; i < len(s.objects); i++ {
		visible := uint64(0)
		if s.objects[i].size > s.cfg.HeaderBytes {
			visible = s.objects[i].size - s.cfg.HeaderBytes
		}
		if remaining <= visible {
			return i, s.cfg.HeaderBytes + remaining
		}
		remaining -= visible
	}

	last := len(s.objects) - 1
	return last, s.objects[last].size
}

// ensureBlock makes s.openBlock the block covering position p of object
// objIndex, waiting for the prefetcher or falling back to a direct fetch as
// needed.
func (s *Stream) ensureBlock(ctx context.Context, objIndex int, p uint64) error {
	if s.openBlock.covers(objIndex, p) {
		return nil
	}

	s.closeCurrentBlock(false)

	obj := s.objects[objIndex]
	off := (p / s.cfg.BlockSize) * s.cfg.BlockSize
	bEnd := off + s.cfg.BlockSize
	if bEnd > obj.size {
		bEnd = obj.size
	}
	flatKey := tierstore.FlattenKey(obj.ref.Key)

	behindPrefetcher := off < s.maxOffsetFor(objIndex)

	if behindPrefetcher {
		if path, _, found := s.blocks.Lookup(flatKey, off); found {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			s.openBlock = &openBlock{handle: f, objIndex: objIndex, offset: off, bStart: off, bEnd: bEnd, path: path}
			return nil
		}
		return s.fetchDirect(ctx, objIndex, obj, off, bEnd)
	}

	return s.waitForStagedBlock(ctx, objIndex, obj, flatKey, off, bEnd)
}

// waitForStagedBlock blocks, polling the tiered store, until the block
// becomes ready or Config.BlockWaitTimeout expires (0 means wait forever).
func (s *Stream) waitForStagedBlock(ctx context.Context, objIndex int, obj object, flatKey string, off, bEnd uint64) error {
	start := time.Now()

	for {
		if path, _, found := s.blocks.Lookup(flatKey, off); found {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			s.openBlock = &openBlock{handle: f, objIndex: objIndex, offset: off, bStart: off, bEnd: bEnd, path: path}
			s.recordMaxOffset(objIndex, off)
			metrics.ObserveReaderWait(s.metrics, time.Since(start))
			return nil
		}

		if s.cfg.BlockWaitTimeout > 0 && time.Since(start) >= s.cfg.BlockWaitTimeout {
			return ErrStalled
		}

		select {
		case <-time.After(locateRetryInterval):
		case <-s.stopCh:
			return ErrClosedStream
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// fetchDirect bypasses staging with a direct ranged GET, used when the
// reader seeks backward behind a block the prefetcher has already passed
// and the evictor may have already reclaimed.
func (s *Stream) fetchDirect(ctx context.Context, objIndex int, obj object, off, bEnd uint64) error {
	logger.Debug("reader: direct fetch fallback for consumed block",
		logger.KeyStreamID, s.id, logger.KeyKey, obj.ref.Key, logger.KeyOffset, off)

	data, err := s.store.GetRange(ctx, obj.ref, int64(off), int64(bEnd))
	if err != nil {
		return err
	}

	s.openBlock = &openBlock{handle: &memBlock{data: data}, objIndex: objIndex, offset: off, bStart: off, bEnd: bEnd}
	return nil
}

// closeCurrentBlock releases the open block handle. If markConsumed is
// true and the block was staged (not a direct-fetch bypass), it is
// atomically renamed to its delete-pending name for the evictor to reclaim.
func (s *Stream) closeCurrentBlock(markConsumed bool) {
	if s.openBlock == nil {
		return
	}

	b := s.openBlock
	s.openBlock = nil
	b.handle.Close()

	if markConsumed && b.path != "" {
		if err := s.blocks.MarkConsumed(b.path); err != nil {
			logger.Warn("reader: marking block consumed failed",
				logger.KeyStreamID, s.id, logger.KeyPath, b.path, logger.Err(err))
		}
	}
}

func (s *Stream) maxOffsetFor(objIndex int) uint64 {
	v, _ := s.maxOffsetSeen.Load(objIndex)
	if v == nil {
		return 0
	}
	return v.(uint64)
}

func (s *Stream) recordMaxOffset(objIndex int, off uint64) {
	if off+s.cfg.BlockSize > s.maxOffsetFor(objIndex) {
		s.maxOffsetSeen.Store(objIndex, off+s.cfg.BlockSize)
	}
}
