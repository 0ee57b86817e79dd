package tierstore

import (
	"os"
	"path/filepath"
)

// Writer is returned by PlaceInflight. Callers write the block payload and
// then call Commit to publish it atomically, or Abort to discard it.
type Writer struct {
	store     *TieredBlockStore
	tierIdx   int
	size      uint64 // accounted size debited on Commit; may differ from bytes actually written
	file      *os.File
	tmpPath   string
	finalPath string
	written   uint64
	done      bool
}

// Write appends to the in-flight file. The reader and evictor never observe
// this file: it is only renamed into visibility on Commit.
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.file.Write(p)
	w.written += uint64(n)
	return n, err
}

// Commit closes the in-flight file and atomically renames it to its
// canonical name, publishing it to lookups, then debits the tier's
// accounted-used bytes. After Commit the writer must not be reused.
func (w *Writer) Commit() error {
	if w.done {
		return nil
	}
	w.done = true

	if err := w.file.Close(); err != nil {
		os.Remove(w.tmpPath)
		return err
	}

	if err := os.Rename(w.tmpPath, w.finalPath); err != nil {
		return err
	}

	w.store.tiers[w.tierIdx].used.Add(w.size)
	return nil
}

// Abort discards the in-flight file without publishing it or touching the
// tier's accounted-used bytes (nothing was ever debited for it).
func (w *Writer) Abort() error {
	if w.done {
		return nil
	}
	w.done = true

	w.file.Close()
	return os.Remove(w.tmpPath)
}

func writerPaths(dir, key string, offset uint64) (tmp, final string) {
	canonical := canonicalName(key, offset)
	return filepath.Join(dir, inflightName(canonical)), filepath.Join(dir, canonical)
}
