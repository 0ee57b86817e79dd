package tierstore_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/rollcache/pkg/tierstore"
)

func newStore(t *testing.T, budgets ...uint64) (*tierstore.TieredBlockStore, []string) {
	t.Helper()

	dirs := make([]string, len(budgets))
	tiers := make([]tierstore.Tier, len(budgets))
	for i, b := range budgets {
		dirs[i] = t.TempDir()
		tiers[i] = tierstore.Tier{Dir: dirs[i], Budget: b}
	}

	store, err := tierstore.New(tiers)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store, dirs
}

func placeAndCommit(t *testing.T, store *tierstore.TieredBlockStore, idx int, key string, offset uint64, data []byte) {
	t.Helper()

	w, err := store.PlaceInflight(idx, key, offset, uint64(len(data)))
	require.NoError(t, err)

	_, err = w.Write(data)
	require.NoError(t, err)

	require.NoError(t, w.Commit())
}

func TestFlattenKeyReplacesSlashes(t *testing.T) {
	assert.Equal(t, "a_b_c.bin", tierstore.FlattenKey("a/b/c.bin"))
}

func TestPlaceLookupConsumeReclaim(t *testing.T) {
	store, dirs := newStore(t, 0)

	key := tierstore.FlattenKey("objects/video.mp4")
	data := []byte("hello world")
	placeAndCommit(t, store, 0, key, 0, data)

	path, idx, found := store.Lookup(key, 0)
	require.True(t, found)
	assert.Equal(t, 0, idx)
	assert.FileExists(t, path)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, contents)

	require.NoError(t, store.MarkConsumed(path))

	// Consumed file is no longer a ready lookup hit.
	_, _, found = store.Lookup(key, 0)
	assert.False(t, found)

	used := store.UsedBytes(0)
	assert.Equal(t, uint64(len(data)), used)

	result := store.ReclaimConsumed(uint64(len(data)), func(flattenedKey string, offset uint64) bool {
		return flattenedKey == key && offset == 0
	})
	assert.Equal(t, 1, result.Count)
	assert.Equal(t, uint64(len(data)), result.ReclaimedBy[0])
	assert.Zero(t, store.UsedBytes(0))

	entries, err := os.ReadDir(dirs[0])
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReclaimConsumedIgnoresUnownedFiles(t *testing.T) {
	store, dirs := newStore(t, 0)

	key := tierstore.FlattenKey("objects/a.bin")
	placeAndCommit(t, store, 0, key, 0, []byte("payload"))

	path, _, found := store.Lookup(key, 0)
	require.True(t, found)
	require.NoError(t, store.MarkConsumed(path))

	// A stray consumed-looking file belonging to another stream's tiling.
	strayName := "other_stream_object.bin.0.nibtodelete"
	require.NoError(t, os.WriteFile(filepath.Join(dirs[0], strayName), []byte("x"), 0o644))

	result := store.ReclaimConsumed(uint64(len("payload")), func(flattenedKey string, offset uint64) bool {
		return flattenedKey == key
	})
	assert.Equal(t, 1, result.Count)

	entries, err := os.ReadDir(dirs[0])
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, strayName, entries[0].Name())
}

func TestWriterAbortDoesNotAffectBudget(t *testing.T) {
	store, _ := newStore(t, 1024)

	key := tierstore.FlattenKey("objects/b.bin")
	w, err := store.PlaceInflight(0, key, 0, 100)
	require.NoError(t, err)

	_, err = w.Write([]byte("partial"))
	require.NoError(t, err)

	require.NoError(t, w.Abort())

	assert.Zero(t, store.UsedBytes(0))
	assert.Equal(t, uint64(1024), store.FreeBudget(0))

	_, _, found := store.Lookup(key, 0)
	assert.False(t, found)
}

func TestFreeBudgetNeverNegative(t *testing.T) {
	store, _ := newStore(t, 10)

	key := tierstore.FlattenKey("objects/c.bin")
	placeAndCommit(t, store, 0, key, 0, make([]byte, 10))

	assert.Zero(t, store.FreeBudget(0))
}

func TestPlaceInflightAfterCloseFails(t *testing.T) {
	store, _ := newStore(t, 0)
	require.NoError(t, store.Close())

	_, err := store.PlaceInflight(0, "k", 0, 1)
	assert.ErrorIs(t, err, tierstore.ErrStoreClosed)
}

func TestLookupFindsBlockOnAnyTier(t *testing.T) {
	store, _ := newStore(t, 0, 0)

	key := tierstore.FlattenKey("objects/d.bin")
	placeAndCommit(t, store, 1, key, 0, []byte("tier-two"))

	_, idx, found := store.Lookup(key, 0)
	require.True(t, found)
	assert.Equal(t, 1, idx)

	placeAndCommit(t, store, 0, key, 32, []byte("tier-one"))
	_, idx, found = store.Lookup(key, 32)
	require.True(t, found)
	assert.Equal(t, 0, idx)
}
