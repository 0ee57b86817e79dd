package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/rollcache/pkg/objectstore"
	"github.com/marmos91/rollcache/pkg/objectstore/memory"
)

func TestSizeAndGetRange(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	ref := objectstore.ObjectRef{Bucket: "b", Key: "obj.bin"}
	store.Put(ref, []byte("0123456789"))

	size, err := store.Size(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), size)

	data, err := store.GetRange(ctx, ref, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("234"), data)
}

func TestGetRangeShortReadAtEOF(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	ref := objectstore.ObjectRef{Bucket: "b", Key: "obj.bin"}
	store.Put(ref, []byte("short"))

	data, err := store.GetRange(ctx, ref, 2, 100)
	require.NoError(t, err)
	assert.Equal(t, []byte("ort"), data)
}

func TestGetRangePastEndOfObjectReturnsEmpty(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	ref := objectstore.ObjectRef{Bucket: "b", Key: "obj.bin"}
	store.Put(ref, []byte("short"))

	data, err := store.GetRange(ctx, ref, 10, 20)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestGetRangeInvalid(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	ref := objectstore.ObjectRef{Bucket: "b", Key: "obj.bin"}
	store.Put(ref, []byte("short"))

	_, err := store.GetRange(ctx, ref, 5, 2)
	assert.ErrorIs(t, err, objectstore.ErrInvalidRange)

	_, err = store.GetRange(ctx, ref, -1, 2)
	assert.ErrorIs(t, err, objectstore.ErrInvalidRange)
}

func TestNotFound(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	ref := objectstore.ObjectRef{Bucket: "b", Key: "missing.bin"}

	_, err := store.Size(ctx, ref)
	assert.ErrorIs(t, err, objectstore.ErrNotFound)

	_, err = store.GetRange(ctx, ref, 0, 1)
	assert.ErrorIs(t, err, objectstore.ErrNotFound)
}

func TestClosedStoreIsUnavailable(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	ref := objectstore.ObjectRef{Bucket: "b", Key: "obj.bin"}
	store.Put(ref, []byte("data"))

	require.NoError(t, store.Close())

	_, err := store.Size(ctx, ref)
	assert.ErrorIs(t, err, objectstore.ErrUnavailable)

	_, err = store.GetRange(ctx, ref, 0, 1)
	assert.ErrorIs(t, err, objectstore.ErrUnavailable)
}
