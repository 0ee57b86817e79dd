package diskfree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/rollcache/pkg/tierstore/diskfree"
)

func TestBytesReturnsPositiveValueForTempDir(t *testing.T) {
	free, err := diskfree.Bytes(t.TempDir())
	require.NoError(t, err)
	assert.Greater(t, free, uint64(0))
}

func TestBytesErrorsForMissingDir(t *testing.T) {
	_, err := diskfree.Bytes(t.TempDir() + "/does-not-exist")
	assert.Error(t, err)
}
