package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feeScope/internal/model"
)

func TestFileCheckpointStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "checkpoint.json")
	store := NewFileCheckpointStore(path, true)
	ctx := context.Background()

	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	cp := model.Checkpoint{
		LastProcessedBlock: 12002,
		FailedWindows:      []model.ScanWindow{{From: 8001, To: 10001, Status: model.WindowFailed, Err: "timeout"}},
	}
	require.NoError(t, store.Save(ctx, cp))

	loaded, ok, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cp.LastProcessedBlock, loaded.LastProcessedBlock)
	assert.Equal(t, cp.FailedWindows, loaded.FailedWindows)
	assert.NotEmpty(t, loaded.UpdatedAt)
}

func TestFileCheckpointStoreDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	store := NewFileCheckpointStore(path, false)

	require.NoError(t, store.Save(context.Background(), model.Checkpoint{LastProcessedBlock: 5}))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	_, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileCheckpointStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))

	_, _, err := NewFileCheckpointStore(path, true).Load(context.Background())
	assert.ErrorContains(t, err, "parse checkpoint")
}

func TestParseAddresses(t *testing.T) {
	addrs, err := ParseAddresses([]string{" 0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f ", ""})
	require.NoError(t, err)
	require.Len(t, addrs, 1)

	_, err = ParseAddresses([]string{"factory"})
	assert.Error(t, err)
}
