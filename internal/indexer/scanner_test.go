package indexer

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feeScope/internal/model"
)

func TestScanYieldsFailedWindowAndContinues(t *testing.T) {
	source := newFakeSource()
	source.logs[BlockRange{From: 0, To: 2000}] = []types.Log{pairCreated(t, 10, 0, weth, usdc, pairAddress(1), 1)}
	source.fail[BlockRange{From: 2001, To: 4001}] = errRateLimited
	source.logs[BlockRange{From: 4002, To: 5000}] = nil

	scanner := NewScanner(source, ScanConfig{MaxRetries: 2, RetryBackoff: time.Millisecond}, nil, nil)

	var windows []model.ScanWindow
	for window, logs := range scanner.Scan(context.Background(), 0, 5000, 2000) {
		windows = append(windows, window)
		if window.Status == model.WindowFailed {
			assert.Empty(t, logs)
		}
	}

	require.Len(t, windows, 3)
	assert.Equal(t, model.WindowCompleted, windows[0].Status)
	assert.Equal(t, 1, windows[0].Logs)
	assert.Equal(t, model.WindowFailed, windows[1].Status)
	assert.Contains(t, windows[1].Err, "fetch logs [2001, 4001]")
	assert.Equal(t, model.WindowCompleted, windows[2].Status)
	assert.Equal(t, 3, source.callsFor(BlockRange{From: 2001, To: 4001}))
}

func TestScanIsLazy(t *testing.T) {
	source := newFakeSource()
	scanner := NewScanner(source, ScanConfig{}, nil, nil)

	for window := range scanner.Scan(context.Background(), 0, 10000, 999) {
		assert.Equal(t, uint64(0), window.From)
		break
	}
	assert.Len(t, source.calls, 1)
}

func TestScanStopsOnCancel(t *testing.T) {
	source := newFakeSource()
	scanner := NewScanner(source, ScanConfig{}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seen := 0
	for range scanner.Scan(ctx, 0, 10000, 999) {
		seen++
		cancel()
	}
	assert.Equal(t, 1, seen)
}

func TestScanInvalidRangeYieldsNothing(t *testing.T) {
	scanner := NewScanner(newFakeSource(), ScanConfig{}, nil, nil)
	for range scanner.Scan(context.Background(), 10, 5, 100) {
		t.Fatal("unexpected window")
	}
}
