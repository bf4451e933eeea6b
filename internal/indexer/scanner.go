package indexer

import (
	"context"
	"iter"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"feeScope/internal/metrics"
	"feeScope/internal/model"
	"feeScope/internal/retry"
)

// LogSource is the log query side of the chain client.
type LogSource interface {
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
}

// ScanConfig selects the logs a Scanner fetches and how hard it tries.
type ScanConfig struct {
	Addresses    []common.Address
	Topic0       []common.Hash
	MaxRetries   int
	RetryBackoff time.Duration
	FetchTimeout time.Duration
}

// Scanner walks a closed block range window by window.
type Scanner struct {
	source  LogSource
	cfg     ScanConfig
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewScanner(source LogSource, cfg ScanConfig, logger *zap.Logger, m *metrics.Metrics) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{source: source, cfg: cfg, logger: logger, metrics: m}
}

// Scan yields every window of [from, to] with its logs. A window whose fetch
// fails after all retries is yielded with status failed and no logs; the scan
// continues with the next window. The next window is not fetched until the
// consumer's loop body returns. Iteration stops early when ctx is done or the
// consumer breaks.
func (s *Scanner) Scan(ctx context.Context, from, to, size uint64) iter.Seq2[model.ScanWindow, []types.Log] {
	ranges, err := SplitRange(from, to, size)
	if err != nil {
		s.logger.Error("invalid scan range", zap.Uint64("from", from), zap.Uint64("to", to), zap.Uint64("window_size", size), zap.Error(err))
		return func(func(model.ScanWindow, []types.Log) bool) {}
	}
	return s.ScanRanges(ctx, ranges)
}

// ScanRanges is Scan over an explicit list of windows.
func (s *Scanner) ScanRanges(ctx context.Context, ranges []BlockRange) iter.Seq2[model.ScanWindow, []types.Log] {
	return func(yield func(model.ScanWindow, []types.Log) bool) {
		for _, blockRange := range ranges {
			if ctx.Err() != nil {
				return
			}

			window, logs := s.fetchWindow(ctx, blockRange)
			if window.Status == model.WindowFailed && ctx.Err() != nil {
				return
			}
			if !yield(window, logs) {
				return
			}
		}
	}
}

func (s *Scanner) fetchWindow(ctx context.Context, blockRange BlockRange) (model.ScanWindow, []types.Log) {
	window := model.ScanWindow{From: blockRange.From, To: blockRange.To, Status: model.WindowPending}
	s.logger.Info("fetch logs", zap.Uint64("from", window.From), zap.Uint64("to", window.To))

	start := time.Now()
	var logs []types.Log
	err := retry.Do(ctx, s.cfg.MaxRetries, s.cfg.RetryBackoff, retry.WithTimeout(s.cfg.FetchTimeout, func(ctx context.Context) error {
		var err error
		logs, err = s.source.FilterLogs(ctx, window.From, window.To, s.cfg.Addresses, s.cfg.Topic0)
		if err != nil {
			s.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", window.From), zap.Uint64("to", window.To))
		}
		return err
	}))
	if err != nil {
		transportErr := &TransportError{From: window.From, To: window.To, Err: err}
		window.Status = model.WindowFailed
		window.Err = transportErr.Error()
		s.logger.Error("window failed", zap.Uint64("from", window.From), zap.Uint64("to", window.To), zap.Error(transportErr))
		s.metrics.ObserveWindow(string(window.Status), 0, time.Since(start), window.To)
		return window, nil
	}

	window.Status = model.WindowCompleted
	window.Logs = len(logs)
	s.metrics.ObserveWindow(string(window.Status), len(logs), time.Since(start), window.To)
	return window, logs
}
