package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"feeScope/internal/dex"
	"feeScope/internal/metrics"
	"feeScope/internal/model"
	"feeScope/internal/registry"
	"feeScope/internal/retry"
	"feeScope/internal/storage"
)

const defaultEnrichWorkers = 8

// RunConfig holds runtime settings for the build phase.
type RunConfig struct {
	FromBlock     uint64
	ToBlock       uint64
	WindowSize    uint64
	// Factories filters logs by emitter; empty means every factory.
	Factories     []common.Address
	MaxRetries    int
	RetryBackoff  time.Duration
	FetchTimeout  time.Duration
	EnrichWorkers int
	ResolveNames  bool
	RescanFailed  bool
}

// Dependencies are the collaborators of a Runner. Only Source and Protocol
// are required.
type Dependencies struct {
	Source       LogSource
	Caller       dex.ContractCaller
	Protocol     dex.Protocol
	PoolSinks    []storage.PoolSink
	PoolLoader   storage.PoolLoader
	DecodeErrors storage.DecodeErrorSink
	Checkpoint   CheckpointStore
	Metrics      *metrics.Metrics
}

// RunStats summarizes one build-phase run.
type RunStats struct {
	From          uint64
	To            uint64
	Resumed       bool
	Windows       int
	FailedWindows int
	Logs          int
	Duplicates    int
	DecodeErrors  int
	PoolsAdded    int
}

// Runner scans factory logs and builds the pool registry.
type Runner struct {
	cfg        RunConfig
	deps       Dependencies
	logger     *zap.Logger
	seen       map[string]struct{}
	checkpoint model.Checkpoint
	stats      RunStats
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, deps Dependencies, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.EnrichWorkers <= 0 {
		cfg.EnrichWorkers = defaultEnrichWorkers
	}
	return &Runner{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		seen:   make(map[string]struct{}),
	}
}

// Run executes scan, decode, enrich, register, flush and checkpoint for every
// window. Window failures are recorded, not returned; the returned error is
// reserved for bad setup and cancellation.
func (r *Runner) Run(ctx context.Context) (*registry.Registry, RunStats, error) {
	if err := r.validate(); err != nil {
		return nil, RunStats{}, err
	}

	from := r.cfg.FromBlock
	to := r.cfg.ToBlock
	if to == 0 {
		latest, err := r.latestBlock(ctx)
		if err != nil {
			return nil, RunStats{}, fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}
	if to < from {
		return nil, RunStats{}, fmt.Errorf("to block %d is before from block %d", to, from)
	}

	reg := registry.New()
	if r.deps.Checkpoint != nil {
		cp, ok, err := r.deps.Checkpoint.Load(ctx)
		if err != nil {
			return nil, RunStats{}, fmt.Errorf("load checkpoint: %w", err)
		}
		if ok {
			restored, err := r.reloadPools(ctx, reg)
			if err != nil {
				return nil, RunStats{}, err
			}
			switch {
			case cp.LastProcessedBlock >= from && !restored:
				r.logger.Warn("checkpoint has progress but no saved pools, restarting scan",
					zap.Uint64("last_processed", cp.LastProcessedBlock),
					zap.Uint64("from", from))
			case cp.LastProcessedBlock >= from:
				r.checkpoint = cp
				from = cp.LastProcessedBlock + 1
				r.stats.Resumed = true
				r.logger.Info("resume from checkpoint",
					zap.Uint64("last_processed", cp.LastProcessedBlock),
					zap.Uint64("from", from),
					zap.Int("failed_windows", len(cp.FailedWindows)),
					zap.Int("pools", reg.Len()))
			default:
				r.checkpoint = cp
			}
		}
	}
	r.stats.From = from
	r.stats.To = to
	if len(r.cfg.Factories) == 0 {
		r.logger.Info("no factory filter, scanning creation events from every factory")
	}

	scanner := NewScanner(r.deps.Source, ScanConfig{
		Addresses:    r.cfg.Factories,
		Topic0:       []common.Hash{r.deps.Protocol.PoolCreatedTopic()},
		MaxRetries:   r.cfg.MaxRetries,
		RetryBackoff: r.cfg.RetryBackoff,
		FetchTimeout: r.cfg.FetchTimeout,
	}, r.logger, r.deps.Metrics)

	workers := pond.NewPool(r.cfg.EnrichWorkers)
	defer workers.StopAndWait()

	if r.cfg.RescanFailed && len(r.checkpoint.FailedWindows) > 0 {
		ranges := make([]BlockRange, 0, len(r.checkpoint.FailedWindows))
		for _, window := range r.checkpoint.FailedWindows {
			ranges = append(ranges, BlockRange{From: window.From, To: window.To})
		}
		r.logger.Info("rescan failed windows", zap.Int("windows", len(ranges)))
		for window, logs := range scanner.ScanRanges(ctx, ranges) {
			r.processWindow(ctx, workers, reg, window, logs, true)
		}
		if err := ctx.Err(); err != nil {
			return reg, r.stats, err
		}
	}

	if from > to {
		r.logger.Info("nothing to sync", zap.Uint64("from", from), zap.Uint64("to", to))
		return reg, r.stats, nil
	}

	for window, logs := range scanner.Scan(ctx, from, to, r.cfg.WindowSize) {
		r.processWindow(ctx, workers, reg, window, logs, false)
	}
	if err := ctx.Err(); err != nil {
		return reg, r.stats, err
	}

	r.logger.Info("scan complete",
		zap.Uint64("from", from),
		zap.Uint64("to", to),
		zap.Int("windows", r.stats.Windows),
		zap.Int("failed_windows", r.stats.FailedWindows),
		zap.Int("pools", reg.Len()))
	return reg, r.stats, nil
}

func (r *Runner) validate() error {
	if r.deps.Source == nil {
		return fmt.Errorf("log source is nil")
	}
	if r.deps.Protocol == nil {
		return fmt.Errorf("protocol is nil")
	}
	if r.cfg.WindowSize == 0 {
		return fmt.Errorf("window size must be greater than zero")
	}
	return nil
}

func (r *Runner) latestBlock(ctx context.Context) (uint64, error) {
	var latest uint64
	err := retry.Do(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, retry.WithTimeout(r.cfg.FetchTimeout, func(ctx context.Context) error {
		var err error
		latest, err = r.deps.Source.LatestBlockNumber(ctx)
		return err
	}))
	return latest, err
}

// reloadPools reports whether a saved pool set was found and loaded into reg.
func (r *Runner) reloadPools(ctx context.Context, reg *registry.Registry) (bool, error) {
	if r.deps.PoolLoader == nil {
		return false, nil
	}
	pools, ok, err := r.deps.PoolLoader.LoadPools(ctx)
	if err != nil {
		return false, fmt.Errorf("reload pools: %w", err)
	}
	if !ok {
		return false, nil
	}
	for _, pool := range pools {
		if err := reg.Add(pool); err != nil && !errors.Is(err, registry.ErrPoolExists) {
			return false, fmt.Errorf("reload pool %s: %w", pool.Address, err)
		}
	}
	return true, nil
}

func (r *Runner) processWindow(ctx context.Context, workers pond.Pool, reg *registry.Registry, window model.ScanWindow, logs []types.Log, rescan bool) {
	r.stats.Windows++

	var added []model.Pool
	if window.Status == model.WindowFailed {
		r.stats.FailedWindows++
		r.recordFailure(window)
	} else {
		if rescan {
			r.clearFailure(window)
		}
		r.stats.Logs += len(logs)
		candidates := r.decodePools(logs)
		r.enrich(ctx, workers, candidates)
		added = r.register(reg, candidates)
	}

	r.flush(ctx, reg, added)

	if !rescan && window.To > r.checkpoint.LastProcessedBlock {
		r.checkpoint.LastProcessedBlock = window.To
	}
	r.saveCheckpoint(ctx)

	r.logger.Info("window complete",
		zap.Uint64("from", window.From),
		zap.Uint64("to", window.To),
		zap.String("status", string(window.Status)),
		zap.Int("logs", window.Logs),
		zap.Int("pools_added", len(added)),
		zap.Int("pools_total", reg.Len()))
}

func (r *Runner) decodePools(logs []types.Log) []model.Pool {
	candidates := make([]model.Pool, 0, len(logs))
	var failures []model.DecodeError
	for _, log := range logs {
		if log.Removed {
			continue
		}
		id := logID(log)
		if _, ok := r.seen[id]; ok {
			r.stats.Duplicates++
			continue
		}
		r.seen[id] = struct{}{}

		pool, err := r.deps.Protocol.DecodePoolCreated(BuildLogRecord(log))
		if err != nil {
			r.stats.DecodeErrors++
			var decodeErr *dex.DecodeError
			if errors.As(err, &decodeErr) {
				failures = append(failures, decodeErr.Record())
				r.deps.Metrics.DecodeError(decodeErr.Event)
			}
			r.logger.Warn("skip undecodable log",
				zap.Uint64("block_number", log.BlockNumber),
				zap.String("tx_hash", log.TxHash.Hex()),
				zap.Uint("log_index", log.Index),
				zap.Error(err))
			continue
		}
		candidates = append(candidates, pool)
	}

	if r.deps.DecodeErrors != nil && len(failures) > 0 {
		if err := r.deps.DecodeErrors.PutDecodeErrors(failures); err != nil {
			r.persistFailed("decode errors", err)
		}
	}
	return candidates
}

// enrich resolves each pair's name() concurrently. Results land in a slice
// indexed like pools, so registry order still follows log order.
func (r *Runner) enrich(ctx context.Context, workers pond.Pool, pools []model.Pool) {
	if !r.cfg.ResolveNames || r.deps.Caller == nil || len(pools) == 0 {
		return
	}

	names := make([]string, len(pools))
	group := workers.NewGroupContext(ctx)
	groupCtx := group.Context()
	for i := range pools {
		pair := common.HexToAddress(pools[i].Address)
		group.Submit(func() {
			if groupCtx.Err() != nil {
				return
			}
			names[i] = r.pairName(groupCtx, pair)
		})
	}
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		r.logger.Warn("pair name enrichment failed", zap.Error(err))
	}

	for i := range pools {
		if names[i] != "" {
			pools[i].Protocol = names[i]
		}
	}
}

func (r *Runner) pairName(ctx context.Context, pair common.Address) string {
	var name string
	err := retry.Do(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, retry.WithTimeout(r.cfg.FetchTimeout, func(ctx context.Context) error {
		var err error
		name, err = dex.FetchPairName(ctx, r.deps.Caller, pair, 0, r.logger)
		return err
	}))
	if err != nil {
		r.logger.Warn("pair name lookup failed, keeping protocol name", zap.String("pair", pair.Hex()), zap.Error(err))
		return ""
	}
	return name
}

func (r *Runner) register(reg *registry.Registry, pools []model.Pool) []model.Pool {
	var added []model.Pool
	for _, pool := range pools {
		if err := reg.Add(pool); err != nil {
			if errors.Is(err, registry.ErrPoolExists) {
				r.stats.Duplicates++
				continue
			}
			r.logger.Warn("register pool failed", zap.String("pool", pool.Address), zap.Error(err))
			continue
		}
		stored, _ := reg.Get(pool.Address)
		added = append(added, stored)
		r.stats.PoolsAdded++
		r.deps.Metrics.PoolAdded(pool.Protocol, reg.Len())
	}
	return added
}

// flush hands incremental sinks the pools added in this window and rewrites
// full-snapshot sinks with the whole registry.
func (r *Runner) flush(ctx context.Context, reg *registry.Registry, added []model.Pool) {
	if len(r.deps.PoolSinks) == 0 {
		return
	}
	var pools []model.Pool
	for _, sink := range r.deps.PoolSinks {
		if appender, ok := sink.(storage.PoolAppender); ok {
			if len(added) == 0 {
				continue
			}
			if err := appender.AppendPools(ctx, added); err != nil {
				r.persistFailed("pools", err)
			}
			continue
		}
		if pools == nil {
			pools = reg.Pools()
		}
		if err := sink.SavePools(ctx, pools); err != nil {
			r.persistFailed("pools", err)
		}
	}
}

func (r *Runner) saveCheckpoint(ctx context.Context) {
	if r.deps.Checkpoint == nil {
		return
	}
	if err := r.deps.Checkpoint.Save(ctx, r.checkpoint); err != nil {
		r.persistFailed("checkpoint", err)
	}
}

func (r *Runner) recordFailure(window model.ScanWindow) {
	r.clearFailure(window)
	r.checkpoint.FailedWindows = append(r.checkpoint.FailedWindows, window)
}

func (r *Runner) clearFailure(window model.ScanWindow) {
	kept := r.checkpoint.FailedWindows[:0]
	for _, failed := range r.checkpoint.FailedWindows {
		if failed.From == window.From && failed.To == window.To {
			continue
		}
		kept = append(kept, failed)
	}
	r.checkpoint.FailedWindows = kept
}

func (r *Runner) persistFailed(sink string, err error) {
	var persistErr *storage.PersistenceError
	if !errors.As(err, &persistErr) {
		err = &storage.PersistenceError{Sink: sink, Err: err}
	}
	r.deps.Metrics.PersistenceError(sink)
	r.logger.Error("persist failed", zap.String("sink", sink), zap.Error(err))
}
