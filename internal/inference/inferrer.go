package inference

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"feeScope/internal/amm"
	"feeScope/internal/dex"
	"feeScope/internal/metrics"
	"feeScope/internal/model"
	"feeScope/internal/registry"
	"feeScope/internal/retry"
)

// InferConfig controls how many pools per factory are tried and how reserve
// reads are retried.
type InferConfig struct {
	// Factories restricts inference to these factories when non-empty.
	Factories    []string
	Candidates   int
	MaxRetries   int
	RetryBackoff time.Duration
	FetchTimeout time.Duration
}

// Inferrer derives one fee per factory from the first trades of its
// earliest pools.
type Inferrer struct {
	locator  *Locator
	caller   dex.ContractCaller
	protocol dex.Protocol
	cfg      InferConfig
	cache    *ReserveCache
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewInferrer(locator *Locator, caller dex.ContractCaller, protocol dex.Protocol, cfg InferConfig, logger *zap.Logger, m *metrics.Metrics) *Inferrer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Candidates <= 0 {
		cfg.Candidates = 1
	}
	return &Inferrer{
		locator:  locator,
		caller:   caller,
		protocol: protocol,
		cfg:      cfg,
		cache:    NewReserveCache(),
		logger:   logger,
		metrics:  m,
	}
}

// Run infers a fee for every factory in reg, in ascending factory order.
// Determined fees are written back with reg.SetFee. Factories without a
// determinable fee are reported with a nil fee. Only cancellation is returned
// as an error.
func (i *Inferrer) Run(ctx context.Context, reg *registry.Registry) (model.FeeReport, error) {
	report := model.NewFeeReport()
	if i.locator == nil || i.caller == nil || i.protocol == nil {
		return report, fmt.Errorf("inferrer is missing a locator, contract caller or protocol")
	}

	for _, factory := range i.factories(reg) {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		entry := i.inferFactory(ctx, reg, factory)
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if entry.Fee != nil {
			i.metrics.FeeOutcome(metrics.FeeDetermined)
			i.logger.Info("factory fee inferred",
				zap.String("factory", factory),
				zap.String("pool", entry.Pool),
				zap.Uint32("fee_ppm", *entry.Fee),
				zap.Uint64("block", entry.Block))
		} else {
			i.metrics.FeeOutcome(metrics.FeeUndetermined)
			i.logger.Warn("factory fee undetermined", zap.String("factory", factory), zap.String("reason", entry.Reason))
		}
		report.Add(entry)
	}
	return report, nil
}

func (i *Inferrer) factories(reg *registry.Registry) []string {
	all := reg.DistinctFactories()
	if len(i.cfg.Factories) == 0 {
		return all
	}
	wanted := make(map[string]struct{}, len(i.cfg.Factories))
	for _, factory := range i.cfg.Factories {
		wanted[strings.ToLower(strings.TrimSpace(factory))] = struct{}{}
	}
	selected := make([]string, 0, len(wanted))
	for _, factory := range all {
		if _, ok := wanted[factory]; ok {
			selected = append(selected, factory)
		}
	}
	return selected
}

func (i *Inferrer) inferFactory(ctx context.Context, reg *registry.Registry, factory string) model.FactoryFee {
	pools := reg.PoolsForFactory(factory)
	if len(pools) > i.cfg.Candidates {
		pools = pools[:i.cfg.Candidates]
	}

	entry := model.FactoryFee{Factory: factory, Reason: "no pools"}
	for _, pool := range pools {
		entry = model.FactoryFee{Factory: factory, Protocol: pool.Protocol, Pool: pool.Address}
		if pool.HasFee() {
			fee := *pool.Fee
			entry.Fee = &fee
			entry.Reason = "fee already recorded"
			return entry
		}

		result, reason := i.inferPool(ctx, pool)
		if result == nil {
			entry.Reason = reason
			i.logger.Debug("pool fee undetermined", zap.String("pool", pool.Address), zap.String("reason", reason))
			continue
		}

		if err := reg.SetFee(pool.Address, *result.fee); err != nil && !errors.Is(err, registry.ErrFeeAlreadySet) {
			i.logger.Warn("record pool fee failed", zap.String("pool", pool.Address), zap.Error(err))
		}
		entry.Fee = result.fee
		entry.Block = result.block
		entry.TxHash = result.txHash
		return entry
	}
	return entry
}

type poolFee struct {
	fee    *uint32
	block  uint64
	txHash string
}

// inferPool walks the located trades block by block and returns the first
// determined fee, or the reason none was found.
func (i *Inferrer) inferPool(ctx context.Context, pool model.Pool) (*poolFee, string) {
	swaps, err := i.locator.LocateFirstTradeWindow(ctx, pool, pool.CreatedInBlock)
	if err != nil {
		i.logger.Warn("locate trades failed", zap.String("pool", pool.Address), zap.Error(err))
		return nil, fmt.Sprintf("locate trades: %v", err)
	}
	if len(swaps) == 0 {
		return nil, "no trades within horizon"
	}

	reason := "no determinable trade"
	for _, block := range groupByBlock(swaps) {
		if ctx.Err() != nil {
			return nil, ctx.Err().Error()
		}
		if len(block) != 1 {
			reason = fmt.Sprintf("block %d has %d trades", block[0].BlockNumber, len(block))
			continue
		}
		swap := block[0]
		if swap.BlockNumber == 0 {
			continue
		}

		before, err := i.reserves(ctx, pool, swap.BlockNumber-1)
		if err != nil {
			reason = fmt.Sprintf("reserves at %d: %v", swap.BlockNumber-1, err)
			i.metrics.TradeEvaluated(metrics.FeeUndetermined)
			continue
		}
		after, err := i.reserves(ctx, pool, swap.BlockNumber)
		if err != nil {
			reason = fmt.Sprintf("reserves at %d: %v", swap.BlockNumber, err)
			i.metrics.TradeEvaluated(metrics.FeeUndetermined)
			continue
		}

		fee, err := i.protocol.EstimateFee(before, after, swap)
		if err != nil {
			reason = err.Error()
			i.metrics.TradeEvaluated(metrics.FeeUndetermined)
			if !errors.Is(err, amm.ErrUndetermined) {
				i.logger.Warn("estimate fee failed", zap.String("pool", pool.Address), zap.Error(err))
			}
			continue
		}

		i.metrics.TradeEvaluated(metrics.FeeDetermined)
		return &poolFee{fee: &fee, block: swap.BlockNumber, txHash: swap.TxHash}, ""
	}
	return nil, reason
}

func (i *Inferrer) reserves(ctx context.Context, pool model.Pool, block uint64) (model.ReserveSnapshot, error) {
	if snapshot, ok := i.cache.Get(pool.Address, block); ok {
		return snapshot, nil
	}

	pair := common.HexToAddress(pool.Address)
	var snapshot model.ReserveSnapshot
	err := retry.Do(ctx, i.cfg.MaxRetries, i.cfg.RetryBackoff, retry.WithTimeout(i.cfg.FetchTimeout, func(ctx context.Context) error {
		var err error
		snapshot, err = dex.FetchReserves(ctx, i.caller, pair, block)
		return err
	}))
	if err != nil {
		return model.ReserveSnapshot{}, err
	}
	i.cache.Set(snapshot)
	return snapshot, nil
}

// groupByBlock splits swaps, already ordered by block, into per-block runs.
func groupByBlock(swaps []model.SwapEvent) [][]model.SwapEvent {
	var groups [][]model.SwapEvent
	for start := 0; start < len(swaps); {
		end := start + 1
		for end < len(swaps) && swaps[end].BlockNumber == swaps[start].BlockNumber {
			end++
		}
		groups = append(groups, swaps[start:end])
		start = end
	}
	return groups
}
