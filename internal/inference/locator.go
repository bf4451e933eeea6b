// Package inference locates the first trades of a pool and infers the
// factory fee from them.
package inference

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"feeScope/internal/dex"
	"feeScope/internal/indexer"
	"feeScope/internal/metrics"
	"feeScope/internal/model"
	"feeScope/internal/retry"
)

// DefaultHorizon is the number of blocks after creation searched for trades.
const DefaultHorizon = 2000

// Policy selects which located trades are returned.
type Policy string

const (
	// PolicyEarliestBlock returns only the trades of the earliest block with any trade.
	PolicyEarliestBlock Policy = "earliest-block"
	// PolicyFullHorizon returns every trade in the horizon.
	PolicyFullHorizon Policy = "full-horizon"
)

// ParsePolicy accepts the flag spelling of a Policy.
func ParsePolicy(value string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(value))) {
	case "", PolicyEarliestBlock:
		return PolicyEarliestBlock, nil
	case PolicyFullHorizon:
		return PolicyFullHorizon, nil
	default:
		return "", fmt.Errorf("unknown locate policy %q", value)
	}
}

// LogFilterer is the log query the locator needs.
type LogFilterer interface {
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
}

type LocatorConfig struct {
	Horizon      uint64
	Policy       Policy
	MaxRetries   int
	RetryBackoff time.Duration
	FetchTimeout time.Duration
}

// Locator finds the earliest trades of a pool within a bounded horizon.
type Locator struct {
	source   LogFilterer
	protocol dex.Protocol
	cfg      LocatorConfig
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewLocator(source LogFilterer, protocol dex.Protocol, cfg LocatorConfig, logger *zap.Logger, m *metrics.Metrics) *Locator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Horizon == 0 {
		cfg.Horizon = DefaultHorizon
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyEarliestBlock
	}
	return &Locator{source: source, protocol: protocol, cfg: cfg, logger: logger, metrics: m}
}

// LocateFirstTradeWindow returns the pool's trades in
// [creationBlock, creationBlock+Horizon] ordered by block and log index.
// An empty result means the pool did not trade within the horizon.
func (l *Locator) LocateFirstTradeWindow(ctx context.Context, pool model.Pool, creationBlock uint64) ([]model.SwapEvent, error) {
	if !common.IsHexAddress(pool.Address) {
		return nil, fmt.Errorf("invalid pool address: %s", pool.Address)
	}
	pair := common.HexToAddress(pool.Address)
	end := horizonEnd(creationBlock, l.cfg.Horizon)

	var logs []types.Log
	err := retry.Do(ctx, l.cfg.MaxRetries, l.cfg.RetryBackoff, retry.WithTimeout(l.cfg.FetchTimeout, func(ctx context.Context) error {
		var err error
		logs, err = l.source.FilterLogs(ctx, creationBlock, end, []common.Address{pair}, []common.Hash{l.protocol.SwapTopic()})
		return err
	}))
	if err != nil {
		return nil, &indexer.TransportError{From: creationBlock, To: end, Err: err}
	}

	want := dex.CanonicalAddress(pair)
	swaps := make([]model.SwapEvent, 0, len(logs))
	for _, log := range logs {
		if log.Removed || log.BlockNumber < creationBlock || log.BlockNumber > end {
			continue
		}
		swap, err := l.protocol.DecodeSwap(indexer.BuildLogRecord(log))
		if err != nil {
			var decodeErr *dex.DecodeError
			if errors.As(err, &decodeErr) {
				l.metrics.DecodeError(decodeErr.Event)
			}
			l.logger.Warn("skip undecodable swap", zap.String("pool", want), zap.Uint64("block_number", log.BlockNumber), zap.Error(err))
			continue
		}
		if swap.PairAddress != want {
			continue
		}
		swaps = append(swaps, swap)
	}

	sort.SliceStable(swaps, func(i, j int) bool {
		if swaps[i].BlockNumber != swaps[j].BlockNumber {
			return swaps[i].BlockNumber < swaps[j].BlockNumber
		}
		return swaps[i].LogIndex < swaps[j].LogIndex
	})

	if l.cfg.Policy == PolicyEarliestBlock && len(swaps) > 0 {
		first := swaps[0].BlockNumber
		n := 0
		for n < len(swaps) && swaps[n].BlockNumber == first {
			n++
		}
		swaps = swaps[:n]
	}
	return swaps, nil
}

func horizonEnd(creationBlock, horizon uint64) uint64 {
	if creationBlock > math.MaxUint64-horizon {
		return math.MaxUint64
	}
	return creationBlock + horizon
}
