package indexer

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"feeScope/internal/dex"
)

var (
	uniFactory = common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")
	weth       = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	usdc       = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	dai        = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
)

type fakeSource struct {
	mu     sync.Mutex
	logs   map[BlockRange][]types.Log
	fail   map[BlockRange]error
	calls   []BlockRange
	filters [][]common.Address
	latest  uint64
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		logs: make(map[BlockRange][]types.Log),
		fail: make(map[BlockRange]error),
	}
}

func (f *fakeSource) FilterLogs(_ context.Context, fromBlock, toBlock uint64, addresses []common.Address, _ []common.Hash) ([]types.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := BlockRange{From: fromBlock, To: toBlock}
	f.calls = append(f.calls, key)
	f.filters = append(f.filters, addresses)
	if err := f.fail[key]; err != nil {
		return nil, err
	}
	return f.logs[key], nil
}

func (f *fakeSource) LatestBlockNumber(context.Context) (uint64, error) {
	return f.latest, nil
}

func (f *fakeSource) callsFor(key BlockRange) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, call := range f.calls {
		if call == key {
			n++
		}
	}
	return n
}

var errRateLimited = errors.New("429 too many requests")

func pairCreated(t *testing.T, block uint64, logIndex uint, token0, token1, pair common.Address, ordinal int64) types.Log {
	t.Helper()
	return pairCreatedBy(t, uniFactory, block, logIndex, token0, token1, pair, ordinal)
}

func pairCreatedBy(t *testing.T, factory common.Address, block uint64, logIndex uint, token0, token1, pair common.Address, ordinal int64) types.Log {
	t.Helper()
	parsed, err := dex.V2ABI()
	require.NoError(t, err)

	event := parsed.Events[dex.EventPairCreated]
	data, err := event.Inputs.NonIndexed().Pack(pair, big.NewInt(ordinal))
	require.NoError(t, err)

	return types.Log{
		Address:     factory,
		Topics:      []common.Hash{event.ID, common.BytesToHash(token0.Bytes()), common.BytesToHash(token1.Bytes())},
		Data:        data,
		BlockNumber: block,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block*1000 + uint64(logIndex))),
		Index:       logIndex,
	}
}

func pairAddress(n int64) common.Address {
	return common.BigToAddress(big.NewInt(0x1000 + n))
}

// nameCaller answers ERC-20 name() per contract.
type nameCaller struct {
	names map[common.Address]string
	abi   abi.ABI
}

func newNameCaller(t *testing.T, names map[common.Address]string) *nameCaller {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(`[{"type":"function","name":"name","inputs":[],"outputs":[{"name":"","type":"string"}],"stateMutability":"view"}]`))
	require.NoError(t, err)
	return &nameCaller{names: names, abi: parsed}
}

func (c *nameCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	name, ok := c.names[*msg.To]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return c.abi.Methods["name"].Outputs.Pack(name)
}
