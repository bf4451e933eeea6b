package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feeScope/internal/model"
)

const (
	factoryA = "0x5c69bee701ef814a2b6a3edd4b1652cb9cc5aa6f"
	factoryB = "0xc0aee478e3658e2610c5f7a4a2e1777ce9e4f2ac"
)

func pool(address, factory, protocol string, block uint64) model.Pool {
	return model.Pool{
		Address:        address,
		Protocol:       protocol,
		Tokens:         [2]string{"0xaaa", "0xbbb"},
		Factory:        factory,
		CreatedInBlock: block,
	}
}

func TestAddRejectsDuplicates(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Add(pool("0xP1", factoryA, "Uniswap V2", 10)))

	dup := pool("0xp1", factoryB, "SushiSwap LP Token", 5)
	assert.ErrorIs(t, reg.Add(dup), ErrPoolExists)

	assert.Equal(t, 1, reg.Len())
	got, ok := reg.Get("0XP1")
	require.True(t, ok)
	assert.Equal(t, factoryA, got.Factory)
	assert.Equal(t, "0xp1", got.Address)
}

func TestFindEarliestForFactory(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Add(pool("0x03", factoryA, "Uniswap V2", 30)))
	require.NoError(t, reg.Add(pool("0x02", factoryA, "Uniswap V2", 20)))
	require.NoError(t, reg.Add(pool("0x04", factoryA, "Uniswap V2", 20)))
	require.NoError(t, reg.Add(pool("0x01", factoryB, "SushiSwap LP Token", 1)))

	earliest, ok := reg.FindEarliestForFactory(factoryA)
	require.True(t, ok)
	assert.Equal(t, "0x02", earliest.Address)

	ordered := reg.PoolsForFactory(factoryA)
	require.Len(t, ordered, 3)
	assert.Equal(t, []string{"0x02", "0x04", "0x03"}, []string{ordered[0].Address, ordered[1].Address, ordered[2].Address})

	_, ok = reg.FindEarliestForFactory("0xdead")
	assert.False(t, ok)
}

func TestDistinctSets(t *testing.T) {
	reg := New()
	assert.Empty(t, reg.DistinctFactories())

	require.NoError(t, reg.Add(pool("0x01", factoryB, "SushiSwap LP Token", 1)))
	require.NoError(t, reg.Add(pool("0x02", factoryA, "Uniswap V2", 2)))
	require.NoError(t, reg.Add(pool("0x03", factoryA, "Uniswap V2", 3)))

	assert.Equal(t, []string{factoryA, factoryB}, reg.DistinctFactories())
	assert.Equal(t, []string{"SushiSwap LP Token", "Uniswap V2"}, reg.DistinctProtocols())
}

func TestSetFeeOnce(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Add(pool("0x01", factoryA, "Uniswap V2", 1)))

	require.NoError(t, reg.SetFee("0x01", 3000))
	assert.ErrorIs(t, reg.SetFee("0x01", 2500), ErrFeeAlreadySet)
	assert.ErrorIs(t, reg.SetFee("0x02", 3000), ErrPoolNotFound)
	assert.ErrorIs(t, reg.SetFee("0x01", model.FeeDenominator+1), ErrFeeOutOfRange)

	got, _ := reg.Get("0x01")
	require.NotNil(t, got.Fee)
	assert.Equal(t, uint32(3000), *got.Fee)

	// Callers receive copies.
	*got.Fee = 1
	again, _ := reg.Get("0x01")
	assert.Equal(t, uint32(3000), *again.Fee)
}

func TestNewFromPoolsKeepsOrder(t *testing.T) {
	reg := NewFromPools([]model.Pool{
		pool("0x02", factoryA, "Uniswap V2", 2),
		pool("0x01", factoryA, "Uniswap V2", 1),
		pool("0x02", factoryA, "Uniswap V2", 9),
	})

	pools := reg.Pools()
	require.Len(t, pools, 2)
	assert.Equal(t, "0x02", pools[0].Address)
	assert.Equal(t, uint64(2), pools[0].CreatedInBlock)
}

func TestConcurrentAdd(t *testing.T) {
	reg := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = reg.Add(pool("0xsame", factoryA, "Uniswap V2", 1))
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, reg.Len())
}
