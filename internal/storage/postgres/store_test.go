package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"feeScope/internal/model"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container tests are skipped in -short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("feescope"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	store, err := NewStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.EnsureSchema(ctx), "migrations must be idempotent")
	return store
}

func TestStorePoolsKeepFirstFee(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	fee := uint32(3000)
	pool := model.Pool{
		Address:        "0xb4e16d0168e52d35cacd2c6185b44281ec28c9dc",
		Protocol:       "Uniswap V2",
		Tokens:         [2]string{"0xa0b8", "0xc02a"},
		Factory:        "0x5c69bee701ef814a2b6a3edd4b1652cb9cc5aa6f",
		CreatedInBlock: 10008355,
		CreatedInTx:    "0xd07c",
		Index:          2,
	}
	require.NoError(t, store.SavePools(ctx, []model.Pool{pool}))

	pool.Fee = &fee
	require.NoError(t, store.SavePools(ctx, []model.Pool{pool}))

	other := uint32(2500)
	pool.Fee = &other
	require.NoError(t, store.SavePools(ctx, []model.Pool{pool}))

	pools, ok, err := store.LoadPools(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, pools, 1)
	require.NotNil(t, pools[0].Fee)
	assert.Equal(t, uint32(3000), *pools[0].Fee)
	assert.Equal(t, uint64(2), pools[0].Index)
}

func TestStoreAppendPoolsKeepsEarlierWindows(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	first := model.Pool{
		Address:        "0xb4e16d0168e52d35cacd2c6185b44281ec28c9dc",
		Protocol:       "Uniswap V2",
		Tokens:         [2]string{"0xa0b8", "0xc02a"},
		Factory:        "0x5c69bee701ef814a2b6a3edd4b1652cb9cc5aa6f",
		CreatedInBlock: 10008355,
		CreatedInTx:    "0xd07c",
		Index:          2,
	}
	second := first
	second.Address = "0xa478c2975ab1ea89e8196811f51a7b7ade33eb11"
	second.CreatedInBlock = 10042267
	second.Index = 3

	require.NoError(t, store.AppendPools(ctx, []model.Pool{first}))
	require.NoError(t, store.AppendPools(ctx, []model.Pool{second}))

	pools, ok, err := store.LoadPools(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, pools, 2)
	assert.Equal(t, first.Address, pools[0].Address)
	assert.Equal(t, second.Address, pools[1].Address)
}

func TestStoreFeeReport(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	fee := uint32(3000)
	report := model.NewFeeReport()
	report.Add(model.FactoryFee{Factory: "0xf1", Protocol: "Uniswap V2", Pool: "0xp1", Fee: &fee, Block: 10})
	report.Add(model.FactoryFee{Factory: "0xf2", Protocol: "SushiSwap LP Token", Reason: "no trades"})
	require.NoError(t, store.SaveFeeReport(ctx, report))

	fees, err := store.LoadFactoryFees(ctx)
	require.NoError(t, err)
	require.Contains(t, fees, "0xf2")
	assert.Nil(t, fees["0xf2"])
	assert.Equal(t, uint32(3000), *fees["0xf1"])
}

func TestStoreCheckpoint(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, ok, err := store.LoadCheckpoint(ctx, "scan")
	require.NoError(t, err)
	assert.False(t, ok)

	cp := model.Checkpoint{
		LastProcessedBlock: 4001,
		FailedWindows: []model.ScanWindow{
			{From: 2001, To: 4001, Status: model.WindowFailed, Err: "timeout"},
		},
	}
	require.NoError(t, store.SaveCheckpoint(ctx, "scan", cp))

	loaded, ok, err := store.LoadCheckpoint(ctx, "scan")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(4001), loaded.LastProcessedBlock)
	assert.Equal(t, cp.FailedWindows, loaded.FailedWindows)
	assert.NotEmpty(t, loaded.UpdatedAt)
}
