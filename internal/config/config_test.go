package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("scan", pflag.ContinueOnError)
	flags.String("rpc", "", "")
	flags.Uint64("to", 0, "")
	flags.StringSlice("factory", nil, "")
	flags.Bool("all-factories", false, "")
	flags.Uint64("window-size", 2000, "")
	flags.Bool("rescan-failed", false, "")
	require.NoError(t, flags.Parse(args))
	return flags
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(UniswapV2DeployBlock), cfg.FromBlock)
	assert.Equal(t, []string{UniswapV2Factory}, cfg.Factories)
	assert.Equal(t, uint64(2000), cfg.WindowSize)
	assert.Equal(t, "./data/pools.json", cfg.Out)
	assert.Equal(t, "uniswap-v2", cfg.Protocol)
	assert.True(t, cfg.CheckpointEnabled)
	assert.Equal(t, 8, cfg.EnrichWorkers)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBackoff)
}

func TestLoadFlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(
		"rpc: http://file:8545\nto: 10100000\nenrich-workers: 2\n"), 0o644))

	flags := scanFlags(t, "--rpc", "http://flag:8545", "--factory", "0xaaa, 0xbbb", "--rescan-failed")
	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, "http://flag:8545", cfg.RPCURL)
	assert.Equal(t, uint64(10100000), cfg.ToBlock)
	assert.Equal(t, 2, cfg.EnrichWorkers)
	assert.Equal(t, []string{"0xaaa", "0xbbb"}, cfg.Factories)
	assert.True(t, cfg.RescanFailed)
}

func TestLoadAllFactoriesClearsDefault(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", scanFlags(t, "--all-factories"))
	require.NoError(t, err)
	assert.True(t, cfg.AllFactories)
	assert.Empty(t, cfg.Factories)

	t.Setenv("FEESCOPE_ALL_FACTORIES", "true")
	cfg, err = Load("", nil)
	require.NoError(t, err)
	assert.Empty(t, cfg.Factories)
}

func TestLoadEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("FEESCOPE_PG_DSN", "postgres://localhost/feescope")
	t.Setenv("FEESCOPE_WINDOW_SIZE", "500")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/feescope", cfg.PGDSN)
	assert.Equal(t, uint64(500), cfg.WindowSize)
}

func TestLoadRejectsInvalidRange(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load("", scanFlags(t, "--to", "5"))
	assert.ErrorContains(t, err, "before from block")

	_, err = Load("", scanFlags(t, "--window-size", "0"))
	assert.ErrorContains(t, err, "window-size")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.ErrorContains(t, err, "read config")
}

func TestLoadFees(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadFees("", nil)
	require.NoError(t, err)
	assert.Equal(t, "./data/pools.json", cfg.Pools)
	assert.Equal(t, "./data/factory_fees.json", cfg.Out)
	assert.Equal(t, uint64(2000), cfg.Horizon)
	assert.Equal(t, "earliest-block", cfg.LocatePolicy)
	assert.Equal(t, 3, cfg.FeeDecimals)
	assert.Equal(t, 1, cfg.Candidates)

	t.Setenv("FEESCOPE_FEE_DECIMALS", "9")
	_, err = LoadFees("", nil)
	assert.ErrorContains(t, err, "fee-decimals")
}
