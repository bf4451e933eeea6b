package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FeesConfig holds the fee-inference settings.
type FeesConfig struct {
	RPCURL       string
	Pools        string
	Out          string
	Protocol     string
	Horizon      uint64
	LocatePolicy string
	FeeDecimals  int
	Candidates   int
	Factories    []string
	MaxRetries   int
	RetryBackoff time.Duration
	FetchTimeout time.Duration
	PGDSN        string
	MetricsAddr  string
	LogLevel     string
}

// LoadFees merges config file, environment variables, and flags into FeesConfig.
func LoadFees(cfgFile string, flags *pflag.FlagSet) (FeesConfig, error) {
	v := viper.New()
	v.SetDefault("pools", "./data/pools.json")
	v.SetDefault("out", "./data/factory_fees.json")
	v.SetDefault("protocol", "uniswap-v2")
	v.SetDefault("horizon", uint64(2000))
	v.SetDefault("locate-policy", "earliest-block")
	v.SetDefault("fee-decimals", 3)
	v.SetDefault("candidates", 1)
	setCommonDefaults(v)

	if err := read(v, cfgFile, flags); err != nil {
		return FeesConfig{}, err
	}

	cfg := FeesConfig{
		RPCURL:       v.GetString("rpc"),
		Pools:        v.GetString("pools"),
		Out:          v.GetString("out"),
		Protocol:     v.GetString("protocol"),
		Horizon:      v.GetUint64("horizon"),
		LocatePolicy: v.GetString("locate-policy"),
		FeeDecimals:  v.GetInt("fee-decimals"),
		Candidates:   v.GetInt("candidates"),
		Factories:    getStringSlice(v, "factory"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		FetchTimeout: v.GetDuration("fetch-timeout"),
		PGDSN:        v.GetString("pg-dsn"),
		MetricsAddr:  v.GetString("metrics-addr"),
		LogLevel:     v.GetString("log-level"),
	}

	if cfg.FeeDecimals < 1 || cfg.FeeDecimals > 6 {
		return FeesConfig{}, fmt.Errorf("fee-decimals must be between 1 and 6, got %d", cfg.FeeDecimals)
	}
	if cfg.Candidates < 1 {
		return FeesConfig{}, fmt.Errorf("candidates must be at least 1, got %d", cfg.Candidates)
	}
	return cfg, nil
}
