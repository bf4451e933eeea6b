package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix = "FEESCOPE"

	// UniswapV2Factory is the mainnet Uniswap V2 factory.
	UniswapV2Factory = "0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"
	// UniswapV2DeployBlock is the block the Uniswap V2 factory was deployed in.
	UniswapV2DeployBlock = 10000835
)

// ScanConfig holds the build-phase settings loaded from flags, env, or config file.
type ScanConfig struct {
	RPCURL            string
	FromBlock         uint64
	ToBlock           uint64
	Factories         []string
	AllFactories      bool
	Protocol          string
	WindowSize        uint64
	Out               string
	Errors            string
	Checkpoint        string
	CheckpointEnabled bool
	RescanFailed      bool
	ResolveNames      bool
	MaxRetries        int
	RetryBackoff      time.Duration
	FetchTimeout      time.Duration
	EnrichWorkers     int
	PGDSN             string
	MetricsAddr       string
	LogLevel          string
}

// Load merges config file, environment variables, and flags into ScanConfig.
func Load(cfgFile string, flags *pflag.FlagSet) (ScanConfig, error) {
	v := viper.New()
	v.SetDefault("from", uint64(UniswapV2DeployBlock))
	v.SetDefault("factory", []string{UniswapV2Factory})
	v.SetDefault("protocol", "uniswap-v2")
	v.SetDefault("window-size", uint64(2000))
	v.SetDefault("out", "./data/pools.json")
	v.SetDefault("errors", "./data/decode_errors.jsonl")
	v.SetDefault("checkpoint", "./data/checkpoint.json")
	v.SetDefault("checkpoint-enabled", true)
	v.SetDefault("resolve-names", true)
	v.SetDefault("enrich-workers", 8)
	setCommonDefaults(v)

	if err := read(v, cfgFile, flags); err != nil {
		return ScanConfig{}, err
	}

	cfg := ScanConfig{
		RPCURL:            v.GetString("rpc"),
		FromBlock:         v.GetUint64("from"),
		ToBlock:           v.GetUint64("to"),
		Factories:         getStringSlice(v, "factory"),
		AllFactories:      v.GetBool("all-factories"),
		Protocol:          v.GetString("protocol"),
		WindowSize:        v.GetUint64("window-size"),
		Out:               v.GetString("out"),
		Errors:            v.GetString("errors"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		RescanFailed:      v.GetBool("rescan-failed"),
		ResolveNames:      v.GetBool("resolve-names"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		FetchTimeout:      v.GetDuration("fetch-timeout"),
		EnrichWorkers:     v.GetInt("enrich-workers"),
		PGDSN:             v.GetString("pg-dsn"),
		MetricsAddr:       v.GetString("metrics-addr"),
		LogLevel:          v.GetString("log-level"),
	}

	if cfg.AllFactories {
		cfg.Factories = nil
	}
	if cfg.WindowSize == 0 {
		return ScanConfig{}, fmt.Errorf("window-size must be greater than zero")
	}
	if cfg.ToBlock != 0 && cfg.ToBlock < cfg.FromBlock {
		return ScanConfig{}, fmt.Errorf("to block %d is before from block %d", cfg.ToBlock, cfg.FromBlock)
	}
	return cfg, nil
}

func setCommonDefaults(v *viper.Viper) {
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("fetch-timeout", 30*time.Second)
	v.SetDefault("log-level", "info")
}

func read(v *viper.Viper, cfgFile string, flags *pflag.FlagSet) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		return nil
	}

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
