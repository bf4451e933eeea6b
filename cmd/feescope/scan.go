package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"feeScope/internal/amm"
	"feeScope/internal/chain"
	"feeScope/internal/config"
	"feeScope/internal/dex"
	"feeScope/internal/indexer"
	"feeScope/internal/storage"
	"feeScope/internal/storage/postgres"
)

func runScan(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}

	factories, err := indexer.ParseAddresses(cfg.Factories)
	if err != nil {
		return err
	}

	protocol, err := dex.LookupProtocol(cfg.Protocol, amm.Estimator{})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	promRegistry, m := newMetrics()
	stopMetrics := serveMetrics(cfg.MetricsAddr, promRegistry, logger)
	defer stopMetrics()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, chain.WithMetrics(m))
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	chainID, err := chainClient.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}

	poolFile := storage.NewPoolFile(cfg.Out)
	deps := indexer.Dependencies{
		Source:       chainClient,
		Caller:       chainClient,
		Protocol:     protocol,
		PoolSinks:    []storage.PoolSink{poolFile},
		PoolLoader:   poolFile,
		DecodeErrors: storage.NewDecodeErrorLog(cfg.Errors),
		Checkpoint:   indexer.NewFileCheckpointStore(cfg.Checkpoint, cfg.CheckpointEnabled),
		Metrics:      m,
	}

	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		deps.PoolSinks = append(deps.PoolSinks, store)
		deps.PoolLoader = store
		if cfg.CheckpointEnabled {
			deps.Checkpoint = &indexer.DBCheckpointStore{Store: store, Name: "scan:" + protocol.Name()}
		}
	}

	runner := indexer.NewRunner(indexer.RunConfig{
		FromBlock:     cfg.FromBlock,
		ToBlock:       cfg.ToBlock,
		WindowSize:    cfg.WindowSize,
		Factories:     factories,
		MaxRetries:    cfg.MaxRetries,
		RetryBackoff:  cfg.RetryBackoff,
		FetchTimeout:  cfg.FetchTimeout,
		EnrichWorkers: cfg.EnrichWorkers,
		ResolveNames:  cfg.ResolveNames,
		RescanFailed:  cfg.RescanFailed,
	}, deps, logger)

	logger.Info("scan start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("chain_id", chainID.String()),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Int("factories", len(factories)),
		zap.Bool("all_factories", len(factories) == 0),
		zap.String("protocol", protocol.Name()),
		zap.Uint64("window_size", cfg.WindowSize),
		zap.String("out", cfg.Out),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.Bool("rescan_failed", cfg.RescanFailed),
		zap.Bool("postgres", cfg.PGDSN != ""),
	)

	reg, stats, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	logger.Info("scan finished",
		zap.Uint64("from", stats.From),
		zap.Uint64("to", stats.To),
		zap.Bool("resumed", stats.Resumed),
		zap.Int("windows", stats.Windows),
		zap.Int("failed_windows", stats.FailedWindows),
		zap.Int("logs", stats.Logs),
		zap.Int("decode_errors", stats.DecodeErrors),
		zap.Int("pools_added", stats.PoolsAdded),
		zap.Int("pools", reg.Len()),
		zap.Strings("factories", reg.DistinctFactories()),
		zap.Strings("protocols", reg.DistinctProtocols()),
	)
	return nil
}
