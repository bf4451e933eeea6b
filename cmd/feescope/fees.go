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
	"feeScope/internal/inference"
	"feeScope/internal/model"
	"feeScope/internal/registry"
	"feeScope/internal/storage"
	"feeScope/internal/storage/postgres"
)

func runFees(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFees(cfgFile, cmd.Flags())
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

	protocol, err := dex.LookupProtocol(cfg.Protocol, amm.NewEstimator(cfg.FeeDecimals))
	if err != nil {
		return err
	}
	policy, err := inference.ParsePolicy(cfg.LocatePolicy)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poolFile := storage.NewPoolFile(cfg.Pools)
	pools, ok, err := poolFile.LoadPools(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("pool file %s not found; run scan first", poolFile.Path())
	}
	reg := registry.NewFromPools(pools)

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

	var store *postgres.Store
	var stored map[string]*uint32
	if cfg.PGDSN != "" {
		store, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		stored, err = store.LoadFactoryFees(ctx)
		if err != nil {
			return err
		}
	}

	locator := inference.NewLocator(chainClient, protocol, inference.LocatorConfig{
		Horizon:      cfg.Horizon,
		Policy:       policy,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		FetchTimeout: cfg.FetchTimeout,
	}, logger, m)
	inferrer := inference.NewInferrer(locator, chainClient, protocol, inference.InferConfig{
		Factories:    cfg.Factories,
		Candidates:   cfg.Candidates,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		FetchTimeout: cfg.FetchTimeout,
	}, logger, m)

	logger.Info("fee inference start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("chain_id", chainID.String()),
		zap.String("pools", cfg.Pools),
		zap.Int("pool_count", reg.Len()),
		zap.Int("factories", len(reg.DistinctFactories())),
		zap.Uint64("horizon", cfg.Horizon),
		zap.String("policy", string(policy)),
		zap.Int("fee_decimals", cfg.FeeDecimals),
	)

	report, err := inferrer.Run(ctx, reg)
	if err != nil {
		return err
	}

	reportSinks := []storage.FeeReportSink{storage.NewFeeReportFile(cfg.Out)}
	poolSinks := []storage.PoolSink{poolFile}
	if store != nil {
		warnChangedFees(logger, stored, report)
		reportSinks = append(reportSinks, store)
		poolSinks = append(poolSinks, store)
	}

	var writeErr error
	for _, sink := range reportSinks {
		if err := sink.SaveFeeReport(ctx, report); err != nil {
			m.PersistenceError("fee report")
			logger.Error("persist fee report failed", zap.Error(err))
			if writeErr == nil {
				writeErr = err
			}
		}
	}
	updated := reg.Pools()
	for _, sink := range poolSinks {
		if err := sink.SavePools(ctx, updated); err != nil {
			m.PersistenceError("pools")
			logger.Error("persist pools failed", zap.Error(err))
		}
	}

	determined := 0
	for _, fee := range report.Fees {
		if fee != nil {
			determined++
		}
	}
	logger.Info("fee inference finished",
		zap.Int("factories", len(report.Fees)),
		zap.Int("determined", determined),
		zap.String("out", cfg.Out),
	)
	return writeErr
}

// warnChangedFees flags factories whose stored fee differs from this run.
func warnChangedFees(logger *zap.Logger, stored map[string]*uint32, report model.FeeReport) {
	for factory, fee := range report.Fees {
		previous, ok := stored[factory]
		if !ok || previous == nil || fee == nil || *previous == *fee {
			continue
		}
		logger.Warn("factory fee differs from stored value",
			zap.String("factory", factory),
			zap.Uint32("stored_ppm", *previous),
			zap.Uint32("inferred_ppm", *fee))
	}
}
