package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "feescope",
		Short:        "AMM factory pool discovery and fee inference",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan factory PairCreated logs and write the pool file",
		RunE:  runScan,
	}

	scanCmd.Flags().String("rpc", "", "Ethereum RPC URL (archive node for historical reads)")
	scanCmd.Flags().Uint64("from", 10000835, "start block (inclusive)")
	scanCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	scanCmd.Flags().StringSlice("factory", nil, "factory addresses (comma-separated)")
	scanCmd.Flags().Bool("all-factories", false, "ignore the factory list and scan creation events from every factory")
	scanCmd.Flags().String("protocol", "uniswap-v2", "protocol variant (uniswap-v2, sushiswap, pancakeswap-v2)")
	scanCmd.Flags().Uint64("window-size", 2000, "blocks per log query")
	scanCmd.Flags().String("out", "./data/pools.json", "output pool JSON path")
	scanCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	scanCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	scanCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing and resume")
	scanCmd.Flags().Bool("rescan-failed", false, "rescan windows recorded as failed before continuing")
	scanCmd.Flags().Bool("resolve-names", true, "resolve each pair's name() as its protocol label")
	scanCmd.Flags().Int("enrich-workers", 8, "concurrent name() lookups")
	addCommonFlags(scanCmd)

	root.AddCommand(scanCmd)

	feesCmd := &cobra.Command{
		Use:   "fees",
		Short: "Infer each factory's fee from the first trades of its earliest pool",
		RunE:  runFees,
	}

	feesCmd.Flags().String("rpc", "", "Ethereum archive RPC URL")
	feesCmd.Flags().String("pools", "./data/pools.json", "input pool JSON path")
	feesCmd.Flags().String("out", "./data/factory_fees.json", "output fee report path")
	feesCmd.Flags().String("protocol", "uniswap-v2", "protocol variant")
	feesCmd.Flags().StringSlice("factory", nil, "only infer these factories (comma-separated)")
	feesCmd.Flags().Uint64("horizon", 2000, "blocks after pool creation searched for trades")
	feesCmd.Flags().String("locate-policy", "earliest-block", "trade selection (earliest-block, full-horizon)")
	feesCmd.Flags().Int("fee-decimals", 3, "decimal places kept on the fee fraction (1-6)")
	feesCmd.Flags().Int("candidates", 1, "earliest pools tried per factory")
	addCommonFlags(feesCmd)

	root.AddCommand(feesCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	cmd.Flags().Duration("fetch-timeout", 30*time.Second, "timeout per RPC attempt")
	cmd.Flags().String("pg-dsn", "", "optional Postgres DSN to mirror results")
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}
