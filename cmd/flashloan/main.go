package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "flashloan",
		Short:        "Flashloan detector for EVM transactions",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	detectCmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect flashloans in specific transactions",
		RunE:  runDetect,
	}

	detectCmd.Flags().StringSlice("tx", nil, "transaction hashes (comma-separated)")
	addCommonFlags(detectCmd.Flags())

	root.AddCommand(detectCmd)

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a block range for flashloan transactions",
		RunE:  runScan,
	}

	scanCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	scanCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	scanCmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	addCommonFlags(scanCmd.Flags())

	root.AddCommand(scanCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addCommonFlags(flags *pflag.FlagSet) {
	flags.String("rpc", "", "RPC URL (debug namespace required for call traces)")
	flags.StringSlice("protocols", nil, "protocols to run (aave-v2, balancer, dodo, uniswap-v3); empty runs every protocol the tx touches")
	flags.String("out", "./data/flashloans.jsonl", "output JSONL path")
	flags.String("store", "file", "key-value store backend (file, postgres)")
	flags.String("store-path", "./data/store", "file store directory")
	flags.String("pg-dsn", "", "Postgres DSN")
	flags.Bool("trace-calls", true, "fetch call traces with debug_traceTransaction")
	flags.String("swap-tie-break", "last", "swap correlation policy (last, nearest, strict)")
	flags.Int("concurrency", 8, "maximum concurrent chain reads")
	flags.Int("max-retries", 5, "maximum retry attempts")
	flags.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	flags.Int("cache-size", 4096, "accessor cache entries")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
