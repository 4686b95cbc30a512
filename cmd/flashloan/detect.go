package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"flashloanScope/internal/config"
	"flashloanScope/internal/indexer"
	"flashloanScope/internal/model"
)

func runDetect(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDetect(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	hashes, err := indexer.ParseTxHashes(cfg.TxHashes)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg.Common, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	rows := make([]model.TxFlashloans, 0, len(hashes))
	encoder := json.NewEncoder(cmd.OutOrStdout())
	for _, hash := range hashes {
		row, failures, err := a.pipeline.Process(ctx, hash)
		if err != nil {
			return err
		}
		logger.Info("tx detected",
			zap.String("tx_hash", row.TxHash),
			zap.Int("flashloans", len(row.Flashloans)),
			zap.Int("errors", len(row.Errors)),
			zap.Int("decode_errors", len(failures)),
		)
		if err := encoder.Encode(row); err != nil {
			return err
		}
		rows = append(rows, row)
	}

	for _, sink := range a.sinks {
		if err := sink.PutTxBatch(ctx, rows); err != nil {
			return err
		}
	}
	return nil
}
