package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"flashloanScope/internal/chain"
	"flashloanScope/internal/model"
	"flashloanScope/internal/storage"
)

// LogSource provides block heights and filtered logs.
type LogSource interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
}

// TxProcessor detects the flashloans of a single transaction.
type TxProcessor interface {
	Process(ctx context.Context, txHash common.Hash) (model.TxFlashloans, []model.DecodeError, error)
}

// RunConfig holds runtime settings for the scan runner.
type RunConfig struct {
	FromBlock    uint64
	ToBlock      uint64
	Topic0       []common.Hash
	BatchSize    uint64
	Concurrency  int
	MaxRetries   int
	RetryBackoff time.Duration
}

// Runner scans block ranges for flashloan transactions and writes their results to sinks.
type Runner struct {
	cfg        RunConfig
	source     LogSource
	processor  TxProcessor
	sinks      []storage.Sink
	logger     *zap.Logger
	checkpoint *CheckpointStore
}

// NewRunner builds a Runner with its dependencies. A nil store disables checkpoints.
func NewRunner(cfg RunConfig, source LogSource, processor TxProcessor, sinks []storage.Sink, store storage.Store, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	var checkpoint *CheckpointStore
	if store != nil {
		checkpoint = NewCheckpointStore(store)
	}
	return &Runner{
		cfg:        cfg,
		source:     source,
		processor:  processor,
		sinks:      sinks,
		logger:     logger,
		checkpoint: checkpoint,
	}
}

// Run executes the scan loop.
func (r *Runner) Run(ctx context.Context) error {
	if r.source == nil {
		return fmt.Errorf("log source is nil")
	}
	if r.processor == nil {
		return fmt.Errorf("tx processor is nil")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if len(r.cfg.Topic0) == 0 {
		return fmt.Errorf("at least one topic0 is required")
	}

	from := r.cfg.FromBlock
	to := r.cfg.ToBlock
	if to == 0 {
		latest, err := r.source.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}

	cp, ok, err := r.checkpoint.Load(ctx)
	if err != nil {
		return err
	}
	if ok && cp.LastProcessedBlock >= from {
		from = cp.LastProcessedBlock + 1
		r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", cp.LastProcessedBlock), zap.Uint64("from", from))
	}

	if from > to {
		r.logger.Info("nothing to scan", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		r.logger.Info("fetch logs", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))

		logs, err := r.filterLogsWithRetry(ctx, blockRange.From, blockRange.To)
		if err != nil {
			return fmt.Errorf("filter logs: %w", err)
		}

		rows, err := r.processTxs(ctx, groupByTx(logs))
		if err != nil {
			return err
		}

		for _, sink := range r.sinks {
			if err := sink.PutTxBatch(ctx, rows); err != nil {
				return fmt.Errorf("store rows: %w", err)
			}
		}

		if err := r.checkpoint.Save(ctx, blockRange.To); err != nil {
			return err
		}

		r.logger.Info("batch complete",
			zap.Int("logs", len(logs)),
			zap.Int("txs", len(rows)),
			zap.Uint64("from", blockRange.From),
			zap.Uint64("to", blockRange.To),
		)
	}

	return nil
}

// processTxs runs the processor over refs concurrently and returns rows in chain order.
// Any failure aborts the batch so the checkpoint never skips a transaction.
func (r *Runner) processTxs(ctx context.Context, refs []txRef) ([]model.TxFlashloans, error) {
	rows := make([]model.TxFlashloans, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	if r.cfg.Concurrency > 0 {
		g.SetLimit(r.cfg.Concurrency)
	}
	for i, ref := range refs {
		g.Go(func() error {
			row, _, err := r.processor.Process(gctx, ref.hash)
			if err != nil {
				return fmt.Errorf("process tx %s: %w", ref.hash.Hex(), err)
			}
			rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]model.TxFlashloans, 0, len(rows))
	for _, row := range rows {
		if len(row.Flashloans) == 0 && len(row.Errors) == 0 {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (r *Runner) filterLogsWithRetry(ctx context.Context, fromBlock, toBlock uint64) ([]types.Log, error) {
	var logs []types.Log
	err := chain.WithRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		logs, err = r.source.FilterLogs(ctx, fromBlock, toBlock, nil, r.cfg.Topic0)
		if err != nil {
			r.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", fromBlock), zap.Uint64("to", toBlock))
		}
		return err
	})
	return logs, err
}
