package dex

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"flashloanScope/internal/chain"
	"flashloanScope/internal/model"
)

// TxSource fetches the raw material of a transaction context.
type TxSource interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	TraceTransaction(ctx context.Context, txHash common.Hash) (*chain.CallFrame, error)
}

// BuilderConfig configures the ContextBuilder.
type BuilderConfig struct {
	ChainID      uint64
	TraceCalls   bool
	MaxRetries   int
	RetryBackoff time.Duration
}

// ContextBuilder assembles a fully decoded TxContext for a transaction hash.
type ContextBuilder struct {
	cfg     BuilderConfig
	source  TxSource
	decoder *ContextDecoder
	logger  *zap.Logger
}

// NewContextBuilder builds a ContextBuilder with its dependencies.
func NewContextBuilder(cfg BuilderConfig, source TxSource, decoder *ContextDecoder, logger *zap.Logger) *ContextBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContextBuilder{cfg: cfg, source: source, decoder: decoder, logger: logger}
}

// Build fetches the receipt and, if enabled, the call trace, and decodes both.
// The returned context is complete: detection may start only after Build returns.
func (b *ContextBuilder) Build(ctx context.Context, txHash common.Hash) (*model.TxContext, []model.DecodeError, error) {
	if b.source == nil {
		return nil, nil, fmt.Errorf("tx source is nil")
	}
	if b.decoder == nil {
		return nil, nil, fmt.Errorf("decoder is nil")
	}

	var receipt *types.Receipt
	err := chain.WithRetry(ctx, b.cfg.MaxRetries, b.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		receipt, err = b.source.TransactionReceipt(ctx, txHash)
		if err != nil {
			b.logger.Warn("receipt fetch failed", zap.String("tx_hash", txHash.Hex()), zap.Error(err))
		}
		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("receipt %s: %w", txHash.Hex(), err)
	}

	var root *chain.CallFrame
	if b.cfg.TraceCalls {
		err := chain.WithRetry(ctx, b.cfg.MaxRetries, b.cfg.RetryBackoff, func(ctx context.Context) error {
			var err error
			root, err = b.source.TraceTransaction(ctx, txHash)
			if err != nil {
				b.logger.Warn("trace fetch failed", zap.String("tx_hash", txHash.Hex()), zap.Error(err))
			}
			return err
		})
		if err != nil {
			return nil, nil, fmt.Errorf("trace %s: %w", txHash.Hex(), err)
		}
	}

	var blockNumber uint64
	if receipt.BlockNumber != nil {
		blockNumber = receipt.BlockNumber.Uint64()
	}

	tx, failures := b.decoder.Decode(TxMeta{
		ChainID:     b.cfg.ChainID,
		BlockNumber: blockNumber,
		TxHash:      txHash,
	}, receipt.Logs, root)

	b.logger.Debug("context built",
		zap.String("tx_hash", txHash.Hex()),
		zap.Uint64("block_number", blockNumber),
		zap.Int("events", len(tx.Events)),
		zap.Int("calls", len(tx.Calls)),
		zap.Int("decode_errors", len(failures)),
	)

	return tx, failures, nil
}
