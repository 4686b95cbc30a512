package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"flashloanScope/internal/detect"
	"flashloanScope/internal/model"
	"flashloanScope/internal/protocol"
	"flashloanScope/internal/storage"
)

// ContextSource builds a decoded transaction context.
type ContextSource interface {
	Build(ctx context.Context, txHash common.Hash) (*model.TxContext, []model.DecodeError, error)
}

// ResultKey is the store key of a transaction's detection result.
func ResultKey(txHash common.Hash) string {
	return "flashloans:" + strings.ToLower(txHash.Hex())
}

// Pipeline detects the flashloans of one transaction: build context, select
// detectors, run them, persist the summary.
type Pipeline struct {
	source    ContextSource
	registry  *protocol.Registry
	protocols []string
	engine    *detect.Engine
	store     storage.Store
	logger    *zap.Logger
}

// NewPipeline validates the protocol selection against the registry.
// An empty selection runs every detector the transaction touches.
func NewPipeline(source ContextSource, registry *protocol.Registry, protocols []string, store storage.Store, logger *zap.Logger) (*Pipeline, error) {
	if source == nil {
		return nil, fmt.Errorf("context source is nil")
	}
	if registry == nil {
		return nil, fmt.Errorf("registry is nil")
	}
	if _, err := registry.Select(protocols); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		source:    source,
		registry:  registry,
		protocols: protocols,
		engine:    detect.NewEngine(logger),
		store:     store,
		logger:    logger,
	}, nil
}

// Process runs detection for txHash. Detector failures are reported in the
// returned row; only context construction and persistence fail the call.
func (p *Pipeline) Process(ctx context.Context, txHash common.Hash) (model.TxFlashloans, []model.DecodeError, error) {
	tx, failures, err := p.source.Build(ctx, txHash)
	if err != nil {
		return model.TxFlashloans{}, nil, err
	}
	for _, failure := range failures {
		p.logger.Warn("decode failed",
			zap.String("tx_hash", failure.TxHash),
			zap.String("source", failure.Source),
			zap.Uint64("index", failure.Index),
			zap.String("selector", failure.Selector),
			zap.String("error", failure.Error),
		)
	}

	detectors, err := p.detectors(tx)
	if err != nil {
		return model.TxFlashloans{}, failures, err
	}

	result := p.engine.Run(ctx, tx, detectors)
	row := detect.Summarize(tx, result)

	if p.store != nil {
		data, err := json.Marshal(row)
		if err != nil {
			return row, failures, fmt.Errorf("marshal result: %w", err)
		}
		if err := p.store.Persist(ctx, ResultKey(txHash), data); err != nil {
			return row, failures, fmt.Errorf("persist result: %w", err)
		}
	}

	p.logger.Debug("tx processed",
		zap.String("tx_hash", row.TxHash),
		zap.Strings("protocols", row.Protocols),
		zap.Int("flashloans", len(row.Flashloans)),
		zap.Int("errors", len(row.Errors)),
	)
	return row, failures, nil
}

func (p *Pipeline) detectors(tx *model.TxContext) ([]protocol.Detector, error) {
	if len(p.protocols) > 0 {
		return p.registry.Select(p.protocols)
	}
	return p.registry.Touched(tx), nil
}
