package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"flashloanScope/internal/chain"
	"flashloanScope/internal/config"
	"flashloanScope/internal/dex"
	"flashloanScope/internal/indexer"
	"flashloanScope/internal/protocol"
	"flashloanScope/internal/storage"
)

// app holds the components shared by detect and scan.
type app struct {
	chain    *chain.Client
	store    storage.Store
	decoder  *dex.ContextDecoder
	pipeline *indexer.Pipeline
	sinks    []storage.Sink
}

func newApp(ctx context.Context, cfg config.Common, logger *zap.Logger) (*app, error) {
	tieBreak, err := protocol.ParseSwapTieBreak(cfg.TieBreak)
	if err != nil {
		return nil, err
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}

	a := &app{chain: chainClient}
	if err := a.init(ctx, cfg, tieBreak, logger); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context, cfg config.Common, tieBreak protocol.SwapTieBreak, logger *zap.Logger) error {
	chainID, err := a.chain.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}

	store, err := storage.Open(ctx, storage.Options{
		Backend: cfg.Store,
		Path:    cfg.StorePath,
		PGDSN:   cfg.PGDSN,
	})
	if err != nil {
		return err
	}
	a.store = store

	decoder, err := dex.NewContextDecoder()
	if err != nil {
		return err
	}
	a.decoder = decoder

	reader, err := dex.NewAccessorReader(a.chain, dex.ReaderConfig{
		CacheSize:    cfg.CacheSize,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	registry := protocol.DefaultRegistry(reader, protocol.Options{
		Concurrency: cfg.Concurrency,
		TieBreak:    tieBreak,
	})

	if !cfg.TraceCalls {
		logger.Warn("call traces disabled, call-based protocols will find nothing", zap.String("protocol", protocol.ProtocolUniswapV3))
	}

	builder := dex.NewContextBuilder(dex.BuilderConfig{
		ChainID:      chainID.Uint64(),
		TraceCalls:   cfg.TraceCalls,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, a.chain, decoder, logger)

	pipeline, err := indexer.NewPipeline(builder, registry, cfg.Protocols, store, logger)
	if err != nil {
		return err
	}
	a.pipeline = pipeline

	if cfg.Out != "" {
		a.sinks = append(a.sinks, storage.NewJsonlSink(cfg.Out))
	}
	if sink, ok := store.(storage.Sink); ok {
		a.sinks = append(a.sinks, sink)
	}

	logger.Info("app ready",
		zap.Uint64("chain_id", chainID.Uint64()),
		zap.Strings("protocols", registry.Names()),
		zap.Strings("selected", cfg.Protocols),
		zap.String("store", cfg.Store),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("swap_tie_break", string(tieBreak)),
		zap.Bool("trace_calls", cfg.TraceCalls),
	)
	return nil
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
	if a.chain != nil {
		a.chain.Close()
	}
}
