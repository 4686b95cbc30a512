package dex

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"flashloanScope/internal/chain"
)

type fakeSource struct {
	receipt    *types.Receipt
	trace      *chain.CallFrame
	traceErr   error
	traceCalls int
}

func (f *fakeSource) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	if f.receipt == nil {
		return nil, errors.New("not found")
	}
	return f.receipt, nil
}

func (f *fakeSource) TraceTransaction(context.Context, common.Hash) (*chain.CallFrame, error) {
	f.traceCalls++
	return f.trace, f.traceErr
}

func TestContextBuilderSkipsTraceWhenDisabled(t *testing.T) {
	decoder, err := NewContextDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	source := &fakeSource{receipt: &types.Receipt{BlockNumber: big.NewInt(42)}}
	builder := NewContextBuilder(BuilderConfig{ChainID: 1}, source, decoder, zap.NewNop())

	tx, failures, err := builder.Build(context.Background(), common.HexToHash("0x01"))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if source.traceCalls != 0 {
		t.Fatalf("trace should not be fetched")
	}
	if tx.BlockNumber != 42 || tx.ChainID != 1 || len(failures) != 0 {
		t.Fatalf("context mismatch: %+v", tx)
	}
}

func TestContextBuilderPropagatesTraceError(t *testing.T) {
	decoder, err := NewContextDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	source := &fakeSource{
		receipt:  &types.Receipt{BlockNumber: big.NewInt(42)},
		traceErr: errors.New("method not found"),
	}
	builder := NewContextBuilder(BuilderConfig{TraceCalls: true}, source, decoder, nil)

	if _, _, err := builder.Build(context.Background(), common.HexToHash("0x01")); err == nil {
		t.Fatalf("expected trace error")
	}
}

func TestContextBuilderMissingReceipt(t *testing.T) {
	decoder, err := NewContextDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	builder := NewContextBuilder(BuilderConfig{}, &fakeSource{}, decoder, nil)
	if _, _, err := builder.Build(context.Background(), common.HexToHash("0x01")); err == nil {
		t.Fatalf("expected receipt error")
	}
}
