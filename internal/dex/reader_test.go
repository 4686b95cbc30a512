package dex

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

type fakeCaller struct {
	mu       sync.Mutex
	results  map[string]common.Address
	failures int
	calls    int
	blocks   []*big.Int
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.blocks = append(f.blocks, blockNumber)
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("connection reset")
	}

	parsed, err := AccessorABI()
	if err != nil {
		return nil, err
	}
	method, err := parsed.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	addr, ok := f.results[msg.To.Hex()+":"+method.Name]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return method.Outputs.Pack(addr)
}

func TestAccessorReaderReadsAndCaches(t *testing.T) {
	pool := common.HexToAddress("0x9999999999999999999999999999999999999999")
	token0 := common.HexToAddress("0x1111111111111111111111111111111111111111")
	caller := &fakeCaller{results: map[string]common.Address{pool.Hex() + ":token0": token0}}

	reader, err := NewAccessorReader(caller, ReaderConfig{CacheSize: 8})
	if err != nil {
		t.Fatalf("reader: %v", err)
	}

	for i := 0; i < 2; i++ {
		got, err := reader.ReadAddress(context.Background(), pool, AccessorToken0, 17000000)
		if err != nil {
			t.Fatalf("read token0: %v", err)
		}
		if got != token0 {
			t.Fatalf("token0 mismatch: %s", got.Hex())
		}
	}
	if caller.calls != 1 {
		t.Fatalf("expected cached second read, got %d calls", caller.calls)
	}
	if caller.blocks[0] == nil || caller.blocks[0].Uint64() != 17000000 {
		t.Fatalf("read must be scoped to the tx block, got %v", caller.blocks[0])
	}
}

func TestAccessorReaderRetriesTransientFailure(t *testing.T) {
	pool := common.HexToAddress("0x9999999999999999999999999999999999999999")
	quote := common.HexToAddress("0xdddddddddddddddddddddddddddddddddddddddd")
	caller := &fakeCaller{
		results:  map[string]common.Address{pool.Hex() + ":_QUOTE_TOKEN_": quote},
		failures: 1,
	}

	reader, err := NewAccessorReader(caller, ReaderConfig{MaxRetries: 2, RetryBackoff: time.Millisecond})
	if err != nil {
		t.Fatalf("reader: %v", err)
	}
	got, err := reader.ReadAddress(context.Background(), pool, AccessorQuoteToken, 1)
	if err != nil {
		t.Fatalf("read quote: %v", err)
	}
	if got != quote || caller.calls != 2 {
		t.Fatalf("unexpected result %s after %d calls", got.Hex(), caller.calls)
	}
}

func TestAccessorReaderErrors(t *testing.T) {
	pool := common.HexToAddress("0x9999999999999999999999999999999999999999")
	reader, err := NewAccessorReader(&fakeCaller{}, ReaderConfig{})
	if err != nil {
		t.Fatalf("reader: %v", err)
	}

	if _, err := reader.ReadAddress(context.Background(), pool, "fee", 1); err == nil {
		t.Fatalf("expected unsupported accessor error")
	}
	if _, err := reader.ReadAddress(context.Background(), pool, AccessorBaseToken, 1); err == nil {
		t.Fatalf("expected revert error")
	}
	if _, err := NewAccessorReader(nil, ReaderConfig{}); err == nil {
		t.Fatalf("expected nil caller error")
	}
}

func TestAccessorReaderNeverReadsLatest(t *testing.T) {
	pool := common.HexToAddress("0x9999999999999999999999999999999999999999")
	token1 := common.HexToAddress("0x2222222222222222222222222222222222222222")
	caller := &fakeCaller{results: map[string]common.Address{pool.Hex() + ":token1": token1}}

	reader, err := NewAccessorReader(caller, ReaderConfig{})
	if err != nil {
		t.Fatalf("reader: %v", err)
	}
	if _, err := reader.ReadAddress(context.Background(), pool, AccessorToken1, 0); err != nil {
		t.Fatalf("read token1: %v", err)
	}
	if len(caller.blocks) != 1 || caller.blocks[0] == nil {
		t.Fatalf("read must pin an explicit block, got %v", caller.blocks)
	}
	if caller.blocks[0].Sign() != 0 {
		t.Fatalf("block mismatch: %s", caller.blocks[0])
	}
}
