package detect

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"flashloanScope/internal/dex"
	"flashloanScope/internal/model"
	"flashloanScope/internal/protocol"
)

type stubDetector struct {
	name    string
	records []model.FlashloanRecord
	err     error
}

func (s stubDetector) Name() string { return s.name }
func (s stubDetector) Applies(*model.TxContext) bool { return true }
func (s stubDetector) Detect(context.Context, *model.TxContext) ([]model.FlashloanRecord, error) {
	return s.records, s.err
}

type staticReader map[string]common.Address

func (r staticReader) ReadAddress(_ context.Context, contract common.Address, accessor string, _ uint64) (common.Address, error) {
	addr, ok := r[model.NormalizeAddress(contract)+":"+accessor]
	if !ok {
		return common.Address{}, errors.New("execution reverted")
	}
	return addr, nil
}

func record(asset string, amount int64, account string) model.FlashloanRecord {
	return model.FlashloanRecord{Asset: asset, Amount: big.NewInt(amount), Account: account}
}

func TestAggregatePreservesOrderAndDropsEmpty(t *testing.T) {
	got := Aggregate(
		[]model.FlashloanRecord{record("0xa", 1, "0x1"), {}},
		nil,
		[]model.FlashloanRecord{record("0xb", 2, "0x2"), record("0xa", 1, "0x1")},
	)
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	if got[0].Asset != "0xa" || got[1].Asset != "0xb" || got[2].Asset != "0xa" {
		t.Fatalf("order mismatch: %+v", got)
	}
}

func TestEngineRunIsolatesDetectorFailures(t *testing.T) {
	engine := NewEngine(zap.NewNop())
	failure := errors.New("read failed")
	detectors := []protocol.Detector{
		stubDetector{name: "first", records: []model.FlashloanRecord{record("0xa", 1, "0x1")}},
		stubDetector{name: "broken", records: []model.FlashloanRecord{record("0xc", 3, "0x3")}, err: failure},
		stubDetector{name: "last", records: []model.FlashloanRecord{record("0xb", 2, "0x2")}},
	}

	result := engine.Run(context.Background(), &model.TxContext{}, detectors)
	if len(result.Records) != 3 {
		t.Fatalf("expected all resolved records, got %d", len(result.Records))
	}
	if result.Records[0].Asset != "0xa" || result.Records[1].Asset != "0xc" || result.Records[2].Asset != "0xb" {
		t.Fatalf("records not in invocation order: %+v", result.Records)
	}
	if !errors.Is(result.Err(), failure) {
		t.Fatalf("expected joined failure, got %v", result.Err())
	}

	row := Summarize(&model.TxContext{ChainID: 1, BlockNumber: 9}, result)
	if len(row.Protocols) != 3 || len(row.Errors) != 1 || row.BlockNumber != 9 {
		t.Fatalf("summary mismatch: %+v", row)
	}
}

func TestEngineRunAcrossProtocols(t *testing.T) {
	pool := common.HexToAddress("0x9999999999999999999999999999999999999999")
	token0 := common.HexToAddress("0x1111111111111111111111111111111111111111")
	reader := staticReader{model.NormalizeAddress(pool) + ":" + dex.AccessorToken0: token0}
	registry := protocol.DefaultRegistry(reader, protocol.Options{Concurrency: 2})

	tx := &model.TxContext{
		BlockNumber: 77,
		Events: []model.DecodedEvent{{
			Signature: dex.AaveV2FlashLoanSig,
			Args: model.Args{
				"target": common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"),
				"asset":  common.HexToAddress("0xCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC"),
				"amount": big.NewInt(1000),
			},
		}},
		Calls: []model.DecodedCall{
			{
				To:        pool,
				Signature: dex.V3PoolFlashCallSig,
				Index:     0,
				Args: model.Args{
					"recipient": common.HexToAddress("0xEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEE"),
					"amount0":   big.NewInt(100),
					"amount1":   big.NewInt(0),
				},
			},
			{
				To:        pool,
				Signature: dex.V3PoolSwapCallSig,
				Index:     1,
				Args: model.Args{
					"recipient":  common.HexToAddress("0xFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF"),
					"zeroForOne": true,
				},
			},
		},
	}

	result := NewEngine(nil).Run(context.Background(), tx, registry.Touched(tx))
	if err := result.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []model.FlashloanRecord{
		record("0xcccccccccccccccccccccccccccccccccccccccc", 1000, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
		record("0x1111111111111111111111111111111111111111", 100, "0xffffffffffffffffffffffffffffffffffffffff"),
	}
	if len(result.Records) != len(want) {
		t.Fatalf("record count mismatch: %+v", result.Records)
	}
	for i := range want {
		got := result.Records[i]
		if got.Asset != want[i].Asset || got.Account != want[i].Account || got.Amount.Cmp(want[i].Amount) != 0 {
			t.Fatalf("record %d mismatch: %+v", i, got)
		}
	}
}
