package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"flashloanScope/internal/model"
	"flashloanScope/internal/storage"
)

type fakeLogSource struct {
	latest uint64
	logs   []types.Log
	mu     sync.Mutex
	ranges []BlockRange
}

func (f *fakeLogSource) LatestBlockNumber(context.Context) (uint64, error) {
	return f.latest, nil
}

func (f *fakeLogSource) FilterLogs(_ context.Context, fromBlock, toBlock uint64, _ []common.Address, _ []common.Hash) ([]types.Log, error) {
	f.mu.Lock()
	f.ranges = append(f.ranges, BlockRange{From: fromBlock, To: toBlock})
	f.mu.Unlock()

	out := make([]types.Log, 0)
	for _, log := range f.logs {
		if log.BlockNumber >= fromBlock && log.BlockNumber <= toBlock {
			out = append(out, log)
		}
	}
	return out, nil
}

type fakeProcessor struct {
	withLoan map[common.Hash]bool
	fail     common.Hash
}

func (p fakeProcessor) Process(_ context.Context, txHash common.Hash) (model.TxFlashloans, []model.DecodeError, error) {
	if txHash == p.fail {
		return model.TxFlashloans{}, nil, errors.New("receipt not found")
	}
	row := model.TxFlashloans{TxHash: txHash.Hex()}
	if p.withLoan[txHash] {
		row.Flashloans = []model.FlashloanRecord{testRecord(1)}
	}
	return row, nil, nil
}

func TestRunnerScansAndCheckpoints(t *testing.T) {
	source := &fakeLogSource{
		latest: 105,
		logs: []types.Log{
			{TxHash: hashOf(1), BlockNumber: 100},
			{TxHash: hashOf(2), BlockNumber: 101},
			{TxHash: hashOf(3), BlockNumber: 104},
		},
	}
	processor := fakeProcessor{withLoan: map[common.Hash]bool{hashOf(1): true, hashOf(3): true}}
	sink := &memSink{}
	store := newMemStore()

	runner := NewRunner(RunConfig{
		FromBlock:   100,
		Topic0:      []common.Hash{hashOf(0xff)},
		BatchSize:   3,
		Concurrency: 2,
	}, source, processor, []storage.Sink{sink}, store, nil)

	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(source.ranges) != 2 {
		t.Fatalf("expected 2 ranges, got %v", source.ranges)
	}
	if len(sink.rows) != 2 || sink.rows[0].TxHash != hashOf(1).Hex() || sink.rows[1].TxHash != hashOf(3).Hex() {
		t.Fatalf("rows mismatch: %+v", sink.rows)
	}

	data, ok, _ := store.Load(context.Background(), CheckpointKey)
	if !ok {
		t.Fatalf("checkpoint not saved")
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		t.Fatalf("decode checkpoint: %v", err)
	}
	if cp.LastProcessedBlock != 105 {
		t.Fatalf("checkpoint mismatch: %d", cp.LastProcessedBlock)
	}

	source.ranges = nil
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(source.ranges) != 0 {
		t.Fatalf("expected resume past checkpoint, scanned %v", source.ranges)
	}
}

func TestRunnerStopsOnProcessFailure(t *testing.T) {
	source := &fakeLogSource{
		logs: []types.Log{{TxHash: hashOf(1), BlockNumber: 10}},
	}
	store := newMemStore()
	runner := NewRunner(RunConfig{
		FromBlock: 10,
		ToBlock:   10,
		Topic0:    []common.Hash{hashOf(0xff)},
		BatchSize: 10,
	}, source, fakeProcessor{fail: hashOf(1)}, nil, store, nil)

	if err := runner.Run(context.Background()); err == nil {
		t.Fatalf("expected process error")
	}
	if _, ok, _ := store.Load(context.Background(), CheckpointKey); ok {
		t.Fatalf("checkpoint advanced past failed batch")
	}
}

func TestRunnerRequiresTopics(t *testing.T) {
	runner := NewRunner(RunConfig{BatchSize: 1}, &fakeLogSource{}, fakeProcessor{}, nil, nil, nil)
	if err := runner.Run(context.Background()); err == nil {
		t.Fatalf("expected topic0 error")
	}
}
