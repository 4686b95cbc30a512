package indexer

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"flashloanScope/internal/model"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (s *memStore) Persist(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *memStore) Load(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.data[key]
	return value, ok, nil
}

func (s *memStore) Close() {}

type memSink struct {
	mu   sync.Mutex
	rows []model.TxFlashloans
}

func (s *memSink) PutTxBatch(_ context.Context, rows []model.TxFlashloans) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
	return nil
}

func hashOf(b byte) common.Hash {
	return common.BytesToHash([]byte{b})
}
