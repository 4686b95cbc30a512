package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"flashloanScope/internal/storage"
)

// CheckpointKey is the store key of the scan checkpoint.
const CheckpointKey = "checkpoint:scan"

// Checkpoint tracks the last processed block.
type Checkpoint struct {
	LastProcessedBlock uint64 `json:"last_processed_block"`
	UpdatedAt          string `json:"updated_at"`
}

// CheckpointStore persists checkpoints in a key-value store.
type CheckpointStore struct {
	store storage.Store
}

func NewCheckpointStore(store storage.Store) *CheckpointStore {
	return &CheckpointStore{store: store}
}

func (c *CheckpointStore) Load(ctx context.Context) (Checkpoint, bool, error) {
	if c == nil || c.store == nil {
		return Checkpoint{}, false, nil
	}

	data, ok, err := c.store.Load(ctx, CheckpointKey)
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("read checkpoint: %w", err)
	}
	if !ok {
		return Checkpoint{}, false, nil
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("parse checkpoint: %w", err)
	}

	return cp, true, nil
}

func (c *CheckpointStore) Save(ctx context.Context, lastProcessed uint64) error {
	if c == nil || c.store == nil {
		return nil
	}

	cp := Checkpoint{
		LastProcessedBlock: lastProcessed,
		UpdatedAt:          time.Now().UTC().Format(time.RFC3339Nano),
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	if err := c.store.Persist(ctx, CheckpointKey, data); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}

	return nil
}
