package storage

import (
	"context"
	"fmt"
	"strings"

	"flashloanScope/internal/model"
	"flashloanScope/internal/storage/postgres"
)

// Store is a key-value persistence contract.
type Store interface {
	Persist(ctx context.Context, key string, value []byte) error
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Close()
}

// Sink receives detection output rows.
type Sink interface {
	PutTxBatch(ctx context.Context, rows []model.TxFlashloans) error
}

// Backend names accepted by Open.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Options selects and configures a Store backend.
type Options struct {
	Backend string
	Path    string
	PGDSN   string
}

// Open returns the Store selected by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendFile:
		if opts.Path == "" {
			return nil, fmt.Errorf("store path is required")
		}
		return NewFileStore(opts.Path), nil
	case BackendPostgres:
		store, err := postgres.NewStore(ctx, opts.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", opts.Backend)
	}
}
