package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"flashloanScope/internal/model"
)

// Store provides Postgres persistence for the key-value store and flashloan rows.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Persist upserts value under key.
func (s *Store) Persist(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = now()
	`, key, value)
	return err
}

// Load returns the value stored under key.
func (s *Store) Load(ctx context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, fmt.Errorf("key is required")
	}
	var value []byte
	row := s.pool.QueryRow(ctx, `SELECT value FROM kv_store WHERE key=$1`, key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

const deleteFlashloansSQL = `DELETE FROM flashloans WHERE chain_id=$1 AND tx_hash=$2`

const upsertFlashloanSQL = `
	INSERT INTO flashloans (
		chain_id, tx_hash, idx, block_number, asset, amount, account, created_at
	) VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, now())
	ON CONFLICT (chain_id, tx_hash, idx)
	DO UPDATE SET
		block_number = EXCLUDED.block_number,
		asset = EXCLUDED.asset,
		amount = EXCLUDED.amount,
		account = EXCLUDED.account
`

// PutTxBatch replaces the flashloans rows of every transaction in rows.
func (s *Store) PutTxBatch(ctx context.Context, rows []model.TxFlashloans) error {
	batch := buildFlashloanBatch(rows)
	if batch.Len() == 0 {
		return nil
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// buildFlashloanBatch queues, per transaction, a delete of its previous rows
// followed by one upsert per record, so a rerun with fewer records leaves no stale rows.
func buildFlashloanBatch(rows []model.TxFlashloans) *pgx.Batch {
	batch := &pgx.Batch{}
	for _, row := range rows {
		chainID := int64(row.ChainID)
		batch.Queue(deleteFlashloansSQL, chainID, row.TxHash)
		for idx, record := range row.Flashloans {
			amount := "0"
			if record.Amount != nil {
				amount = record.Amount.String()
			}
			batch.Queue(upsertFlashloanSQL,
				chainID,
				row.TxHash,
				idx,
				int64(row.BlockNumber),
				record.Asset,
				amount,
				record.Account,
			)
		}
	}
	return batch
}
