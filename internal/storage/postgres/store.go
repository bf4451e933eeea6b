package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"feeScope/internal/model"
	"feeScope/internal/storage"
)

var (
	_ storage.PoolAppender  = (*Store)(nil)
	_ storage.PoolLoader    = (*Store)(nil)
	_ storage.FeeReportSink = (*Store)(nil)
)

// Store mirrors pools, factory fees and scan checkpoints into Postgres.
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

// SavePools upserts pools. A fee already stored is never overwritten.
func (s *Store) SavePools(ctx context.Context, pools []model.Pool) error {
	return s.upsertPools(ctx, pools)
}

// AppendPools upserts the pools discovered in one window.
func (s *Store) AppendPools(ctx context.Context, pools []model.Pool) error {
	return s.upsertPools(ctx, pools)
}

func (s *Store) upsertPools(ctx context.Context, pools []model.Pool) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pool := range pools {
		batch.Queue(`
			INSERT INTO pools (
				pool_address, protocol, token0, token1, factory, fee,
				created_in_block, created_in_tx, pair_index, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
			ON CONFLICT (pool_address)
			DO UPDATE SET
				protocol = EXCLUDED.protocol,
				fee = COALESCE(pools.fee, EXCLUDED.fee),
				updated_at = now()
		`,
			pool.Address,
			pool.Protocol,
			pool.Tokens[0],
			pool.Tokens[1],
			pool.Factory,
			nullableFee(pool.Fee),
			int64(pool.CreatedInBlock),
			pool.CreatedInTx,
			int64(pool.Index),
		)
	}
	return s.sendBatch(ctx, batch, len(pools))
}

// LoadPools returns every stored pool ordered by creation block.
func (s *Store) LoadPools(ctx context.Context) ([]model.Pool, bool, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT pool_address, protocol, token0, token1, factory, fee,
			created_in_block, created_in_tx, pair_index
		FROM pools
		ORDER BY created_in_block, pair_index
	`)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	var pools []model.Pool
	for rows.Next() {
		var (
			pool    model.Pool
			fee     *int32
			block   int64
			ordinal int64
		)
		if err := rows.Scan(&pool.Address, &pool.Protocol, &pool.Tokens[0], &pool.Tokens[1], &pool.Factory,
			&fee, &block, &pool.CreatedInTx, &ordinal); err != nil {
			return nil, false, err
		}
		if fee != nil {
			value := uint32(*fee)
			pool.Fee = &value
		}
		pool.CreatedInBlock = uint64(block)
		pool.Index = uint64(ordinal)
		pools = append(pools, pool)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return pools, len(pools) > 0, nil
}

// SaveFeeReport upserts one row per factory.
func (s *Store) SaveFeeReport(ctx context.Context, report model.FeeReport) error {
	if len(report.Details) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, entry := range report.Details {
		batch.Queue(`
			INSERT INTO factory_fees (factory, protocol, pool, fee, block, tx_hash, reason, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now())
			ON CONFLICT (factory)
			DO UPDATE SET
				protocol = EXCLUDED.protocol,
				pool = EXCLUDED.pool,
				fee = EXCLUDED.fee,
				block = EXCLUDED.block,
				tx_hash = EXCLUDED.tx_hash,
				reason = EXCLUDED.reason,
				updated_at = now()
		`,
			entry.Factory,
			entry.Protocol,
			entry.Pool,
			nullableFee(entry.Fee),
			int64(entry.Block),
			entry.TxHash,
			entry.Reason,
		)
	}
	return s.sendBatch(ctx, batch, len(report.Details))
}

// LoadFactoryFees returns the stored fee per factory; nil means undetermined.
func (s *Store) LoadFactoryFees(ctx context.Context) (map[string]*uint32, error) {
	rows, err := s.pool.Query(ctx, `SELECT factory, fee FROM factory_fees`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]*uint32)
	for rows.Next() {
		var (
			factory string
			fee     *int32
		)
		if err := rows.Scan(&factory, &fee); err != nil {
			return nil, err
		}
		if fee != nil {
			value := uint32(*fee)
			out[factory] = &value
		} else {
			out[factory] = nil
		}
	}
	return out, rows.Err()
}

// LoadCheckpoint returns the scan checkpoint stored under name.
func (s *Store) LoadCheckpoint(ctx context.Context, name string) (model.Checkpoint, bool, error) {
	if name == "" {
		return model.Checkpoint{}, false, fmt.Errorf("state name required")
	}
	var (
		last      int64
		failedRaw []byte
		updatedAt time.Time
	)
	row := s.pool.QueryRow(ctx, `
		SELECT last_processed_block, failed_windows, updated_at FROM scan_state WHERE name=$1
	`, name)
	if err := row.Scan(&last, &failedRaw, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Checkpoint{}, false, nil
		}
		return model.Checkpoint{}, false, err
	}

	cp := model.Checkpoint{
		LastProcessedBlock: uint64(last),
		UpdatedAt:          updatedAt.UTC().Format(time.RFC3339Nano),
	}
	if len(failedRaw) > 0 {
		if err := json.Unmarshal(failedRaw, &cp.FailedWindows); err != nil {
			return model.Checkpoint{}, false, fmt.Errorf("parse failed windows: %w", err)
		}
	}
	return cp, true, nil
}

// SaveCheckpoint upserts the scan checkpoint stored under name.
func (s *Store) SaveCheckpoint(ctx context.Context, name string, cp model.Checkpoint) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	failed := cp.FailedWindows
	if failed == nil {
		failed = []model.ScanWindow{}
	}
	failedRaw, err := json.Marshal(failed)
	if err != nil {
		return fmt.Errorf("marshal failed windows: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO scan_state (name, last_processed_block, failed_windows, updated_at)
		VALUES ($1, $2, $3::jsonb, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_block = EXCLUDED.last_processed_block,
			failed_windows = EXCLUDED.failed_windows,
			updated_at = now()
	`, name, int64(cp.LastProcessedBlock), string(failedRaw))
	return err
}

func (s *Store) sendBatch(ctx context.Context, batch *pgx.Batch, n int) error {
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func nullableFee(fee *uint32) *int32 {
	if fee == nil {
		return nil
	}
	value := int32(*fee)
	return &value
}
