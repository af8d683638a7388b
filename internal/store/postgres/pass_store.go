package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/domain"
)

// mergeChunkSize bounds how many aggregate upserts go into one pgx batch, so
// a pass touching many items never builds an unbounded statement queue.
const mergeChunkSize = 500

// PassStore implements domain.PassStore: the atomic commit of one collection
// pass.
type PassStore struct {
	pool *pgxpool.Pool
}

// NewPassStore creates a PassStore backed by the given pool.
func NewPassStore(pool *pgxpool.Pool) *PassStore {
	return &PassStore{pool: pool}
}

// mergeSQL inserts a fresh aggregate row or folds the delta into an existing
// one. The average is recomputed from the accumulated totals in the same
// statement, never from the delta alone, so it stays exact across passes.
const mergeSQL = `
	INSERT INTO daily_trade_aggregates
		(day, structure_id, type_id, is_buy, liberal,
		 amount, order_count, value, high, low, average)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (day, structure_id, type_id, is_buy, liberal) DO UPDATE SET
		amount      = daily_trade_aggregates.amount + EXCLUDED.amount,
		order_count = daily_trade_aggregates.order_count + EXCLUDED.order_count,
		value       = daily_trade_aggregates.value + EXCLUDED.value,
		high        = GREATEST(daily_trade_aggregates.high, EXCLUDED.high),
		low         = LEAST(daily_trade_aggregates.low, EXCLUDED.low),
		average     = CASE
			WHEN daily_trade_aggregates.amount + EXCLUDED.amount > 0
			THEN (daily_trade_aggregates.value + EXCLUDED.value)
			     / (daily_trade_aggregates.amount + EXCLUDED.amount)
			ELSE 0
		END`

// CommitPass writes one pass's results in a single transaction. When the
// snapshot is unchanged only its observation timestamp advances; otherwise
// the full order payload is replaced. Aggregate rows merge in chunks.
func (s *PassStore) CommitPass(ctx context.Context, snap domain.Snapshot, rows []domain.AggregateRow, unchanged bool) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin pass tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if unchanged {
		if err := s.touchSnapshot(ctx, tx, snap); err != nil {
			return err
		}
	} else {
		if err := s.replaceSnapshot(ctx, tx, snap); err != nil {
			return err
		}
	}

	for start := 0; start < len(rows); start += mergeChunkSize {
		end := min(start+mergeChunkSize, len(rows))
		if err := s.mergeChunk(ctx, tx, rows[start:end]); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit pass tx: %w", err)
	}
	return nil
}

func (s *PassStore) touchSnapshot(ctx context.Context, tx pgx.Tx, snap domain.Snapshot) error {
	ct, err := tx.Exec(ctx,
		`UPDATE structure_snapshots SET observed_at = $2 WHERE structure_id = $1`,
		snap.StructureID, snap.ObservedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: touch snapshot %d: %w", snap.StructureID, err)
	}
	if ct.RowsAffected() == 0 {
		// An unchanged diff against a missing baseline can only mean the row
		// was removed out of band; store the full snapshot instead.
		return s.replaceSnapshot(ctx, tx, snap)
	}
	return nil
}

func (s *PassStore) replaceSnapshot(ctx context.Context, tx pgx.Tx, snap domain.Snapshot) error {
	payload, err := json.Marshal(snap.Orders)
	if err != nil {
		return fmt.Errorf("postgres: encode snapshot %d payload: %w", snap.StructureID, err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO structure_snapshots (structure_id, observed_at, order_count, orders)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (structure_id) DO UPDATE SET
			observed_at = EXCLUDED.observed_at,
			order_count = EXCLUDED.order_count,
			orders      = EXCLUDED.orders`,
		snap.StructureID, snap.ObservedAt, len(snap.Orders), payload,
	)
	if err != nil {
		return fmt.Errorf("postgres: replace snapshot %d: %w", snap.StructureID, err)
	}
	return nil
}

func (s *PassStore) mergeChunk(ctx context.Context, tx pgx.Tx, rows []domain.AggregateRow) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(mergeSQL,
			r.Day, r.StructureID, r.TypeID, r.IsBuy, r.Liberal,
			r.Amount, r.OrderCount, r.Value, r.High, r.Low, r.Average,
		)
	}

	br := tx.SendBatch(ctx, batch)
	defer br.Close()

	for i := range rows {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: merge aggregate row %d: %w", i, err)
		}
	}
	return br.Close()
}

var _ domain.PassStore = (*PassStore)(nil)
