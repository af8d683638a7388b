package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/domain"
)

// SnapshotStore implements domain.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *pgxpool.Pool
}

// NewSnapshotStore creates a SnapshotStore backed by the given pool.
func NewSnapshotStore(pool *pgxpool.Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Latest returns the stored snapshot for the structure, or domain.ErrNotFound
// when no pass has completed yet.
func (s *SnapshotStore) Latest(ctx context.Context, structureID int64) (domain.Snapshot, error) {
	var (
		snap    domain.Snapshot
		payload []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT structure_id, observed_at, orders
		   FROM structure_snapshots WHERE structure_id = $1`,
		structureID,
	).Scan(&snap.StructureID, &snap.ObservedAt, &payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Snapshot{}, domain.ErrNotFound
		}
		return domain.Snapshot{}, fmt.Errorf("postgres: latest snapshot %d: %w", structureID, err)
	}

	if err := json.Unmarshal(payload, &snap.Orders); err != nil {
		return domain.Snapshot{}, fmt.Errorf("postgres: decode snapshot %d payload: %w", structureID, err)
	}
	return snap, nil
}

var _ domain.SnapshotStore = (*SnapshotStore)(nil)
