package domain

import (
	"context"
	"time"
)

// SnapshotStore reads the latest stored snapshot per structure.
type SnapshotStore interface {
	Latest(ctx context.Context, structureID int64) (Snapshot, error)
}

// AggregateQuery filters daily aggregate rows. StructureID is required; a
// zero Day matches all days; TypeID zero matches all items; nil IsBuy/Liberal
// match both.
type AggregateQuery struct {
	Day         time.Time
	StructureID int64
	TypeID      int32
	IsBuy       *bool
	Liberal     *bool
}

// AggregateStore reads persisted daily aggregates.
type AggregateStore interface {
	List(ctx context.Context, q AggregateQuery) ([]AggregateRow, error)
}

// PassStore commits one collection pass atomically: the snapshot replacement
// (or timestamp touch when unchanged) and the aggregate merge happen in a
// single transaction so a crash mid-pass cannot leave the diff baseline out
// of step with the aggregates.
type PassStore interface {
	CommitPass(ctx context.Context, snap Snapshot, rows []AggregateRow, unchanged bool) error
}

// TokenSource yields a valid bearer token scoped to read a structure's market,
// keyed by the owning character. Implementations fail fast with one of the
// configuration sentinels when the credential is missing or under-scoped.
type TokenSource interface {
	Token(ctx context.Context, characterID int64) (string, error)
}
