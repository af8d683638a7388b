package domain

import (
	"context"
	"time"
)

// SummaryCache caches per-item snapshot summaries keyed by structure.
type SummaryCache interface {
	Get(ctx context.Context, structureID int64) ([]ItemSummary, time.Time, error)
	Set(ctx context.Context, structureID int64, items []ItemSummary, observedAt time.Time) error
	Invalidate(ctx context.Context, structureID int64) error
}

// LockManager provides a distributed mutual-exclusion primitive used to
// serialize collection passes per structure across processes. Acquire returns
// ErrLockHeld when another holder owns the lock.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// SnapshotArchiver persists a raw snapshot to cold storage. Archive failures
// are logged by callers and never fail a pass.
type SnapshotArchiver interface {
	Archive(ctx context.Context, snap Snapshot) error
}
