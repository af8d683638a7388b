// Package collector orchestrates a single collection pass: fetch the current
// order set, diff it against the stored baseline, fold the deltas into daily
// aggregates, and commit everything in one transaction.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/aggregator"
	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/domain"
	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/estimator"
)

// OrderFetcher retrieves the complete current order set for a structure.
type OrderFetcher interface {
	FetchOrders(ctx context.Context, structureID int64, forceRefresh bool) ([]domain.Order, error)
}

// Config holds collector tunables.
type Config struct {
	// CommitTimeout bounds the persistence transaction. Large structures can
	// carry many thousands of orders, so this is deliberately generous.
	CommitTimeout time.Duration
	// LockTTL bounds how long a distributed pass lock is held.
	LockTTL time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		CommitTimeout: 2 * time.Minute,
		LockTTL:       5 * time.Minute,
	}
}

// Collector runs collection passes. Passes against the same structure are
// serialized through a per-structure mutex (and, when a LockManager is
// configured, a distributed lock); passes against different structures run
// independently.
type Collector struct {
	cfg       Config
	fetcher   OrderFetcher
	est       *estimator.Estimator
	snapshots domain.SnapshotStore
	passes    domain.PassStore
	locks     domain.LockManager      // optional
	summaries domain.SummaryCache     // optional
	archiver  domain.SnapshotArchiver // optional
	logger    *slog.Logger

	mu     sync.Mutex
	venues map[int64]*sync.Mutex
}

// Option configures optional collaborators.
type Option func(*Collector)

// WithLockManager enables distributed pass locking for multi-instance
// deployments.
func WithLockManager(lm domain.LockManager) Option {
	return func(c *Collector) { c.locks = lm }
}

// WithSummaryCache invalidates cached item summaries after each changed pass.
func WithSummaryCache(sc domain.SummaryCache) Option {
	return func(c *Collector) { c.summaries = sc }
}

// WithArchiver archives raw snapshots to cold storage after each changed pass.
func WithArchiver(a domain.SnapshotArchiver) Option {
	return func(c *Collector) { c.archiver = a }
}

// New creates a Collector.
func New(
	cfg Config,
	fetcher OrderFetcher,
	est *estimator.Estimator,
	snapshots domain.SnapshotStore,
	passes domain.PassStore,
	logger *slog.Logger,
	opts ...Option,
) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CommitTimeout <= 0 {
		cfg.CommitTimeout = DefaultConfig().CommitTimeout
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultConfig().LockTTL
	}
	c := &Collector{
		cfg:       cfg,
		fetcher:   fetcher,
		est:       est,
		snapshots: snapshots,
		passes:    passes,
		logger:    logger,
		venues:    make(map[int64]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CollectOnce runs one idempotent collection pass for the structure. It
// returns ErrPassInProgress when another pass for the same structure is
// running, either in this process or (with a LockManager) elsewhere.
func (c *Collector) CollectOnce(ctx context.Context, structureID int64, opts domain.CollectOptions) (domain.PassResult, error) {
	venue := c.venueMutex(structureID)
	if !venue.TryLock() {
		return domain.PassResult{}, domain.ErrPassInProgress
	}
	defer venue.Unlock()

	if c.locks != nil {
		unlock, err := c.locks.Acquire(ctx, "pass:"+strconv.FormatInt(structureID, 10), c.cfg.LockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				return domain.PassResult{}, domain.ErrPassInProgress
			}
			return domain.PassResult{}, fmt.Errorf("collector: acquire pass lock: %w", err)
		}
		defer unlock()
	}

	passID := uuid.New().String()
	logger := c.logger.With(
		slog.String("pass_id", passID),
		slog.Int64("structure_id", structureID),
	)
	start := time.Now()

	observedAt := opts.ObservedAt
	if observedAt.IsZero() {
		observedAt = time.Now().UTC()
	}

	orders, err := c.fetcher.FetchOrders(ctx, structureID, opts.ForceRefresh)
	if err != nil {
		if domain.IsConfigError(err) {
			return domain.PassResult{}, fmt.Errorf("collector: fetch orders: %w", err)
		}
		return domain.PassResult{}, fmt.Errorf("collector: fetch orders: %w: %w", domain.ErrUpstream, err)
	}

	prev, err := c.snapshots.Latest(ctx, structureID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return domain.PassResult{}, fmt.Errorf("collector: load previous snapshot: %w", err)
		}
		// First pass for this structure: no baseline, the fetched orders
		// simply become it.
		prev = domain.Snapshot{StructureID: structureID}
	}

	curr := domain.Snapshot{
		StructureID: structureID,
		ObservedAt:  observedAt,
		Orders:      orders,
	}

	diff := c.est.Diff(prev, curr)

	agg := aggregator.New()
	agg.AddAll(diff.Deltas)
	rows := agg.Rows()

	commitCtx, cancel := context.WithTimeout(ctx, c.cfg.CommitTimeout)
	defer cancel()
	if err := c.passes.CommitPass(commitCtx, curr, rows, diff.Unchanged); err != nil {
		return domain.PassResult{}, fmt.Errorf("collector: commit pass: %w", err)
	}

	if !diff.Unchanged {
		c.afterChangedPass(ctx, curr, logger)
	}

	result := domain.PassResult{
		StructureID:       structureID,
		ObservedAt:        observedAt,
		OrderCount:        len(orders),
		AggregateKeyCount: len(rows),
		Unchanged:         diff.Unchanged,
	}

	logger.Info("collection pass complete",
		slog.Int("orders", result.OrderCount),
		slog.Int("deltas", len(diff.Deltas)),
		slog.Int("aggregate_keys", result.AggregateKeyCount),
		slog.Bool("unchanged", result.Unchanged),
		slog.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// afterChangedPass performs the best-effort side work of a changed snapshot:
// cache invalidation and cold-storage archival. Failures here are logged and
// never fail the pass.
func (c *Collector) afterChangedPass(ctx context.Context, snap domain.Snapshot, logger *slog.Logger) {
	if c.summaries != nil {
		if err := c.summaries.Invalidate(ctx, snap.StructureID); err != nil {
			logger.Warn("summary cache invalidation failed", slog.String("error", err.Error()))
		}
	}
	if c.archiver != nil {
		if err := c.archiver.Archive(ctx, snap); err != nil {
			logger.Warn("snapshot archival failed", slog.String("error", err.Error()))
		}
	}
}

func (c *Collector) venueMutex(structureID int64) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.venues[structureID]
	if !ok {
		m = &sync.Mutex{}
		c.venues[structureID] = m
	}
	return m
}
