package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/collector"
	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/config"
	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/domain"
	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/estimator"
	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/notify"
	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/platform/esi"
	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/server/ws"
)

// Runner executes collection passes for the configured structures. It is the
// single choke point shared by the scheduler and the HTTP trigger endpoint, so
// failure tracking, notifications, and pass-event broadcasts behave the same
// regardless of who started the pass.
type Runner struct {
	collectors map[int64]*collector.Collector
	trackers   map[int64]*collector.FailureTracker
	notifier   *notify.Notifier
	hub        *ws.Hub // optional
	logger     *slog.Logger
}

// NewRunner builds one collector per configured structure. Each structure gets
// its own estimator (expiry windows are per-structure) and a fetcher bound to
// the character that holds docking access.
func NewRunner(cfg *config.Config, deps *Dependencies, hub *ws.Hub, logger *slog.Logger) *Runner {
	collectorCfg := collector.Config{
		CommitTimeout: cfg.Collector.CommitTimeout.Duration,
		LockTTL:       cfg.Collector.LockTTL.Duration,
	}

	r := &Runner{
		collectors: make(map[int64]*collector.Collector, len(cfg.Structures)),
		trackers:   make(map[int64]*collector.FailureTracker, len(cfg.Structures)),
		notifier:   deps.Notifier,
		hub:        hub,
		logger:     logger.With(slog.String("component", "runner")),
	}

	for _, st := range cfg.Structures {
		var opts []collector.Option
		if deps.LockManager != nil {
			opts = append(opts, collector.WithLockManager(deps.LockManager))
		}
		if deps.Summaries != nil {
			opts = append(opts, collector.WithSummaryCache(deps.Summaries))
		}
		if deps.Archiver != nil {
			opts = append(opts, collector.WithArchiver(deps.Archiver))
		}

		r.collectors[st.StructureID] = collector.New(
			collectorCfg,
			esi.Fetcher{Client: deps.ESIClient, CharacterID: st.CharacterID},
			estimator.New(st.ExpiryWindow(), logger),
			deps.Snapshots,
			deps.Passes,
			logger,
			opts...,
		)
		r.trackers[st.StructureID] = &collector.FailureTracker{}
	}

	return r
}

// Run executes one pass for the structure and records the outcome with its
// failure tracker. A pass already in progress is neither a failure nor a
// success.
func (r *Runner) Run(ctx context.Context, structureID int64, opts domain.CollectOptions) (domain.PassResult, error) {
	col, ok := r.collectors[structureID]
	if !ok {
		return domain.PassResult{}, fmt.Errorf("runner: structure %d not configured: %w", structureID, domain.ErrNotFound)
	}
	tracker := r.trackers[structureID]

	res, err := col.CollectOnce(ctx, structureID, opts)
	if err != nil {
		if errors.Is(err, domain.ErrPassInProgress) {
			return domain.PassResult{}, err
		}

		tracker.RecordFailure()
		r.logger.ErrorContext(ctx, "collection pass failed",
			slog.Int64("structure_id", structureID),
			slog.Int("consecutive_failures", tracker.Consecutive()),
			slog.String("error", err.Error()),
		)
		if tracker.ShouldNotify(time.Now()) {
			r.notifyFailure(ctx, structureID, tracker.Consecutive(), err)
		}
		return domain.PassResult{}, err
	}

	tracker.RecordSuccess()
	if r.hub != nil {
		r.hub.BroadcastPass(res)
	}
	return res, nil
}

// notifyFailure alerts operators about a sustained collection outage. Delivery
// failures are logged; there is nothing better to do with them.
func (r *Runner) notifyFailure(ctx context.Context, structureID int64, consecutive int, cause error) {
	title := fmt.Sprintf("Collection failing for structure %d", structureID)
	message := fmt.Sprintf("%d consecutive passes have failed.\nLast error: %v", consecutive, cause)
	if err := r.notifier.Notify(ctx, title, message); err != nil {
		r.logger.ErrorContext(ctx, "failure notification not delivered",
			slog.Int64("structure_id", structureID),
			slog.String("error", err.Error()),
		)
	}
}
