// Package app provides top-level application lifecycle management for the
// market watcher. It wires together stores, caches, blob storage, the
// collector, and the API server, and runs the per-structure polling loops.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/config"
	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/domain"
	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/server"
	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/server/handler"
	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/server/ws"
)

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, starts the polling
// loops and (when enabled) the API server, and blocks until the context is
// cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.Int("structures", len(a.cfg.Structures)),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	var hub *ws.Hub
	if a.cfg.Server.Enabled {
		hub = ws.NewHub(a.logger)
	}

	runner := NewRunner(a.cfg, deps, hub, a.logger)

	g, ctx := errgroup.WithContext(ctx)

	if hub != nil {
		g.Go(func() error {
			if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if a.cfg.Server.Enabled {
		srv := server.NewServer(
			server.Config{
				Port:        a.cfg.Server.Port,
				CORSOrigins: a.cfg.Server.CORSOrigins,
				APIKey:      a.cfg.Server.APIKey,
			},
			server.Handlers{
				Health:     handler.NewHealthHandler(len(a.cfg.Structures)),
				Snapshots:  handler.NewSnapshotHandler(deps.Snapshots, deps.Summaries, a.logger),
				Aggregates: handler.NewAggregateHandler(deps.Aggregates, a.logger),
				Collect:    handler.NewCollectHandler(runner, a.logger),
			},
			hub,
			a.logger,
		)
		g.Go(srv.Start)
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	for _, st := range a.cfg.Structures {
		g.Go(func() error {
			a.pollLoop(ctx, runner, st)
			return nil
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return context.Canceled
	}
	return err
}

// pollLoop runs one pass immediately and then on every tick until the context
// is cancelled. Pass failures are tracked and alerted by the runner; the loop
// itself only keeps the cadence. Retry stays with the schedule, never inside
// a pass.
func (a *App) pollLoop(ctx context.Context, runner *Runner, st config.StructureConfig) {
	logger := a.logger.With(slog.Int64("structure_id", st.StructureID))
	logger.InfoContext(ctx, "polling started",
		slog.Duration("interval", st.PollInterval.Duration),
		slog.Duration("expiry_window", st.ExpiryWindow()),
	)

	ticker := time.NewTicker(st.PollInterval.Duration)
	defer ticker.Stop()

	for {
		if _, err := runner.Run(ctx, st.StructureID, domain.CollectOptions{}); err != nil {
			if errors.Is(err, domain.ErrPassInProgress) {
				logger.WarnContext(ctx, "skipping tick, pass still running")
			}
			// Other errors are already logged by the runner.
		}

		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "polling stopped")
			return
		case <-ticker.C:
		}
	}
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
