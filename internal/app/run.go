package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mselser95/polymarket-lp/internal/selection"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Run starts the HTTP server and the control loop, blocking until ctx is
// cancelled, then shuts everything down in order: workers first, then the
// server and the stores.
func (a *App) Run(ctx context.Context) error {
	if err := a.ledger.Init(ctx); err != nil {
		return fmt.Errorf("init ledger: %w", err)
	}

	a.restoreSnapshot()

	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.server.Start()
	})
	g.Go(func() error {
		a.controlLoop(groupCtx)
		return nil
	})
	g.Go(func() error {
		<-groupCtx.Done()
		a.shutdown()
		return nil
	})

	a.health.SetReady(true)

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}

// restoreSnapshot loads the last persisted selection snapshot so workers
// can start before the first selection cycle of this process completes.
func (a *App) restoreSnapshot() {
	snapshot, err := loadSnapshotIfPresent(a.cfg.SnapshotPath)
	if err != nil {
		a.logger.Warn("snapshot-restore-failed", zap.Error(err))
		return
	}
	if snapshot != nil {
		a.orch.SetSnapshot(snapshot)
		a.logger.Info("snapshot-restored",
			zap.Time("taken_at", snapshot.Timestamp),
			zap.Int("markets", len(snapshot.TopN)))
	}
}

// controlLoop runs selection on the selector interval and rotation plus
// orchestration on the poll interval. Cycle failures are logged and retried
// on the next tick; the ledger is never left half-rotated.
func (a *App) controlLoop(ctx context.Context) {
	a.logger.Info("control-loop-started",
		zap.Duration("selector_interval", a.cfg.SelectorInterval()),
		zap.Duration("poll_interval", a.cfg.PollInterval()))

	a.runSelection(ctx)

	selectorTicker := time.NewTicker(a.cfg.SelectorInterval())
	defer selectorTicker.Stop()
	pollTicker := time.NewTicker(a.cfg.PollInterval())
	defer pollTicker.Stop()

	a.pollOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("control-loop-stopped")
			return
		case <-selectorTicker.C:
			a.runSelection(ctx)
		case <-pollTicker.C:
			a.pollOnce(ctx)
		}
	}
}

func (a *App) runSelection(ctx context.Context) {
	snapshot, err := a.pipeline.Run(ctx)
	if err != nil {
		if ctx.Err() == nil {
			a.logger.Error("selection-cycle-failed", zap.Error(err))
		}
		return
	}
	a.orch.SetSnapshot(snapshot)
}

// pollOnce evaluates rotation against the latest snapshot, then converges
// the worker set. Rotation reads and writes settle before the orchestrator
// reads the ledger, so no tick observes a partial rotation.
func (a *App) pollOnce(ctx context.Context) {
	if snapshot := a.orch.Snapshot(); snapshot != nil {
		if _, err := a.engine.Evaluate(ctx, snapshot); err != nil && ctx.Err() == nil {
			a.logger.Error("rotation-evaluation-failed", zap.Error(err))
		}
	}

	if err := a.orch.Tick(ctx); err != nil && ctx.Err() == nil {
		a.logger.Error("orchestrator-tick-failed", zap.Error(err))
	}
}

func (a *App) shutdown() {
	a.logger.Info("shutdown-started")

	// Workers first: live executors cancel their resting orders.
	a.orch.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http-shutdown-failed", zap.Error(err))
	}

	if err := a.recorder.Close(); err != nil {
		a.logger.Warn("recorder-close-failed", zap.Error(err))
	}
	if err := a.ledger.Close(); err != nil {
		a.logger.Warn("ledger-close-failed", zap.Error(err))
	}
	a.bookCache.Close()

	a.logger.Info("shutdown-complete")
}

func loadSnapshotIfPresent(path string) (*selection.Snapshot, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	return selection.LoadSnapshot(path)
}
