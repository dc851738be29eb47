// Package orchestrator converges the set of running quote workers to the
// active-market ledger: one worker per active slug, capped, started and
// stopped as rotations land.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mselser95/polymarket-lp/internal/events"
	"github.com/mselser95/polymarket-lp/internal/selection"
	"github.com/mselser95/polymarket-lp/internal/storage"
	"go.uber.org/zap"
)

// Runner is one market's worker task. Run blocks until its context is
// cancelled and must complete its own cleanup before returning.
type Runner interface {
	Run(ctx context.Context)
}

// Factory builds a fresh worker for a snapshot entry. Each start gets a new
// instance; no in-memory state survives a stop/start cycle.
type Factory func(entry selection.SnapshotEntry) Runner

type runningWorker struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Orchestrator keeps exactly one running worker per active market.
type Orchestrator struct {
	ledger      storage.Ledger
	factory     Factory
	maxWorkers  int
	joinTimeout time.Duration
	recorder    events.Recorder
	logger      *zap.Logger

	mu       sync.Mutex
	snapshot *selection.Snapshot
	running  map[string]*runningWorker
}

// New creates an orchestrator. maxWorkers caps concurrency regardless of
// ledger size (num_markets in paper mode, the live cap in live mode).
func New(ledger storage.Ledger, factory Factory, maxWorkers int, joinTimeout time.Duration,
	recorder events.Recorder, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		ledger:      ledger,
		factory:     factory,
		maxWorkers:  maxWorkers,
		joinTimeout: joinTimeout,
		recorder:    recorder,
		logger:      logger,
		running:     make(map[string]*runningWorker),
	}
}

// SetSnapshot installs the latest selection snapshot. Workers started after
// this call use its entries.
func (o *Orchestrator) SetSnapshot(snapshot *selection.Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.snapshot = snapshot
}

// Snapshot returns the currently installed selection snapshot.
func (o *Orchestrator) Snapshot() *selection.Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshot
}

// Tick converges the running set to the ledger's active markets: stop every
// worker whose slug left the target, then start workers for new slugs.
func (o *Orchestrator) Tick(ctx context.Context) error {
	active, err := o.ledger.ListActiveMarkets(ctx)
	if err != nil {
		return fmt.Errorf("read active markets: %w", err)
	}

	target := make(map[string]bool, len(active))
	for _, m := range active {
		if len(target) >= o.maxWorkers {
			break
		}
		target[m.Slug] = true
	}

	o.stopDeparted(target)
	o.startMissing(ctx, target)

	return nil
}

func (o *Orchestrator) stopDeparted(target map[string]bool) {
	o.mu.Lock()
	var departed []string
	for slug := range o.running {
		if !target[slug] {
			departed = append(departed, slug)
		}
	}
	o.mu.Unlock()

	for _, slug := range departed {
		o.stopWorker(slug)
	}
}

func (o *Orchestrator) startMissing(ctx context.Context, target map[string]bool) {
	for slug := range target {
		o.mu.Lock()
		_, alreadyRunning := o.running[slug]
		var entry selection.SnapshotEntry
		var haveEntry bool
		if o.snapshot != nil {
			entry, haveEntry = o.snapshot.Entry(slug)
		}
		o.mu.Unlock()

		if alreadyRunning {
			continue
		}
		if !haveEntry {
			// The market rotated in from an older snapshot; the next
			// selection cycle will carry its entry.
			o.logger.Warn("no-snapshot-entry-for-active-market", zap.String("slug", slug))
			continue
		}

		o.startWorker(ctx, slug, entry)
	}
}

func (o *Orchestrator) startWorker(ctx context.Context, slug string, entry selection.SnapshotEntry) {
	workerCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	runner := o.factory(entry)

	o.mu.Lock()
	o.running[slug] = &runningWorker{cancel: cancel, done: done}
	o.mu.Unlock()

	go func() {
		defer close(done)
		runner.Run(workerCtx)
	}()

	WorkersStartedTotal.Inc()
	o.logger.Info("worker-launched", zap.String("slug", slug))
	o.recorder.Record(events.TypeWorkerStarted, map[string]any{"slug": slug})
}

// stopWorker signals a worker and joins it with a bounded wait.
func (o *Orchestrator) stopWorker(slug string) {
	o.mu.Lock()
	w, ok := o.running[slug]
	delete(o.running, slug)
	o.mu.Unlock()
	if !ok {
		return
	}

	w.cancel()
	select {
	case <-w.done:
	case <-time.After(o.joinTimeout):
		WorkerJoinTimeoutsTotal.Inc()
		o.logger.Warn("worker-join-timeout", zap.String("slug", slug))
	}

	WorkersStoppedTotal.Inc()
	o.logger.Info("worker-retired", zap.String("slug", slug))
	o.recorder.Record(events.TypeWorkerStopped, map[string]any{"slug": slug})
}

// RunningCount returns the number of currently running workers.
func (o *Orchestrator) RunningCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.running)
}

// RunningSlugs returns the slugs of currently running workers.
func (o *Orchestrator) RunningSlugs() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	slugs := make([]string, 0, len(o.running))
	for slug := range o.running {
		slugs = append(slugs, slug)
	}
	return slugs
}

// Shutdown stops every worker, each joined with the bounded wait.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	slugs := make([]string, 0, len(o.running))
	for slug := range o.running {
		slugs = append(slugs, slug)
	}
	o.mu.Unlock()

	for _, slug := range slugs {
		o.stopWorker(slug)
	}
}
