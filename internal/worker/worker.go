package worker

import (
	"context"
	"time"

	"github.com/mselser95/polymarket-lp/internal/events"
	"github.com/mselser95/polymarket-lp/internal/selection"
	"github.com/mselser95/polymarket-lp/pkg/config"
	"go.uber.org/zap"
)

const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Executor applies quote decisions for one market. The paper executor only
// records them; the live executor manages real resting orders.
type Executor interface {
	// ReplaceQuote replaces the resting order for an outcome/side with a
	// new one at the target price. Failure leaves the slot empty so the
	// next iteration retries.
	ReplaceQuote(ctx context.Context, outcome, tokenID, side string, price, size float64) error

	// NeedsRefresh reports executor-side reasons to replace a quote
	// regardless of price drift, such as live remaining size falling
	// below the reward minimum.
	NeedsRefresh(ctx context.Context, outcome, side string, minSize float64) bool

	// Shutdown releases executor state; the live executor cancels every
	// tracked order exactly once.
	Shutdown(ctx context.Context)
}

// Worker quotes one market until its context is cancelled. Workers carry no
// state across restarts: a market re-entering the active set gets a fresh
// worker with an empty prior-quote view.
type Worker struct {
	entry     selection.SnapshotEntry
	books     selection.BookFetcher
	exec      Executor
	quoteCfg  config.QuoteConfig
	heartbeat time.Duration
	recorder  events.Recorder
	logger    *zap.Logger

	// prior quoted price per outcome and side, churn-control baseline
	prior map[string]map[string]float64
}

// New creates a worker for one snapshot entry.
func New(entry selection.SnapshotEntry, books selection.BookFetcher, exec Executor,
	quoteCfg config.QuoteConfig, heartbeat time.Duration, recorder events.Recorder, logger *zap.Logger) *Worker {
	return &Worker{
		entry:     entry,
		books:     books,
		exec:      exec,
		quoteCfg:  quoteCfg,
		heartbeat: heartbeat,
		recorder:  recorder,
		logger:    logger.With(zap.String("slug", entry.Slug)),
		prior:     make(map[string]map[string]float64),
	}
}

// Run iterates on the heartbeat interval until ctx is cancelled, then runs
// the executor's shutdown path with a fresh context so live cancellation is
// not cut short by the stop signal itself.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker-started")
	WorkersRunning.Inc()
	defer WorkersRunning.Dec()

	ticker := time.NewTicker(w.heartbeat)
	defer ticker.Stop()

	w.iterate(ctx)

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			w.exec.Shutdown(shutdownCtx)
			cancel()
			w.logger.Info("worker-stopped")
			return
		case <-ticker.C:
			w.iterate(ctx)
		}
	}
}

func (w *Worker) iterate(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	quoted := 0
	for outcome, tokenID := range w.entry.OutcomeTokenMap {
		if w.quoteOutcome(ctx, outcome, tokenID) {
			quoted++
		}
	}

	WorkerIterationsTotal.WithLabelValues(w.entry.Slug).Inc()

	w.recorder.Record(events.TypeHeartbeat, map[string]any{
		"slug":           w.entry.Slug,
		"outcomes_total": len(w.entry.OutcomeTokenMap),
		"outcomes_live":  quoted,
	})
}

// quoteOutcome computes and maintains the two-sided quote for one outcome.
// Returns false when the outcome was skipped this iteration.
func (w *Worker) quoteOutcome(ctx context.Context, outcome, tokenID string) bool {
	book, err := w.books.FetchBook(ctx, tokenID)
	if err != nil {
		w.logger.Warn("book-fetch-failed",
			zap.String("outcome", outcome),
			zap.Error(err))
		return false
	}

	mid, ok := SizeCutoffMidpoint(book, w.entry.RewardsMinSize)
	if !ok {
		// Not enough depth to anchor a midpoint; sit out this iteration.
		w.logger.Debug("midpoint-undefined", zap.String("outcome", outcome))
		return false
	}

	quote := ComputeQuote(mid, w.entry.RewardsMaxSpread, w.quoteCfg.HalfSpreadFrac,
		w.entry.RewardsMinSize, w.quoteCfg.SizeBuffer, w.entry.TickSize)

	w.maintainSide(ctx, outcome, tokenID, SideBuy, quote.Bid, quote)
	w.maintainSide(ctx, outcome, tokenID, SideSell, quote.Ask, quote)
	return true
}

func (w *Worker) maintainSide(ctx context.Context, outcome, tokenID, side string, target float64, quote Quote) {
	prior, hasPrior := w.priorQuote(outcome, side)

	if hasPrior &&
		!w.exec.NeedsRefresh(ctx, outcome, side, w.entry.RewardsMinSize) &&
		!ShouldReplace(prior, target, quote.Mid, w.entry.RewardsMaxSpread, quote.Tick, w.quoteCfg.UpdateMinTicks) {
		return
	}

	if err := w.exec.ReplaceQuote(ctx, outcome, tokenID, side, target, quote.Size); err != nil {
		w.logger.Warn("quote-replace-failed",
			zap.String("outcome", outcome),
			zap.String("side", side),
			zap.Float64("price", target),
			zap.Error(err))
		w.clearPrior(outcome, side)
		return
	}

	QuotesReplacedTotal.WithLabelValues(w.entry.Slug, side).Inc()
	w.setPrior(outcome, side, target)
}

func (w *Worker) priorQuote(outcome, side string) (float64, bool) {
	sides, ok := w.prior[outcome]
	if !ok {
		return 0, false
	}
	price, ok := sides[side]
	return price, ok
}

func (w *Worker) setPrior(outcome, side string, price float64) {
	if w.prior[outcome] == nil {
		w.prior[outcome] = make(map[string]float64)
	}
	w.prior[outcome][side] = price
}

func (w *Worker) clearPrior(outcome, side string) {
	if sides, ok := w.prior[outcome]; ok {
		delete(sides, side)
	}
}

// PaperExecutor records quote decisions without touching the exchange.
type PaperExecutor struct {
	slug     string
	recorder events.Recorder
	logger   *zap.Logger
}

// NewPaperExecutor creates a paper-trading executor.
func NewPaperExecutor(slug string, recorder events.Recorder, logger *zap.Logger) *PaperExecutor {
	return &PaperExecutor{slug: slug, recorder: recorder, logger: logger}
}

func (p *PaperExecutor) ReplaceQuote(_ context.Context, outcome, tokenID, side string, price, size float64) error {
	p.logger.Info("paper-quote",
		zap.String("slug", p.slug),
		zap.String("outcome", outcome),
		zap.String("side", side),
		zap.Float64("price", price),
		zap.Float64("size", size))
	p.recorder.Record(events.TypeOrderPlaced, map[string]any{
		"mode":     "paper",
		"slug":     p.slug,
		"outcome":  outcome,
		"token_id": tokenID,
		"side":     side,
		"price":    price,
		"size":     size,
	})
	return nil
}

func (p *PaperExecutor) NeedsRefresh(context.Context, string, string, float64) bool { return false }

func (p *PaperExecutor) Shutdown(context.Context) {}
