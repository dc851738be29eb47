package worker

import (
	"context"
	"sync"
	"time"

	"github.com/mselser95/polymarket-lp/internal/events"
	"github.com/mselser95/polymarket-lp/internal/storage"
	"github.com/mselser95/polymarket-lp/pkg/types"
	"go.uber.org/zap"
)

// Trader is the authenticated exchange surface the live executor needs.
type Trader interface {
	PlaceOrder(ctx context.Context, tokenID, side string, price, size float64) (*types.OrderSubmissionResponse, error)
	CancelOrder(ctx context.Context, orderID string) (*types.CancelResponse, error)
	QueryOrder(ctx context.Context, orderID string) (*types.OrderQueryResponse, error)
}

type trackedOrder struct {
	orderID string
	tokenID string
	price   float64
	size    float64
}

// LiveExecutor manages real resting GTC orders for one market. It owns the
// per-outcome/per-side order slots and is the only writer of this market's
// open-order ledger rows.
type LiveExecutor struct {
	slug         string
	conditionID  string
	trader       Trader
	ledger       storage.Ledger
	cancelOnExit bool
	recorder     events.Recorder
	logger       *zap.Logger

	mu    sync.Mutex
	slots map[string]trackedOrder // key: outcome + "/" + side

	shutdownOnce sync.Once
}

// NewLiveExecutor creates a live executor for one market.
func NewLiveExecutor(slug, conditionID string, trader Trader, ledger storage.Ledger,
	cancelOnExit bool, recorder events.Recorder, logger *zap.Logger) *LiveExecutor {
	return &LiveExecutor{
		slug:         slug,
		conditionID:  conditionID,
		trader:       trader,
		ledger:       ledger,
		cancelOnExit: cancelOnExit,
		recorder:     recorder,
		logger:       logger.With(zap.String("slug", slug)),
		slots:        make(map[string]trackedOrder),
	}
}

func slotKey(outcome, side string) string { return outcome + "/" + side }

// ReplaceQuote cancels the slot's resting order, if any, then places a new
// GTC order. A failed cancel is logged and placement proceeds; a failed
// placement leaves the slot empty so the next iteration retries.
func (e *LiveExecutor) ReplaceQuote(ctx context.Context, outcome, tokenID, side string, price, size float64) error {
	key := slotKey(outcome, side)

	e.mu.Lock()
	existing, hasExisting := e.slots[key]
	delete(e.slots, key)
	e.mu.Unlock()

	if hasExisting {
		e.cancelTracked(ctx, existing)
	}

	resp, err := e.trader.PlaceOrder(ctx, tokenID, side, price, size)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.slots[key] = trackedOrder{orderID: resp.OrderID, tokenID: tokenID, price: price, size: size}
	e.mu.Unlock()

	now := time.Now().UTC()
	if err := e.ledger.InsertOpenOrder(ctx, storage.OpenOrder{
		OrderID:     resp.OrderID,
		ConditionID: e.conditionID,
		TokenID:     tokenID,
		Side:        side,
		Price:       price,
		Size:        size,
		Status:      storage.OrderStatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		e.logger.Warn("order-ledger-write-failed",
			zap.String("order_id", resp.OrderID),
			zap.Error(err))
	}

	e.recorder.Record(events.TypeOrderPlaced, map[string]any{
		"mode":     "live",
		"slug":     e.slug,
		"order_id": resp.OrderID,
		"outcome":  outcome,
		"side":     side,
		"price":    price,
		"size":     size,
	})

	return nil
}

// NeedsRefresh reports whether the slot's live remaining size has dropped
// below the reward minimum, in which case the quote no longer earns and
// must be re-placed at full size.
func (e *LiveExecutor) NeedsRefresh(ctx context.Context, outcome, side string, minSize float64) bool {
	e.mu.Lock()
	tracked, ok := e.slots[slotKey(outcome, side)]
	e.mu.Unlock()
	if !ok {
		return false
	}

	state, err := e.trader.QueryOrder(ctx, tracked.orderID)
	if err != nil {
		e.logger.Debug("order-query-failed",
			zap.String("order_id", tracked.orderID),
			zap.Error(err))
		return false
	}

	remaining := state.Size - state.SizeFilled
	return remaining < minSize
}

// Shutdown cancels every tracked order exactly once, counting successes
// and failures. Individual failures never block shutdown.
func (e *LiveExecutor) Shutdown(ctx context.Context) {
	e.shutdownOnce.Do(func() {
		if !e.cancelOnExit {
			return
		}

		e.mu.Lock()
		remaining := make([]trackedOrder, 0, len(e.slots))
		for key, tracked := range e.slots {
			remaining = append(remaining, tracked)
			delete(e.slots, key)
		}
		e.mu.Unlock()

		cancelled, failed := 0, 0
		for _, tracked := range remaining {
			if e.cancelTracked(ctx, tracked) {
				cancelled++
			} else {
				failed++
			}
		}

		e.logger.Info("shutdown-cancellation-complete",
			zap.Int("cancelled", cancelled),
			zap.Int("failed", failed))
		e.recorder.Record(events.TypeShutdownSummary, map[string]any{
			"slug":      e.slug,
			"cancelled": cancelled,
			"failed":    failed,
		})
	})
}

// cancelTracked cancels one order, best effort. Reports success.
func (e *LiveExecutor) cancelTracked(ctx context.Context, tracked trackedOrder) bool {
	_, err := e.trader.CancelOrder(ctx, tracked.orderID)
	if err != nil {
		e.logger.Warn("order-cancel-failed",
			zap.String("order_id", tracked.orderID),
			zap.Error(err))
		return false
	}

	if err := e.ledger.UpdateOrderStatus(ctx, tracked.orderID, storage.OrderStatusCancelled); err != nil {
		e.logger.Warn("order-ledger-update-failed",
			zap.String("order_id", tracked.orderID),
			zap.Error(err))
	}

	e.recorder.Record(events.TypeOrderCancelled, map[string]any{
		"slug":     e.slug,
		"order_id": tracked.orderID,
	})

	return true
}
