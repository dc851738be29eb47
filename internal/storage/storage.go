// Package storage provides the persistent ledger: runtime state scalars,
// the active-market set, and live open-order tracking.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Runtime state keys.
const (
	KeyLastRotation = "last_rotation_ts"
)

// Open order statuses. OPEN and PARTIAL rows are "live".
const (
	OrderStatusOpen      = "OPEN"
	OrderStatusPartial   = "PARTIAL"
	OrderStatusFilled    = "FILLED"
	OrderStatusCancelled = "CANCELLED"
)

// ActiveMarket is one entry of the active-market ledger. The score at entry
// is the rotation hysteresis baseline.
type ActiveMarket struct {
	ConditionID  string
	Slug         string
	EnteredAt    time.Time
	ScoreAtEntry float64
}

// OpenOrder is one tracked resting order (live mode only).
type OpenOrder struct {
	OrderID     string
	ConditionID string
	TokenID     string
	Side        string
	Price       float64
	Size        float64
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Live reports whether the order still rests on the book.
func (o *OpenOrder) Live() bool {
	return o.Status == OrderStatusOpen || o.Status == OrderStatusPartial
}

// Ledger is the persistent store shared by the rotation engine and the
// quote workers. The rotation engine is the sole writer of runtime state
// and active markets; each worker writes only its own open orders.
type Ledger interface {
	// Init creates the schema if needed. Idempotent.
	Init(ctx context.Context) error

	// GetState reads a runtime state scalar. ErrNotFound when unset.
	GetState(ctx context.Context, key string) (string, error)

	// SetState writes a runtime state scalar, inserting or replacing.
	SetState(ctx context.Context, key, value string) error

	// ListActiveMarkets returns all active-market entries.
	ListActiveMarkets(ctx context.Context) ([]ActiveMarket, error)

	// InsertActiveMarket adds an entry to the active set.
	InsertActiveMarket(ctx context.Context, m ActiveMarket) error

	// DeleteActiveMarket removes an entry by condition id.
	DeleteActiveMarket(ctx context.Context, conditionID string) error

	// ListOpenOrders returns tracked orders, filtered by condition id
	// when non-empty.
	ListOpenOrders(ctx context.Context, conditionID string) ([]OpenOrder, error)

	// InsertOpenOrder records a newly placed order.
	InsertOpenOrder(ctx context.Context, o OpenOrder) error

	// UpdateOrderStatus updates one order's status. ErrNotFound when the
	// order is not tracked.
	UpdateOrderStatus(ctx context.Context, orderID, status string) error

	// Close releases the underlying store.
	Close() error
}
