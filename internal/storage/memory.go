package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryLedger implements Ledger in process memory, for paper trading and
// tests. Mutations are serialized by a single mutex.
type MemoryLedger struct {
	mu      sync.RWMutex
	state   map[string]string
	markets map[string]ActiveMarket
	orders  map[string]OpenOrder
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		state:   make(map[string]string),
		markets: make(map[string]ActiveMarket),
		orders:  make(map[string]OpenOrder),
	}
}

func (m *MemoryLedger) Init(context.Context) error { return nil }

func (m *MemoryLedger) GetState(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.state[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (m *MemoryLedger) SetState(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state[key] = value
	return nil
}

func (m *MemoryLedger) ListActiveMarkets(context.Context) ([]ActiveMarket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	markets := make([]ActiveMarket, 0, len(m.markets))
	for _, market := range m.markets {
		markets = append(markets, market)
	}
	sort.Slice(markets, func(i, j int) bool {
		return markets[i].EnteredAt.Before(markets[j].EnteredAt)
	})
	return markets, nil
}

func (m *MemoryLedger) InsertActiveMarket(_ context.Context, market ActiveMarket) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.markets[market.ConditionID] = market
	return nil
}

func (m *MemoryLedger) DeleteActiveMarket(_ context.Context, conditionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.markets, conditionID)
	return nil
}

func (m *MemoryLedger) ListOpenOrders(_ context.Context, conditionID string) ([]OpenOrder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var orders []OpenOrder
	for _, order := range m.orders {
		if conditionID == "" || order.ConditionID == conditionID {
			orders = append(orders, order)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
	return orders, nil
}

func (m *MemoryLedger) InsertOpenOrder(_ context.Context, order OpenOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.orders[order.OrderID] = order
	return nil
}

func (m *MemoryLedger) UpdateOrderStatus(_ context.Context, orderID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderID]
	if !ok {
		return ErrNotFound
	}
	order.Status = status
	order.UpdatedAt = time.Now().UTC()
	m.orders[orderID] = order
	return nil
}

func (m *MemoryLedger) Close() error { return nil }
