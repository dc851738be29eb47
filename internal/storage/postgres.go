package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresLedger implements Ledger on PostgreSQL.
type PostgresLedger struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresLedger connects to PostgreSQL and verifies the connection.
func NewPostgresLedger(cfg *PostgresConfig) (*PostgresLedger, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-ledger-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresLedger{db: db, logger: cfg.Logger}, nil
}

// Init creates the ledger tables if they do not exist.
func (p *PostgresLedger) Init(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runtime_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS active_markets (
			condition_id TEXT PRIMARY KEY,
			slug TEXT NOT NULL,
			entered_at TIMESTAMPTZ NOT NULL,
			score_at_entry DOUBLE PRECISION NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS open_orders (
			order_id TEXT PRIMARY KEY,
			condition_id TEXT NOT NULL,
			token_id TEXT NOT NULL,
			side TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			size DOUBLE PRECISION NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

// GetState reads a runtime state scalar.
func (p *PostgresLedger) GetState(ctx context.Context, key string) (string, error) {
	var value string
	err := p.db.QueryRowContext(ctx,
		`SELECT value FROM runtime_state WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get state %s: %w", key, err)
	}
	return value, nil
}

// SetState upserts a runtime state scalar.
func (p *PostgresLedger) SetState(ctx context.Context, key, value string) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO runtime_state (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("set state %s: %w", key, err)
	}
	return nil
}

// ListActiveMarkets returns all active-market entries.
func (p *PostgresLedger) ListActiveMarkets(ctx context.Context) ([]ActiveMarket, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT condition_id, slug, entered_at, score_at_entry
		 FROM active_markets ORDER BY entered_at`)
	if err != nil {
		return nil, fmt.Errorf("list active markets: %w", err)
	}
	defer rows.Close()

	var markets []ActiveMarket
	for rows.Next() {
		var m ActiveMarket
		if err := rows.Scan(&m.ConditionID, &m.Slug, &m.EnteredAt, &m.ScoreAtEntry); err != nil {
			return nil, fmt.Errorf("scan active market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate active markets: %w", err)
	}

	return markets, nil
}

// InsertActiveMarket adds an entry to the active set.
func (p *PostgresLedger) InsertActiveMarket(ctx context.Context, m ActiveMarket) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO active_markets (condition_id, slug, entered_at, score_at_entry)
		 VALUES ($1, $2, $3, $4)`,
		m.ConditionID, m.Slug, m.EnteredAt, m.ScoreAtEntry)
	if err != nil {
		return fmt.Errorf("insert active market %s: %w", m.Slug, err)
	}
	return nil
}

// DeleteActiveMarket removes an entry by condition id.
func (p *PostgresLedger) DeleteActiveMarket(ctx context.Context, conditionID string) error {
	_, err := p.db.ExecContext(ctx,
		`DELETE FROM active_markets WHERE condition_id = $1`, conditionID)
	if err != nil {
		return fmt.Errorf("delete active market %s: %w", conditionID, err)
	}
	return nil
}

// ListOpenOrders returns tracked orders, optionally filtered by condition id.
func (p *PostgresLedger) ListOpenOrders(ctx context.Context, conditionID string) ([]OpenOrder, error) {
	query := `SELECT order_id, condition_id, token_id, side, price, size, status, created_at, updated_at
		 FROM open_orders`
	var args []any
	if conditionID != "" {
		query += ` WHERE condition_id = $1`
		args = append(args, conditionID)
	}
	query += ` ORDER BY created_at`

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list open orders: %w", err)
	}
	defer rows.Close()

	var orders []OpenOrder
	for rows.Next() {
		var o OpenOrder
		if err := rows.Scan(&o.OrderID, &o.ConditionID, &o.TokenID, &o.Side,
			&o.Price, &o.Size, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan open order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate open orders: %w", err)
	}

	return orders, nil
}

// InsertOpenOrder records a newly placed order.
func (p *PostgresLedger) InsertOpenOrder(ctx context.Context, o OpenOrder) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO open_orders (order_id, condition_id, token_id, side, price, size, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		o.OrderID, o.ConditionID, o.TokenID, o.Side, o.Price, o.Size, o.Status, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert open order %s: %w", o.OrderID, err)
	}
	return nil
}

// UpdateOrderStatus updates one order's status and touch timestamp.
func (p *PostgresLedger) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	result, err := p.db.ExecContext(ctx,
		`UPDATE open_orders SET status = $1, updated_at = $2 WHERE order_id = $3`,
		status, time.Now().UTC(), orderID)
	if err != nil {
		return fmt.Errorf("update order %s: %w", orderID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order %s: %w", orderID, err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// Close closes the database connection.
func (p *PostgresLedger) Close() error {
	p.logger.Info("closing-postgres-ledger")
	return p.db.Close()
}
