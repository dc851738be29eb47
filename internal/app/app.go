// Package app wires the components together and runs the control loop:
// periodic selection, rotation evaluation, and worker orchestration.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mselser95/polymarket-lp/internal/clob"
	"github.com/mselser95/polymarket-lp/internal/events"
	"github.com/mselser95/polymarket-lp/internal/feed"
	"github.com/mselser95/polymarket-lp/internal/orchestrator"
	"github.com/mselser95/polymarket-lp/internal/rotation"
	"github.com/mselser95/polymarket-lp/internal/selection"
	"github.com/mselser95/polymarket-lp/internal/storage"
	"github.com/mselser95/polymarket-lp/internal/worker"
	"github.com/mselser95/polymarket-lp/pkg/cache"
	"github.com/mselser95/polymarket-lp/pkg/config"
	"github.com/mselser95/polymarket-lp/pkg/healthprobe"
	"github.com/mselser95/polymarket-lp/pkg/httpserver"
	"go.uber.org/zap"
)

// App owns every long-lived component of the service.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	live      bool
	ledger    storage.Ledger
	recorder  events.Recorder
	bookCache cache.Cache
	books     *clob.BookClient
	trader    worker.Trader
	pipeline  *selection.Pipeline
	engine    *rotation.Engine
	orch      *orchestrator.Orchestrator
	health    *healthprobe.HealthChecker
	server    *httpserver.Server
}

// New builds the application. Live mode requires the full credential set in
// the environment; the signing key stays in memory only.
func New(cfg *config.Config, logger *zap.Logger, live bool) (*App, error) {
	a := &App{cfg: cfg, logger: logger, live: live}

	recorder := events.NewFileRecorder(cfg.EventLogPath, logger)
	a.recorder = recorder

	ledger, err := newLedger(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.ledger = ledger

	bookCache, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create book cache: %w", err)
	}
	a.bookCache = bookCache

	a.books = clob.NewBookClient(&clob.BookClientConfig{
		BaseURL:        cfg.CLOBURL,
		RequestTimeout: cfg.RequestTimeout(),
		Cache:          bookCache,
		Logger:         logger,
	})

	catalog := feed.NewClient(&feed.Config{
		BaseURL:        cfg.GammaURL,
		RequestTimeout: cfg.RequestTimeout(),
		Retry: feed.RetryPolicy{
			MaxRetries:  cfg.Net.MaxRetries,
			BackoffBase: cfg.BackoffBase(),
			BackoffMax:  cfg.BackoffMax(),
		},
		Logger: logger,
	})

	a.pipeline = selection.NewPipeline(cfg, catalog, a.books, recorder, logger)

	a.engine = rotation.NewEngine(rotation.Config{
		Cooldown:        cfg.RotationCooldown(),
		MinTenure:       cfg.MinTenure(),
		ScoreMultiplier: cfg.ScoreReplaceMultiplier,
		NumMarkets:      cfg.NumMarkets,
	}, ledger, recorder, logger)

	if live {
		if err := a.setupTrader(); err != nil {
			return nil, err
		}
	}

	maxWorkers := cfg.NumMarkets
	if live && cfg.Live.MaxMarkets < maxWorkers {
		maxWorkers = cfg.Live.MaxMarkets
	}
	a.orch = orchestrator.New(ledger, a.workerFactory(), maxWorkers,
		45*time.Second, recorder, logger)

	a.health = healthprobe.New()
	a.server = httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: a.health,
		Recorder:      recorder,
		Status:        a.status,
	})

	return a, nil
}

func newLedger(cfg *config.Config, logger *zap.Logger) (storage.Ledger, error) {
	switch cfg.Storage.Mode {
	case "postgres":
		ledger, err := storage.NewPostgresLedger(&storage.PostgresConfig{
			Host:     cfg.Storage.PostgresHost,
			Port:     cfg.Storage.PostgresPort,
			User:     cfg.Storage.PostgresUser,
			Password: cfg.Storage.PostgresPass,
			Database: cfg.Storage.PostgresDB,
			SSLMode:  cfg.Storage.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("connect ledger: %w", err)
		}
		return ledger, nil
	default:
		logger.Info("using-memory-ledger")
		return storage.NewMemoryLedger(), nil
	}
}

func (a *App) setupTrader() error {
	creds := config.LoadCredentials()
	if creds.PrivateKey == "" || creds.APIKey == "" || creds.Secret == "" || creds.Passphrase == "" {
		return fmt.Errorf("live mode requires PM_PRIVATE_KEY, POLYMARKET_API_KEY, POLYMARKET_SECRET and POLYMARKET_PASSPHRASE")
	}

	trader, err := clob.NewOrderClient(&clob.OrderClientConfig{
		BaseURL:      a.cfg.CLOBURL,
		APIKey:       creds.APIKey,
		Secret:       creds.Secret,
		Passphrase:   creds.Passphrase,
		PrivateKey:   creds.PrivateKey,
		ProxyAddress: os.Getenv("PM_PROXY_ADDRESS"),
		Logger:       a.logger,
	})
	if err != nil {
		return fmt.Errorf("create order client: %w", err)
	}

	a.trader = trader
	a.logger.Info("live-trading-armed", zap.String("address", trader.Address()))
	return nil
}

// workerFactory builds a fresh worker per start; re-entering markets never
// inherit quote state.
func (a *App) workerFactory() orchestrator.Factory {
	return func(entry selection.SnapshotEntry) orchestrator.Runner {
		var exec worker.Executor
		if a.live {
			exec = worker.NewLiveExecutor(entry.Slug, entry.ConditionID, a.trader,
				a.ledger, a.cfg.Live.CancelOnExit, a.recorder, a.logger)
		} else {
			exec = worker.NewPaperExecutor(entry.Slug, a.recorder, a.logger)
		}
		return worker.New(entry, a.books, exec, a.cfg.Quote,
			a.cfg.HeartbeatInterval(), a.recorder, a.logger)
	}
}

// status builds the /status document.
func (a *App) status(ctx context.Context) (any, error) {
	active, err := a.ledger.ListActiveMarkets(ctx)
	if err != nil {
		return nil, err
	}

	mode := "paper"
	if a.live {
		mode = "live"
	}

	markets := make([]map[string]any, 0, len(active))
	for _, m := range active {
		markets = append(markets, map[string]any{
			"slug":           m.Slug,
			"condition_id":   m.ConditionID,
			"entered_at":     m.EnteredAt.UTC().Format(time.RFC3339),
			"score_at_entry": m.ScoreAtEntry,
		})
	}

	return map[string]any{
		"mode":            mode,
		"active_markets":  markets,
		"running_workers": a.orch.RunningSlugs(),
	}, nil
}
