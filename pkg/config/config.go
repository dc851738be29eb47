package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. Values come from config.yaml
// with environment overrides for deployment-specific settings; credentials
// are environment-only and never written back to disk.
type Config struct {
	LogLevel string `yaml:"log_level"`
	HTTPPort string `yaml:"http_port"`

	GammaURL string `yaml:"gamma_url"`
	CLOBURL  string `yaml:"clob_url"`

	// Capital allocation
	TotalCapUSDC  float64 `yaml:"total_cap_usdc"`
	UsableCapFrac float64 `yaml:"usable_cap_frac"`
	NumMarkets    int     `yaml:"num_markets"`

	// Market filtering
	ExcludeRestricted bool    `yaml:"exclude_restricted"`
	EndDateBufferDays int     `yaml:"end_date_buffer_days"`
	MinVolume24h      float64 `yaml:"min_volume24h"`
	MaxBookSpread     float64 `yaml:"max_book_spread"`
	MaxMarketsFetch   int     `yaml:"max_markets_fetch"`

	// Timing
	SelectorIntervalSec    int     `yaml:"selector_interval_sec"`
	PollIntervalSec        int     `yaml:"poll_interval_sec"`
	RotationCooldownSec    int     `yaml:"rotation_cooldown_sec"`
	MinTenureSec           int     `yaml:"min_tenure_sec"`
	ScoreReplaceMultiplier float64 `yaml:"score_replace_multiplier"`
	HeartbeatIntervalSec   int     `yaml:"heartbeat_interval_sec"`

	Quote   QuoteConfig   `yaml:"quote"`
	Net     NetConfig     `yaml:"net"`
	Live    LiveConfig    `yaml:"live"`
	Storage StorageConfig `yaml:"storage"`

	SnapshotPath string `yaml:"snapshot_path"`
	EventLogPath string `yaml:"event_log_path"`
}

// QuoteConfig holds quote computation parameters.
type QuoteConfig struct {
	SizeBuffer     float64 `yaml:"size_buffer"`
	HalfSpreadFrac float64 `yaml:"half_spread_frac"`
	UpdateMinTicks int     `yaml:"update_min_ticks"`
}

// NetConfig holds network retry parameters.
type NetConfig struct {
	RequestTimeoutSec int     `yaml:"request_timeout_sec"`
	MaxRetries        int     `yaml:"max_retries"`
	BackoffBaseSec    float64 `yaml:"backoff_base_sec"`
	BackoffMaxSec     float64 `yaml:"backoff_max_sec"`
}

// LiveConfig holds live-mode safety parameters. Live trading requires both
// Enabled here and the explicit --live flag on the run command.
type LiveConfig struct {
	Enabled      bool `yaml:"enabled"`
	MaxMarkets   int  `yaml:"max_markets"`
	CancelOnExit bool `yaml:"cancel_on_exit"`
}

// StorageConfig selects the ledger backend: "memory" or "postgres".
type StorageConfig struct {
	Mode         string `yaml:"mode"`
	PostgresHost string `yaml:"postgres_host"`
	PostgresPort string `yaml:"postgres_port"`
	PostgresUser string `yaml:"postgres_user"`
	PostgresPass string `yaml:"-"` // POSTGRES_PASSWORD env only
	PostgresDB   string `yaml:"postgres_db"`
	PostgresSSL  string `yaml:"postgres_sslmode"`
}

// Credentials holds the live-mode signing credential and CLOB API keys.
// Supplied out-of-band through the environment; never persisted.
type Credentials struct {
	PrivateKey string
	APIKey     string
	Secret     string
	Passphrase string
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		HTTPPort: "8080",

		GammaURL: "https://gamma-api.polymarket.com",
		CLOBURL:  "https://clob.polymarket.com",

		TotalCapUSDC:  1000.0,
		UsableCapFrac: 0.85,
		NumMarkets:    3,

		ExcludeRestricted: true,
		EndDateBufferDays: 7,
		MinVolume24h:      500.0,
		MaxBookSpread:     0.8,
		MaxMarketsFetch:   2000,

		SelectorIntervalSec:    900,
		PollIntervalSec:        5,
		RotationCooldownSec:    43200, // 12h
		MinTenureSec:           21600, // 6h
		ScoreReplaceMultiplier: 1.25,
		HeartbeatIntervalSec:   10,

		Quote: QuoteConfig{
			SizeBuffer:     1.1,
			HalfSpreadFrac: 0.85,
			UpdateMinTicks: 2,
		},
		Net: NetConfig{
			RequestTimeoutSec: 20,
			MaxRetries:        5,
			BackoffBaseSec:    0.5,
			BackoffMaxSec:     10.0,
		},
		Live: LiveConfig{
			Enabled:      false,
			MaxMarkets:   1,
			CancelOnExit: true,
		},
		Storage: StorageConfig{
			Mode:         "memory",
			PostgresHost: "localhost",
			PostgresPort: "5432",
			PostgresUser: "polymarket",
			PostgresDB:   "polymarket_lp",
			PostgresSSL:  "disable",
		},

		SnapshotPath: "data/target_markets.json",
		EventLogPath: "logs/events.jsonl",
	}
}

// Load reads config.yaml from path, falling back to defaults when the file
// does not exist, applies environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		c.HTTPPort = v
	}
	if v := os.Getenv("POLYMARKET_GAMMA_API_URL"); v != "" {
		c.GammaURL = v
	}
	if v := os.Getenv("POLYMARKET_CLOB_API_URL"); v != "" {
		c.CLOBURL = v
	}
	if v := os.Getenv("STORAGE_MODE"); v != "" {
		c.Storage.Mode = v
	}
	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		c.Storage.PostgresHost = v
	}
	if v := os.Getenv("POSTGRES_PORT"); v != "" {
		c.Storage.PostgresPort = v
	}
	if v := os.Getenv("POSTGRES_USER"); v != "" {
		c.Storage.PostgresUser = v
	}
	if v := os.Getenv("POSTGRES_DB"); v != "" {
		c.Storage.PostgresDB = v
	}
	if v := os.Getenv("POSTGRES_SSLMODE"); v != "" {
		c.Storage.PostgresSSL = v
	}
	c.Storage.PostgresPass = os.Getenv("POSTGRES_PASSWORD")
}

// LoadCredentials reads live-mode credentials from the environment.
func LoadCredentials() Credentials {
	return Credentials{
		PrivateKey: os.Getenv("PM_PRIVATE_KEY"),
		APIKey:     os.Getenv("POLYMARKET_API_KEY"),
		Secret:     os.Getenv("POLYMARKET_SECRET"),
		Passphrase: os.Getenv("POLYMARKET_PASSPHRASE"),
	}
}

// Validate checks configuration invariants. Invalid configuration is fatal
// at startup, before any trading activity begins.
func (c *Config) Validate() error {
	if c.TotalCapUSDC <= 0 {
		return fmt.Errorf("total_cap_usdc must be positive, got %f", c.TotalCapUSDC)
	}
	if c.UsableCapFrac <= 0 || c.UsableCapFrac > 1 {
		return fmt.Errorf("usable_cap_frac must be in (0, 1], got %f", c.UsableCapFrac)
	}
	if c.NumMarkets <= 0 {
		return fmt.Errorf("num_markets must be positive, got %d", c.NumMarkets)
	}
	if c.EndDateBufferDays < 0 {
		return fmt.Errorf("end_date_buffer_days must be non-negative, got %d", c.EndDateBufferDays)
	}
	if c.MinVolume24h < 0 {
		return fmt.Errorf("min_volume24h must be non-negative, got %f", c.MinVolume24h)
	}
	if c.MaxBookSpread <= 0 {
		return fmt.Errorf("max_book_spread must be positive, got %f", c.MaxBookSpread)
	}
	if c.ScoreReplaceMultiplier < 1 {
		return fmt.Errorf("score_replace_multiplier must be >= 1, got %f", c.ScoreReplaceMultiplier)
	}
	if c.Quote.SizeBuffer <= 0 {
		return fmt.Errorf("quote.size_buffer must be positive, got %f", c.Quote.SizeBuffer)
	}
	if c.Quote.HalfSpreadFrac <= 0 || c.Quote.HalfSpreadFrac > 1 {
		return fmt.Errorf("quote.half_spread_frac must be in (0, 1], got %f", c.Quote.HalfSpreadFrac)
	}
	if c.Quote.UpdateMinTicks <= 0 {
		return fmt.Errorf("quote.update_min_ticks must be positive, got %d", c.Quote.UpdateMinTicks)
	}
	if c.Net.MaxRetries < 0 {
		return fmt.Errorf("net.max_retries must be non-negative, got %d", c.Net.MaxRetries)
	}
	if c.Net.BackoffBaseSec <= 0 || c.Net.BackoffMaxSec < c.Net.BackoffBaseSec {
		return fmt.Errorf("net backoff range invalid: base=%f max=%f", c.Net.BackoffBaseSec, c.Net.BackoffMaxSec)
	}
	if c.Live.MaxMarkets <= 0 {
		return fmt.Errorf("live.max_markets must be positive, got %d", c.Live.MaxMarkets)
	}
	if c.Storage.Mode != "memory" && c.Storage.Mode != "postgres" {
		return fmt.Errorf("storage.mode must be 'memory' or 'postgres', got %q", c.Storage.Mode)
	}

	return nil
}

// SelectorInterval returns the selection cycle period.
func (c *Config) SelectorInterval() time.Duration {
	return time.Duration(c.SelectorIntervalSec) * time.Second
}

// PollInterval returns the orchestrator control tick period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}

// RotationCooldown returns the global rotation cooldown.
func (c *Config) RotationCooldown() time.Duration {
	return time.Duration(c.RotationCooldownSec) * time.Second
}

// MinTenure returns the minimum incumbent holding duration.
func (c *Config) MinTenure() time.Duration {
	return time.Duration(c.MinTenureSec) * time.Second
}

// HeartbeatInterval returns the worker iteration period.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalSec) * time.Second
}

// RequestTimeout returns the per-request network timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Net.RequestTimeoutSec) * time.Second
}

// BackoffBase returns the base retry backoff.
func (c *Config) BackoffBase() time.Duration {
	return time.Duration(c.Net.BackoffBaseSec * float64(time.Second))
}

// BackoffMax returns the retry backoff ceiling.
func (c *Config) BackoffMax() time.Duration {
	return time.Duration(c.Net.BackoffMaxSec * float64(time.Second))
}
