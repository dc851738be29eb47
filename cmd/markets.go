package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/mselser95/polymarket-lp/internal/feed"
	"github.com/mselser95/polymarket-lp/internal/selection"
	"github.com/mselser95/polymarket-lp/pkg/config"
	"github.com/mselser95/polymarket-lp/pkg/types"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var marketsCmd = &cobra.Command{
	Use:   "markets",
	Short: "Show the eligibility funnel for the current catalog",
	Long: `Fetches the market catalog and reports how many markets each
eligibility rule filters out, for tuning the filtering thresholds.`,
	RunE: runMarkets,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(marketsCmd)
	marketsCmd.Flags().IntP("limit", "l", 500, "Maximum number of markets to fetch")
}

func runMarkets(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	limit, _ := cmd.Flags().GetInt("limit")

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

	markets, err := catalog.FetchMarkets(ctx, false, limit)
	if err != nil {
		return fmt.Errorf("fetch markets: %w", err)
	}

	eligCfg := selection.EligibilityConfig{
		ExcludeRestricted: cfg.ExcludeRestricted,
		EndDateBufferDays: cfg.EndDateBufferDays,
		MinVolume24h:      cfg.MinVolume24h,
	}
	now := time.Now()

	counts := map[string]int{}
	eligible := 0
	for _, m := range markets {
		reason := ineligibleReason(&m, eligCfg, now)
		if reason == "" {
			eligible++
			continue
		}
		counts[reason]++
	}

	fmt.Printf("fetched %d markets, %d eligible\n\n", len(markets), eligible)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FILTER\tREJECTED")
	for _, reason := range []string{
		"inactive or closed", "not accepting orders", "order book disabled",
		"no reward parameters", "restricted", "ends too soon",
		"bad end date", "low volume",
	} {
		if n := counts[reason]; n > 0 {
			fmt.Fprintf(w, "%s\t%d\n", reason, n)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}

// ineligibleReason mirrors the eligibility predicate rule by rule, naming
// the first filter a market fails.
func ineligibleReason(m *types.MarketRecord, cfg selection.EligibilityConfig, now time.Time) string {
	switch {
	case !m.Active || m.Closed:
		return "inactive or closed"
	case !m.AcceptingOrders:
		return "not accepting orders"
	case !m.OrderBookEnabled:
		return "order book disabled"
	case m.RewardsMinSize <= 0 || m.RewardsMaxSpread <= 0:
		return "no reward parameters"
	case cfg.ExcludeRestricted && m.Restricted:
		return "restricted"
	}

	if m.EndDate != "" {
		end, ok := m.ParseEndDate()
		if !ok {
			return "bad end date"
		}
		if end.Before(now.Add(time.Duration(cfg.EndDateBufferDays) * 24 * time.Hour)) {
			return "ends too soon"
		}
	}
	if m.Volume24h < cfg.MinVolume24h {
		return "low volume"
	}
	return ""
}
