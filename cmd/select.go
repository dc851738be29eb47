package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/mselser95/polymarket-lp/internal/clob"
	"github.com/mselser95/polymarket-lp/internal/events"
	"github.com/mselser95/polymarket-lp/internal/feed"
	"github.com/mselser95/polymarket-lp/internal/selection"
	"github.com/mselser95/polymarket-lp/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Run one selection cycle and print the ranking",
	Long: `Runs the full selection funnel once (catalog fetch, eligibility,
capital feasibility, order-book preflight, scoring) and prints the ranked
top-N. The snapshot file is written as a side effect, exactly as the run
command would.`,
	RunE: runSelect,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(selectCmd)
}

func runSelect(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
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
	books := clob.NewBookClient(&clob.BookClientConfig{
		BaseURL:        cfg.CLOBURL,
		RequestTimeout: cfg.RequestTimeout(),
		Logger:         logger,
	})

	pipeline := selection.NewPipeline(cfg, catalog, books, events.NopRecorder{}, logger)

	snapshot, err := pipeline.Run(ctx)
	if err != nil {
		return fmt.Errorf("selection cycle: %w", err)
	}

	fmt.Printf("fetched %d, eligible %d, feasible %d, preflight passed %d, budget/market %.2f USDC\n\n",
		snapshot.TotalFetched, snapshot.TotalEligible, snapshot.TotalFeasible,
		snapshot.TotalPreflight, snapshot.PerMarketBudget)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tSLUG\tSCORE\tMAX SPREAD\tMIN SIZE\tVOL 24H")
	for i, entry := range snapshot.TopN {
		fmt.Fprintf(w, "%d\t%s\t%.3f\t%.4f\t%.0f\t%.0f\n",
			i+1, entry.Slug, entry.Score, entry.RewardsMaxSpread,
			entry.RewardsMinSize, entry.Features.Volume24h)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	fmt.Printf("\nsnapshot written to %s\n", cfg.SnapshotPath)
	return nil
}
