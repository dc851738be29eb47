package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var configPath string

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "polymarket-lp",
	Short: "Polymarket liquidity rewards market maker",
	Long: `Polymarket liquidity rewards market maker. The bot scans the Gamma
catalog for reward-eligible markets, scores them for profitability and
stability, selects a bounded set to trade, and runs one quoting worker per
selected market that keeps two-sided resting orders inside the rewarded
spread band while minimizing order churn.

Paper mode (the default) computes and records quotes without touching the
exchange. Live mode places real orders and requires credentials in the
environment.`,
	PersistentPreRun: func(*cobra.Command, []string) {
		// Best effort: credentials and overrides may come from .env.
		_ = godotenv.Load()
	},
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML config file")
}
