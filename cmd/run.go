package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/mselser95/polymarket-lp/internal/app"
	"github.com/mselser95/polymarket-lp/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the market maker",
	Long: `Starts the control loop: periodic market selection, rotation of the
active set under cooldown and tenure rules, and one quoting worker per
active market.

Live trading requires BOTH live.enabled in the config and the --live flag,
plus PM_PRIVATE_KEY, POLYMARKET_API_KEY, POLYMARKET_SECRET and
POLYMARKET_PASSPHRASE in the environment.`,
	RunE: runBot,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("live", false, "Place real orders instead of paper quoting")
}

func runBot(cmd *cobra.Command, args []string) error {
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

	liveFlag, _ := cmd.Flags().GetBool("live")
	live := liveFlag && cfg.Live.Enabled
	if liveFlag && !cfg.Live.Enabled {
		return fmt.Errorf("--live given but live.enabled is false in the config")
	}

	application, err := app.New(cfg, logger, live)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
