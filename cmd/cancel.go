package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/mselser95/polymarket-lp/internal/clob"
	"github.com/mselser95/polymarket-lp/internal/storage"
	"github.com/mselser95/polymarket-lp/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel all live orders tracked in the ledger",
	Long: `Reads every OPEN or PARTIAL order from the ledger and cancels it on
the exchange. Recovery tool for when a live run exited without cleaning up
(crash, kill -9). Requires the postgres ledger and live credentials.`,
	RunE: runCancel,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(cancelCmd)
}

func runCancel(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Storage.Mode != "postgres" {
		return fmt.Errorf("cancel needs the postgres ledger; the memory ledger does not survive the process")
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	creds := config.LoadCredentials()
	if creds.PrivateKey == "" || creds.APIKey == "" {
		return fmt.Errorf("live credentials missing from the environment")
	}

	trader, err := clob.NewOrderClient(&clob.OrderClientConfig{
		BaseURL:    cfg.CLOBURL,
		APIKey:     creds.APIKey,
		Secret:     creds.Secret,
		Passphrase: creds.Passphrase,
		PrivateKey: creds.PrivateKey,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("create order client: %w", err)
	}

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
		return fmt.Errorf("connect ledger: %w", err)
	}
	defer ledger.Close()

	orders, err := ledger.ListOpenOrders(ctx, "")
	if err != nil {
		return fmt.Errorf("list open orders: %w", err)
	}

	cancelled, failed := 0, 0
	for _, order := range orders {
		if !order.Live() {
			continue
		}

		if _, err := trader.CancelOrder(ctx, order.OrderID); err != nil {
			fmt.Printf("FAILED  %s (%s %s @ %.4f): %v\n",
				order.OrderID, order.Side, order.TokenID, order.Price, err)
			failed++
			continue
		}

		if err := ledger.UpdateOrderStatus(ctx, order.OrderID, storage.OrderStatusCancelled); err != nil {
			fmt.Printf("cancelled %s but ledger update failed: %v\n", order.OrderID, err)
		}
		cancelled++
	}

	fmt.Printf("\ncancelled %d orders, %d failures\n", cancelled, failed)
	if failed > 0 {
		return fmt.Errorf("%d orders could not be cancelled", failed)
	}
	return nil
}
