package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lendlens/lendlens/internal/chains"
	"github.com/lendlens/lendlens/internal/config"
	"github.com/lendlens/lendlens/internal/health"
	"github.com/lendlens/lendlens/internal/logger"
	"github.com/lendlens/lendlens/internal/scheduler"
	"github.com/lendlens/lendlens/internal/snapshot"
	"github.com/lendlens/lendlens/internal/storage"
)

var (
	interval string
	once     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the snapshot tracker",
	Long:  `Fetch snapshots for the configured wallets and chains and persist them to PostgreSQL.`,
	RunE:  runTracker,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&interval, "interval", "", "refresh interval - duration (30m, 6h) or cron (\"0 */6 * * *\") - empty for one-time run")
	runCmd.Flags().BoolVar(&once, "once", false, "run once and exit (default)")
}

func runTracker(cmd *cobra.Command, args []string) error {
	// Setup logger (log-level from global flag)
	logger.Setup(logLevel)

	// Context with graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigChan
		slog.Info("Signal received, graceful shutdown", "signal", sig)
		cancel()
	}()

	// Load config
	cfg, databaseURL, err := config.LoadWithDatabase(cfgFile)
	if err != nil {
		slog.Error("Configuration error", "error", err)
		return err
	}

	// Override log level if set in config
	if cfg.LogLevel != "" {
		logger.Setup(cfg.LogLevel)
	}
	if len(cfg.Wallets) == 0 {
		return fmt.Errorf("no wallets configured")
	}

	// Use interval from flag if provided, otherwise from config
	runInterval := interval
	if runInterval == "" && cfg.Interval != "" {
		runInterval = cfg.Interval
	}

	slog.Info("Configuration loaded",
		"config_path", cfgFile,
		"wallets", len(cfg.Wallets),
		"chains", len(cfg.Chains),
		"interval", runInterval,
	)

	// Connect to PostgreSQL and apply pending migrations
	store, err := storage.NewStore(ctx, databaseURL)
	if err != nil {
		slog.Error("Failed to connect to PostgreSQL", "error", err)
		return err
	}
	defer store.Close()
	slog.Info("PostgreSQL connection established")

	if err := storage.RunMigrations(ctx, databaseURL); err != nil {
		slog.Error("Failed to apply migrations", "error", err)
		return err
	}

	// Wire the fetch pipeline
	client, cache := newSnapshotStack(cfg)

	// Run mode: one-time or daemon
	if runInterval == "" || once {
		return refreshAll(ctx, cfg, cache, store)
	}

	// Daemon mode with scheduler
	slog.Info("Starting daemon mode with scheduler", "interval", runInterval)

	var healthChecker *health.Checker
	jobFunc := func(jobCtx context.Context) error {
		err := refreshAll(jobCtx, cfg, cache, store)
		if healthChecker != nil {
			healthChecker.UpdateLastRun(err == nil)
		}
		return err
	}

	sched, err := scheduler.NewScheduler(ctx, scheduler.Config{
		Interval:       runInterval,
		RunImmediately: true,
		Logger:         slog.Default(),
	}, jobFunc)
	if err != nil {
		slog.Error("Failed to create scheduler", "error", err)
		return fmt.Errorf("scheduler creation failed: %w", err)
	}
	defer sched.Stop()

	healthChecker = health.NewChecker(store, client, probeURL(cfg), sched.ExpectedInterval())

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: healthChecker.Handler(),
	}

	go func() {
		slog.Info("Health check server starting", "port", cfg.HTTPPort, "endpoint", "/health")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Health server error", "error", err)
		}
	}()

	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("Health server shutdown error", "error", err)
		}
	}()

	if err := sched.Start(); err != nil {
		slog.Error("Failed to start scheduler", "error", err)
		return fmt.Errorf("scheduler start failed: %w", err)
	}

	slog.Info("Daemon mode started")

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("Shutdown requested, stopping daemon")
	return nil
}

// refreshAll fetches and persists a snapshot for every configured
// (wallet, chain) pair. Chains are fetched in parallel per wallet; a chain
// where the wallet never transacted is logged and skipped, any other
// failure is logged and does not stop the sweep.
func refreshAll(ctx context.Context, cfg *config.Config, cache *snapshot.Cache, store *storage.Store) error {
	chainIDs := cfg.ChainIDs()

	for _, wallet := range cfg.Wallets {
		// Check for cancellation
		select {
		case <-ctx.Done():
			slog.Info("Shutdown requested, stopping refresh")
			return ctx.Err()
		default:
		}

		slog.Info("Refreshing wallet", "wallet", wallet)

		results := make(chan *snapshot.Snapshot, len(chainIDs))
		var wg sync.WaitGroup

		for _, chainID := range chainIDs {
			wg.Add(1)
			go func(chainID chains.ID) {
				defer wg.Done()

				snap, err := cache.GetOrFetch(ctx, chainID, wallet)
				if err != nil {
					if errors.Is(err, snapshot.ErrUserNotFound) {
						slog.Debug("No activity on chain", "wallet", wallet, "chain", chainID)
					} else {
						slog.Error("Snapshot fetch failed", "wallet", wallet, "chain", chainID, "error", err)
					}
					return
				}

				slog.Info("Snapshot fetched",
					"wallet", wallet,
					"chain", chainID,
					"reserves", len(snap.Reserves),
					"deposits", len(snap.Deposits),
				)

				results <- snap
			}(chainID)
		}

		go func() {
			wg.Wait()
			close(results)
		}()

		saved := 0
		for snap := range results {
			if err := store.SaveSnapshot(ctx, snap); err != nil {
				slog.Error("Snapshot persist failed", "wallet", wallet, "chain", snap.Chain, "error", err)
				continue
			}
			saved++
		}

		slog.Info("Wallet refreshed", "wallet", wallet, "chains_saved", saved)
	}

	slog.Info("Refresh completed")
	return nil
}
