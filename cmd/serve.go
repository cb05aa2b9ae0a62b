package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lendlens/lendlens/internal/api"
	"github.com/lendlens/lendlens/internal/config"
	"github.com/lendlens/lendlens/internal/health"
	"github.com/lendlens/lendlens/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only snapshot API",
	Long:  `Expose snapshots, chain metadata, and health over a JSON HTTP API.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger.Setup(logLevel)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigChan
		slog.Info("Signal received, graceful shutdown", "signal", sig)
		cancel()
	}()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		slog.Error("Configuration error", "error", err)
		return err
	}
	if cfg.LogLevel != "" {
		logger.Setup(cfg.LogLevel)
	}

	client, cache := newSnapshotStack(cfg)
	checker := health.NewChecker(nil, client, probeURL(cfg), 0)
	server := api.NewServer(cache, checker)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: server.Router(),
	}

	go func() {
		slog.Info("API server starting", "port", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("API server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("API server shutdown error", "error", err)
		return err
	}
	slog.Info("API server stopped")
	return nil
}
