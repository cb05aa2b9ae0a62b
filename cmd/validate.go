package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lendlens/lendlens/internal/config"
	"github.com/lendlens/lendlens/internal/logger"
)

var validateCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file syntax and values without running the application.`,
	RunE:  validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	logger.Setup(logLevel)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		slog.Error("Configuration validation failed", "error", err)
		return err
	}

	slog.Info("✓ Configuration valid",
		"wallets", len(cfg.Wallets),
		"chains", len(cfg.Chains),
		"interval", cfg.Interval,
		"cache_ttl", cfg.CacheTTL,
		"log_level", cfg.LogLevel,
	)

	return nil
}
