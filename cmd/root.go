package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "lendlens",
	Short: "Aave user activity aggregator",
	Long: `lendlens aggregates one user's Aave v2/v3 lending activity (deposits,
withdrawals, borrows, repayments and current reserve positions) across nine
chain deployments, normalizes it into USD-valued records, and serves or
persists the result.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}
