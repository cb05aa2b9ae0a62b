package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lendlens/lendlens/internal/chains"
	"github.com/lendlens/lendlens/internal/config"
	"github.com/lendlens/lendlens/internal/logger"
	"github.com/lendlens/lendlens/internal/snapshot"
)

var (
	fetchChain   string
	fetchAddress string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch one user snapshot and print it as JSON",
	Long: `Fetch the current reserves and full event histories for a user address
on one chain, normalize them, and print the snapshot to stdout.`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVar(&fetchChain, "chain", string(chains.Ethereum), "chain identifier")
	fetchCmd.Flags().StringVar(&fetchAddress, "address", "", "user address (0x...)")
	fetchCmd.MarkFlagRequired("address")
}

func runFetch(cmd *cobra.Command, args []string) error {
	logger.Setup(logLevel)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		slog.Error("Configuration error", "error", err)
		return err
	}

	_, cache := newSnapshotStack(cfg)

	snap, err := cache.GetOrFetch(cmd.Context(), chains.ID(fetchChain), fetchAddress)
	if err != nil {
		slog.Error("Snapshot fetch failed", "chain", fetchChain, "address", fetchAddress, "error", err)
		return err
	}

	profile, err := chains.Resolve(snap.Chain)
	if err != nil {
		return err
	}

	out := struct {
		*snapshot.Snapshot
		Totals      snapshot.Totals `json:"totals"`
		ExplorerURL string          `json:"explorer_url"`
	}{
		Snapshot:    snap,
		Totals:      snap.Totals(),
		ExplorerURL: profile.AddressURL(snap.Address),
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}
