package cmd

import (
	"github.com/lendlens/lendlens/internal/chains"
	"github.com/lendlens/lendlens/internal/config"
	"github.com/lendlens/lendlens/internal/normalize"
	"github.com/lendlens/lendlens/internal/pricing"
	"github.com/lendlens/lendlens/internal/snapshot"
	"github.com/lendlens/lendlens/internal/subgraph"
)

// newSnapshotStack wires the fetch pipeline from configuration: one HTTP
// client shared by the subgraph fetcher and the price resolver, a normalizer
// on top, and the TTL cache wrapping the whole thing.
func newSnapshotStack(cfg *config.Config) (*subgraph.Client, *snapshot.Cache) {
	client := subgraph.NewClient(cfg.RequestTimeoutDuration())

	overrides := cfg.Overrides()
	resolver := pricing.NewResolver(client, pricing.Config{
		EthOracleURL:  overrides[chains.Ethereum],
		PriceIndexURL: cfg.PriceIndexURL,
	})

	normalizer := normalize.New(resolver)
	fetcher := snapshot.NewFetcher(client, normalizer, overrides)
	cache := snapshot.NewCache(fetcher, cfg.CacheTTLDuration(), nil)

	return client, cache
}

// probeURL picks the subgraph endpoint the health checker pings.
func probeURL(cfg *config.Config) string {
	ids := cfg.ChainIDs()
	profile, err := chains.Resolve(ids[0])
	if err != nil {
		profile, _ = chains.Resolve(chains.Ethereum)
	}
	if override, ok := cfg.Overrides()[profile.ID]; ok {
		return override
	}
	return profile.SubgraphURL
}
