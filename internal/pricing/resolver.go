// Package pricing resolves USD unit prices for assets across deployments.
//
// Each deployment decided independently how to represent price; the resolver
// hides that behind one decimal value, always "USD per one whole unit of the
// asset". Strategy selection is fixed per chain in the registry.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/lendlens/lendlens/internal/chains"
	"github.com/lendlens/lendlens/internal/subgraph"
)

// ErrPriceNotFound is returned when the external price index has no entry
// for a symbol. Callers must not treat it as a zero price.
var ErrPriceNotFound = errors.New("price not found")

// Config points the resolver at its upstream price sources.
type Config struct {
	// EthOracleURL is the canonical Ethereum subgraph carrying the
	// priceOracles aggregate. Defaults to the Ethereum chain profile.
	EthOracleURL string
	// PriceIndexURL is the external token-price index used by the
	// ExternalIndex strategy.
	PriceIndexURL string
}

// Resolver converts raw oracle payloads to USD unit prices.
// Safe for concurrent use.
type Resolver struct {
	client        *subgraph.Client
	ethOracleURL  string
	priceIndexURL string

	mu     sync.Mutex
	ethUSD *decimal.Decimal
}

// NewResolver creates a resolver backed by the given subgraph client.
func NewResolver(client *subgraph.Client, cfg Config) *Resolver {
	if cfg.EthOracleURL == "" {
		eth, _ := chains.Resolve(chains.Ethereum)
		cfg.EthOracleURL = eth.SubgraphURL
	}
	if cfg.PriceIndexURL == "" {
		cfg.PriceIndexURL = subgraph.DefaultPriceIndexURL
	}
	return &Resolver{
		client:        client,
		ethOracleURL:  cfg.EthOracleURL,
		priceIndexURL: cfg.PriceIndexURL,
	}
}

// UnitPriceUSD resolves the USD price of one whole unit of the asset, using
// the strategy fixed by the chain profile.
func (r *Resolver) UnitPriceUSD(ctx context.Context, profile chains.Profile, raw *subgraph.RawPrice, symbol string) (decimal.Decimal, error) {
	switch profile.PriceStrategy {
	case chains.OracleUSD8:
		p, err := parseOraclePrice(raw)
		if err != nil {
			return decimal.Decimal{}, err
		}
		return p.Shift(-8), nil

	case chains.OracleETH18:
		p, err := parseOraclePrice(raw)
		if err != nil {
			return decimal.Decimal{}, err
		}
		ethUSD, err := r.EthUSDPrice(ctx)
		if err != nil {
			return decimal.Decimal{}, err
		}
		return p.Shift(-18).Mul(ethUSD), nil

	case chains.ExternalIndex:
		return r.indexPrice(ctx, symbol)

	default:
		return decimal.Decimal{}, fmt.Errorf("chain %s: unhandled price strategy %d", profile.ID, profile.PriceStrategy)
	}
}

// EthUSDPrice returns the session ETH/USD price, fetching it from the
// canonical Ethereum oracle aggregate on first use. The first successfully
// fetched value wins and is reused for the process lifetime; a failed fetch
// is retried on the next call rather than poisoning the session.
func (r *Resolver) EthUSDPrice(ctx context.Context) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ethUSD != nil {
		return *r.ethUSD, nil
	}

	var data subgraph.PriceOracleData
	if err := r.client.Query(ctx, r.ethOracleURL, subgraph.EthPriceQuery, &data); err != nil {
		return decimal.Decimal{}, err
	}
	if len(data.PriceOracles) == 0 {
		return decimal.Decimal{}, fmt.Errorf("eth price oracle returned no entries")
	}

	raw, err := decimal.NewFromString(data.PriceOracles[0].UsdPriceEth)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse usdPriceEth %q: %w", data.PriceOracles[0].UsdPriceEth, err)
	}

	price := raw.Shift(-18)
	r.ethUSD = &price
	return price, nil
}

// SetEthUSDPrice pins the session ETH/USD price, bypassing the oracle fetch.
func (r *Resolver) SetEthUSDPrice(price decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ethUSD = &price
}

func (r *Resolver) indexPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var data subgraph.TokenPriceData
	query := subgraph.TokenPriceQuery(symbol)
	if err := r.client.Query(ctx, r.priceIndexURL, query, &data); err != nil {
		return decimal.Decimal{}, err
	}
	if len(data.Tokens) == 0 {
		return decimal.Decimal{}, fmt.Errorf("%w: symbol %q", ErrPriceNotFound, symbol)
	}

	price, err := decimal.NewFromString(data.Tokens[0].PriceUSD)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse priceUSD %q for %s: %w", data.Tokens[0].PriceUSD, symbol, err)
	}
	return price, nil
}

func parseOraclePrice(raw *subgraph.RawPrice) (decimal.Decimal, error) {
	if raw == nil {
		return decimal.Decimal{}, fmt.Errorf("missing price payload")
	}
	p, err := decimal.NewFromString(raw.PriceInEth)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse priceInEth %q: %w", raw.PriceInEth, err)
	}
	return p, nil
}
