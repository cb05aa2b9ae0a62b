// Package chains holds the static registry of supported Aave deployments.
//
// Each deployment is described by a Profile: where its subgraph lives, how to
// build block-explorer links, which field name its subgraph uses for supply
// events, and how its price oracle reports asset prices. Adding a tenth
// deployment is a data change in the table below, not a code change.
package chains

import (
	"errors"
	"fmt"
)

// ErrUnknownChain is returned when a chain identifier is not one of the
// supported deployments.
var ErrUnknownChain = errors.New("unknown chain")

// ID identifies one supported deployment.
type ID string

const (
	Ethereum    ID = "ethereum"
	Optimism    ID = "optimism"
	Arbitrum    ID = "arbitrum"
	PolygonV2   ID = "polygon-v2"
	PolygonV3   ID = "polygon-v3"
	AvalancheV2 ID = "avalanche-v2"
	AvalancheV3 ID = "avalanche-v3"
	Harmony     ID = "harmony"
	Fantom      ID = "fantom"
)

// PriceStrategy selects how a deployment's oracle output is converted to a
// USD unit price. Fixed per chain, never inferred from response shape.
type PriceStrategy int

const (
	// OracleUSD8: the oracle reports USD scaled by 10^8. The subgraph field
	// is still called priceInEth on these deployments; that naming quirk is
	// upstream's, not ours.
	OracleUSD8 PriceStrategy = iota
	// OracleETH18: the oracle reports a price in ETH scaled by 10^18 and
	// needs the session ETH/USD price to convert.
	OracleETH18
	// ExternalIndex: the deployment's own oracle output is unusable; prices
	// come from a separate token-price index queried by symbol.
	ExternalIndex
)

// Profile is the immutable per-deployment configuration.
type Profile struct {
	ID                 ID
	Name               string
	SubgraphURL        string
	AddressExplorerURL string
	TxExplorerURL      string
	// DepositEventField is the subgraph field name for supply events.
	// The v2 deployments on Ethereum, Avalanche and Polygon predate the
	// deposit->supply rename and still call it depositHistory.
	DepositEventField string
	PriceStrategy     PriceStrategy
}

// AddressURL builds a block-explorer link for a wallet address.
func (p Profile) AddressURL(address string) string {
	return p.AddressExplorerURL + address
}

// TxURL builds a block-explorer link for a transaction hash.
func (p Profile) TxURL(txHash string) string {
	return p.TxExplorerURL + txHash
}

var registry = map[ID]Profile{
	Ethereum: {
		ID:                 Ethereum,
		Name:               "Ethereum",
		SubgraphURL:        "https://api.thegraph.com/subgraphs/name/aave/protocol-v2",
		AddressExplorerURL: "https://etherscan.io/address/",
		TxExplorerURL:      "https://etherscan.io/tx/",
		DepositEventField:  "depositHistory",
		PriceStrategy:      OracleETH18,
	},
	Optimism: {
		ID:                 Optimism,
		Name:               "Optimism",
		SubgraphURL:        "https://api.thegraph.com/subgraphs/name/aave/protocol-v3-optimism",
		AddressExplorerURL: "https://optimistic.etherscan.io/address/",
		TxExplorerURL:      "https://optimistic.etherscan.io/tx/",
		DepositEventField:  "supplyHistory",
		PriceStrategy:      ExternalIndex,
	},
	Arbitrum: {
		ID:                 Arbitrum,
		Name:               "Arbitrum",
		SubgraphURL:        "https://api.thegraph.com/subgraphs/name/aave/protocol-v3-arbitrum",
		AddressExplorerURL: "https://arbiscan.io/address/",
		TxExplorerURL:      "https://arbiscan.io/tx/",
		DepositEventField:  "supplyHistory",
		PriceStrategy:      OracleUSD8,
	},
	PolygonV2: {
		ID:                 PolygonV2,
		Name:               "Polygon v2",
		SubgraphURL:        "https://api.thegraph.com/subgraphs/name/aave/aave-v2-matic",
		AddressExplorerURL: "https://polygonscan.com/address/",
		TxExplorerURL:      "https://polygonscan.com/tx/",
		DepositEventField:  "depositHistory",
		PriceStrategy:      OracleETH18,
	},
	PolygonV3: {
		ID:                 PolygonV3,
		Name:               "Polygon v3",
		SubgraphURL:        "https://api.thegraph.com/subgraphs/name/aave/protocol-v3-polygon",
		AddressExplorerURL: "https://polygonscan.com/address/",
		TxExplorerURL:      "https://polygonscan.com/tx/",
		DepositEventField:  "supplyHistory",
		PriceStrategy:      OracleUSD8,
	},
	AvalancheV2: {
		ID:                 AvalancheV2,
		Name:               "Avalanche v2",
		SubgraphURL:        "https://api.thegraph.com/subgraphs/name/aave/protocol-v2-avalanche",
		AddressExplorerURL: "https://snowtrace.io/address/",
		TxExplorerURL:      "https://snowtrace.io/tx/",
		DepositEventField:  "depositHistory",
		PriceStrategy:      OracleUSD8,
	},
	AvalancheV3: {
		ID:                 AvalancheV3,
		Name:               "Avalanche v3",
		SubgraphURL:        "https://api.thegraph.com/subgraphs/name/aave/protocol-v3-avalanche",
		AddressExplorerURL: "https://snowtrace.io/address/",
		TxExplorerURL:      "https://snowtrace.io/tx/",
		DepositEventField:  "supplyHistory",
		PriceStrategy:      OracleUSD8,
	},
	Harmony: {
		ID:                 Harmony,
		Name:               "Harmony",
		SubgraphURL:        "https://api.thegraph.com/subgraphs/name/aave/protocol-v3-harmony",
		AddressExplorerURL: "https://explorer.harmony.one/address/",
		TxExplorerURL:      "https://explorer.harmony.one/tx/",
		DepositEventField:  "supplyHistory",
		PriceStrategy:      OracleUSD8,
	},
	Fantom: {
		ID:                 Fantom,
		Name:               "Fantom",
		SubgraphURL:        "https://api.thegraph.com/subgraphs/name/aave/protocol-v3-fantom",
		AddressExplorerURL: "https://ftmscan.com/address/",
		TxExplorerURL:      "https://ftmscan.com/tx/",
		DepositEventField:  "supplyHistory",
		PriceStrategy:      OracleUSD8,
	},
}

// Resolve returns the profile for a chain identifier.
func Resolve(id ID) (Profile, error) {
	p, ok := registry[id]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownChain, id)
	}
	return p, nil
}

// All returns the profiles of every supported deployment, ordered by id.
func All() []Profile {
	ids := []ID{
		Ethereum, Optimism, Arbitrum, PolygonV2, PolygonV3,
		AvalancheV2, AvalancheV3, Harmony, Fantom,
	}
	profiles := make([]Profile, 0, len(ids))
	for _, id := range ids {
		profiles = append(profiles, registry[id])
	}
	return profiles
}

// IsSupported reports whether id names a supported deployment.
func IsSupported(id ID) bool {
	_, ok := registry[id]
	return ok
}
