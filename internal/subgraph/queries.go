package subgraph

import "fmt"

// DefaultPriceIndexURL is the token-price index used by the external-index
// strategy. Overridable via configuration.
const DefaultPriceIndexURL = "https://api.thegraph.com/subgraphs/name/wardenluna/token-prices-optimism"

// EthPriceQuery fetches the protocol oracle aggregate on the canonical
// Ethereum deployment.
const EthPriceQuery = `{
  priceOracles {
    usdPriceEth
  }
}`

const eventFields = `{
      timestamp
      amount
      reserve { symbol decimals price { priceInEth } }
    }`

// UserSnapshotQuery builds the single round-trip query for a user's current
// reserves and four event histories, ordered newest first. The supply-event
// field name varies by deployment and is supplied by the chain profile.
func UserSnapshotQuery(address, depositEventField string) string {
	return fmt.Sprintf(`{
  users(where: { id: %q }) {
    reserves {
      reserve { symbol decimals price { priceInEth } }
      currentATokenBalance
      currentTotalDebt
    }
    %s(orderBy: timestamp, orderDirection: desc) %s
    borrowHistory(orderBy: timestamp, orderDirection: desc) %s
    repayHistory(orderBy: timestamp, orderDirection: desc) %s
    redeemUnderlyingHistory(orderBy: timestamp, orderDirection: desc) %s
  }
}`, address, depositEventField, eventFields, eventFields, eventFields, eventFields)
}

// TokenPriceQuery builds the external price-index lookup by token symbol.
// The first of up to five matches is authoritative.
func TokenPriceQuery(symbol string) string {
	return fmt.Sprintf(`{
  tokens(first: 5, where: { symbol: %q }) {
    symbol
    priceUSD
  }
}`, symbol)
}
