package subgraph

import "encoding/json"

// RawPrice is the nested oracle payload on a reserve. On most deployments
// priceInEth actually carries a USD price scaled by 10^8; the field name is
// an upstream quirk that must not be "fixed" here.
type RawPrice struct {
	PriceInEth string `json:"priceInEth"`
}

// RawReserveMeta is the asset metadata nested in reserves and events.
type RawReserveMeta struct {
	Symbol   string    `json:"symbol"`
	Decimals int       `json:"decimals"`
	Price    *RawPrice `json:"price"`
}

// RawReserve is a user's current position in one asset, as returned by the
// subgraph. Balances are raw integer strings, unscaled.
type RawReserve struct {
	Reserve              RawReserveMeta `json:"reserve"`
	CurrentATokenBalance string         `json:"currentATokenBalance"`
	CurrentTotalDebt     string         `json:"currentTotalDebt"`
}

// RawEvent is one historical deposit, borrow, repay or withdraw action.
// Timestamp arrives as a string on some deployments and a number on others.
type RawEvent struct {
	Timestamp json.Number    `json:"timestamp"`
	Amount    string         `json:"amount"`
	Reserve   RawReserveMeta `json:"reserve"`
}

// RawUser is the full per-user payload: current reserves plus the four event
// histories. The supply history is decoded under both field names the
// deployments use; exactly one of the two is populated per chain.
type RawUser struct {
	Reserves                []RawReserve `json:"reserves"`
	DepositHistory          []RawEvent   `json:"depositHistory"`
	SupplyHistory           []RawEvent   `json:"supplyHistory"`
	BorrowHistory           []RawEvent   `json:"borrowHistory"`
	RepayHistory            []RawEvent   `json:"repayHistory"`
	RedeemUnderlyingHistory []RawEvent   `json:"redeemUnderlyingHistory"`
}

// Deposits returns the supply-event history under whichever field name the
// chain profile uses.
func (u RawUser) Deposits(depositEventField string) []RawEvent {
	if depositEventField == "depositHistory" {
		return u.DepositHistory
	}
	return u.SupplyHistory
}

// UserData is the envelope for the snapshot query.
type UserData struct {
	Users []RawUser `json:"users"`
}

// PriceOracleData is the envelope for the canonical Ethereum price-oracle
// query. UsdPriceEth is an 18-decimal-scaled integer string carrying ETH's
// USD price.
type PriceOracleData struct {
	PriceOracles []struct {
		UsdPriceEth string `json:"usdPriceEth"`
	} `json:"priceOracles"`
}

// RawToken is one entry from the external token-price index.
type RawToken struct {
	Symbol   string `json:"symbol"`
	PriceUSD string `json:"priceUSD"`
}

// TokenPriceData is the envelope for the token-price index query.
type TokenPriceData struct {
	Tokens []RawToken `json:"tokens"`
}
