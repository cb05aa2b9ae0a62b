package storage

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lendlens/lendlens/internal/chains"
)

// PositionRecord is one persisted reserve position at one fetch time.
type PositionRecord struct {
	ID        int64
	Chain     chains.ID
	Address   string
	FetchedAt time.Time
	Symbol    string
	Amount    decimal.Decimal
	AmountUSD decimal.Decimal
	Debt      decimal.Decimal
	DebtUSD   decimal.Decimal
}

// EventRecord is one persisted protocol event. Kind is one of deposit,
// borrow, repay, withdraw.
type EventRecord struct {
	ID         int64
	Chain      chains.ID
	Address    string
	Kind       string
	OccurredAt time.Time
	DateLabel  string
	Symbol     string
	Amount     decimal.Decimal
	AmountUSD  decimal.Decimal
}
