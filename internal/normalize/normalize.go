// Package normalize converts raw subgraph records into typed,
// decimal-corrected, USD-valued records.
//
// A raw record that cannot be normalized fails the whole call: a partially
// normalized snapshot would misrepresent totals, so nothing is silently
// skipped. Output order preserves input order; grouping and sorting belong
// downstream.
package normalize

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lendlens/lendlens/internal/chains"
	"github.com/lendlens/lendlens/internal/pricing"
	"github.com/lendlens/lendlens/internal/subgraph"
)

// dateLabelLayout is the UTC day-granularity grouping key format.
const dateLabelLayout = "2006/01/02"

// MalformedRecordError reports a raw record missing an expected field or
// carrying non-numeric data where a number is required.
type MalformedRecordError struct {
	Field  string
	Symbol string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record (%s, field %s): %v", e.Symbol, e.Field, e.Err)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

// PriceResolver resolves the USD price of one whole unit of an asset.
type PriceResolver interface {
	UnitPriceUSD(ctx context.Context, profile chains.Profile, raw *subgraph.RawPrice, symbol string) (decimal.Decimal, error)
}

// Position is a user's current supplied and borrowed balance in one asset.
// AmountUSD and DebtUSD are derived from the same resolved unit price.
type Position struct {
	Symbol    string          `json:"symbol"`
	Amount    decimal.Decimal `json:"amount"`
	AmountUSD decimal.Decimal `json:"amount_usd"`
	Debt      decimal.Decimal `json:"debt"`
	DebtUSD   decimal.Decimal `json:"debt_usd"`
}

// Event is one historical deposit, borrow, repay or withdraw action.
type Event struct {
	Timestamp time.Time       `json:"timestamp"`
	DateLabel string          `json:"date"`
	Symbol    string          `json:"symbol"`
	Amount    decimal.Decimal `json:"amount"`
	AmountUSD decimal.Decimal `json:"amount_usd"`
}

// Normalizer turns raw records into normalized ones, consulting the price
// resolver per asset.
type Normalizer struct {
	prices PriceResolver
}

// New creates a Normalizer.
func New(prices PriceResolver) *Normalizer {
	return &Normalizer{prices: prices}
}

// Reserves normalizes a user's current reserve positions.
func (n *Normalizer) Reserves(ctx context.Context, profile chains.Profile, raw []subgraph.RawReserve) ([]Position, error) {
	positions := make([]Position, 0, len(raw))
	for _, r := range raw {
		amount, err := ScaleByDecimals(r.CurrentATokenBalance, r.Reserve.Decimals)
		if err != nil {
			return nil, &MalformedRecordError{Field: "currentATokenBalance", Symbol: r.Reserve.Symbol, Err: err}
		}
		debt, err := ScaleByDecimals(r.CurrentTotalDebt, r.Reserve.Decimals)
		if err != nil {
			return nil, &MalformedRecordError{Field: "currentTotalDebt", Symbol: r.Reserve.Symbol, Err: err}
		}

		unitPrice, err := n.unitPrice(ctx, profile, r.Reserve)
		if err != nil {
			return nil, err
		}

		positions = append(positions, Position{
			Symbol:    r.Reserve.Symbol,
			Amount:    amount,
			AmountUSD: amount.Mul(unitPrice),
			Debt:      debt,
			DebtUSD:   debt.Mul(unitPrice),
		})
	}
	return positions, nil
}

// Events normalizes one event history.
func (n *Normalizer) Events(ctx context.Context, profile chains.Profile, raw []subgraph.RawEvent) ([]Event, error) {
	events := make([]Event, 0, len(raw))
	for _, r := range raw {
		unix, err := r.Timestamp.Int64()
		if err != nil {
			return nil, &MalformedRecordError{Field: "timestamp", Symbol: r.Reserve.Symbol, Err: err}
		}
		ts := time.Unix(unix, 0).UTC()

		amount, err := ScaleByDecimals(r.Amount, r.Reserve.Decimals)
		if err != nil {
			return nil, &MalformedRecordError{Field: "amount", Symbol: r.Reserve.Symbol, Err: err}
		}

		unitPrice, err := n.unitPrice(ctx, profile, r.Reserve)
		if err != nil {
			return nil, err
		}

		events = append(events, Event{
			Timestamp: ts,
			DateLabel: ts.Format(dateLabelLayout),
			Symbol:    r.Reserve.Symbol,
			Amount:    amount,
			AmountUSD: amount.Mul(unitPrice),
		})
	}
	return events, nil
}

// unitPrice resolves the record's unit price and classifies the failure:
// transport errors and missing index entries propagate as themselves, any
// other resolver failure means the record's price payload was malformed.
func (n *Normalizer) unitPrice(ctx context.Context, profile chains.Profile, meta subgraph.RawReserveMeta) (decimal.Decimal, error) {
	price, err := n.prices.UnitPriceUSD(ctx, profile, meta.Price, meta.Symbol)
	if err == nil {
		return price, nil
	}

	var transport *subgraph.TransportError
	if errors.Is(err, pricing.ErrPriceNotFound) || errors.As(err, &transport) {
		return decimal.Decimal{}, err
	}
	return decimal.Decimal{}, &MalformedRecordError{Field: "price", Symbol: meta.Symbol, Err: err}
}

// ScaleByDecimals divides a raw integer amount by 10^decimals using the
// asset's own decimals field.
func ScaleByDecimals(raw string, decimals int) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	if d.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("negative amount %q", raw)
	}
	return d.Shift(int32(-decimals)), nil
}
