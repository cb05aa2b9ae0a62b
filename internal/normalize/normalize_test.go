package normalize

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lendlens/lendlens/internal/chains"
	"github.com/lendlens/lendlens/internal/pricing"
	"github.com/lendlens/lendlens/internal/subgraph"
)

type stubResolver struct {
	price decimal.Decimal
	err   error
}

func (s stubResolver) UnitPriceUSD(ctx context.Context, profile chains.Profile, raw *subgraph.RawPrice, symbol string) (decimal.Decimal, error) {
	return s.price, s.err
}

func mustProfile(t *testing.T, id chains.ID) chains.Profile {
	t.Helper()
	p, err := chains.Resolve(id)
	require.NoError(t, err)
	return p
}

func TestScaleByDecimals(t *testing.T) {
	tests := []struct {
		raw      string
		decimals int
		want     string
	}{
		{"5000000000000000000", 18, "5"},
		{"1500000", 6, "1.5"},
		{"1", 18, "0.000000000000000001"},
		{"0", 8, "0"},
		{"123456789", 0, "123456789"},
	}

	for _, tt := range tests {
		got, err := ScaleByDecimals(tt.raw, tt.decimals)
		require.NoError(t, err)
		assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
			"%s / 10^%d: got %s want %s", tt.raw, tt.decimals, got, tt.want)
	}
}

func TestScaleByDecimalsRejectsBadInput(t *testing.T) {
	_, err := ScaleByDecimals("", 18)
	assert.Error(t, err)

	_, err = ScaleByDecimals("12x4", 18)
	assert.Error(t, err)

	_, err = ScaleByDecimals("-5", 18)
	assert.Error(t, err)
}

func TestReservesDAIWorkedExample(t *testing.T) {
	// Ethereum reserve: 5 DAI at an oracle price of 0.0005 ETH with
	// ETH at $1800 values to $4.50.
	resolver := pricing.NewResolver(nil, pricing.Config{})
	resolver.SetEthUSDPrice(decimal.NewFromInt(1800))
	n := New(resolver)

	raw := []subgraph.RawReserve{{
		Reserve: subgraph.RawReserveMeta{
			Symbol:   "DAI",
			Decimals: 18,
			Price:    &subgraph.RawPrice{PriceInEth: "500000000000000"},
		},
		CurrentATokenBalance: "5000000000000000000",
		CurrentTotalDebt:     "0",
	}}

	positions, err := n.Reserves(context.Background(), mustProfile(t, chains.Ethereum), raw)
	require.NoError(t, err)
	require.Len(t, positions, 1)

	pos := positions[0]
	assert.Equal(t, "DAI", pos.Symbol)
	assert.True(t, pos.Amount.Equal(decimal.NewFromInt(5)), "amount %s", pos.Amount)
	assert.True(t, pos.AmountUSD.Equal(decimal.RequireFromString("4.5")), "amountUSD %s", pos.AmountUSD)
	assert.True(t, pos.Debt.IsZero())
	assert.True(t, pos.DebtUSD.IsZero())
}

func TestReservesDebtUsesSameUnitPrice(t *testing.T) {
	n := New(stubResolver{price: decimal.RequireFromString("2")})

	raw := []subgraph.RawReserve{{
		Reserve:              subgraph.RawReserveMeta{Symbol: "USDC", Decimals: 6},
		CurrentATokenBalance: "3000000",
		CurrentTotalDebt:     "1000000",
	}}

	positions, err := n.Reserves(context.Background(), mustProfile(t, chains.Arbitrum), raw)
	require.NoError(t, err)
	require.Len(t, positions, 1)

	assert.True(t, positions[0].AmountUSD.Equal(decimal.NewFromInt(6)))
	assert.True(t, positions[0].DebtUSD.Equal(decimal.NewFromInt(2)))
}

func TestEventsDateLabelIsUTC(t *testing.T) {
	n := New(stubResolver{price: decimal.NewFromInt(1)})

	raw := []subgraph.RawEvent{{
		Timestamp: json.Number("1700000000"),
		Amount:    "1000000000000000000",
		Reserve:   subgraph.RawReserveMeta{Symbol: "WETH", Decimals: 18},
	}}

	events, err := n.Events(context.Background(), mustProfile(t, chains.Arbitrum), raw)
	require.NoError(t, err)
	require.Len(t, events, 1)

	assert.Equal(t, "2023/11/14", events[0].DateLabel)
	assert.Equal(t, time.UTC, events[0].Timestamp.Location())
	assert.Equal(t, int64(1700000000), events[0].Timestamp.Unix())
}

func TestEventsPreserveInputOrder(t *testing.T) {
	n := New(stubResolver{price: decimal.NewFromInt(1)})

	raw := []subgraph.RawEvent{
		{Timestamp: json.Number("300"), Amount: "3", Reserve: subgraph.RawReserveMeta{Symbol: "C", Decimals: 0}},
		{Timestamp: json.Number("100"), Amount: "1", Reserve: subgraph.RawReserveMeta{Symbol: "A", Decimals: 0}},
		{Timestamp: json.Number("200"), Amount: "2", Reserve: subgraph.RawReserveMeta{Symbol: "B", Decimals: 0}},
	}

	events, err := n.Events(context.Background(), mustProfile(t, chains.Arbitrum), raw)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, []string{"C", "A", "B"}, []string{events[0].Symbol, events[1].Symbol, events[2].Symbol})
}

func TestNormalizationIsIdempotent(t *testing.T) {
	n := New(stubResolver{price: decimal.RequireFromString("1.234567")})
	profile := mustProfile(t, chains.Fantom)

	raw := []subgraph.RawEvent{
		{Timestamp: json.Number("1700000000"), Amount: "5000000000000000000", Reserve: subgraph.RawReserveMeta{Symbol: "DAI", Decimals: 18}},
		{Timestamp: json.Number("1699999999"), Amount: "777", Reserve: subgraph.RawReserveMeta{Symbol: "USDC", Decimals: 6}},
	}

	first, err := n.Events(context.Background(), profile, raw)
	require.NoError(t, err)
	second, err := n.Events(context.Background(), profile, raw)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestMalformedAmountFailsWholeCall(t *testing.T) {
	n := New(stubResolver{price: decimal.NewFromInt(1)})
	profile := mustProfile(t, chains.Arbitrum)

	raw := []subgraph.RawReserve{
		{Reserve: subgraph.RawReserveMeta{Symbol: "OK", Decimals: 18}, CurrentATokenBalance: "1", CurrentTotalDebt: "0"},
		{Reserve: subgraph.RawReserveMeta{Symbol: "BAD", Decimals: 18}, CurrentATokenBalance: "garbage", CurrentTotalDebt: "0"},
	}

	positions, err := n.Reserves(context.Background(), profile, raw)
	assert.Nil(t, positions)

	var malformed *MalformedRecordError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "BAD", malformed.Symbol)
	assert.Equal(t, "currentATokenBalance", malformed.Field)
}

func TestMalformedTimestampFailsWholeCall(t *testing.T) {
	n := New(stubResolver{price: decimal.NewFromInt(1)})

	raw := []subgraph.RawEvent{{
		Timestamp: json.Number("not-a-timestamp"),
		Amount:    "1",
		Reserve:   subgraph.RawReserveMeta{Symbol: "DAI", Decimals: 18},
	}}

	_, err := n.Events(context.Background(), mustProfile(t, chains.Arbitrum), raw)
	var malformed *MalformedRecordError
	assert.ErrorAs(t, err, &malformed)
}

func TestResolverErrorClassification(t *testing.T) {
	profile := mustProfile(t, chains.Optimism)
	raw := []subgraph.RawReserve{{
		Reserve:              subgraph.RawReserveMeta{Symbol: "OP", Decimals: 18},
		CurrentATokenBalance: "1",
		CurrentTotalDebt:     "0",
	}}

	// A missing index entry propagates as-is, never as MalformedRecord.
	n := New(stubResolver{err: pricing.ErrPriceNotFound})
	_, err := n.Reserves(context.Background(), profile, raw)
	assert.ErrorIs(t, err, pricing.ErrPriceNotFound)

	// Transport failures propagate as-is too.
	transportErr := &subgraph.TransportError{URL: "http://x", StatusCode: 502}
	n = New(stubResolver{err: transportErr})
	_, err = n.Reserves(context.Background(), profile, raw)
	var transport *subgraph.TransportError
	assert.ErrorAs(t, err, &transport)

	// Anything else means the record's price payload was malformed.
	n = New(stubResolver{err: assert.AnError})
	_, err = n.Reserves(context.Background(), profile, raw)
	var malformed *MalformedRecordError
	assert.ErrorAs(t, err, &malformed)
}
