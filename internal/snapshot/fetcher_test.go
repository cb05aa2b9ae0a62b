package snapshot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lendlens/lendlens/internal/chains"
	"github.com/lendlens/lendlens/internal/normalize"
	"github.com/lendlens/lendlens/internal/pricing"
	"github.com/lendlens/lendlens/internal/subgraph"
)

const userPayload = `{
	"data": {
		"users": [{
			"reserves": [{
				"reserve": {
					"symbol": "USDC",
					"decimals": 6,
					"price": {"priceInEth": "100000000"}
				},
				"currentATokenBalance": "2500000",
				"currentTotalDebt": "1000000"
			}],
			"supplyHistory": [{
				"timestamp": 1700000000,
				"amount": "2500000",
				"reserve": {
					"symbol": "USDC",
					"decimals": 6,
					"price": {"priceInEth": "100000000"}
				}
			}],
			"borrowHistory": [],
			"repayHistory": [],
			"redeemUnderlyingHistory": []
		}]
	}
}`

func newTestFetcher(t *testing.T, handler http.HandlerFunc) *Fetcher {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := subgraph.NewClient(5 * time.Second)
	resolver := pricing.NewResolver(client, pricing.Config{})
	normalizer := normalize.New(resolver)
	overrides := map[chains.ID]string{chains.Arbitrum: srv.URL}
	return NewFetcher(client, normalizer, overrides)
}

func TestFetchBuildsSnapshot(t *testing.T) {
	fetcher := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(userPayload))
	})

	snap, err := fetcher.Fetch(context.Background(), chains.Arbitrum, "0xAbCd000000000000000000000000000000000001")
	require.NoError(t, err)

	assert.Equal(t, chains.Arbitrum, snap.Chain)
	assert.Equal(t, "0xabcd000000000000000000000000000000000001", snap.Address,
		"addresses are lowercased before querying")
	assert.False(t, snap.FetchedAt.IsZero())

	require.Len(t, snap.Reserves, 1)
	pos := snap.Reserves[0]
	assert.Equal(t, "USDC", pos.Symbol)
	assert.True(t, pos.Amount.Equal(decimal.RequireFromString("2.5")), "amount %s", pos.Amount)
	assert.True(t, pos.AmountUSD.Equal(decimal.RequireFromString("2.5")), "amountUSD %s", pos.AmountUSD)
	assert.True(t, pos.DebtUSD.Equal(decimal.NewFromInt(1)), "debtUSD %s", pos.DebtUSD)

	require.Len(t, snap.Deposits, 1)
	assert.Equal(t, "2023/11/14", snap.Deposits[0].DateLabel)
	assert.Empty(t, snap.Borrows)
	assert.Empty(t, snap.Repays)
	assert.Empty(t, snap.Withdraws)
}

func TestFetchUnknownUserIsNotFound(t *testing.T) {
	fetcher := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"users": []}}`))
	})

	_, err := fetcher.Fetch(context.Background(), chains.Arbitrum, "0xdead000000000000000000000000000000000001")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestFetchUnknownChainSkipsNetwork(t *testing.T) {
	var hits atomic.Int64
	fetcher := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(userPayload))
	})

	_, err := fetcher.Fetch(context.Background(), chains.ID("base"), "0xdead000000000000000000000000000000000001")
	assert.ErrorIs(t, err, chains.ErrUnknownChain)
	assert.Zero(t, hits.Load())
}

func TestFetchBlankAddressIsInvalid(t *testing.T) {
	fetcher := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(userPayload))
	})

	_, err := fetcher.Fetch(context.Background(), chains.Arbitrum, "   ")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestFetchUpstreamFailureIsTransportError(t *testing.T) {
	fetcher := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "subgraph indexing", http.StatusBadGateway)
	})

	_, err := fetcher.Fetch(context.Background(), chains.Arbitrum, "0xdead000000000000000000000000000000000001")
	var transport *subgraph.TransportError
	require.ErrorAs(t, err, &transport)
	assert.Equal(t, http.StatusBadGateway, transport.StatusCode)
}

func TestTotals(t *testing.T) {
	snap := &Snapshot{
		Reserves: []normalize.Position{
			{Symbol: "DAI", AmountUSD: decimal.RequireFromString("4.5"), DebtUSD: decimal.NewFromInt(1)},
			{Symbol: "USDC", AmountUSD: decimal.RequireFromString("2.5"), DebtUSD: decimal.RequireFromString("0.25")},
		},
	}

	totals := snap.Totals()
	assert.True(t, totals.SuppliedUSD.Equal(decimal.NewFromInt(7)), "supplied %s", totals.SuppliedUSD)
	assert.True(t, totals.DebtUSD.Equal(decimal.RequireFromString("1.25")), "debt %s", totals.DebtUSD)
}
