package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lendlens/lendlens/internal/chains"
	"github.com/lendlens/lendlens/internal/health"
	"github.com/lendlens/lendlens/internal/normalize"
	"github.com/lendlens/lendlens/internal/pricing"
	"github.com/lendlens/lendlens/internal/snapshot"
	"github.com/lendlens/lendlens/internal/subgraph"
)

type stubSource struct {
	snap *snapshot.Snapshot
	err  error
}

func (s *stubSource) Fetch(ctx context.Context, chainID chains.ID, address string) (*snapshot.Snapshot, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.snap, nil
}

func newTestRouter(t *testing.T, source snapshot.Source) http.Handler {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"_meta": {"block": {"number": 1}}}}`))
	}))
	t.Cleanup(upstream.Close)

	cache := snapshot.NewCache(source, time.Hour, nil)
	checker := health.NewChecker(nil, subgraph.NewClient(5*time.Second), upstream.URL, 0)
	return NewServer(cache, checker).Router()
}

const testAddress = "0x1234567890123456789012345678901234567890"

func TestSnapshotEndpoint(t *testing.T) {
	source := &stubSource{snap: &snapshot.Snapshot{
		Chain:   chains.Ethereum,
		Address: testAddress,
		Reserves: []normalize.Position{{
			Symbol:    "DAI",
			Amount:    decimal.NewFromInt(5),
			AmountUSD: decimal.RequireFromString("4.5"),
		}},
	}}
	router := newTestRouter(t, source)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/snapshot/ethereum/"+testAddress, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Chain    string `json:"chain"`
		Address  string `json:"address"`
		Reserves []struct {
			Symbol string `json:"symbol"`
		} `json:"reserves"`
		Totals struct {
			SuppliedUSD string `json:"supplied_usd"`
		} `json:"totals"`
		ExplorerURL string `json:"explorer_url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ethereum", body.Chain)
	assert.Equal(t, testAddress, body.Address)
	require.Len(t, body.Reserves, 1)
	assert.Equal(t, "DAI", body.Reserves[0].Symbol)
	assert.Equal(t, "4.5", body.Totals.SuppliedUSD)
	assert.Contains(t, body.ExplorerURL, testAddress)
}

func TestSnapshotErrorStatuses(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		sourceErr  error
		wantStatus int
	}{
		{
			name:       "unknown chain",
			path:       "/snapshot/base/" + testAddress,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed address",
			path:       "/snapshot/ethereum/zzz",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "user not found",
			path:       "/snapshot/ethereum/" + testAddress,
			sourceErr:  snapshot.ErrUserNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "subgraph transport failure",
			path:       "/snapshot/ethereum/" + testAddress,
			sourceErr:  &subgraph.TransportError{URL: "http://x", StatusCode: 503},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "missing index price",
			path:       "/snapshot/optimism/" + testAddress,
			sourceErr:  pricing.ErrPriceNotFound,
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "malformed upstream record",
			path:       "/snapshot/ethereum/" + testAddress,
			sourceErr:  &normalize.MalformedRecordError{Field: "amount", Symbol: "DAI"},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "anything else is internal",
			path:       "/snapshot/ethereum/" + testAddress,
			sourceErr:  assert.AnError,
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, &stubSource{err: tt.sourceErr})

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestChainsEndpoint(t *testing.T) {
	router := newTestRouter(t, &stubSource{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chains", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body []chainInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 9)
	assert.Equal(t, chains.Ethereum, body[0].ID)
	assert.NotEmpty(t, body[0].AddressExplorerURL)
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, &stubSource{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "status")
}
