// Package snapshot fetches and caches a user's full per-chain position
// snapshot: current reserves plus the four event histories.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lendlens/lendlens/internal/chains"
	"github.com/lendlens/lendlens/internal/normalize"
	"github.com/lendlens/lendlens/internal/subgraph"
)

// ErrUserNotFound means the subgraph has no record of the address on that
// chain. A normal outcome, distinct from transport failures: the address may
// simply never have touched the deployment.
var ErrUserNotFound = errors.New("user not found")

// ErrInvalidAddress is returned for an empty or blank user address.
var ErrInvalidAddress = errors.New("invalid user address")

// Snapshot is the complete normalized picture for one user on one chain at
// one point in time. Owned by the caller; rebuilt from scratch on refresh.
type Snapshot struct {
	Chain     chains.ID            `json:"chain"`
	Address   string               `json:"address"`
	FetchedAt time.Time            `json:"fetched_at"`
	Reserves  []normalize.Position `json:"reserves"`
	Deposits  []normalize.Event    `json:"deposits"`
	Borrows   []normalize.Event    `json:"borrows"`
	Repays    []normalize.Event    `json:"repays"`
	Withdraws []normalize.Event    `json:"withdraws"`
}

// Totals sums the snapshot's current supply and debt valuations.
type Totals struct {
	SuppliedUSD decimal.Decimal `json:"supplied_usd"`
	DebtUSD     decimal.Decimal `json:"debt_usd"`
}

// Totals returns the aggregate USD supply and debt across all reserves.
func (s *Snapshot) Totals() Totals {
	var t Totals
	for _, r := range s.Reserves {
		t.SuppliedUSD = t.SuppliedUSD.Add(r.AmountUSD)
		t.DebtUSD = t.DebtUSD.Add(r.DebtUSD)
	}
	return t
}

// Fetcher retrieves a user's snapshot from a chain's subgraph in a single
// request-response round trip. No pagination, no retries.
type Fetcher struct {
	client     *subgraph.Client
	normalizer *normalize.Normalizer
	overrides  map[chains.ID]string
	now        func() time.Time
}

// NewFetcher creates a Fetcher. overrides replaces subgraph endpoints per
// chain (used by configuration and tests); nil means registry defaults.
func NewFetcher(client *subgraph.Client, normalizer *normalize.Normalizer, overrides map[chains.ID]string) *Fetcher {
	return &Fetcher{
		client:     client,
		normalizer: normalizer,
		overrides:  overrides,
		now:        time.Now,
	}
}

// Fetch resolves the chain profile, queries the user's reserves and event
// histories, and normalizes them into a Snapshot.
func (f *Fetcher) Fetch(ctx context.Context, chainID chains.ID, address string) (*Snapshot, error) {
	profile, err := chains.Resolve(chainID)
	if err != nil {
		return nil, err
	}

	address = strings.ToLower(strings.TrimSpace(address))
	if address == "" {
		return nil, ErrInvalidAddress
	}

	url := profile.SubgraphURL
	if override, ok := f.overrides[chainID]; ok {
		url = override
	}

	var data subgraph.UserData
	query := subgraph.UserSnapshotQuery(address, profile.DepositEventField)
	if err := f.client.Query(ctx, url, query, &data); err != nil {
		return nil, err
	}
	if len(data.Users) == 0 {
		return nil, fmt.Errorf("%w: %s on %s", ErrUserNotFound, address, chainID)
	}
	user := data.Users[0]

	reserves, err := f.normalizer.Reserves(ctx, profile, user.Reserves)
	if err != nil {
		return nil, err
	}
	deposits, err := f.normalizer.Events(ctx, profile, user.Deposits(profile.DepositEventField))
	if err != nil {
		return nil, err
	}
	borrows, err := f.normalizer.Events(ctx, profile, user.BorrowHistory)
	if err != nil {
		return nil, err
	}
	repays, err := f.normalizer.Events(ctx, profile, user.RepayHistory)
	if err != nil {
		return nil, err
	}
	withdraws, err := f.normalizer.Events(ctx, profile, user.RedeemUnderlyingHistory)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Chain:     chainID,
		Address:   address,
		FetchedAt: f.now().UTC(),
		Reserves:  reserves,
		Deposits:  deposits,
		Borrows:   borrows,
		Repays:    repays,
		Withdraws: withdraws,
	}, nil
}
