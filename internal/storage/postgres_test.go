package storage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/lendlens/lendlens/internal/chains"
	"github.com/lendlens/lendlens/internal/snapshot"
)

func TestSaveSnapshotEmptyIsNoOp(t *testing.T) {
	// No rows queued means no batch is sent, so a store without a live
	// pool must still succeed.
	store := &Store{}

	err := store.SaveSnapshot(context.Background(), &snapshot.Snapshot{
		Chain:   chains.Ethereum,
		Address: "0x1234567890123456789012345678901234567890",
	})
	assert.NoError(t, err)
}

func TestPositionRecordRoundTripFields(t *testing.T) {
	now := time.Now().UTC()
	rec := PositionRecord{
		Chain:     chains.PolygonV2,
		Address:   "0x1234567890123456789012345678901234567890",
		FetchedAt: now,
		Symbol:    "WMATIC",
		Amount:    decimal.RequireFromString("12.5"),
		AmountUSD: decimal.RequireFromString("8.75"),
		Debt:      decimal.Zero,
		DebtUSD:   decimal.Zero,
	}

	assert.Equal(t, chains.PolygonV2, rec.Chain)
	assert.True(t, rec.Amount.GreaterThan(decimal.Zero))
	assert.True(t, rec.Debt.IsZero())
}
