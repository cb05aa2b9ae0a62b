package storage

import (
	"context"
	"fmt"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lendlens/lendlens/internal/normalize"
	"github.com/lendlens/lendlens/internal/snapshot"
)

// Store manages PostgreSQL operations
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new PostgreSQL store with connection pooling
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Tune connection pool
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 1 * time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	// Register the shopspring decimal codec so NUMERIC columns round-trip
	// as decimal.Decimal
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close closes the connection pool
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies the connection is alive
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// SaveSnapshot persists a normalized snapshot: positions are appended as a
// new time-series row per reserve, events are inserted idempotently so a
// re-fetched history does not duplicate rows.
func (s *Store) SaveSnapshot(ctx context.Context, snap *snapshot.Snapshot) error {
	batch := &pgx.Batch{}
	queued := 0

	for _, pos := range snap.Reserves {
		batch.Queue(`
			INSERT INTO positions
			(chain, address, fetched_at, symbol, amount, amount_usd, debt, debt_usd)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			string(snap.Chain),
			snap.Address,
			snap.FetchedAt,
			pos.Symbol,
			pos.Amount,
			pos.AmountUSD,
			pos.Debt,
			pos.DebtUSD,
		)
		queued++
	}

	for _, group := range []struct {
		kind   string
		events []normalize.Event
	}{
		{"deposit", snap.Deposits},
		{"borrow", snap.Borrows},
		{"repay", snap.Repays},
		{"withdraw", snap.Withdraws},
	} {
		for _, ev := range group.events {
			batch.Queue(`
				INSERT INTO events
				(chain, address, kind, occurred_at, date_label, symbol, amount, amount_usd)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				ON CONFLICT ON CONSTRAINT events_identity DO NOTHING`,
				string(snap.Chain),
				snap.Address,
				group.kind,
				ev.Timestamp,
				ev.DateLabel,
				ev.Symbol,
				ev.Amount,
				ev.AmountUSD,
			)
			queued++
		}
	}

	if queued == 0 {
		return nil
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < queued; i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch insert failed: %w", err)
		}
	}

	return nil
}

// LatestPositions returns the most recently persisted positions for a
// (chain, address) pair.
func (s *Store) LatestPositions(ctx context.Context, chain, address string) ([]PositionRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, chain, address, fetched_at, symbol, amount, amount_usd, debt, debt_usd
		FROM positions
		WHERE chain = $1 AND address = $2
		  AND fetched_at = (
			SELECT MAX(fetched_at) FROM positions WHERE chain = $1 AND address = $2
		  )
		ORDER BY amount_usd DESC`,
		chain, address,
	)
	if err != nil {
		return nil, fmt.Errorf("query latest positions: %w", err)
	}
	defer rows.Close()

	var records []PositionRecord
	for rows.Next() {
		var rec PositionRecord
		if err := rows.Scan(
			&rec.ID, &rec.Chain, &rec.Address, &rec.FetchedAt,
			&rec.Symbol, &rec.Amount, &rec.AmountUSD, &rec.Debt, &rec.DebtUSD,
		); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
