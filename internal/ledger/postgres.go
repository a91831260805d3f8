package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"shopmate/internal/reliability"
)

// PostgresStore persists interaction events in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initLedgerSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func initLedgerSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS interaction_events (
			id TEXT PRIMARY KEY,
			item_id TEXT NOT NULL,
			display_name TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			brand TEXT NOT NULL DEFAULT '',
			price DOUBLE PRECISION NOT NULL DEFAULT 0,
			kind TEXT NOT NULL,
			occurred_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_interaction_events_occurred ON interaction_events (occurred_at);`,
		`CREATE INDEX IF NOT EXISTS idx_interaction_events_item ON interaction_events (item_id, occurred_at DESC);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init ledger schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Record(ctx context.Context, ev InteractionEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO interaction_events (id, item_id, display_name, category, brand, price, kind, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ev.ID,
		ev.ItemID,
		ev.DisplayName,
		ev.Category,
		ev.Brand,
		ev.Price,
		string(ev.Kind),
		ev.OccurredAt,
	)
	if err != nil {
		return &reliability.PersistenceError{Op: "record interaction", Err: err}
	}
	return nil
}

func (s *PostgresStore) AggregateByCategory(ctx context.Context, limit int) ([]Aggregate, error) {
	return s.aggregateByColumn(ctx, "category", limit)
}

func (s *PostgresStore) AggregateByBrand(ctx context.Context, limit int) ([]Aggregate, error) {
	return s.aggregateByColumn(ctx, "brand", limit)
}

func (s *PostgresStore) aggregateByColumn(ctx context.Context, column string, limit int) ([]Aggregate, error) {
	if limit <= 0 {
		limit = 3
	}

	// Ties on count resolve toward the most recently seen value.
	q := fmt.Sprintf(
		`SELECT %s, COUNT(*) AS n
		 FROM interaction_events WHERE %s <> ''
		 GROUP BY %s ORDER BY n DESC, MAX(occurred_at) DESC LIMIT $1`,
		column, column, column,
	)
	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, &reliability.PersistenceError{Op: "aggregate " + column, Err: err}
	}
	defer rows.Close()

	out := make([]Aggregate, 0, limit)
	for rows.Next() {
		var a Aggregate
		if err := rows.Scan(&a.Value, &a.Count); err != nil {
			return nil, &reliability.PersistenceError{Op: "scan aggregate row", Err: err}
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, &reliability.PersistenceError{Op: "iterate aggregate rows", Err: err}
	}
	return out, nil
}

func (s *PostgresStore) RecentItemIDs(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.pool.Query(ctx,
		`SELECT item_id FROM (
			SELECT item_id, MAX(occurred_at) AS last_seen
			FROM interaction_events GROUP BY item_id
		 ) t ORDER BY last_seen DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, &reliability.PersistenceError{Op: "query recent items", Err: err}
	}
	defer rows.Close()

	out := make([]string, 0, limit)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, &reliability.PersistenceError{Op: "scan recent item row", Err: err}
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, &reliability.PersistenceError{Op: "iterate recent item rows", Err: err}
	}
	return out, nil
}

func (s *PostgresStore) AllDistinctItemIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT item_id FROM interaction_events`)
	if err != nil {
		return nil, &reliability.PersistenceError{Op: "query distinct items", Err: err}
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, &reliability.PersistenceError{Op: "scan distinct item row", Err: err}
		}
		out[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, &reliability.PersistenceError{Op: "iterate distinct item rows", Err: err}
	}
	return out, nil
}

func (s *PostgresStore) TotalCount(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM interaction_events`).Scan(&n)
	if err != nil {
		return 0, &reliability.PersistenceError{Op: "count interactions", Err: err}
	}
	return n, nil
}

func (s *PostgresStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM interaction_events WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, &reliability.PersistenceError{Op: "prune interactions", Err: err}
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
