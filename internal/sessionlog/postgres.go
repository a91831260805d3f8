package sessionlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shopmate/internal/reliability"
)

// PostgresTurnStore persists conversation turns in PostgreSQL.
type PostgresTurnStore struct {
	pool *pgxpool.Pool
}

func NewPostgresTurnStore(ctx context.Context, databaseURL string) (*PostgresTurnStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initTurnSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresTurnStore{pool: pool}, nil
}

func initTurnSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS conversation_turns (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			attached_item_ids TEXT NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_conversation_turns_session_created ON conversation_turns (session_id, created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init turn schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresTurnStore) SaveTurn(ctx context.Context, turn ConversationTurn) error {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	attached := turn.AttachedItemIDs
	if attached == nil {
		attached = []string{}
	}
	payload, err := json.Marshal(attached)
	if err != nil {
		return &reliability.PersistenceError{Op: "encode attached items", Err: err}
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO conversation_turns (id, session_id, role, content, attached_item_ids, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		turn.ID,
		turn.SessionID,
		string(turn.Role),
		turn.Content,
		string(payload),
		turn.CreatedAt,
	)
	if err != nil {
		return &reliability.PersistenceError{Op: "save turn", Err: err}
	}
	return nil
}

func (s *PostgresTurnStore) TurnsBySession(ctx context.Context, sessionID string) ([]ConversationTurn, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, role, content, attached_item_ids, created_at
		 FROM conversation_turns WHERE session_id=$1 ORDER BY created_at ASC`,
		sessionID,
	)
	if err != nil {
		return nil, &reliability.PersistenceError{Op: "query turns", Err: err}
	}
	defer rows.Close()

	var out []ConversationTurn
	for rows.Next() {
		turn, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, &reliability.PersistenceError{Op: "iterate turn rows", Err: err}
	}
	return out, nil
}

func scanTurn(row pgx.Row) (ConversationTurn, error) {
	var (
		turn    ConversationTurn
		role    string
		payload string
	)
	if err := row.Scan(&turn.ID, &turn.SessionID, &role, &turn.Content, &payload, &turn.CreatedAt); err != nil {
		return ConversationTurn{}, &reliability.PersistenceError{Op: "scan turn row", Err: err}
	}
	turn.Role = Role(role)
	if payload != "" && payload != "[]" {
		if err := json.Unmarshal([]byte(payload), &turn.AttachedItemIDs); err != nil {
			return ConversationTurn{}, &reliability.PersistenceError{Op: "decode attached items", Err: err}
		}
	}
	return turn, nil
}

func (s *PostgresTurnStore) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM conversation_turns WHERE session_id=$1`, sessionID); err != nil {
		return &reliability.PersistenceError{Op: "delete session turns", Err: err}
	}
	return nil
}

func (s *PostgresTurnStore) Close() error {
	s.pool.Close()
	return nil
}

// PostgresKVStore persists session identifiers in PostgreSQL.
type PostgresKVStore struct {
	pool *pgxpool.Pool
}

func NewPostgresKVStore(ctx context.Context, databaseURL string) (*PostgresKVStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	stmt := `CREATE TABLE IF NOT EXISTS session_kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`
	if _, err := pool.Exec(ctx, stmt); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init kv schema failed on %q: %w", stmt, err)
	}
	return &PostgresKVStore{pool: pool}, nil
}

func (s *PostgresKVStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM session_kv WHERE key=$1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &reliability.PersistenceError{Op: "kv get", Err: err}
	}
	return value, true, nil
}

func (s *PostgresKVStore) Set(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO session_kv (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value`,
		key, value,
	)
	if err != nil {
		return &reliability.PersistenceError{Op: "kv set", Err: err}
	}
	return nil
}

func (s *PostgresKVStore) Close() error {
	s.pool.Close()
	return nil
}
