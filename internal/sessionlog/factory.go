package sessionlog

import (
	"context"
	"strings"
)

// NewTurnStore creates a postgres-backed turn store when configured,
// otherwise in-memory.
func NewTurnStore(ctx context.Context, databaseURL string) (TurnStore, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewInMemoryTurnStore(), nil
	}
	return NewPostgresTurnStore(ctx, databaseURL)
}

// NewKVStore creates a postgres-backed identifier store when configured,
// otherwise in-memory.
func NewKVStore(ctx context.Context, databaseURL string) (KVStore, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewInMemoryKVStore(), nil
	}
	return NewPostgresKVStore(ctx, databaseURL)
}
