package db

import (
	"context"
	"database/sql"
	"time"
)

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations with expiry.
type KVStore interface {
	Pinger
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Querier runs read-only SQL. Satisfied by *sql.DB and the sqlite store.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// SQLStore is a relational store handle.
type SQLStore interface {
	Pinger
	Querier
	Close() error
	WaitForReady(ctx context.Context, timeout time.Duration) error
}
