// internal/auth/store/postgres/store.go

// Package postgres provides a PostgreSQL-backed credential store. Keys are
// stored as SHA-256 hex digests so the raw key never touches the database.
package postgres

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"authgate/internal/auth/store"
)

// Store is a PostgreSQL-backed credential store
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements store.Store at compile time
var _ store.Store = (*Store)(nil)

// Config holds connection settings for the store
type Config struct {
	// DSN is the PostgreSQL connection string
	DSN string

	// MaxConns caps the connection pool size; zero keeps the pgx default
	MaxConns int32
}

// New creates a PostgreSQL credential store and verifies connectivity
func New(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Store{pool: pool}, nil
}

// LookupKey resolves a presented key by its SHA-256 digest
func (s *Store) LookupKey(ctx context.Context, key string) (*store.Credential, error) {
	digest := HashKey(key)

	var cred store.Credential
	err := s.pool.QueryRow(ctx, `
		SELECT subject, roles
		FROM api_keys
		WHERE key_hash = $1 AND revoked_at IS NULL
	`, digest).Scan(&cred.Subject, &cred.Roles)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying api key: %w", err)
	}

	return &cred, nil
}

// Close releases the connection pool
func (s *Store) Close() {
	s.pool.Close()
}

// HashKey returns the hex-encoded SHA-256 digest under which a key is stored
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
