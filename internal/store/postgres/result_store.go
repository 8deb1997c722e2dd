// Package postgres provides the Postgres-backed result store.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bracekit/linkextract/internal/extract"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ResultStoreConfig controls the Postgres connection pool used for
// extraction records.
type ResultStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// ResultStore maps cache keys to serialized extraction results. Optional
// fields are omitted from the stored JSON rather than kept as nulls.
//
// Assumed schema:
//
//	CREATE TABLE extracts (
//	    url_key      TEXT PRIMARY KEY,
//	    result       JSONB NOT NULL,
//	    extracted_at TIMESTAMPTZ NOT NULL
//	);
type ResultStore struct {
	pool  pgxPool
	table string
}

// NewResultStore creates a Postgres-backed ResultStore using the provided config.
func NewResultStore(ctx context.Context, cfg ResultStoreConfig) (*ResultStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "extracts"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &ResultStore{pool: pool, table: table}, nil
}

// NewResultStoreWithPool constructs a store from an existing pool (primarily
// for testing).
func NewResultStoreWithPool(pool pgxPool, table string) (*ResultStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "extracts"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &ResultStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *ResultStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Get performs a point lookup by cache key; absence is reported via the
// bool, not an error.
func (s *ResultStore) Get(ctx context.Context, key string) (extract.ExtractedResult, bool, error) {
	if s == nil || s.pool == nil {
		return extract.ExtractedResult{}, false, fmt.Errorf("result store is not configured")
	}
	query := fmt.Sprintf(`SELECT result FROM %s WHERE url_key = $1`, s.table)

	var raw []byte
	err := s.pool.QueryRow(ctx, query, key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return extract.ExtractedResult{}, false, nil
	}
	if err != nil {
		return extract.ExtractedResult{}, false, fmt.Errorf("select extract: %w", err)
	}

	var result extract.ExtractedResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return extract.ExtractedResult{}, false, fmt.Errorf("unmarshal extract %q: %w", key, err)
	}
	return result, true, nil
}

// Put upserts the result under key. Concurrent writers for the same key are
// safe; the last writer wins.
func (s *ResultStore) Put(ctx context.Context, key string, result extract.ExtractedResult) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("result store is not configured")
	}
	if key == "" {
		return fmt.Errorf("cache key is required")
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal extract: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (url_key, result, extracted_at)
VALUES ($1, $2, $3)
ON CONFLICT (url_key) DO UPDATE
SET result = EXCLUDED.result, extracted_at = EXCLUDED.extracted_at`, s.table)

	extractedAt := time.UnixMilli(result.ExtractedDT).UTC()
	if _, err := s.pool.Exec(ctx, query, key, raw, extractedAt); err != nil {
		return fmt.Errorf("upsert extract: %w", err)
	}
	return nil
}
