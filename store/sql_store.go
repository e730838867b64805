package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Dialect holds the statements that differ between SQL engines.
type Dialect struct {
	Name   string
	Create string
	Get    string
	Upsert string
	Delete string
}

var (
	PostgresDialect = Dialect{
		Name: "postgres",
		Create: `CREATE TABLE IF NOT EXISTS funnel_kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		Get: `SELECT value FROM funnel_kv WHERE key = $1`,
		Upsert: `INSERT INTO funnel_kv (key, value, updated_at) VALUES ($1, $2, NOW())
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		Delete: `DELETE FROM funnel_kv WHERE key = $1`,
	}

	SQLiteDialect = Dialect{
		Name: "sqlite",
		Create: `CREATE TABLE IF NOT EXISTS funnel_kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		Get: `SELECT value FROM funnel_kv WHERE key = ?`,
		Upsert: `INSERT INTO funnel_kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		Delete: `DELETE FROM funnel_kv WHERE key = ?`,
	}
)

// SQLKV keeps values in a single key/value table.
type SQLKV struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLKV creates the funnel_kv table if needed.
func NewSQLKV(ctx context.Context, db *sql.DB, dialect Dialect) (*SQLKV, error) {
	if _, err := db.ExecContext(ctx, dialect.Create); err != nil {
		return nil, fmt.Errorf("failed to create funnel_kv table (%s): %w", dialect.Name, err)
	}
	return &SQLKV{db: db, dialect: dialect}, nil
}

func (s *SQLKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.dialect.Get, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(value), true, nil
}

func (s *SQLKV) SetMany(ctx context.Context, values map[string][]byte) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for k, v := range values {
		if _, err = tx.ExecContext(ctx, s.dialect.Upsert, k, string(v)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLKV) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		if _, err := s.db.ExecContext(ctx, s.dialect.Delete, k); err != nil {
			return err
		}
	}
	return nil
}
