package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SQLKV stores keys in a single Postgres table, namespaced per client profile.
type SQLKV struct {
	db        *sql.DB
	namespace string
}

const createSessionTable = `
CREATE TABLE IF NOT EXISTS client_session_kv (
	namespace  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (namespace, key)
)`

func NewSQLKV(db *sql.DB, namespace string) *SQLKV {
	return &SQLKV{db: db, namespace: namespace}
}

func (s *SQLKV) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, createSessionTable)
	return err
}

func (s *SQLKV) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var value string
	query := `SELECT value FROM client_session_kv WHERE namespace = $1 AND key = $2`
	err := s.db.QueryRowContext(ctx, query, s.namespace, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *SQLKV) Set(ctx context.Context, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	query := `
		INSERT INTO client_session_kv (namespace, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	_, err := s.db.ExecContext(ctx, query, s.namespace, key, value)
	return err
}

func (s *SQLKV) Delete(ctx context.Context, keys ...string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	query := `DELETE FROM client_session_kv WHERE namespace = $1 AND key = $2`
	for _, k := range keys {
		if _, err := s.db.ExecContext(ctx, query, s.namespace, k); err != nil {
			return err
		}
	}
	return nil
}
