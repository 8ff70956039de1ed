package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteCache keeps entries in a single config table, one row per key.
type SQLiteCache struct {
	db *sql.DB
}

var _ ListCache = (*SQLiteCache)(nil)

func NewSQLiteCache(ctx context.Context, dsn string) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to execute pragma %s: %w", pragma, err)
		}
	}

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS config (
			name TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create config table: %w", err)
	}

	return &SQLiteCache{db: db}, nil
}

func (sc *SQLiteCache) Close() error {
	return sc.db.Close()
}

func (sc *SQLiteCache) Ready(ctx context.Context) error {
	return sc.db.PingContext(ctx)
}

func (sc *SQLiteCache) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	var data string
	err := sc.db.QueryRowContext(ctx, `SELECT data FROM config WHERE name = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return io.NopCloser(strings.NewReader(data)), nil
}

func (sc *SQLiteCache) Exists(ctx context.Context, key string) (bool, error) {
	var one int
	err := sc.db.QueryRowContext(ctx, `SELECT 1 FROM config WHERE name = ?`, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (sc *SQLiteCache) Put(ctx context.Context, key, value string, opts PutOptions) error {
	query := `INSERT INTO config (name, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`
	if opts.Condition == PutIfNoneMatch {
		query = `INSERT INTO config (name, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO NOTHING`
	}

	res, err := sc.db.ExecContext(ctx, query, key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if opts.Condition == PutIfNoneMatch {
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrAlreadyExists
		}
	}
	return nil
}

func (sc *SQLiteCache) List(ctx context.Context, prefix string, _ string) ([]string, error) {
	rows, err := sc.db.QueryContext(ctx,
		`SELECT name FROM config WHERE substr(name, 1, ?) = ? ORDER BY name`, len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list config: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		keys = append(keys, strings.TrimPrefix(name, prefix))
	}
	return keys, rows.Err()
}
