package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SqliteData backs data_store = Sqlite{filename} (spec.md §6) — the
// embedded single-node alternative to PostgresData, using the same
// one-table-per-collection layout.
type SqliteData struct {
	db *sql.DB
}

func NewSqliteData(filename string) (*SqliteData, error) {
	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite %s: %w", filename, err)
	}
	return &SqliteData{db: db}, nil
}

func (s *SqliteData) ensureTable(ctx context.Context, coll string) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS data_%s (key TEXT PRIMARY KEY, value TEXT NOT NULL)`, sanitizeIdent(coll)))
	return err
}

func (s *SqliteData) Get(ctx context.Context, coll, key string) (string, bool, error) {
	if err := s.ensureTable(ctx, coll); err != nil {
		return "", false, err
	}
	var value string
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT value FROM data_%s WHERE key=?`, sanitizeIdent(coll)), key)
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("store: sqlite get %s/%s: %w", coll, key, err)
	}
	return value, true, nil
}

func (s *SqliteData) Put(ctx context.Context, coll, key, json string) error {
	if err := s.ensureTable(ctx, coll); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO data_%s (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value`, sanitizeIdent(coll)), key, json)
	return err
}

func (s *SqliteData) Del(ctx context.Context, coll, key string) error {
	if err := s.ensureTable(ctx, coll); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM data_%s WHERE key=?`, sanitizeIdent(coll)), key)
	return err
}

func (s *SqliteData) Incr(ctx context.Context, coll, key, field string, amount int64) (int64, error) {
	// Sqlite has no jsonb_set equivalent used here; the field-level counter
	// is kept in its own table to avoid a JSON1-extension dependency.
	if err := s.ensureTable(ctx, coll+"_counters"); err != nil {
		return 0, err
	}
	compositeKey := key + "\x00" + field
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO data_%s_counters (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = CAST(value AS INTEGER) + ?`, sanitizeIdent(coll)),
		compositeKey, fmt.Sprintf("%d", amount), amount)
	if err != nil {
		return 0, fmt.Errorf("store: sqlite incr %s/%s.%s: %w", coll, key, field, err)
	}
	var result string
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT value FROM data_%s_counters WHERE key=?`, sanitizeIdent(coll)), compositeKey)
	if err := row.Scan(&result); err != nil {
		return 0, err
	}
	var n int64
	fmt.Sscanf(result, "%d", &n)
	return n, nil
}

func (s *SqliteData) DropCollection(ctx context.Context, coll string) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS data_%s`, sanitizeIdent(coll)))
	return err
}
