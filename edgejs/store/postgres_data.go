package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// PostgresData backs data_store = Postgres{url, database?, tls_*?} (spec.md
// §6). Each collection is a table keyed by key, storing an opaque JSON
// document — matching the teacher's use of jmoiron/sqlx + lib/pq in
// system/platform/database for every other relational store in this repo.
type PostgresData struct {
	db *sqlx.DB
}

// NewPostgresData opens (and pings) a Postgres connection for url.
func NewPostgresData(url string) (*PostgresData, error) {
	db, err := sqlx.Connect("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("store: connect postgres: %w", err)
	}
	return &PostgresData{db: db}, nil
}

func (p *PostgresData) ensureTable(ctx context.Context, coll string) error {
	_, err := p.db.ExecContext(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS data_%s (key TEXT PRIMARY KEY, value JSONB NOT NULL)`, sanitizeIdent(coll)))
	return err
}

func sanitizeIdent(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			out = append(out, r)
		} else {
			out = append(out, '_')
		}
	}
	return string(out)
}

func (p *PostgresData) Get(ctx context.Context, coll, key string) (string, bool, error) {
	if err := p.ensureTable(ctx, coll); err != nil {
		return "", false, err
	}
	var value string
	err := p.db.GetContext(ctx, &value,
		fmt.Sprintf(`SELECT value::text FROM data_%s WHERE key=$1`, sanitizeIdent(coll)), key)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: postgres get %s/%s: %w", coll, key, err)
	}
	return value, true, nil
}

func (p *PostgresData) Put(ctx context.Context, coll, key, json string) error {
	if err := p.ensureTable(ctx, coll); err != nil {
		return err
	}
	_, err := p.db.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO data_%s (key, value) VALUES ($1, $2::jsonb)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, sanitizeIdent(coll)), key, json)
	if err != nil {
		return fmt.Errorf("store: postgres put %s/%s: %w", coll, key, err)
	}
	return nil
}

func (p *PostgresData) Del(ctx context.Context, coll, key string) error {
	if err := p.ensureTable(ctx, coll); err != nil {
		return err
	}
	_, err := p.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM data_%s WHERE key=$1`, sanitizeIdent(coll)), key)
	return err
}

func (p *PostgresData) Incr(ctx context.Context, coll, key, field string, amount int64) (int64, error) {
	if err := p.ensureTable(ctx, coll); err != nil {
		return 0, err
	}
	var result int64
	err := p.db.GetContext(ctx, &result, fmt.Sprintf(
		`INSERT INTO data_%s (key, value) VALUES ($1, jsonb_build_object($2::text, $3::bigint))
		 ON CONFLICT (key) DO UPDATE SET value = jsonb_set(
		   data_%s.value, array[$2], to_jsonb(COALESCE((data_%s.value->>$2)::bigint, 0) + $3))
		 RETURNING (value->>$2)::bigint`, sanitizeIdent(coll), sanitizeIdent(coll), sanitizeIdent(coll)),
		key, field, amount)
	if err != nil {
		return 0, fmt.Errorf("store: postgres incr %s/%s.%s: %w", coll, key, field, err)
	}
	return result, nil
}

func (p *PostgresData) DropCollection(ctx context.Context, coll string) error {
	_, err := p.db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS data_%s`, sanitizeIdent(coll)))
	return err
}
