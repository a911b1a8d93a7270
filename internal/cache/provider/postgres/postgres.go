// Package postgres is the durable cache provider backed by cache_entries.
// Expired rows stay in the table until Purge runs.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"campaign/internal/cache/provider"
)

type Provider struct {
	db  *sql.DB
	now func() time.Time
}

var (
	_ provider.Provider = (*Provider)(nil)
	_ provider.Purger   = (*Provider)(nil)
)

func New(db *sql.DB) *Provider {
	return &Provider{db: db, now: time.Now}
}

func (p *Provider) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := p.db.QueryRowContext(ctx, `
		SELECT value FROM cache_entries
		WHERE key = $1 AND (expires_at IS NULL OR expires_at > $2)
	`, key, p.now()).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select cache entry: %w", err)
	}
	return value, true, nil
}

func (p *Provider) Set(ctx context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	var expires sql.NullTime
	if ttl > 0 {
		expires = sql.NullTime{Time: p.now().Add(ttl), Valid: true}
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, value, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at
	`, key, value, expires)
	if err != nil {
		return false, fmt.Errorf("upsert cache entry: %w", err)
	}
	return true, nil
}

func (p *Provider) Del(ctx context.Context, key string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

// Purge deletes expired rows and returns how many were removed.
func (p *Provider) Purge(ctx context.Context) (int64, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_at IS NOT NULL AND expires_at <= $1`, p.now())
	if err != nil {
		return 0, fmt.Errorf("purge cache entries: %w", err)
	}
	return res.RowsAffected()
}

func (p *Provider) Close(context.Context) error { return nil }
