package epoch

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// Postgres keeps epochs in cache_group_epochs so they survive restarts
// alongside the durable cache provider.
type Postgres struct {
	db *sql.DB
}

var _ Store = (*Postgres)(nil)

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Snapshot(ctx context.Context, groups []string) (map[string]uint64, error) {
	out := make(map[string]uint64, len(groups))
	if len(groups) == 0 {
		return out, nil
	}
	for _, g := range groups {
		out[g] = 0
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT group_name, epoch FROM cache_group_epochs WHERE group_name = ANY($1::text[])
	`, pq.Array(groups))
	if err != nil {
		return nil, fmt.Errorf("select cache epochs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			name  string
			epoch int64
		)
		if err := rows.Scan(&name, &epoch); err != nil {
			return nil, fmt.Errorf("scan cache epoch: %w", err)
		}
		out[name] = uint64(epoch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cache epochs: %w", err)
	}
	return out, nil
}

func (s *Postgres) Bump(ctx context.Context, group string) (uint64, error) {
	var epoch int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO cache_group_epochs (group_name, epoch)
		VALUES ($1, 1)
		ON CONFLICT (group_name) DO UPDATE SET epoch = cache_group_epochs.epoch + 1
		RETURNING epoch
	`, group).Scan(&epoch)
	if err != nil {
		return 0, fmt.Errorf("bump cache epoch: %w", err)
	}
	return uint64(epoch), nil
}
