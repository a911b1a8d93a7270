package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"campaign/internal/engagement/models"
	smodels "campaign/internal/splittest/models"
	id "campaign/pkg/domain"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Record(ctx context.Context, e models.Event) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO engagement_events (test_id, variant, recipient_id, kind, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (test_id, variant, kind, recipient_id) DO NOTHING
	`, uuid.UUID(e.TestID), string(e.Variant), uuid.UUID(e.RecipientID), string(e.Kind), e.OccurredAt)
	if err != nil {
		return false, fmt.Errorf("insert engagement event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert engagement event rows: %w", err)
	}
	return n == 1, nil
}

func (s *PostgresStore) CountDistinct(ctx context.Context, testID id.SplitTestID, variant smodels.Variant, kinds []models.Kind) (int, error) {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT recipient_id) FROM engagement_events
		WHERE test_id = $1 AND variant = $2 AND kind = ANY($3::text[])
	`, uuid.UUID(testID), string(variant), pq.Array(names)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count engagement: %w", err)
	}
	return n, nil
}
