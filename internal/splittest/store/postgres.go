package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	dmodels "campaign/internal/dispatch/models"
	"campaign/internal/splittest/models"
	id "campaign/pkg/domain"
	txcontext "campaign/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const testColumns = `id, variant_a, variant_b, sample_fraction, metric, segment, chunk_size, sample_size,
	sample_job_a, sample_job_b, remainder_recipients, outcome, winner, remainder_job,
	created_at, updated_at, decided_at`

func (s *PostgresStore) Create(ctx context.Context, t *models.SplitTest) error {
	a, err := json.Marshal(t.VariantA)
	if err != nil {
		return fmt.Errorf("marshal variant a: %w", err)
	}
	b, err := json.Marshal(t.VariantB)
	if err != nil {
		return fmt.Errorf("marshal variant b: %w", err)
	}
	rest, err := json.Marshal(t.RemainderRecipients)
	if err != nil {
		return fmt.Errorf("marshal remainder: %w", err)
	}
	_, err = txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO split_tests (id, variant_a, variant_b, sample_fraction, metric, segment, chunk_size,
			sample_size, remainder_recipients, outcome, winner, created_at, updated_at)
		VALUES ($1, $2::jsonb, $3::jsonb, $4, $5, $6, $7, $8, $9::jsonb, $10, $11, $12, $13)
	`, uuid.UUID(t.ID), string(a), string(b), t.SampleFraction, string(t.Metric), t.Segment, t.ChunkSize,
		t.SampleSize, string(rest), string(t.Outcome), string(t.Winner), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert split test: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, testID id.SplitTestID) (*models.SplitTest, error) {
	t, err := scanTest(txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+testColumns+` FROM split_tests WHERE id = $1`, uuid.UUID(testID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find split test: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) MarkSampling(ctx context.Context, testID id.SplitTestID, jobA, jobB id.JobID, now time.Time) error {
	return s.transition(ctx, testID, models.OutcomePending, `
		UPDATE split_tests
		SET sample_job_a = $3, sample_job_b = $4, outcome = 'sampling', updated_at = $5
		WHERE id = $1 AND outcome = $2
	`, uuid.UUID(jobA), uuid.UUID(jobB), now)
}

// MarkDecided is the single compare-and-set that fixes the winner.
func (s *PostgresStore) MarkDecided(ctx context.Context, testID id.SplitTestID, winner models.Variant, remainder id.JobID, now time.Time) error {
	return s.transition(ctx, testID, models.OutcomeSampling, `
		UPDATE split_tests
		SET winner = $3, remainder_job = $4, outcome = 'decided', decided_at = $5, updated_at = $5
		WHERE id = $1 AND outcome = $2
	`, string(winner), uuid.UUID(remainder), now)
}

func (s *PostgresStore) MarkCompleted(ctx context.Context, testID id.SplitTestID, now time.Time) error {
	return s.transition(ctx, testID, models.OutcomeDecided, `
		UPDATE split_tests SET outcome = 'completed', updated_at = $3
		WHERE id = $1 AND outcome = $2
	`, now)
}

func (s *PostgresStore) transition(ctx context.Context, testID id.SplitTestID, from models.Outcome, query string, args ...any) error {
	exec := txcontext.Exec(ctx, s.db)
	res, err := exec.ExecContext(ctx, query, append([]any{uuid.UUID(testID), string(from)}, args...)...)
	if err != nil {
		return fmt.Errorf("update split test: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update split test rows: %w", err)
	}
	if n == 1 {
		return nil
	}
	var exists bool
	if err := exec.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM split_tests WHERE id = $1)`,
		uuid.UUID(testID)).Scan(&exists); err != nil {
		return fmt.Errorf("check split test: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConflict
}

func (s *PostgresStore) ListByOutcome(ctx context.Context, outcome models.Outcome, limit int) ([]models.SplitTest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+testColumns+` FROM split_tests WHERE outcome = $1 ORDER BY created_at ASC LIMIT $2
	`, string(outcome), limit)
	if err != nil {
		return nil, fmt.Errorf("list split tests: %w", err)
	}
	defer rows.Close()
	out := []models.SplitTest{}
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan split test: %w", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate split tests: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTest(row rowScanner) (*models.SplitTest, error) {
	var (
		t                  models.SplitTest
		uid                uuid.UUID
		a, b, rest         []byte
		metric, outcome    string
		winner             string
		jobA, jobB, remJob uuid.NullUUID
		decidedAt          sql.NullTime
	)
	if err := row.Scan(&uid, &a, &b, &t.SampleFraction, &metric, &t.Segment, &t.ChunkSize, &t.SampleSize,
		&jobA, &jobB, &rest, &outcome, &winner, &remJob, &t.CreatedAt, &t.UpdatedAt, &decidedAt); err != nil {
		return nil, err
	}
	t.ID = id.SplitTestID(uid)
	t.Metric = models.Metric(metric)
	t.Outcome = models.Outcome(outcome)
	t.Winner = models.Variant(winner)
	if err := decodePayload(a, &t.VariantA); err != nil {
		return nil, err
	}
	if err := decodePayload(b, &t.VariantB); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(rest, &t.RemainderRecipients); err != nil {
		return nil, fmt.Errorf("decode remainder: %w", err)
	}
	if jobA.Valid {
		t.SampleJobA = id.JobID(jobA.UUID)
	}
	if jobB.Valid {
		t.SampleJobB = id.JobID(jobB.UUID)
	}
	if remJob.Valid {
		j := id.JobID(remJob.UUID)
		t.RemainderJob = &j
	}
	if decidedAt.Valid {
		d := decidedAt.Time
		t.DecidedAt = &d
	}
	return &t, nil
}

func decodePayload(raw []byte, p *dmodels.Payload) error {
	if err := json.Unmarshal(raw, p); err != nil {
		return fmt.Errorf("decode variant: %w", err)
	}
	return nil
}
