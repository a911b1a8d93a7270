package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"campaign/internal/dispatch/models"
	id "campaign/pkg/domain"
	txcontext "campaign/pkg/platform/tx"
)

// PostgresStore keeps jobs in dispatch_jobs, the ordered recipient list in
// dispatch_job_recipients and outcomes in dispatch_deliveries.
type PostgresStore struct {
	db *sql.DB
	tx txcontext.Runner
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, tx: txcontext.SQLRunner{DB: db}}
}

func (s *PostgresStore) Create(ctx context.Context, job *models.Job) error {
	payload, err := json.Marshal(job.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		exec := txcontext.Exec(ctx, s.db)
		res, err := exec.ExecContext(ctx, `
			INSERT INTO dispatch_jobs (id, chunk_size, total, cursor, sent, failed, skipped, status,
				cancel_requested, payload, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11, $12)
			ON CONFLICT (id) DO NOTHING
		`, uuid.UUID(job.ID), job.ChunkSize, job.Total, job.Cursor, job.Sent, job.Failed, job.Skipped,
			string(job.Status), job.CancelRequested, string(payload), job.CreatedAt, job.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert job: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert job: %w", err)
		}
		if n == 0 {
			return ErrConflict
		}
		if len(job.RecipientIDs) == 0 {
			return nil
		}
		ids := make([]string, len(job.RecipientIDs))
		for i, rid := range job.RecipientIDs {
			ids[i] = rid.String()
		}
		_, err = exec.ExecContext(ctx, `
			INSERT INTO dispatch_job_recipients (job_id, position, recipient_id)
			SELECT $1, ord - 1, rid
			FROM unnest($2::uuid[]) WITH ORDINALITY AS t(rid, ord)
		`, uuid.UUID(job.ID), pq.Array(ids))
		if err != nil {
			return fmt.Errorf("insert job recipients: %w", err)
		}
		return nil
	})
}

const jobColumns = `id, chunk_size, total, cursor, sent, failed, skipped, status, cancel_requested,
	payload, created_at, updated_at, last_advanced_at`

func (s *PostgresStore) FindByID(ctx context.Context, jobID id.JobID) (*models.Job, error) {
	exec := txcontext.Exec(ctx, s.db)
	job, err := scanJob(exec.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM dispatch_jobs WHERE id = $1`, uuid.UUID(jobID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find job: %w", err)
	}

	rows, err := exec.QueryContext(ctx, `
		SELECT recipient_id FROM dispatch_job_recipients WHERE job_id = $1 ORDER BY position
	`, uuid.UUID(jobID))
	if err != nil {
		return nil, fmt.Errorf("load job recipients: %w", err)
	}
	defer rows.Close()
	job.RecipientIDs = make([]id.RecipientID, 0, job.Total)
	for rows.Next() {
		var rid uuid.UUID
		if err := rows.Scan(&rid); err != nil {
			return nil, fmt.Errorf("scan job recipient: %w", err)
		}
		job.RecipientIDs = append(job.RecipientIDs, id.RecipientID(rid))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job recipients: %w", err)
	}
	return job, nil
}

// SaveProgress writes progress and deliveries in one transaction. The update
// matches only if cursor and status are unchanged since the caller read them.
func (s *PostgresStore) SaveProgress(ctx context.Context, job *models.Job, prevCursor int, prevStatus models.Status, deliveries []models.Delivery) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		exec := txcontext.Exec(ctx, s.db)
		res, err := exec.ExecContext(ctx, `
			UPDATE dispatch_jobs
			SET cursor = $2, sent = $3, failed = $4, skipped = $5, status = $6,
			    updated_at = $7, last_advanced_at = $8
			WHERE id = $1 AND cursor = $9 AND status = $10
		`, uuid.UUID(job.ID), job.Cursor, job.Sent, job.Failed, job.Skipped, string(job.Status),
			job.UpdatedAt, job.LastAdvancedAt, prevCursor, string(prevStatus))
		if err != nil {
			return fmt.Errorf("update job progress: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update job progress rows: %w", err)
		}
		if n == 0 {
			var exists bool
			if err := exec.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM dispatch_jobs WHERE id = $1)`,
				uuid.UUID(job.ID)).Scan(&exists); err != nil {
				return fmt.Errorf("check job: %w", err)
			}
			if !exists {
				return ErrNotFound
			}
			return ErrConflict
		}
		for _, d := range deliveries {
			if _, err := exec.ExecContext(ctx, `
				INSERT INTO dispatch_deliveries (job_id, recipient_id, position, status, error, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, uuid.UUID(d.JobID), uuid.UUID(d.RecipientID), d.Position, string(d.Status), d.Error, d.CreatedAt); err != nil {
				return fmt.Errorf("insert delivery: %w", err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) RequestCancel(ctx context.Context, jobID id.JobID, now time.Time) error {
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE dispatch_jobs SET cancel_requested = TRUE, updated_at = $2
		WHERE id = $1 AND status IN ('pending', 'running')
	`, uuid.UUID(jobID), now)
	if err != nil {
		return fmt.Errorf("request cancel: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("request cancel rows: %w", err)
	}
	if n == 1 {
		return nil
	}
	if _, err := scanJob(s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM dispatch_jobs WHERE id = $1`, uuid.UUID(jobID))); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("find job: %w", err)
	}
	return ErrInvalidState
}

func (s *PostgresStore) ListActive(ctx context.Context, limit int) ([]models.Job, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+jobColumns+` FROM dispatch_jobs
		WHERE status IN ('pending', 'running')
		ORDER BY COALESCE(last_advanced_at, created_at) ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list active jobs: %w", err)
	}
	defer rows.Close()
	out := []models.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListDeliveries(ctx context.Context, jobID id.JobID) ([]models.Delivery, error) {
	if _, err := s.FindByID(ctx, jobID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT job_id, recipient_id, position, status, error, created_at
		FROM dispatch_deliveries WHERE job_id = $1 ORDER BY id
	`, uuid.UUID(jobID))
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()
	out := []models.Delivery{}
	for rows.Next() {
		var (
			d        models.Delivery
			jid, rid uuid.UUID
			status   string
		)
		if err := rows.Scan(&jid, &rid, &d.Position, &status, &d.Error, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		d.JobID = id.JobID(jid)
		d.RecipientID = id.RecipientID(rid)
		d.Status = models.DeliveryStatus(status)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*models.Job, error) {
	var (
		j          models.Job
		uid        uuid.UUID
		status     string
		payload    []byte
		advancedAt sql.NullTime
	)
	if err := row.Scan(&uid, &j.ChunkSize, &j.Total, &j.Cursor, &j.Sent, &j.Failed, &j.Skipped,
		&status, &j.CancelRequested, &payload, &j.CreatedAt, &j.UpdatedAt, &advancedAt); err != nil {
		return nil, err
	}
	j.ID = id.JobID(uid)
	j.Status = models.Status(status)
	if err := json.Unmarshal(payload, &j.Payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if advancedAt.Valid {
		t := advancedAt.Time
		j.LastAdvancedAt = &t
	}
	return &j, nil
}
