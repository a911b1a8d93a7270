package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"campaign/internal/recipient/models"
	id "campaign/pkg/domain"
	txcontext "campaign/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const recipientColumns = `id, address, verified, opted_out, segments, subscribed_at, verified_at, opted_out_at`

func (s *PostgresStore) Create(ctx context.Context, r *models.Recipient) error {
	segments, err := json.Marshal(r.Segments)
	if err != nil {
		return fmt.Errorf("marshal segments: %w", err)
	}
	_, err = txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO recipients (`+recipientColumns+`)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8)
	`, uuid.UUID(r.ID), r.Address, r.Verified, r.OptedOut, string(segments),
		r.SubscribedAt, r.VerifiedAt, r.OptedOutAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert recipient: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, recipientID id.RecipientID) (*models.Recipient, error) {
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, `
		SELECT `+recipientColumns+` FROM recipients WHERE id = $1
	`, uuid.UUID(recipientID))
	r, err := scanRecipient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find recipient: %w", err)
	}
	return r, nil
}

// Save updates verification and opt-out state. opted_out is OR-ed with the
// stored value so no write can clear it.
func (s *PostgresStore) Save(ctx context.Context, r *models.Recipient) error {
	segments, err := json.Marshal(r.Segments)
	if err != nil {
		return fmt.Errorf("marshal segments: %w", err)
	}
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE recipients
		SET verified = $2,
		    verified_at = $3,
		    opted_out = opted_out OR $4,
		    opted_out_at = COALESCE(opted_out_at, $5),
		    segments = $6::jsonb
		WHERE id = $1
	`, uuid.UUID(r.ID), r.Verified, r.VerifiedAt, r.OptedOut, r.OptedOutAt, string(segments))
	if err != nil {
		return fmt.Errorf("update recipient: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update recipient rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindMany(ctx context.Context, ids []id.RecipientID) (map[id.RecipientID]models.Recipient, error) {
	out := make(map[id.RecipientID]models.Recipient, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	raw := make([]string, len(ids))
	for i, rid := range ids {
		raw[i] = rid.String()
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recipientColumns+` FROM recipients WHERE id = ANY($1::uuid[])
	`, pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("find recipients: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		r, err := scanRecipient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		out[r.ID] = *r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recipients: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListEligible(ctx context.Context, segment string) ([]models.Recipient, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recipientColumns+` FROM recipients
		WHERE verified AND NOT opted_out
		  AND ($1 = '' OR segments @> jsonb_build_array($1::text))
		ORDER BY subscribed_at ASC, id ASC
	`, segment)
	if err != nil {
		return nil, fmt.Errorf("list eligible recipients: %w", err)
	}
	defer rows.Close()
	out := []models.Recipient{}
	for rows.Next() {
		r, err := scanRecipient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recipients: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecipient(row rowScanner) (*models.Recipient, error) {
	var (
		r          models.Recipient
		uid        uuid.UUID
		segments   []byte
		verifiedAt sql.NullTime
		optedOutAt sql.NullTime
	)
	if err := row.Scan(&uid, &r.Address, &r.Verified, &r.OptedOut, &segments,
		&r.SubscribedAt, &verifiedAt, &optedOutAt); err != nil {
		return nil, err
	}
	r.ID = id.RecipientID(uid)
	if err := json.Unmarshal(segments, &r.Segments); err != nil {
		return nil, fmt.Errorf("decode segments: %w", err)
	}
	if r.Segments == nil {
		r.Segments = []string{}
	}
	r.VerifiedAt = nullTime(verifiedAt)
	r.OptedOutAt = nullTime(optedOutAt)
	return &r, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
