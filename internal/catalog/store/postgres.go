package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"campaign/internal/access"
	"campaign/internal/catalog/models"
	id "campaign/pkg/domain"
	txcontext "campaign/pkg/platform/tx"
)

// PostgresStore persists documents in the documents table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const documentColumns = `id, slug, title, category, tier, body, version, download_count, featured, featured_rank, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, doc *models.Document) error {
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		uuid.UUID(doc.ID), doc.Slug, doc.Title, doc.Category, string(doc.Tier), doc.Body,
		doc.Version, doc.DownloadCount, doc.Featured, doc.FeaturedRank, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, docID id.DocumentID) (*models.Document, error) {
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, `
		SELECT `+documentColumns+` FROM documents WHERE id = $1
	`, uuid.UUID(docID))
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find document: %w", err)
	}
	return doc, nil
}

// Update writes content, tier and version if the stored version is
// doc.Version-1. download_count and slug are left untouched.
func (s *PostgresStore) Update(ctx context.Context, doc *models.Document) error {
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE documents
		SET title = $2, category = $3, tier = $4, body = $5, featured = $6,
		    featured_rank = $7, version = $8, updated_at = $9
		WHERE id = $1 AND version = $8 - 1
	`,
		uuid.UUID(doc.ID), doc.Title, doc.Category, string(doc.Tier), doc.Body,
		doc.Featured, doc.FeaturedRank, doc.Version, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document rows: %w", err)
	}
	if n == 1 {
		return nil
	}
	if _, err := s.FindByID(ctx, doc.ID); err != nil {
		return err
	}
	return ErrConflict
}

func (s *PostgresStore) ListFeatured(ctx context.Context, maxTier access.Tier, n int) ([]models.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE featured AND tier = ANY($1::text[])
		ORDER BY featured_rank ASC, slug ASC
		LIMIT $2
	`, pq.Array(readableTiers(maxTier)), n)
	if err != nil {
		return nil, fmt.Errorf("list featured documents: %w", err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

func (s *PostgresStore) CategoryCounts(ctx context.Context) ([]models.CategoryCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, COUNT(*) FROM documents
		WHERE tier = $1
		GROUP BY category
		ORDER BY category ASC
	`, string(access.TierPublic))
	if err != nil {
		return nil, fmt.Errorf("count documents by category: %w", err)
	}
	defer rows.Close()

	out := []models.CategoryCount{}
	for rows.Next() {
		var c models.CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category counts: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) MostDownloaded(ctx context.Context, n int) ([]models.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE tier = $1
		ORDER BY download_count DESC, slug ASC
		LIMIT $2
	`, string(access.TierPublic), n)
	if err != nil {
		return nil, fmt.Errorf("list most downloaded documents: %w", err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// IncrementDownloads is a single atomic statement; concurrent downloads never
// lose an increment.
func (s *PostgresStore) IncrementDownloads(ctx context.Context, docID id.DocumentID) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		UPDATE documents SET download_count = download_count + 1
		WHERE id = $1
		RETURNING download_count
	`, uuid.UUID(docID)).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment downloads: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		d    models.Document
		uid  uuid.UUID
		tier string
	)
	if err := row.Scan(&uid, &d.Slug, &d.Title, &d.Category, &tier, &d.Body, &d.Version,
		&d.DownloadCount, &d.Featured, &d.FeaturedRank, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.ID = id.DocumentID(uid)
	d.Tier = access.Tier(tier)
	return &d, nil
}

func scanDocuments(rows *sql.Rows) ([]models.Document, error) {
	out := []models.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
