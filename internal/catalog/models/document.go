package models

import (
	"strings"
	"time"

	"campaign/internal/access"
	id "campaign/pkg/domain"
	dErrors "campaign/pkg/domain-errors"
)

// Document is a published campaign document.
//
// Invariants:
//   - Slug, Title and Category are non-empty
//   - Tier is one of public, restricted, private
//   - Version increases by one on every persisted change
//   - DownloadCount is only changed by the download tracker
type Document struct {
	ID            id.DocumentID `json:"id" msgpack:"id"`
	Slug          string        `json:"slug" msgpack:"slug"`
	Title         string        `json:"title" msgpack:"title"`
	Category      string        `json:"category" msgpack:"category"`
	Tier          access.Tier   `json:"tier" msgpack:"tier"`
	Body          string        `json:"body,omitempty" msgpack:"body"`
	Version       int64         `json:"version" msgpack:"version"`
	DownloadCount int64         `json:"download_count" msgpack:"download_count"`
	Featured      bool          `json:"featured" msgpack:"featured"`
	FeaturedRank  int           `json:"featured_rank" msgpack:"featured_rank"`
	CreatedAt     time.Time     `json:"created_at" msgpack:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" msgpack:"updated_at"`
}

// CategoryCount is one row of the public category histogram.
type CategoryCount struct {
	Category string `json:"category" msgpack:"category"`
	Count    int64  `json:"count" msgpack:"count"`
}

func NewDocument(docID id.DocumentID, req CreateDocumentRequest, now time.Time) (*Document, error) {
	tier, err := access.ParseTier(req.Tier)
	if err != nil {
		return nil, err
	}
	d := &Document{
		ID:           docID,
		Slug:         req.Slug,
		Title:        req.Title,
		Category:     req.Category,
		Tier:         tier,
		Body:         req.Body,
		Version:      1,
		Featured:     req.Featured,
		FeaturedRank: req.FeaturedRank,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Document) validate() error {
	switch {
	case d.Slug == "":
		return dErrors.New(dErrors.CodeValidation, "slug is required")
	case len(d.Slug) > 200:
		return dErrors.New(dErrors.CodeValidation, "slug must be 200 characters or less")
	case strings.ContainsAny(d.Slug, " /?#"):
		return dErrors.New(dErrors.CodeValidation, "slug must not contain spaces or URL delimiters")
	case d.Title == "":
		return dErrors.New(dErrors.CodeValidation, "title is required")
	case d.Category == "":
		return dErrors.New(dErrors.CodeValidation, "category is required")
	case !d.Tier.IsValid():
		return dErrors.New(dErrors.CodeValidation, "invalid tier")
	case d.FeaturedRank < 0:
		return dErrors.New(dErrors.CodeValidation, "featured_rank must not be negative")
	}
	return nil
}

// ApplyUpdate applies the non-nil fields of req. It reports whether anything
// changed; an unchanged document keeps its version.
func (d *Document) ApplyUpdate(req UpdateDocumentRequest, now time.Time) (bool, error) {
	next := *d
	if req.Title != nil {
		next.Title = strings.TrimSpace(*req.Title)
	}
	if req.Category != nil {
		next.Category = strings.ToLower(strings.TrimSpace(*req.Category))
	}
	if req.Body != nil {
		next.Body = *req.Body
	}
	if req.Featured != nil {
		next.Featured = *req.Featured
	}
	if req.FeaturedRank != nil {
		next.FeaturedRank = *req.FeaturedRank
	}
	if err := next.validate(); err != nil {
		return false, err
	}
	if next == *d {
		return false, nil
	}
	next.Version++
	next.UpdatedAt = now
	*d = next
	return true, nil
}

// ChangeTier moves the document to tier. Setting the current tier is a no-op.
// tightened reports whether fewer callers can read the document afterwards.
func (d *Document) ChangeTier(tier access.Tier, now time.Time) (changed, tightened bool) {
	if d.Tier == tier {
		return false, false
	}
	tightened = tier.Tightens(d.Tier)
	d.Tier = tier
	d.Version++
	d.UpdatedAt = now
	return true, tightened
}
