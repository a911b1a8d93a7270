package models

import "strings"

type CreateDocumentRequest struct {
	Slug         string `json:"slug"`
	Title        string `json:"title"`
	Category     string `json:"category"`
	Tier         string `json:"tier"`
	Body         string `json:"body"`
	Featured     bool   `json:"featured"`
	FeaturedRank int    `json:"featured_rank"`
}

// Normalize trims input and lowercases the slug, category and tier.
func (r *CreateDocumentRequest) Normalize() {
	r.Slug = strings.ToLower(strings.TrimSpace(r.Slug))
	r.Title = strings.TrimSpace(r.Title)
	r.Category = strings.ToLower(strings.TrimSpace(r.Category))
	r.Tier = strings.ToLower(strings.TrimSpace(r.Tier))
	if r.Tier == "" {
		r.Tier = "public"
	}
}

// UpdateDocumentRequest changes content fields. The tier is changed only
// through SetTier.
type UpdateDocumentRequest struct {
	Title        *string `json:"title,omitempty"`
	Category     *string `json:"category,omitempty"`
	Body         *string `json:"body,omitempty"`
	Featured     *bool   `json:"featured,omitempty"`
	FeaturedRank *int    `json:"featured_rank,omitempty"`
}

type SetTierRequest struct {
	Tier string `json:"tier"`
}
