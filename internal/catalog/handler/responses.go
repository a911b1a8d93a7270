package handler

import "campaign/internal/catalog/models"

type DocumentListResponse struct {
	Documents []models.Document `json:"documents"`
}

type CategoryCountsResponse struct {
	Categories []models.CategoryCount `json:"categories"`
}
