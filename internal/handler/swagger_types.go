package handler

import (
	"time"
)

// Swagger type definitions for API documentation.
// These types are used by swag to generate OpenAPI documentation.

// --- Request Types ---

// FieldsRequest is a flat JSON object of field values. Key order is kept.
type FieldsRequest map[string]interface{}

// QueryUpdateRequest represents the body of the query-based update endpoints.
type QueryUpdateRequest struct {
	Filter map[string]interface{} `json:"filter" example:"sku:A-1"`
	Update map[string]interface{} `json:"update" binding:"required" example:"price:12.5"`
}

// --- Response Types ---

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
	Error  string `json:"error,omitempty" example:"document store not reachable"`
}

// HistoryEntryResponse represents one recorded change.
type HistoryEntryResponse struct {
	Field     string      `json:"field" example:"price"`
	ChangedTo interface{} `json:"changedTo"`
	At        time.Time   `json:"at" example:"2024-01-15T10:30:00Z"`
}

// UpdateResultResponse represents the outcome of an update.
type UpdateResultResponse struct {
	Matched  int64 `json:"matched" example:"1"`
	Modified int64 `json:"modified" example:"1"`
}

// DocumentResponse is a stored document: its fields plus metadata keys.
type DocumentResponse struct {
	ID        string    `json:"_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Type      string    `json:"_type" example:"product"`
	Version   int64     `json:"_version" example:"3"`
	CreatedAt time.Time `json:"_createdAt" example:"2024-01-15T10:30:00Z"`
	UpdatedAt time.Time `json:"_updatedAt" example:"2024-01-15T10:30:00Z"`
}

// ArchiveResponse describes an uploaded history archive.
type ArchiveResponse struct {
	Bucket   string `json:"bucket" example:"doctrack-archive"`
	Key      string `json:"key" example:"history/product/550e8400-e29b-41d4-a716-446655440000/1705314600000000000_product_550e8400-e29b-41d4-a716-446655440000_history_2024-01-15.csv"`
	Location string `json:"location" example:"https://doctrack-archive.s3.amazonaws.com/history/product/..."`
	URL      string `json:"url,omitempty" example:"https://doctrack-archive.s3.amazonaws.com/history/product/...?X-Amz-Signature=..."`
	Entries  int    `json:"entries" example:"12"`
}

// --- Generic Response Wrappers ---

// Response is the success envelope.
type Response struct {
	Success bool        `json:"success" example:"true"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponseBody is the error envelope.
type ErrorResponseBody struct {
	Success bool      `json:"success" example:"false"`
	Error   *APIError `json:"error"`
}
