// Package dto defines the request and response shapes of the HTTP API.
package dto

import "stockledger/internal/core/id"

// ListResponse wraps list results and echoes the paging window.
type ListResponse struct {
	Items  any `json:"items"`
	Count  int `json:"count"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// IDResponse is returned by create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// NewIDResponse builds an IDResponse from an entity id.
func NewIDResponse(i id.ID) IDResponse {
	return IDResponse{ID: i.String()}
}

// SuccessResponse is returned by operations that yield no data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse mirrors the error middleware's JSON shape.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
