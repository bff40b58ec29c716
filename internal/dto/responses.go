package dto

import (
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/models"
)

// ErrorResponse represents a plain error body
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse represents a success message with optional data
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// SettlementResponse represents a transaction with its aggregated settlement state
type SettlementResponse struct {
	*models.Transaction
	SettlementState models.SettlementState `json:"settlement_state,omitempty"`
}

// NewSettlementResponse creates a SettlementResponse from a transaction
func NewSettlementResponse(tx *models.Transaction) *SettlementResponse {
	resp := &SettlementResponse{Transaction: tx}
	if tx.Settlement != nil {
		resp.SettlementState = tx.Settlement.State()
	}
	return resp
}

// ListResponse represents a page of items
type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// NewListResponse never returns a null items array
func NewListResponse[T any](items []T, limit, offset int) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Limit: limit, Offset: offset}
}
