package handler

import "github.com/commerce/backoffice/internal/interfaces/http/dto"

// APIResponse is the response envelope with a typed data field.
// Clients decode it to read data without going through map[string]any.
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// ErrorResponse is the response envelope of a failed request
type ErrorResponse struct {
	Success bool           `json:"success"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}
