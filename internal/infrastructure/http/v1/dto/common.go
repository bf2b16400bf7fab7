// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"oficina/internal/core/apperror"
	"oficina/internal/core/id"
)

// IDResponse is returned on creation.
type IDResponse struct {
	ID string `json:"id"`
}

// ErrorResponse is the body rendered by middleware.ErrorHandler.
type ErrorResponse struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Retryable bool           `json:"retryable,omitempty"`
}

// ListResponse wraps list results.
type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// RevisionRequest carries the optimistic-lock revision of an edit.
// Zero skips the check.
type RevisionRequest struct {
	Revision int `json:"revision" binding:"min=0"`
}

// ParseOptionalID parses a nullable id field.
func ParseOptionalID(field string, raw *string) (*id.ID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	parsed, err := id.Parse(*raw)
	if err != nil {
		return nil, apperror.NewValidation("invalid " + field).WithDetail("value", *raw)
	}
	return &parsed, nil
}
