package repository

import (
	"fmt"

	apperrors "tasktracker/internal/errors"
)

const (
	// DefaultPageSize is used when the caller does not ask for a size.
	DefaultPageSize = 10
	// MaxPageSize bounds a single range query.
	MaxPageSize = 100
)

// PageRequest selects a zero-based page of a result ordered by primary key.
type PageRequest struct {
	Page int
	Size int
}

// NewPageRequest validates page and size.
func NewPageRequest(page, size int) (PageRequest, error) {
	if page < 0 {
		return PageRequest{}, fmt.Errorf("%w: page must not be negative", apperrors.ErrValidation)
	}
	if size < 1 || size > MaxPageSize {
		return PageRequest{}, fmt.Errorf("%w: size must be between 1 and %d", apperrors.ErrValidation, MaxPageSize)
	}
	return PageRequest{Page: page, Size: size}, nil
}

// Offset returns the number of rows to skip.
func (p PageRequest) Offset() int {
	return p.Page * p.Size
}
