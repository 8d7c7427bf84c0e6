package storage

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicate indicates a uniqueness-constraint violation. Callers that
	// race on idempotent inserts (mentions, relations, first-time entities)
	// treat this as success and re-read the winner.
	ErrDuplicate = errors.New("duplicate record")
)

// ListOptions provides pagination and filtering for entity listings.
type ListOptions struct {
	// Page is the page number to retrieve (1-indexed, default: 1).
	Page int

	// Limit is the number of items per page (default: 50, max: 500).
	Limit int

	// Type filters entities by entity type. Empty string means no filter.
	Type string

	// MinMentions filters to entities with mention_count >= this value.
	MinMentions int

	// SeenAfter restricts results to entities last seen after this time.
	// Zero value means no lower bound.
	SeenAfter time.Time
}

// Normalize applies defaults and bounds to the ListOptions.
func (o *ListOptions) Normalize() {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit < 1 {
		o.Limit = 50
	}
	if o.Limit > 500 {
		o.Limit = 500
	}
}

// Offset calculates the SQL offset for the current page.
func (o *ListOptions) Offset() int {
	return (o.Page - 1) * o.Limit
}

// GraphStats summarizes the stored graph, reported at the end of every run.
type GraphStats struct {
	Entities     int `json:"entities"`
	Mentions     int `json:"mentions"`
	Relations    int `json:"relations"`
	UnitsIndexed int `json:"units_indexed"`
}
