package core

import (
	"errors"
	"time"
)

// SortDirection orders a listing ascending or descending.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortField is the closed set of sortable transaction fields.
type SortField string

const (
	SortByOccurredAt SortField = "occurredAt"
	SortByAmount     SortField = "amount"
	SortByCategory   SortField = "category"
	SortByKind       SortField = "kind"
	SortByCreatedAt  SortField = "createdAt"
)

var ErrInvalidSort = errors.New("invalid sort field")

var sortFields = map[SortField]struct{}{
	SortByOccurredAt: {},
	SortByAmount:     {},
	SortByCategory:   {},
	SortByKind:       {},
	SortByCreatedAt:  {},
}

func (f SortField) Validate() error {
	if _, ok := sortFields[f]; !ok {
		return ErrInvalidSort
	}
	return nil
}

type (
	// Filter narrows a transaction listing. Every field is optional.
	Filter struct {
		From      time.Time
		To        time.Time
		Kind      Kind
		Category  Category
		MinAmount *int64
		MaxAmount *int64
	}

	// Sort specifies listing order over a single field.
	Sort struct {
		Field     SortField
		Direction SortDirection
	}

	// Page is 1-based pagination.
	Page struct {
		Number int
		Size   int
	}

	// TransactionPage is one page of a listing plus the unpaged count.
	TransactionPage struct {
		Items      []Transaction
		TotalCount int64
	}
)

// DefaultSort orders by occurrence time, newest first.
func DefaultSort() Sort {
	return Sort{Field: SortByOccurredAt, Direction: SortDesc}
}

// DefaultPage is the first page with the default size.
func DefaultPage() Page {
	return Page{Number: 1, Size: 20}
}

// Normalize clamps page parameters to sane values.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = 20
	}
	if p.Size > 200 {
		p.Size = 200
	}
	return p
}

// Offset returns the record offset for the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// Validate rejects filters whose optional enum members are invalid.
func (f Filter) Validate() error {
	if f.Kind != "" {
		if err := f.Kind.Validate(); err != nil {
			return err
		}
	}
	if f.Category != "" {
		if err := f.Category.Validate(); err != nil {
			return err
		}
	}
	if f.MinAmount != nil && *f.MinAmount < 0 {
		return ErrInvalidAmount
	}
	if f.MaxAmount != nil && *f.MaxAmount < 0 {
		return ErrInvalidAmount
	}
	return nil
}
