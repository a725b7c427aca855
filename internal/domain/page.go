package domain

// PaginationParams carries page/limit values from the HTTP layer to the repo layer.
// Page is 1-indexed and capped at MaxPage; Limit is capped at MaxPageLimit.
// Both caps keep Offset well inside int range.
type PaginationParams struct {
	Page  int
	Limit int
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
	MaxPage          = 1_000_000
)

// NewPaginationParams builds a PaginationParams from optional query params.
// Nil or non-positive values fall back to page=1, limit=DefaultPageLimit.
func NewPaginationParams(page, limit *int) PaginationParams {
	p := PaginationParams{Page: 1, Limit: DefaultPageLimit}
	if page != nil && *page >= 1 {
		p.Page = min(*page, MaxPage)
	}
	if limit != nil && *limit >= 1 {
		p.Limit = min(*limit, MaxPageLimit)
	}
	return p
}

// Offset returns the zero-based row offset for a SQL OFFSET clause.
func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Page is one slice of a larger ordered result set.
type Page[T any] struct {
	Items  []T
	Total  int64
	Params PaginationParams
}
