// Package shared holds helpers common to the master data packages.
package shared

const (
	// Default pagination
	DefaultPage  = 1
	DefaultLimit = 10

	// Sort directions
	SortAsc  = "asc"
	SortDesc = "desc"
)

// ListFilters represents standard list filters.
type ListFilters struct {
	Page    int
	Limit   int
	Search  string
	SortBy  string
	SortDir string

	// IncludeInactive also returns soft-deleted rows.
	IncludeInactive bool

	// Entity specific filters
	CategoryID *int64
}

// Offset computes the row offset for the current page.
func (f ListFilters) Offset() int {
	page := f.Page
	if page < 1 {
		page = DefaultPage
	}
	limit := f.EffectiveLimit()
	return (page - 1) * limit
}

// EffectiveLimit returns the page size, falling back to the default.
func (f ListFilters) EffectiveLimit() int {
	if f.Limit < 1 {
		return DefaultLimit
	}
	return f.Limit
}
