package shared

// ListFilters represents standard list filters for masterdata endpoints.
type ListFilters struct {
	Page    int
	Limit   int
	Search  string
	SortBy  string
	SortDir string

	// Entity specific filters
	CategoryID *int64
}

// Offset returns the row offset implied by Page and Limit.
func (f ListFilters) Offset() int {
	page := f.Page
	if page < 1 {
		page = DefaultPage
	}
	limit := f.Limit
	if limit < 1 {
		limit = DefaultLimit
	}
	return (page - 1) * limit
}
