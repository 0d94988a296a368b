package domain

// MaxPageSize is the largest page size the administrative API accepts on its
// listing endpoints. Listings are always requested at this size.
const MaxPageSize = 500

// Paging is the paging block returned by listing endpoints.
type Paging struct {
	PageIndex int `json:"pageIndex"`
	PageSize  int `json:"pageSize"`
	Total     int `json:"total"`
}

// Complete reports whether a response carrying returned items holds the
// whole result set. A listing that would need a second page is incomplete.
func (p Paging) Complete(returned int) bool {
	return p.Total <= returned
}

// RequireComplete returns a ConfigurationError when the listing described by
// what was truncated by pagination.
func (p Paging) RequireComplete(returned int, what string) error {
	if p.Complete(returned) {
		return nil
	}
	return ErrConfiguration("pagination of %s is not supported: %d result(s) reported, %d returned (page size %d)",
		what, p.Total, returned, p.PageSize)
}
