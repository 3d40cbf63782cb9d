package pagination

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 25
	// MaxLimit caps how many rows any page can request.
	MaxLimit = 100
	// DefaultPage is the first page; pages are 1-based like the gateway's.
	DefaultPage = 1
)

// Params holds page-based pagination inputs from controllers or services.
type Params struct {
	Page    int
	PerPage int
}

// Page describes a page of results returned to callers.
type Page struct {
	Page      int   `json:"page"`
	PerPage   int   `json:"perPage"`
	Total     int64 `json:"total"`
	PageCount int   `json:"pageCount"`
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Normalize returns params with defaults applied and the page size clamped.
func Normalize(page, perPage int) Params {
	if page <= 0 {
		page = DefaultPage
	}
	return Params{Page: page, PerPage: NormalizeLimit(perPage)}
}

// Offset returns the row offset for the page.
func (p Params) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.PerPage
}

// NewPage builds the page descriptor for a total row count.
func NewPage(params Params, total int64) Page {
	return Page{
		Page:      params.Page,
		PerPage:   params.PerPage,
		Total:     total,
		PageCount: PageCount(total, params.PerPage),
	}
}

// PageCount returns how many pages of perPage rows hold total rows.
func PageCount(total int64, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 0
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}
