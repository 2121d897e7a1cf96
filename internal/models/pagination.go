package models

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// NewPagination summarizes a page. Pages is never below one so an empty
// listing still reports a single (empty) page.
func NewPagination(page, limit int, total int64) Pagination {
	pages := 1
	if limit > 0 && total > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}
