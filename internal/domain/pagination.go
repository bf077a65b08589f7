package domain

import "strings"

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	DefaultSort     = "-created_at"

	MaxPage     = 10_000
	MaxPageSize = 100
)

// Pagination selects one page of a sorted listing. A leading "-" in Sort
// orders descending.
type Pagination struct {
	Page     int
	PageSize int
	Sort     string
}

// NewPagination returns the first page in the default order.
func NewPagination() Pagination {
	return Pagination{Page: DefaultPage, PageSize: DefaultPageSize, Sort: DefaultSort}
}

// Normalize clamps Page and PageSize into range and falls back to the
// default sort.
func (f Pagination) Normalize() Pagination {
	switch {
	case f.Page < 1:
		f.Page = DefaultPage
	case f.Page > MaxPage:
		f.Page = MaxPage
	}

	switch {
	case f.PageSize < 1:
		f.PageSize = DefaultPageSize
	case f.PageSize > MaxPageSize:
		f.PageSize = MaxPageSize
	}

	if f.Sort == "" {
		f.Sort = DefaultSort
	}

	return f
}

func (f Pagination) SortColumn() string {
	return strings.TrimPrefix(f.Sort, "-")
}

func (f Pagination) SortDirection() string {
	if strings.HasPrefix(f.Sort, "-") {
		return "DESC"
	}

	return "ASC"
}

func (f Pagination) Limit() int {
	return f.PageSize
}

func (f Pagination) Offset() int {
	return (f.Page - 1) * f.PageSize
}
