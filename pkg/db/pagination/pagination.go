// Package pagination implements offset paging shared by every list endpoint.
package pagination

import "strings"

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	DefaultSort = "created_at"

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// sortColumns is the allow-list for client-supplied sort values. The
// column name ends up inside ORDER BY, so nothing outside this set may
// pass through.
var sortColumns = map[string]bool{
	"id":         true,
	"code":       true,
	"name":       true,
	"created_at": true,
	"updated_at": true,
}

// Pagination carries the client-facing paging parameters.
type Pagination struct {
	Page  int    `form:"page"`
	Limit int    `form:"limit"`
	Sort  string `form:"sort"`
	Order string `form:"order"`
}

// Normalize fills defaults and clamps out-of-range values: page >= 1,
// limit in [1, 100], sort coerced to created_at unless allow-listed,
// order falls back to desc for anything that is not asc/desc
// (case-insensitive).
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	p.Sort = strings.ToLower(strings.TrimSpace(p.Sort))
	if !sortColumns[p.Sort] {
		p.Sort = DefaultSort
	}
	switch strings.ToLower(strings.TrimSpace(p.Order)) {
	case OrderAsc:
		p.Order = OrderAsc
	default:
		p.Order = OrderDesc
	}
	return p
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// OrderClause renders the sort column and direction for the query
// builder. Normalize has already restricted the column to the
// allow-list, so the clause is safe to concatenate.
func (p Pagination) OrderClause() string {
	return p.Sort + " " + p.Order
}

// Result is the paginated response envelope: Total counts every match
// regardless of paging.
type Result[T any] struct {
	Data  []*T  `json:"data"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}
