// Package pagination implements the offset paging and sorting contract shared
// by the admin listing endpoints.
package pagination

import (
	"fmt"
	"strings"
)

const (
	// DefaultPage is used when the caller omits the page parameter.
	DefaultPage = 1
	// DefaultPageSize is the standard page size when one is not provided.
	DefaultPageSize = 20
	// MaxPageSize caps how many rows any listing can request.
	MaxPageSize = 100
)

// Sort orders.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Params holds paging and sorting inputs from controllers.
type Params struct {
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Meta describes the page returned alongside listing items.
type Meta struct {
	Page            int   `json:"page"`
	PageSize        int   `json:"pageSize"`
	TotalItems      int64 `json:"totalItems"`
	TotalPages      int   `json:"totalPages"`
	HasNextPage     bool  `json:"hasNextPage"`
	HasPreviousPage bool  `json:"hasPreviousPage"`
}

// Normalize applies defaults and validates the sort column against the
// entity's allow-list. defaultSort must itself appear in allowed.
func (p Params) Normalize(defaultSort string, allowed []string) (Params, error) {
	out := p
	if out.Page <= 0 {
		out.Page = DefaultPage
	}
	if out.PageSize <= 0 {
		out.PageSize = DefaultPageSize
	}
	if out.PageSize > MaxPageSize {
		out.PageSize = MaxPageSize
	}

	out.SortBy = strings.TrimSpace(out.SortBy)
	if out.SortBy == "" {
		out.SortBy = defaultSort
	}
	if !contains(allowed, out.SortBy) {
		return Params{}, fmt.Errorf("unsupported sort column %q", p.SortBy)
	}

	switch strings.ToLower(strings.TrimSpace(out.SortOrder)) {
	case "", SortDesc:
		out.SortOrder = SortDesc
	case SortAsc:
		out.SortOrder = SortAsc
	default:
		return Params{}, fmt.Errorf("sort order must be asc or desc")
	}
	return out, nil
}

// Offset converts the page number into a row offset.
func (p Params) Offset() int {
	page := p.Page
	if page <= 0 {
		page = DefaultPage
	}
	size := p.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	return (page - 1) * size
}

// OrderClause renders the normalized sort as a SQL ORDER BY expression.
// Callers must only pass Params that went through Normalize.
func (p Params) OrderClause() string {
	return fmt.Sprintf("%s %s", p.SortBy, strings.ToUpper(p.SortOrder))
}

// NewMeta computes the page envelope for the given totals.
func NewMeta(page, pageSize int, totalItems int64) Meta {
	if page <= 0 {
		page = DefaultPage
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	totalPages := int((totalItems + int64(pageSize) - 1) / int64(pageSize))
	return Meta{
		Page:            page,
		PageSize:        pageSize,
		TotalItems:      totalItems,
		TotalPages:      totalPages,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1 && totalItems > 0,
	}
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
