package utils

import (
	"strconv"
	"strings"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Pagination is the page/limit pair read from a query string.
type Pagination struct {
	Page  int64 `json:"page"`
	Limit int64 `json:"limit"`
}

// PageMeta accompanies every paginated list response.
type PageMeta struct {
	Page       int64 `json:"page"`
	Limit      int64 `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

// ParsePagination reads page and limit (or per_page), clamping bad values to
// the defaults.
func ParsePagination(page, limit string) Pagination {
	p := Pagination{Page: 1, Limit: DefaultPerPage}
	if n, err := strconv.ParseInt(strings.TrimSpace(page), 10, 64); err == nil && n > 0 {
		p.Page = n
	}
	if n, err := strconv.ParseInt(strings.TrimSpace(limit), 10, 64); err == nil && n > 0 {
		p.Limit = n
	}
	if p.Limit > MaxPerPage {
		p.Limit = MaxPerPage
	}
	return p
}

func (p Pagination) Offset() int64 { return (p.Page - 1) * p.Limit }

func (p Pagination) Meta(total int64) PageMeta {
	pages := int64(0)
	if p.Limit > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return PageMeta{Page: p.Page, Limit: p.Limit, Total: total, TotalPages: pages}
}
