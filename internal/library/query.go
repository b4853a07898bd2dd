package library

import (
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

type BookStatus string

const (
	StatusAny       BookStatus = ""
	StatusBorrowed  BookStatus = "borrowed"
	StatusAvailable BookStatus = "available"
)

// BookQuery describes a filtered, paginated listing of non-removed books.
// A zero Limit means "unspecified" and becomes DefaultLimit after Normalize.
type BookQuery struct {
	Search string
	Genre  string
	Status BookStatus
	Page   int
	Limit  int
}

// ParseBookQuery reads page, limit, search, genre and status from URL query values.
// Non-numeric page or limit values fall back to the defaults; explicit zero or
// negative values are clamped to 1.
func ParseBookQuery(values url.Values) BookQuery {
	q := BookQuery{
		Search: values.Get("search"),
		Genre:  values.Get("genre"),
		Status: BookStatus(values.Get("status")),
	}
	if n, ok := parseInt(values.Get("page")); ok {
		q.Page = max(n, 1)
	}
	if n, ok := parseInt(values.Get("limit")); ok {
		q.Limit = max(n, 1)
	}
	return q.Normalize()
}

func parseInt(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Normalize trims and NFC-normalises the text filters and clamps paging values.
func (q BookQuery) Normalize() BookQuery {
	q.Search = normalizeText(q.Search)
	q.Genre = normalizeText(q.Genre)

	switch BookStatus(strings.ToLower(strings.TrimSpace(string(q.Status)))) {
	case StatusBorrowed:
		q.Status = StatusBorrowed
	case StatusAvailable:
		q.Status = StatusAvailable
	default:
		q.Status = StatusAny
	}

	if q.Page < 1 {
		q.Page = DefaultPage
	}
	switch {
	case q.Limit == 0:
		q.Limit = DefaultLimit
	case q.Limit < 0:
		q.Limit = 1
	case q.Limit > MaxLimit:
		q.Limit = MaxLimit
	}
	return q
}

// Offset is the number of matching records skipped before this page.
func (q BookQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// PageInfo is the pagination block returned with every listing.
type PageInfo struct {
	Current int  `json:"current"`
	Total   int  `json:"total"`
	HasNext bool `json:"hasNext"`
	HasPrev bool `json:"hasPrev"`
}

// NewPageInfo computes pagination metadata for page/limit over total matches.
func NewPageInfo(page, limit int, total int64) PageInfo {
	if limit < 1 {
		limit = 1
	}
	pages := (total + int64(limit) - 1) / int64(limit)
	return PageInfo{
		Current: page,
		Total:   int(pages),
		HasNext: int64(page)*int64(limit) < total,
		HasPrev: page > 1,
	}
}

func normalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
