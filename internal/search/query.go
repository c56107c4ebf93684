package search

import (
	"strings"
	"time"
)

// Orderings accepted by orderBy.
const (
	OrderMake       = "make"
	OrderNew        = "new"
	OrderEndingSoon = "endingSoon"
)

// Filters accepted by filterBy.
const (
	FilterLive       = "live"
	FilterFinished   = "finished"
	FilterEndingSoon = "endingSoon"
)

// EndingSoonWindow is how far ahead the endingSoon filter looks.
const EndingSoonWindow = 6 * time.Hour

const (
	defaultPageSize = 4
	maxPageSize     = 100
)

// Query is a search over the projection.
type Query struct {
	SearchTerm string `form:"searchTerm"`
	Seller     string `form:"seller"`
	Winner     string `form:"winner"`
	OrderBy    string `form:"orderBy"`
	FilterBy   string `form:"filterBy"`
	PageNumber int    `form:"pageNumber" binding:"omitempty,gte=1"`
	PageSize   int    `form:"pageSize" binding:"omitempty,gte=1"`

	// Now anchors the time-based filters. Zero means time.Now.
	Now time.Time `form:"-"`
}

// Page is one page of search results.
type Page struct {
	Results    []Projection `json:"results"`
	PageCount  int          `json:"pageCount"`
	TotalCount int          `json:"totalCount"`
}

func (q Query) normalize() Query {
	q.SearchTerm = strings.TrimSpace(q.SearchTerm)
	q.Seller = strings.TrimSpace(q.Seller)
	q.Winner = strings.TrimSpace(q.Winner)
	if q.PageNumber < 1 {
		q.PageNumber = 1
	}
	if q.PageSize < 1 {
		q.PageSize = defaultPageSize
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}
	if q.Now.IsZero() {
		q.Now = time.Now()
	}
	return q
}
