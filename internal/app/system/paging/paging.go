// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// Storefront page sizes.
const (
	ProductsPerPage  = 9
	PostsPerPage     = 5
	WorkshopsPerPage = 6
)

// ParsePage extracts the human-friendly "page" query parameter (1-based).
// Returns 1 if not present or invalid.
func ParsePage(r *http.Request) int {
	s := query.Get(r, "page")
	if s == "" {
		return 1
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Range holds computed display values for one page of a list.
type Range struct {
	Page      int // current page, clamped to [1, Pages]
	Pages     int // total pages (at least 1)
	Start     int // 1-based start index (0 if no results)
	End       int // 1-based end index (0 if no results)
	Total     int
	HasPrev   bool
	HasNext   bool
	PrevPage  int
	NextPage  int
	PageLinks []int
}

// Slice returns the rows on page (1-based) of size, and the matching Range.
// A page past the end shows the last page.
func Slice[T any](rows []T, page, size int) ([]T, Range) {
	if size < 1 {
		size = 1
	}
	total := len(rows)
	pages := (total + size - 1) / size
	if pages < 1 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}

	from := (page - 1) * size
	to := from + size
	if to > total {
		to = total
	}

	rg := Range{
		Page:     page,
		Pages:    pages,
		Total:    total,
		HasPrev:  page > 1,
		HasNext:  page < pages,
		PrevPage: page - 1,
		NextPage: page + 1,
	}
	if total > 0 {
		rg.Start = from + 1
		rg.End = to
	}
	if pages > 1 {
		for p := 1; p <= pages; p++ {
			rg.PageLinks = append(rg.PageLinks, p)
		}
	}
	return rows[from:to], rg
}
