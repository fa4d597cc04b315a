package model

// SortType selects the ordering policy for outfit search.
type SortType string

const (
	SortNewest   SortType = "Newest"
	SortPopular  SortType = "Popular"
	SortTrending SortType = "Trending"
)

// Search limits.
const (
	MinSearchAmount     = 1
	MaxSearchAmount     = 200
	MaxSearchKeywordLen = 100
)

// ParseSortType maps a client value to a SortType. Empty selects Newest.
func ParseSortType(s string) (SortType, bool) {
	switch SortType(s) {
	case "", SortNewest:
		return SortNewest, true
	case SortPopular:
		return SortPopular, true
	case SortTrending:
		return SortTrending, true
	default:
		return "", false
	}
}

// SearchParams describes a filtered, sorted listing.
type SearchParams struct {
	Keyword string
	Sort    SortType
	Limit   int
}

// Counter names an engagement counter column.
type Counter string

const (
	CounterViews      Counter = "views"
	CounterFavourites Counter = "favourites"
)

// Valid reports whether c is a known counter.
func (c Counter) Valid() bool {
	return c == CounterViews || c == CounterFavourites
}
