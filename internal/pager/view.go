package pager

import "github.com/leapstack-labs/leapstats/internal/api"

// View is an immutable snapshot of the pager for rendering.
type View struct {
	Query      api.Query
	Columns    []string
	Rows       []api.Row // rows of the current client page, sorted if a sort is active
	Page       int       // zero-based client page
	PageSize   int
	TotalPages int
	ServerPage int
	Buffered   int
	Total      int
	First      int // 1-based position of the first row shown, 0 when none
	Last       int // 1-based position of the last row shown, 0 when none
	Of         int // row count the positions refer to
	Explicit   bool
	Extendable bool // more server pages can still be fetched
	Sort       SortState

	HasResults  bool
	Loading     bool
	Prefetching bool
	Error       string
	Generation  uint64
}

// CanPrev reports whether a previous client page exists.
func (v View) CanPrev() bool { return v.Page > 0 }

// CanNext reports whether a next client page exists.
func (v View) CanNext() bool { return v.Page < v.TotalPages-1 }

// AwaitingRows reports whether the current page lies past the buffered rows
// and must wait for a read-ahead to land.
func (v View) AwaitingRows() bool {
	return v.HasResults && v.Extendable && len(v.Rows) == 0 && v.Page*v.PageSize >= v.Buffered && v.Buffered < v.Total
}
