package pager

// DefaultLookahead is the number of client pages before the end of the
// buffered rows at which a read-ahead starts.
const DefaultLookahead = 2

// FetchAhead is the read-ahead policy: fetch the next server page once the
// client page comes within Margin pages of the buffered end.
type FetchAhead struct {
	Margin   int
	PageSize int
}

// State is the input to a read-ahead decision.
type State struct {
	Page     int  // client page after navigation
	Buffered int  // rows held locally
	Total    int  // rows the backend reports
	InFlight bool // a read-ahead is already running
	Explicit bool // the query set its own limit
}

// ShouldPrefetch reports whether all read-ahead conditions hold: the page is
// near the buffered end, more rows exist, nothing is in flight and the result
// set is not closed by an explicit limit.
func (f FetchAhead) ShouldPrefetch(s State) bool {
	if s.InFlight || s.Explicit || s.Buffered >= s.Total {
		return false
	}
	return s.Page >= PageCount(s.Buffered, f.PageSize)-f.Margin
}
