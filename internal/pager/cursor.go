package pager

// DefaultPageSize is the number of rows in a client page.
const DefaultPageSize = 10

// Cursor is a fixed-size client window over the buffered rows.
type Cursor struct {
	Page int // zero-based client page
	Size int // rows per client page
}

// Window returns the half-open range [lo, hi) of the current page within n
// buffered rows. Both bounds are clamped to n.
func (c Cursor) Window(n int) (lo, hi int) {
	lo = min(c.Page*c.Size, n)
	hi = min(lo+c.Size, n)
	return lo, hi
}

// PageCount returns how many pages of size hold n rows.
func PageCount(n, size int) int {
	if size <= 0 || n <= 0 {
		return 0
	}
	return (n + size - 1) / size
}
