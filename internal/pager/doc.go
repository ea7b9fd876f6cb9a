// Package pager implements the client-side result pager.
//
// The backend paginates results in server pages (limit/offset). The pager
// buffers those pages in order and re-slices them into smaller client pages
// for display. Navigation is local: moving forward past a configurable margin
// from the end of the buffered rows starts a background fetch of the next
// server page, so the user rarely reaches the unbuffered edge.
//
// The pieces are kept separate so each can be tested on its own:
//
//   - Cursor is the client window sliding over the buffered range.
//   - FetchAhead decides when a read-ahead is due.
//   - SortState cycles a column through descending, ascending and unsorted.
//   - Pager owns the buffered rows and both page counters and runs fetches.
//
// Every successful submission starts a new generation. A background fetch
// remembers the generation it was started in and its rows are dropped if the
// generation has moved on by the time it completes.
package pager
