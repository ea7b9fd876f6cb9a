package pager

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/leapstack-labs/leapstats/internal/api"
)

// Errors returned by Submit.
var (
	ErrBusy    = errors.New("a query is already loading")
	ErrNoQuery = errors.New("query cannot be empty")
)

// Fetcher is the subset of the backend client the pager needs.
type Fetcher interface {
	Execute(ctx context.Context, q api.Query) (*api.ResultPage, error)
	Boxscores(ctx context.Context, params api.Params) (*api.ResultPage, error)
}

// Config holds the dependencies and tuning of a Pager.
type Config struct {
	Fetcher   Fetcher
	PageSize  int // rows per client page, DefaultPageSize when zero
	Lookahead int // read-ahead margin in client pages, DefaultLookahead when zero
	Logger    *slog.Logger
	// OnChange is called, outside the pager lock, after every state change
	// including background read-ahead completions.
	OnChange func()
}

// Pager buffers server pages and serves fixed-size client pages from them.
// It is safe for concurrent use.
type Pager struct {
	fetcher  Fetcher
	policy   FetchAhead
	logger   *slog.Logger
	onChange func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu             sync.Mutex
	cursor         Cursor
	query          api.Query
	rows           []api.Row
	total          int
	limit          int
	offset         int
	params         api.Params
	explicit       bool
	exhausted      bool
	serverPage     int
	sort           SortState
	hasResults     bool
	loading        bool
	prefetching    bool
	cancelPrefetch context.CancelFunc
	errMsg         string
	generation     uint64
}

// New creates a Pager. Call Close to stop background fetches.
func New(cfg Config) *Pager {
	size := cfg.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	margin := cfg.Lookahead
	if margin <= 0 {
		margin = DefaultLookahead
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pager{
		fetcher:  cfg.Fetcher,
		policy:   FetchAhead{Margin: margin, PageSize: size},
		logger:   logger,
		onChange: cfg.OnChange,
		ctx:      ctx,
		cancel:   cancel,
		cursor:   Cursor{Size: size},
	}
}

// Close cancels any background fetch and waits for it to return.
func (p *Pager) Close() {
	p.cancel()
	p.wg.Wait()
}

// Wait blocks until no background fetch is running.
func (p *Pager) Wait() {
	p.wg.Wait()
}

// Submit runs q in the foreground. On success the buffered rows are replaced
// with the returned page and both page counters and the sort are reset. On
// failure the previous results stay in place and the error is recorded for
// display.
func (p *Pager) Submit(ctx context.Context, q api.Query) error {
	if q.IsZero() {
		return ErrNoQuery
	}

	p.mu.Lock()
	if p.loading {
		p.mu.Unlock()
		return ErrBusy
	}
	p.loading = true
	p.errMsg = ""
	p.mu.Unlock()
	p.changed()

	p.logger.Debug("submitting query", "query", q.String())
	page, err := p.fetcher.Execute(ctx, q)

	p.mu.Lock()
	p.loading = false
	if err != nil {
		p.errMsg = api.UserMessage(err)
		p.mu.Unlock()
		p.logger.Warn("query failed", "query", q.String(), "error", err)
		p.changed()
		return err
	}

	p.generation++
	if p.cancelPrefetch != nil {
		p.cancelPrefetch()
		p.cancelPrefetch = nil
	}
	p.prefetching = false

	p.query = q
	// A backend that under-reports its total still gets every returned row.
	p.total = max(page.Total, len(page.Data))
	p.explicit = page.ExplicitLimit
	p.limit = page.Limit
	if p.limit <= 0 {
		p.limit = len(page.Data)
	}
	p.offset = page.Offset
	p.params = followUpParams(q, page)
	p.rows = nil
	p.exhausted = false
	p.appendLocked(page.Data)
	if p.params == nil || p.limit <= 0 {
		// Nothing to continue with, so rows past the returned ones never arrive.
		p.closeLocked()
	}
	p.serverPage = 0
	p.cursor.Page = 0
	p.sort = SortState{}
	p.hasResults = true
	gen := p.generation
	p.mu.Unlock()

	p.logger.Info("query loaded",
		"query", q.String(), "rows", len(page.Data), "total", page.Total,
		"explicit_limit", page.ExplicitLimit, "generation", gen)
	p.changed()
	return nil
}

// followUpParams returns the filter params used to request further server
// pages, or nil when the result set cannot be extended.
func followUpParams(q api.Query, page *api.ResultPage) api.Params {
	if len(page.QueryParams) > 0 {
		return page.QueryParams.Clone()
	}
	if q.Mode == api.ModeFilter && len(q.Params) > 0 {
		return q.Params.Clone()
	}
	return nil
}

// appendLocked adds rows to the buffer without ever exceeding total.
func (p *Pager) appendLocked(rows []api.Row) {
	room := p.total - len(p.rows)
	if room < len(rows) {
		if room < 0 {
			room = 0
		}
		if dropped := len(rows) - room; dropped > 0 {
			p.logger.Warn("backend returned more rows than its total", "dropped", dropped, "total", p.total)
		}
		rows = rows[:room]
		p.exhausted = true
	}
	p.rows = append(p.rows, rows...)
}

// AdvancePage moves to the next client page and, if the read-ahead policy
// says so, starts fetching the next server page in the background. It never
// waits for that fetch. It reports false when already on the last page.
func (p *Pager) AdvancePage() bool {
	p.mu.Lock()
	if !p.hasResults || p.cursor.Page >= p.totalPagesLocked()-1 {
		p.mu.Unlock()
		return false
	}
	p.cursor.Page++
	p.maybePrefetchLocked()
	p.mu.Unlock()
	p.changed()
	return true
}

// RetreatPage moves to the previous client page. It never fetches: every
// earlier page is already buffered.
func (p *Pager) RetreatPage() bool {
	p.mu.Lock()
	if p.cursor.Page == 0 {
		p.mu.Unlock()
		return false
	}
	p.cursor.Page--
	p.mu.Unlock()
	p.changed()
	return true
}

// JumpToPage moves to the 1-based page n. Out of range values are ignored.
func (p *Pager) JumpToPage(n int) bool {
	p.mu.Lock()
	if !p.hasResults || n < 1 || n > p.totalPagesLocked() {
		p.mu.Unlock()
		return false
	}
	p.cursor.Page = n - 1
	p.maybePrefetchLocked()
	p.mu.Unlock()
	p.changed()
	return true
}

// JumpToPageInput is JumpToPage for raw user input; anything that is not a
// number is ignored.
func (p *Pager) JumpToPageInput(s string) bool {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return p.JumpToPage(n)
}

// SortBy cycles the sort on col and returns to the first client page. Only
// buffered rows are sorted; nothing is fetched.
func (p *Pager) SortBy(col string) {
	if col == "" {
		return
	}
	p.mu.Lock()
	p.sort = p.sort.Next(col)
	p.cursor.Page = 0
	p.mu.Unlock()
	p.changed()
}

// TotalPages returns the number of client pages. A result set closed by an
// explicit limit counts only buffered rows; otherwise the backend total is
// used since the remaining rows can still be fetched.
func (p *Pager) TotalPages() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalPagesLocked()
}

func (p *Pager) totalPagesLocked() int {
	if p.explicit {
		return PageCount(len(p.rows), p.cursor.Size)
	}
	return PageCount(max(p.total, len(p.rows)), p.cursor.Size)
}

// closeLocked ends the result set at the buffered rows: the total shrinks to
// match and a cursor left past the new last page moves onto it.
func (p *Pager) closeLocked() {
	p.exhausted = true
	p.total = len(p.rows)
	if last := max(p.totalPagesLocked()-1, 0); p.cursor.Page > last {
		p.cursor.Page = last
	}
}

// extendableLocked reports whether more server pages can still be fetched.
func (p *Pager) extendableLocked() bool {
	return !p.explicit && !p.exhausted && p.params != nil && p.limit > 0 && len(p.rows) < p.total
}

func (p *Pager) maybePrefetchLocked() {
	if !p.extendableLocked() {
		return
	}
	if !p.policy.ShouldPrefetch(State{
		Page:     p.cursor.Page,
		Buffered: len(p.rows),
		Total:    p.total,
		InFlight: p.prefetching,
		Explicit: p.explicit,
	}) {
		return
	}

	params := p.params.Clone()
	params[api.ParamOffset] = p.offset + (p.serverPage+1)*p.limit
	params[api.ParamLimit] = p.limit

	ctx, cancel := context.WithCancel(p.ctx)
	p.prefetching = true
	p.cancelPrefetch = cancel
	gen := p.generation

	p.wg.Add(1)
	go p.prefetch(ctx, cancel, gen, params)
}

// prefetch fetches one server page and appends it if its generation is still
// current. Failures are logged and otherwise ignored; buffered pages stay
// usable and the next navigation may try again.
func (p *Pager) prefetch(ctx context.Context, cancel context.CancelFunc, gen uint64, params api.Params) {
	defer p.wg.Done()
	defer cancel()

	p.logger.Debug("prefetching server page", "params", params.Encode(), "generation", gen)
	page, err := p.fetcher.Boxscores(ctx, params)

	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		p.logger.Debug("discarding stale prefetch", "generation", gen)
		return
	}
	p.prefetching = false
	p.cancelPrefetch = nil

	if err != nil {
		p.mu.Unlock()
		if errors.Is(err, context.Canceled) {
			p.logger.Debug("prefetch cancelled", "generation", gen)
		} else {
			p.logger.Warn("prefetch failed", "params", params.Encode(), "error", err)
		}
		p.changed()
		return
	}

	p.serverPage++
	p.appendLocked(page.Data)
	if len(page.Data) == 0 || p.exhausted {
		p.closeLocked()
	}
	buffered := len(p.rows)
	// A jump may have left the cursor beyond the new edge as well.
	p.maybePrefetchLocked()
	p.mu.Unlock()

	p.logger.Debug("prefetch appended", "rows", len(page.Data), "buffered", buffered)
	p.changed()
}

// View returns a snapshot for rendering. With a sort active the whole
// buffered set is re-sorted, so rows appended by a read-ahead take their
// place in the current order.
func (p *Pager) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()

	v := View{
		Query:       p.query,
		Page:        p.cursor.Page,
		PageSize:    p.cursor.Size,
		TotalPages:  p.totalPagesLocked(),
		ServerPage:  p.serverPage,
		Buffered:    len(p.rows),
		Total:       p.total,
		Explicit:    p.explicit,
		Extendable:  p.extendableLocked(),
		Sort:        p.sort,
		HasResults:  p.hasResults,
		Loading:     p.loading,
		Prefetching: p.prefetching,
		Error:       p.errMsg,
		Generation:  p.generation,
	}
	if !p.hasResults {
		return v
	}

	rows := p.rows
	if p.sort.Active() {
		rows = SortRows(p.rows, p.sort)
	}
	lo, hi := p.cursor.Window(len(rows))
	v.Rows = append([]api.Row(nil), rows[lo:hi]...)
	v.Columns = api.Columns(p.rows)
	v.Of = p.total
	if p.explicit {
		v.Of = len(p.rows)
	}
	if hi > lo {
		v.First, v.Last = lo+1, hi
	}
	return v
}

func (p *Pager) changed() {
	if p.onChange != nil {
		p.onChange()
	}
}
