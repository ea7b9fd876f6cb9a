package pager

import (
	"context"
	"encoding/json"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapstats/internal/api"
	"github.com/leapstack-labs/leapstats/internal/testutil"
)

var askQuery = api.Query{Mode: api.ModeAsk, Text: "lakers games"}

func newTestPager(t *testing.T, f *fakeFetcher) *Pager {
	t.Helper()
	p := New(Config{Fetcher: f, Logger: testutil.NewTestLogger(t)})
	t.Cleanup(p.Close)
	return p
}

func submit(t *testing.T, p *Pager, q api.Query) {
	t.Helper()
	require.NoError(t, p.Submit(context.Background(), q))
}

// advanceTo moves forward one page at a time, waiting for any read-ahead
// after each step when wait is set.
func advanceTo(t *testing.T, p *Pager, page int, wait bool) {
	t.Helper()
	for p.View().Page < page {
		require.True(t, p.AdvancePage(), "advance from page %d", p.View().Page)
		if wait {
			p.Wait()
		}
	}
}

func ids(rows []api.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r["id"].(string)
	}
	return out
}

func TestSubmit_ResetsState(t *testing.T) {
	f := newFake(250, 250, 100)
	p := newTestPager(t, f)

	submit(t, p, askQuery)
	advanceTo(t, p, 9, true)
	p.SortBy("pts")

	submit(t, p, api.Query{Mode: api.ModeSQL, Text: "SELECT *"})
	v := p.View()
	assert.Equal(t, 0, v.Page)
	assert.Equal(t, 0, v.ServerPage)
	assert.False(t, v.Sort.Active())
	assert.Equal(t, 100, v.Buffered)
	assert.Equal(t, uint64(2), v.Generation)
}

func TestSubmit_Empty(t *testing.T) {
	p := newTestPager(t, newFake(1, 1, 1))
	assert.ErrorIs(t, p.Submit(context.Background(), api.Query{Mode: api.ModeSQL, Text: "  "}), ErrNoQuery)
	assert.ErrorIs(t, p.Submit(context.Background(), api.Query{Mode: api.ModeFilter}), ErrNoQuery)
}

func TestScenario_OpenResultSetPrefetchesAtMargin(t *testing.T) {
	f := newFake(250, 250, 100)
	hold := make(chan struct{})
	f.boxHold = hold
	p := newTestPager(t, f)

	submit(t, p, askQuery)
	v := p.View()
	assert.Equal(t, 25, v.TotalPages)
	assert.Equal(t, 1, v.First)
	assert.Equal(t, 10, v.Last)
	assert.Equal(t, 250, v.Of)

	advanceTo(t, p, 7, false)
	p.Wait()
	assert.Equal(t, 0, f.boxCallCount(), "pages before the margin must not prefetch")

	require.True(t, p.AdvancePage())
	v = p.View()
	assert.Equal(t, 8, v.Page, "the page counter moves without waiting for the fetch")
	assert.True(t, v.Prefetching)
	assert.False(t, v.Loading)

	close(hold)
	p.Wait()

	require.Equal(t, 1, f.boxCallCount())
	call := f.lastBoxCall()
	assert.Equal(t, 100, call[api.ParamOffset])
	assert.Equal(t, 100, call[api.ParamLimit])
	assert.Equal(t, "LAL", call["team"], "follow-up requests reuse the echoed params")

	v = p.View()
	assert.False(t, v.Prefetching)
	assert.Equal(t, 200, v.Buffered)
	assert.Equal(t, 1, v.ServerPage)
}

func TestScenario_ExplicitLimitClosesResultSet(t *testing.T) {
	f := newFake(5, 5, 5)
	f.explicit = true
	p := newTestPager(t, f)

	submit(t, p, api.Query{Mode: api.ModeAsk, Text: "top 5 scoring games"})
	v := p.View()
	assert.Equal(t, 1, v.TotalPages)
	assert.False(t, v.CanNext())
	assert.Equal(t, 5, v.Of)
	assert.Equal(t, 5, v.Last)

	assert.False(t, p.AdvancePage())
	p.Wait()
	assert.Equal(t, 0, f.boxCallCount())
}

func TestAdvancePage_PrefetchConditions(t *testing.T) {
	tests := []struct {
		name      string
		fake      func() *fakeFetcher
		query     api.Query
		page      int
		wantCalls int
	}{
		{
			name:      "all conditions hold",
			fake:      func() *fakeFetcher { return newFake(250, 250, 100) },
			query:     askQuery,
			page:      8,
			wantCalls: 1,
		},
		{
			name:      "not near the buffered end",
			fake:      func() *fakeFetcher { return newFake(250, 250, 100) },
			query:     askQuery,
			page:      7,
			wantCalls: 0,
		},
		{
			name:      "everything buffered",
			fake:      func() *fakeFetcher { return newFake(100, 100, 100) },
			query:     askQuery,
			page:      9,
			wantCalls: 0,
		},
		{
			name: "explicit limit",
			fake: func() *fakeFetcher {
				f := newFake(250, 250, 100)
				f.explicit = true
				return f
			},
			query:     askQuery,
			page:      9,
			wantCalls: 0,
		},
		{
			name: "no params to continue with",
			fake: func() *fakeFetcher {
				f := newFake(250, 250, 100)
				f.noEcho = true
				return f
			},
			query:     askQuery,
			page:      9,
			wantCalls: 0,
		},
		{
			name: "filter query without echo reuses submitted params",
			fake: func() *fakeFetcher {
				f := newFake(250, 250, 100)
				f.noEcho = true
				return f
			},
			query:     api.Query{Mode: api.ModeFilter, Params: api.Params{"pts": 20}},
			page:      8,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.fake()
			p := newTestPager(t, f)
			submit(t, p, tt.query)

			advanceTo(t, p, tt.page, true)
			assert.Equal(t, tt.wantCalls, f.boxCallCount())
		})
	}
}

func TestAdvancePage_NoSecondPrefetchWhileInFlight(t *testing.T) {
	f := newFake(250, 250, 100)
	hold := make(chan struct{})
	f.boxHold = hold
	p := newTestPager(t, f)
	submit(t, p, askQuery)

	advanceTo(t, p, 9, false)
	require.Eventually(t, func() bool { return f.boxCallCount() == 1 }, time.Second, time.Millisecond)
	assert.True(t, p.View().Prefetching)

	close(hold)
	p.Wait()
	assert.Equal(t, 1, f.boxCallCount())
	assert.Equal(t, 200, p.View().Buffered)
}

func TestBufferedRowsConcatenateInOrder(t *testing.T) {
	f := newFake(250, 250, 100)
	p := newTestPager(t, f)
	submit(t, p, askQuery)

	for p.AdvancePage() {
		p.Wait()
	}
	v := p.View()
	assert.Equal(t, 24, v.Page)
	assert.Equal(t, 250, v.Buffered)
	assert.Equal(t, 2, v.ServerPage)
	require.Equal(t, 2, f.boxCallCount())

	var got []string
	for n := 1; n <= v.TotalPages; n++ {
		require.True(t, p.JumpToPage(n))
		got = append(got, ids(p.View().Rows)...)
	}
	want := make([]string, 250)
	for i := range want {
		want[i] = strconv.Itoa(i)
	}
	assert.Equal(t, want, got)
}

func TestRetreatPage_NeverFetches(t *testing.T) {
	f := newFake(250, 250, 100)
	p := newTestPager(t, f)
	submit(t, p, askQuery)

	assert.False(t, p.RetreatPage(), "already on the first page")

	advanceTo(t, p, 3, true)
	for p.RetreatPage() {
	}
	p.Wait()
	assert.Equal(t, 0, p.View().Page)
	assert.Equal(t, 0, f.boxCallCount())
}

func TestStalePrefetchIsDiscarded(t *testing.T) {
	f := newFake(250, 250, 100)
	hold := make(chan struct{})
	f.boxHold = hold
	f.ignoreCancel = true
	p := newTestPager(t, f)

	submit(t, p, askQuery)
	advanceTo(t, p, 8, false)
	require.Eventually(t, func() bool { return f.boxCallCount() == 1 }, time.Second, time.Millisecond)

	f.set(func(f *fakeFetcher) {
		f.rows = makeRowsPrefixed(300, "new-")
		f.total = 300
	})
	submit(t, p, api.Query{Mode: api.ModeSQL, Text: "SELECT * FROM box_scores"})

	close(hold)
	p.Wait()

	v := p.View()
	assert.Equal(t, 100, v.Buffered, "rows from the old query must not be appended")
	assert.Equal(t, "new-0", v.Rows[0]["id"])
	assert.False(t, v.Prefetching)
	assert.Equal(t, uint64(2), v.Generation)
}

func TestSubmitFailure_KeepsPreviousResults(t *testing.T) {
	f := newFake(250, 250, 100)
	p := newTestPager(t, f)
	submit(t, p, askQuery)
	advanceTo(t, p, 2, true)

	f.set(func(f *fakeFetcher) { f.execErr = &api.APIError{StatusCode: 502} })
	err := p.Submit(context.Background(), api.Query{Mode: api.ModeSQL, Text: "SELECT 1"})
	require.Error(t, err)

	v := p.View()
	assert.Equal(t, api.FetchFailedMessage, v.Error)
	assert.True(t, v.HasResults)
	assert.Equal(t, 100, v.Buffered)
	assert.Equal(t, 2, v.Page)
	assert.Equal(t, askQuery, v.Query)

	f.set(func(f *fakeFetcher) { f.execErr = errBackend })
	require.Error(t, p.Submit(context.Background(), askQuery))
	assert.Equal(t, errBackend.Error(), p.View().Error)

	f.set(func(f *fakeFetcher) { f.execErr = nil })
	submit(t, p, askQuery)
	assert.Empty(t, p.View().Error)
}

func TestSubmit_BusyWhileLoading(t *testing.T) {
	f := newFake(10, 10, 10)
	hold := make(chan struct{})
	f.execHold = hold
	p := newTestPager(t, f)

	done := make(chan error, 1)
	go func() { done <- p.Submit(context.Background(), askQuery) }()

	require.Eventually(t, func() bool { return p.View().Loading }, time.Second, time.Millisecond)
	assert.ErrorIs(t, p.Submit(context.Background(), askQuery), ErrBusy)

	close(hold)
	require.NoError(t, <-done)
	assert.False(t, p.View().Loading)
}

func TestPrefetchFailure_FailsOpen(t *testing.T) {
	f := newFake(250, 250, 100)
	f.boxErr = errBackend
	p := newTestPager(t, f)
	submit(t, p, askQuery)

	advanceTo(t, p, 8, true)
	v := p.View()
	assert.False(t, v.Prefetching)
	assert.Empty(t, v.Error, "a failed read-ahead is not shown to the user")
	assert.Equal(t, 100, v.Buffered)
	assert.Equal(t, 1, f.boxCallCount(), "no automatic retry")

	f.set(func(f *fakeFetcher) { f.boxErr = nil })
	advanceTo(t, p, 9, true)
	assert.Equal(t, 2, f.boxCallCount())
	assert.Equal(t, 200, p.View().Buffered)
}

func TestJumpToPage(t *testing.T) {
	f := newFake(250, 250, 100)
	p := newTestPager(t, f)

	assert.False(t, p.JumpToPage(1), "no results yet")
	submit(t, p, askQuery)

	for _, in := range []string{"abc", "", "0", "-1", "26", "2.5"} {
		assert.False(t, p.JumpToPageInput(in), "input %q", in)
		assert.Equal(t, 0, p.View().Page)
	}

	require.True(t, p.JumpToPageInput(" 5 "))
	assert.Equal(t, 4, p.View().Page)
	p.Wait()
	assert.Equal(t, 0, f.boxCallCount())
}

func TestJumpPastBufferedEdge_Converges(t *testing.T) {
	f := newFake(250, 250, 100)
	p := newTestPager(t, f)
	submit(t, p, askQuery)

	require.True(t, p.JumpToPage(25))
	p.Wait()

	v := p.View()
	assert.Equal(t, 250, v.Buffered)
	assert.False(t, v.AwaitingRows())
	assert.Equal(t, []string{"240", "241", "242", "243", "244", "245", "246", "247", "248", "249"}, ids(v.Rows))
	assert.Equal(t, 2, f.boxCallCount())
}

func TestAwaitingRows(t *testing.T) {
	f := newFake(250, 250, 100)
	hold := make(chan struct{})
	f.boxHold = hold
	p := newTestPager(t, f)
	submit(t, p, askQuery)

	require.True(t, p.JumpToPage(15))
	v := p.View()
	assert.Empty(t, v.Rows)
	assert.True(t, v.AwaitingRows())
	assert.Zero(t, v.First)

	close(hold)
	p.Wait()
	assert.Len(t, p.View().Rows, 10)
}

func TestBufferedNeverExceedsTotal(t *testing.T) {
	f := newFake(250, 150, 100)
	p := newTestPager(t, f)
	submit(t, p, askQuery)

	advanceTo(t, p, 8, true)
	v := p.View()
	assert.Equal(t, 150, v.Buffered)
	assert.Equal(t, 15, v.TotalPages)

	// Nothing left to fetch.
	advanceTo(t, p, 14, true)
	assert.Equal(t, 1, f.boxCallCount())
}

func TestEmptyServerPageStopsPrefetching(t *testing.T) {
	f := newFake(100, 300, 100)
	p := newTestPager(t, f)
	submit(t, p, askQuery)

	advanceTo(t, p, 9, true)
	assert.Equal(t, 1, f.boxCallCount())
	assert.Equal(t, 100, p.View().Buffered)
}

func TestUnextendableResultCountsBufferedRows(t *testing.T) {
	f := newFake(250, 250, 100)
	f.noEcho = true
	p := newTestPager(t, f)
	submit(t, p, askQuery)

	v := p.View()
	assert.Equal(t, 10, v.TotalPages, "rows the backend can never send are not paged")
	assert.Equal(t, 100, v.Total)
	assert.Equal(t, 100, v.Of)
	assert.False(t, v.Extendable)

	assert.False(t, p.JumpToPage(12))
	require.True(t, p.JumpToPage(10))
	p.Wait()
	v = p.View()
	assert.False(t, v.CanNext())
	assert.False(t, v.AwaitingRows())
	assert.Len(t, v.Rows, 10)
	assert.False(t, p.AdvancePage())
	assert.Equal(t, 0, f.boxCallCount())
}

func TestExhaustedResultClampsPages(t *testing.T) {
	f := newFake(100, 300, 100)
	p := newTestPager(t, f)
	submit(t, p, askQuery)
	assert.Equal(t, 30, p.TotalPages())

	// Jump well past the buffered rows; the read-ahead comes back empty.
	require.True(t, p.JumpToPage(21))
	p.Wait()

	v := p.View()
	assert.Equal(t, 1, f.boxCallCount())
	assert.Equal(t, 10, v.TotalPages)
	assert.Equal(t, 100, v.Total)
	assert.Equal(t, 9, v.Page, "the cursor moves onto the last real page")
	assert.False(t, v.AwaitingRows())
	assert.False(t, v.Prefetching)
	assert.Equal(t, []string{"90", "91", "92", "93", "94", "95", "96", "97", "98", "99"}, ids(v.Rows))
	assert.False(t, v.CanNext())
}

func TestOnChange_FiresOnPrefetchCompletion(t *testing.T) {
	f := newFake(250, 250, 100)
	var changes atomic.Int32
	p := New(Config{Fetcher: f, OnChange: func() { changes.Add(1) }})
	t.Cleanup(p.Close)

	submit(t, p, askQuery)
	advanceTo(t, p, 7, true)
	before := changes.Load()

	require.True(t, p.AdvancePage())
	p.Wait()
	// One change for the navigation, one for the appended rows.
	assert.Equal(t, before+2, changes.Load())
}

func TestSortBy_Scenario(t *testing.T) {
	f := newFake(0, 3, 100)
	f.rows = []api.Row{
		{"id": "a", "pts": json.Number("10")},
		{"id": "b", "pts": nil},
		{"id": "c", "pts": json.Number("20")},
	}
	p := newTestPager(t, f)
	submit(t, p, askQuery)

	p.SortBy("pts")
	assert.Equal(t, []string{"c", "a", "b"}, ids(p.View().Rows))
	assert.Equal(t, Descending, p.View().Sort.Direction)

	p.SortBy("pts")
	assert.Equal(t, []string{"a", "c", "b"}, ids(p.View().Rows), "nulls stay last ascending")

	p.SortBy("pts")
	assert.Equal(t, []string{"a", "b", "c"}, ids(p.View().Rows), "third click restores server order")
	assert.False(t, p.View().Sort.Active())
}

func TestSortBy_ResetsPageAndNeverFetches(t *testing.T) {
	f := newFake(250, 250, 100)
	p := newTestPager(t, f)
	submit(t, p, askQuery)
	advanceTo(t, p, 3, true)

	p.SortBy("pts")
	v := p.View()
	assert.Equal(t, 0, v.Page)
	assert.Equal(t, "99", v.Rows[0]["id"])

	p.SortBy("id")
	assert.Equal(t, SortState{Column: "id", Direction: Descending}, p.View().Sort, "a new column starts descending")

	p.Wait()
	assert.Equal(t, 0, f.boxCallCount())
}

func TestSort_SurvivesPrefetchAppend(t *testing.T) {
	f := newFake(200, 200, 100)
	p := newTestPager(t, f)
	submit(t, p, askQuery)

	p.SortBy("pts")
	assert.Equal(t, "99", p.View().Rows[0]["id"])

	advanceTo(t, p, 8, true)
	require.True(t, p.JumpToPage(1))

	v := p.View()
	assert.Equal(t, 200, v.Buffered)
	assert.True(t, v.Sort.Active())
	assert.Equal(t, "199", v.Rows[0]["id"], "appended rows are merged into the sort order")
}

func TestSubmit_UnderReportedTotal(t *testing.T) {
	f := newFake(100, 40, 100)
	p := newTestPager(t, f)
	submit(t, p, askQuery)

	v := p.View()
	assert.Equal(t, 100, v.Buffered)
	assert.Equal(t, 100, v.Total)
}

func TestClose_CancelsPrefetch(t *testing.T) {
	f := newFake(250, 250, 100)
	f.boxHold = make(chan struct{})
	p := New(Config{Fetcher: f})
	require.NoError(t, p.Submit(context.Background(), askQuery))
	advanceTo(t, p, 8, false)

	closed := make(chan struct{})
	go func() {
		p.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not cancel the running prefetch")
	}
}
