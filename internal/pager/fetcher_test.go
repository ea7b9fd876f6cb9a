package pager

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"

	"github.com/leapstack-labs/leapstats/internal/api"
)

// fakeFetcher serves rows in server pages of limit rows.
type fakeFetcher struct {
	mu       sync.Mutex
	rows     []api.Row
	total    int
	limit    int
	explicit bool
	noEcho   bool

	execErr error
	boxErr  error
	// ignoreCancel makes held Boxscores calls wait for release even when
	// their context is cancelled.
	ignoreCancel bool
	// execHold and boxHold, when set, block the call until closed.
	execHold chan struct{}
	boxHold  chan struct{}

	execCalls []api.Query
	boxCalls  []api.Params
}

func makeRows(n int) []api.Row {
	return makeRowsPrefixed(n, "")
}

// makeRowsPrefixed builds rows with ids prefix+i and pts equal to i.
func makeRowsPrefixed(n int, prefix string) []api.Row {
	rows := make([]api.Row, n)
	for i := range rows {
		rows[i] = api.Row{
			"id":  prefix + strconv.Itoa(i),
			"pts": json.Number(strconv.Itoa(i)),
		}
	}
	return rows
}

func newFake(n, total, limit int) *fakeFetcher {
	return &fakeFetcher{rows: makeRows(n), total: total, limit: limit}
}

func (f *fakeFetcher) page(offset, limit int, params api.Params) *api.ResultPage {
	end := min(offset+limit, len(f.rows))
	var data []api.Row
	if offset < end {
		data = append(data, f.rows[offset:end]...)
	}
	page := &api.ResultPage{
		Data:          data,
		Total:         f.total,
		Limit:         limit,
		Offset:        offset,
		ExplicitLimit: f.explicit,
	}
	if !f.noEcho {
		page.QueryParams = params
	}
	return page
}

func (f *fakeFetcher) Execute(ctx context.Context, q api.Query) (*api.ResultPage, error) {
	f.mu.Lock()
	f.execCalls = append(f.execCalls, q)
	hold, err := f.execHold, f.execErr
	f.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.page(0, f.limit, api.Params{"team": "LAL"}), nil
}

func (f *fakeFetcher) Boxscores(ctx context.Context, params api.Params) (*api.ResultPage, error) {
	f.mu.Lock()
	f.boxCalls = append(f.boxCalls, params.Clone())
	hold, err, ignoreCancel := f.boxHold, f.boxErr, f.ignoreCancel
	f.mu.Unlock()

	if hold != nil {
		if ignoreCancel {
			<-hold
		} else {
			select {
			case <-hold:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if err != nil {
		return nil, err
	}

	offset, _ := params.Int(api.ParamOffset)
	limit, _ := params.Int(api.ParamLimit)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.page(offset, limit, params), nil
}

func (f *fakeFetcher) boxCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.boxCalls)
}

func (f *fakeFetcher) lastBoxCall() api.Params {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.boxCalls) == 0 {
		return nil
	}
	return f.boxCalls[len(f.boxCalls)-1]
}

func (f *fakeFetcher) set(fn func(f *fakeFetcher)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

var errBackend = errors.New("dial tcp: connection refused")
