package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
)

// Request records one call received by a Backend.
type Request struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// Backend is a fake box score API. It serves Rows with limit/offset paging on
// the GET endpoints and answers the POST endpoints with the first page.
type Backend struct {
	Server *httptest.Server

	// Rows is the full result set. Total defaults to len(Rows).
	// These fields are fixed once the server starts; set them with options.
	Rows          []map[string]any
	Total         int
	PageLimit     int
	ExplicitLimit bool
	EchoParams    bool

	mu       sync.Mutex
	requests []Request
	fail     map[string]int
	gate     map[string]chan struct{}
}

// BackendOption adjusts a Backend before it starts serving.
type BackendOption func(*Backend)

// WithTotal overrides the reported total.
func WithTotal(n int) BackendOption { return func(b *Backend) { b.Total = n } }

// WithPageLimit sets the default server page size.
func WithPageLimit(n int) BackendOption { return func(b *Backend) { b.PageLimit = n } }

// WithExplicitLimit marks every response as explicitly limited.
func WithExplicitLimit() BackendOption { return func(b *Backend) { b.ExplicitLimit = true } }

// WithoutParamsEcho omits query_params from responses.
func WithoutParamsEcho() BackendOption { return func(b *Backend) { b.EchoParams = false } }

// WithRows replaces the generated rows.
func WithRows(rows []map[string]any) BackendOption { return func(b *Backend) { b.Rows = rows } }

// NewBackend starts a fake backend serving n generated box score rows.
// The server is closed on test cleanup.
func NewBackend(t testing.TB, n int, opts ...BackendOption) *Backend {
	t.Helper()
	b := &Backend{
		Rows:       GenerateRows(n),
		PageLimit:  100,
		EchoParams: true,
		fail:       map[string]int{},
		gate:       map[string]chan struct{}{},
	}
	for _, o := range opts {
		o(b)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sql", b.handleText)
	mux.HandleFunc("POST /api/query", b.handleText)
	mux.HandleFunc("GET /api/boxscores", b.handleFilter)
	mux.HandleFunc("GET /api/boxscores/filter", b.handleFilter)
	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the base URL of the fake.
func (b *Backend) URL() string { return b.Server.URL }

// GenerateRows builds n box score rows with descending points.
func GenerateRows(n int) []map[string]any {
	rows := make([]map[string]any, n)
	for i := range rows {
		rows[i] = map[string]any{
			"game_id":    fmt.Sprintf("G%04d", i),
			"player_id":  strconv.Itoa(1000 + i),
			"player":     fmt.Sprintf("Player %d", i),
			"team":       "LAL",
			"game_date":  "2024-01-01",
			"match_up":   "LAL vs. BOS",
			"pts":        n - i,
			"reb":        i % 15,
			"fg_percent": 47.92,
		}
	}
	return rows
}

// FailNext makes the next count requests to path answer with status 500.
func (b *Backend) FailNext(path string, count int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fail[path] = count
}

// Hold blocks requests to path until the returned release func is called.
func (b *Backend) Hold(path string) (release func()) {
	ch := make(chan struct{})
	b.mu.Lock()
	b.gate[path] = ch
	b.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.gate, path)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Requests returns a copy of the requests seen so far.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// CountPath returns how many requests hit path.
func (b *Backend) CountPath(path string) int {
	n := 0
	for _, r := range b.Requests() {
		if r.Path == path {
			n++
		}
	}
	return n
}

func (b *Backend) enter(r *http.Request, body string) (fail bool) {
	b.mu.Lock()
	b.requests = append(b.requests, Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Body:   body,
	})
	gate := b.gate[r.URL.Path]
	if b.fail[r.URL.Path] > 0 {
		b.fail[r.URL.Path]--
		fail = true
	}
	b.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
		}
	}
	return fail
}

func (b *Backend) handleText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	if b.enter(r, req.Query) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
		return
	}
	b.writePage(w, 0, b.PageLimit, map[string]any{})
}

func (b *Backend) handleFilter(w http.ResponseWriter, r *http.Request) {
	if b.enter(r, "") {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
		return
	}
	q := r.URL.Query()
	limit := b.PageLimit
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		limit = v
	}
	offset, _ := strconv.Atoi(q.Get("offset"))
	params := map[string]any{}
	for k := range q {
		params[k] = q.Get(k)
	}
	b.writePage(w, offset, limit, params)
}

func (b *Backend) writePage(w http.ResponseWriter, offset, limit int, params map[string]any) {
	total := b.Total
	if total == 0 {
		total = len(b.Rows)
	}
	end := min(offset+limit, len(b.Rows))
	page := []map[string]any{}
	if offset < end {
		page = b.Rows[offset:end]
	}

	resp := map[string]any{
		"data":           page,
		"total":          total,
		"limit":          limit,
		"offset":         offset,
		"explicit_limit": b.ExplicitLimit,
	}
	if b.EchoParams {
		params["limit"] = limit
		params["offset"] = offset
		resp["query_params"] = params
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
