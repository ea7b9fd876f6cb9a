// Package features provides shared test utilities for UI feature tests.
package features

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/leapstack-labs/leapstats/internal/api"
	"github.com/leapstack-labs/leapstats/internal/pager"
	"github.com/leapstack-labs/leapstats/internal/testutil"
	"github.com/leapstack-labs/leapstats/internal/ui/notifier"
	"github.com/leapstack-labs/leapstats/internal/ui/session"
)

// TestFixture holds all dependencies needed for UI handler tests.
type TestFixture struct {
	Backend      *testutil.Backend
	Client       *api.Client
	Registry     *session.Registry
	Notifier     *notifier.Notifier
	SessionStore *sessions.CookieStore

	t *testing.T
}

// SetupTestFixture starts a fake backend serving rows generated box scores
// and wires a session registry whose pagers talk to it.
func SetupTestFixture(t *testing.T, rows int, opts ...testutil.BackendOption) *TestFixture {
	t.Helper()

	logger := testutil.NewTestLogger(t)
	backend := testutil.NewBackend(t, rows, opts...)
	client := api.New(api.WithBaseURL(backend.URL()), api.WithLogger(logger))
	notify := notifier.New()
	store := NewTestSessionStore()

	registry := session.NewRegistry(store, func(id string) *pager.Pager {
		return pager.New(pager.Config{
			Fetcher:  client,
			Logger:   logger.With("session", id),
			OnChange: func() { notify.Notify(id) },
		})
	}, 0, logger)
	t.Cleanup(registry.Close)

	return &TestFixture{
		Backend:      backend,
		Client:       client,
		Registry:     registry,
		Notifier:     notify,
		SessionStore: store,
		t:            t,
	}
}

// Browser carries one session cookie across requests.
type Browser struct {
	fixture *TestFixture
	cookies []*http.Cookie
}

// NewBrowser returns a browser without a session.
func (f *TestFixture) NewBrowser() *Browser {
	return &Browser{fixture: f}
}

// Do serves req with h, sending and then updating the session cookie.
func (b *Browser) Do(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	if set := rec.Result().Cookies(); len(set) > 0 {
		b.cookies = set
	}
	return rec
}

// Session returns the id and pager of the browser's session, creating it
// when needed.
func (b *Browser) Session() (string, *pager.Pager) {
	t := b.fixture.t
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	id, p, err := b.fixture.Registry.Resolve(rec, req)
	require.NoError(t, err)
	if set := rec.Result().Cookies(); len(set) > 0 {
		b.cookies = set
	}
	return id, p
}

// SignalsRequest builds a Datastar action request carrying signals as its
// JSON body.
func SignalsRequest(t *testing.T, method, path string, signals any) *http.Request {
	t.Helper()
	var body bytes.Buffer
	if signals != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(signals))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// RequestWithPathParam wraps a request with chi URL params.
func RequestWithPathParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// NewTestSessionStore creates a session store for testing.
func NewTestSessionStore() *sessions.CookieStore {
	return sessions.NewCookieStore([]byte("test-secret-key-32-bytes-long!!"))
}

// PatchedElements returns the markup of every element patch in an SSE body,
// concatenated.
func PatchedElements(body string) string {
	var sb strings.Builder
	for line := range strings.SplitSeq(body, "\n") {
		if rest, ok := strings.CutPrefix(line, "data: elements "); ok {
			sb.WriteString(rest)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// ParseHTML parses an HTML fragment or document.
func ParseHTML(t *testing.T, markup string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(markup))
	require.NoError(t, err)
	return doc
}

// FindAll returns every element below n for which match holds.
func FindAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// ByTag matches elements by tag name.
func ByTag(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.Data == tag }
}

// Attr returns the value of an attribute and whether it is present.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// Text returns the concatenated text content of n.
func Text(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
