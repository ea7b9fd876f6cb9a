package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapstats/internal/api"
	"github.com/leapstack-labs/leapstats/internal/pager"
	"github.com/leapstack-labs/leapstats/internal/testutil"
)

type replHarness struct {
	*replSession
	out    *bytes.Buffer
	errOut *bytes.Buffer
}

func newREPL(t *testing.T, b *testutil.Backend) *replHarness {
	t.Helper()
	p := pager.New(pager.Config{
		Fetcher: api.New(api.WithBaseURL(b.URL())),
		Logger:  testutil.NewTestLogger(t),
	})
	t.Cleanup(p.Close)

	var out, errOut bytes.Buffer
	return &replHarness{
		replSession: &replSession{
			pager:  p,
			mode:   api.ModeAsk,
			format: FormatTable,
			out:    &out,
			errOut: &errOut,
		},
		out:    &out,
		errOut: &errOut,
	}
}

func (h *replHarness) run(line string) (string, string) {
	h.out.Reset()
	h.errOut.Reset()
	h.handleLine(context.Background(), line)
	return h.out.String(), h.errOut.String()
}

func TestREPL_QueryRendersFirstPage(t *testing.T) {
	b := testutil.NewBackend(t, 25)
	h := newREPL(t, b)

	out, errOut := h.run("best games")
	assert.Empty(t, errOut)
	assert.Contains(t, out, "Player 0")
	assert.Contains(t, out, "Player 9")
	assert.NotContains(t, out, "Player 10")
	assert.Contains(t, out, "(page 1 of 3, rows 1-10 of 25, 25 loaded)")
	assert.Equal(t, "best games", b.Requests()[0].Body)
}

func TestREPL_Paging(t *testing.T) {
	b := testutil.NewBackend(t, 25)
	h := newREPL(t, b)
	h.run("q")

	out, _ := h.run(".next")
	assert.Contains(t, out, "Player 10")
	assert.Contains(t, out, "page 2 of 3")

	out, _ = h.run(".page 3")
	assert.Contains(t, out, "Player 24")
	assert.Contains(t, out, "rows 21-25 of 25")

	_, errOut := h.run(".next")
	assert.Contains(t, errOut, "no next page")

	out, _ = h.run(".prev")
	assert.Contains(t, out, "page 2 of 3")

	_, errOut = h.run(".page 9")
	assert.Contains(t, errOut, "no page 9 (1-3)")

	_, errOut = h.run(".page")
	assert.Contains(t, errOut, "usage: .page <n>")
}

func TestREPL_NextWaitsForReadAhead(t *testing.T) {
	b := testutil.NewBackend(t, 250)
	h := newREPL(t, b)
	h.run("q")

	// Pages 1-10 are buffered; jumping to 10 starts the read-ahead and
	// page 11 needs it.
	h.run(".page 10")
	out, errOut := h.run(".next")
	assert.Empty(t, errOut)
	assert.Contains(t, out, "Player 100")
	assert.Contains(t, out, "page 11 of 25")
	assert.Equal(t, 1, b.CountPath("/api/boxscores"))
}

func TestREPL_Sort(t *testing.T) {
	b := testutil.NewBackend(t, 5)
	h := newREPL(t, b)
	h.run("q")

	out, _ := h.run(".sort pts")
	assert.Contains(t, out, "PTS ▼")
	out, _ = h.run(".sort pts")
	assert.Contains(t, out, "PTS ▲")
	lines := strings.Split(out, "\n")
	var first string
	for _, l := range lines {
		if strings.Contains(l, "Player ") {
			first = l
			break
		}
	}
	assert.Contains(t, first, "Player 4", "ascending points puts the last generated row first")

	_, errOut := h.run(".sort")
	assert.Contains(t, errOut, "usage: .sort <column>")
}

func TestREPL_ModeSwitch(t *testing.T) {
	b := testutil.NewBackend(t, 5)
	h := newREPL(t, b)

	out, _ := h.run(".mode sql")
	assert.Equal(t, "mode: sql\n", out)
	assert.Equal(t, "leapstats[sql]> ", h.prompt())
	h.run("SELECT 1")
	assert.Equal(t, 1, b.CountPath("/api/sql"))

	h.run(".mode filter")
	h.run("pts=3, team=LAL")
	reqs := b.Requests()
	last := reqs[len(reqs)-1]
	assert.Equal(t, "/api/boxscores", last.Path)
	assert.Equal(t, "pts=3&team=LAL", last.Query)

	_, errOut := h.run("bogus=1")
	assert.Contains(t, errOut, "unknown filter field")

	_, errOut = h.run(".mode nope")
	assert.Contains(t, errOut, "unknown query mode")
	assert.Equal(t, api.ModeFilter, h.mode)
}

func TestREPL_BackendFailureKeepsResults(t *testing.T) {
	b := testutil.NewBackend(t, 5)
	h := newREPL(t, b)
	h.run("first")

	b.FailNext("/api/query", 1)
	_, errOut := h.run("second")
	assert.Contains(t, errOut, "Error: "+api.FetchFailedMessage)

	out, _ := h.run(".info")
	assert.Contains(t, out, "query:    ask: first")
	assert.Contains(t, out, "rows:     5 of 5 loaded")
}

func TestREPL_Info(t *testing.T) {
	b := testutil.NewBackend(t, 5)
	h := newREPL(t, b)

	out, _ := h.run(".info")
	assert.Contains(t, out, "no results yet")

	h.run("q")
	h.run(".sort reb")
	out, _ = h.run(".info")
	assert.Contains(t, out, "page:     1 of 1 (10 rows per page)")
	assert.Contains(t, out, "sort:     reb desc")
	assert.Contains(t, out, "limited:  false")
}

func TestREPL_FormatAndQuit(t *testing.T) {
	b := testutil.NewBackend(t, 2)
	h := newREPL(t, b)

	h.run(".format json")
	out, _ := h.run("q")
	assert.True(t, strings.HasPrefix(out, "["), "json output expected, got %q", out)

	assert.True(t, h.handleLine(context.Background(), ".quit"))
	assert.True(t, h.handleLine(context.Background(), ".exit"))
	assert.False(t, h.handleLine(context.Background(), "   "))

	_, errOut := h.run(".wat")
	assert.Contains(t, errOut, "unknown command: .wat")
}

func TestREPL_Help(t *testing.T) {
	var buf bytes.Buffer
	printREPLHelp(&buf)
	for _, c := range []string{".next", ".prev", ".page", ".sort", ".mode", ".info", ".quit"} {
		assert.Contains(t, buf.String(), c)
	}
}

func TestREPLCompleter(t *testing.T) {
	c := newREPLCompleter()
	require.NotNil(t, c)
	var names []string
	for _, child := range c.GetChildren() {
		names = append(names, strings.TrimSpace(string(child.GetName())))
	}
	assert.Contains(t, names, ".sort")
	assert.Contains(t, names, ".mode")
}
