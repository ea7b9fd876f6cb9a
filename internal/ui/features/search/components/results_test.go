package components

import (
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapstats/internal/api"
	"github.com/leapstack-labs/leapstats/internal/pager"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var sb strings.Builder
	require.NoError(t, c.Render(context.Background(), &sb))
	return sb.String()
}

func resultView() pager.View {
	return pager.View{
		Columns:    []string{"player", "pts"},
		Rows:       []api.Row{{"player": "<script>alert(1)</script>", "pts": 31}},
		PageSize:   10,
		TotalPages: 3,
		Page:       1,
		Buffered:   20,
		Total:      30,
		First:      11,
		Last:       11,
		Of:         30,
		Extendable: true,
		HasResults: true,
		Sort:       pager.SortState{Column: "pts", Direction: pager.Descending},
	}
}

func TestResults_EscapesCells(t *testing.T) {
	out := render(t, Results(resultView()))

	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;alert(1)&lt;/script&gt;")
	assert.Contains(t, out, `<td class="num">31</td>`)
}

func TestResults_SortedHeader(t *testing.T) {
	out := render(t, Results(resultView()))

	assert.Contains(t, out, `aria-sort="descending"`)
	assert.Contains(t, out, "PTS ▼</th>")
	assert.Equal(t, 1, strings.Count(out, "aria-sort"), "only the sorted column carries aria-sort")
}

func TestResults_Pager(t *testing.T) {
	out := render(t, Results(resultView()))

	assert.Contains(t, out, "Showing 11-11 of 30 results")
	assert.Contains(t, out, `<span class="page">Page 2 of 3</span>`)
	assert.Contains(t, out, `<span class="status">20 of 30 rows loaded</span>`)
	assert.NotContains(t, out, "disabled", "both directions are open from a middle page")
	assert.Contains(t, out, `max="3"`)
}

func TestResults_States(t *testing.T) {
	tests := []struct {
		name string
		view pager.View
		want string
	}{
		{"idle", pager.View{}, "Ask about NBA stats, write SQL, or filter with key=value pairs."},
		{"no rows", pager.View{HasResults: true}, "No results found"},
		{"error", pager.View{Error: "backend <down>"}, `<div class="error" role="alert">backend &lt;down&gt;</div>`},
		{"awaiting", pager.View{HasResults: true, Extendable: true, Page: 3, PageSize: 10, Buffered: 20, Total: 50, TotalPages: 5}, "Loading rows..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, render(t, Results(tt.view)), tt.want)
		})
	}
}

func TestSearchForm_SelectsMode(t *testing.T) {
	out := render(t, SearchForm(api.ModeFilter))

	assert.Contains(t, out, `<option value="filter" selected>Filter</option>`)
	assert.Contains(t, out, `<option value="ask">Ask</option>`)
	assert.Contains(t, out, "@post(&#39;/actions/search&#39;)")
}
