package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/leapstack-labs/leapstats/internal/api"
	"github.com/leapstack-labs/leapstats/internal/pager"
)

// Output formats of the query and filter commands.
const (
	FormatTable    = "table"
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "md"
)

// resultSet is what the renderers print: rows in column order plus an
// optional footer line.
type resultSet struct {
	Columns []string
	Titles  []string
	Rows    []api.Row
	Footer  string
}

// pageResult prepares a backend page for printing.
func pageResult(page *api.ResultPage) resultSet {
	cols := api.Columns(page.Data)
	rs := resultSet{Columns: cols, Titles: titles(cols, pager.SortState{}), Rows: page.Data}
	switch {
	case len(page.Data) == 0:
		rs.Footer = "(0 rows)"
	case page.Total > len(page.Data):
		rs.Footer = fmt.Sprintf("(%d-%d of %d rows)", page.Offset+1, page.Offset+len(page.Data), page.Total)
	default:
		rs.Footer = fmt.Sprintf("(%d rows)", len(page.Data))
	}
	return rs
}

// viewResult prepares the current client page of a pager for printing.
func viewResult(v pager.View) resultSet {
	rs := resultSet{Columns: v.Columns, Titles: titles(v.Columns, v.Sort), Rows: v.Rows}
	switch {
	case v.AwaitingRows():
		rs.Footer = "(loading rows...)"
	case v.Of == 0:
		rs.Footer = "(0 rows)"
	default:
		rs.Footer = fmt.Sprintf("(page %d of %d, rows %d-%d of %d, %d loaded)",
			v.Page+1, v.TotalPages, v.First, v.Last, v.Of, v.Buffered)
	}
	return rs
}

func titles(cols []string, s pager.SortState) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = api.ColumnTitle(c)
		switch s.DirectionOf(c) {
		case pager.Descending:
			out[i] += " ▼"
		case pager.Ascending:
			out[i] += " ▲"
		}
	}
	return out
}

func renderResults(w io.Writer, rs resultSet, format string) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, rs)
	case FormatCSV:
		return renderCSV(w, rs)
	case FormatMarkdown, "markdown":
		return renderMarkdown(w, rs)
	default:
		return renderTable(w, rs)
	}
}

func renderTable(w io.Writer, rs resultSet) error {
	if len(rs.Rows) == 0 {
		_, _ = fmt.Fprintln(w, rs.Footer)
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	t.SetStyle(style)

	header := make(table.Row, len(rs.Titles))
	var configs []table.ColumnConfig
	for i, title := range rs.Titles {
		header[i] = title
		if isNumeric(rs.Columns[i]) {
			configs = append(configs, table.ColumnConfig{Number: i + 1, Align: text.AlignRight})
		}
	}
	t.AppendHeader(header)
	t.SetColumnConfigs(configs)

	for _, r := range rs.Rows {
		row := make(table.Row, len(rs.Columns))
		for i, col := range rs.Columns {
			row[i] = api.FormatValue(col, r[col])
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintln(w, rs.Footer)
	return nil
}

func renderJSON(w io.Writer, rs resultSet) error {
	rows := rs.Rows
	if rows == nil {
		rows = []api.Row{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func renderCSV(w io.Writer, rs resultSet) error {
	_, _ = fmt.Fprintln(w, strings.Join(rs.Columns, ","))

	for _, r := range rs.Rows {
		values := make([]string, len(rs.Columns))
		for i, col := range rs.Columns {
			values[i] = escapeCSV(csvValue(r[col]))
		}
		_, _ = fmt.Fprintln(w, strings.Join(values, ","))
	}
	return nil
}

func renderMarkdown(w io.Writer, rs resultSet) error {
	if len(rs.Rows) == 0 {
		_, _ = fmt.Fprintln(w, rs.Footer)
		return nil
	}

	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(rs.Titles, " | "))
	seps := make([]string, len(rs.Columns))
	for i, col := range rs.Columns {
		seps[i] = "---"
		if isNumeric(col) {
			seps[i] = "---:"
		}
	}
	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(seps, " | "))

	for _, r := range rs.Rows {
		values := make([]string, len(rs.Columns))
		for i, col := range rs.Columns {
			values[i] = strings.ReplaceAll(api.FormatValue(col, r[col]), "|", `\|`)
		}
		_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(values, " | "))
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, rs.Footer)
	return nil
}

// csvValue keeps raw values; nulls are empty cells.
func csvValue(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

func isNumeric(col string) bool {
	return slices.Contains(api.NumericFields, col)
}
