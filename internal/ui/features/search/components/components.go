// Package components renders the box score search view.
package components

import (
	"net/url"
	"slices"
	"strconv"

	"github.com/leapstack-labs/leapstats/internal/api"
	"github.com/leapstack-labs/leapstats/internal/pager"
)

// ResultsID is the element id patched on every pager change.
const ResultsID = "results"

// Action endpoints posted by the view.
const (
	ActionSearch = "/actions/search"
	ActionNext   = "/actions/page/next"
	ActionPrev   = "/actions/page/prev"
	ActionJump   = "/actions/page/jump"
	ActionSort   = "/actions/sort/"
)

var modeLabels = []struct {
	mode  api.Mode
	label string
}{
	{api.ModeAsk, "Ask"},
	{api.ModeSQL, "SQL"},
	{api.ModeFilter, "Filter"},
}

func post(path string) string {
	return "@post('" + path + "')"
}

func sortAction(col string) string {
	return "@post(" + strconv.Quote(ActionSort+url.PathEscape(col)) + ")"
}

func ariaSort(d pager.Direction) string {
	switch d {
	case pager.Descending:
		return "descending"
	case pager.Ascending:
		return "ascending"
	}
	return ""
}

func sortMarker(d pager.Direction) string {
	switch d {
	case pager.Descending:
		return " ▼"
	case pager.Ascending:
		return " ▲"
	}
	return ""
}

func numeric(col string) bool {
	return slices.Contains(api.NumericFields, col)
}

func showing(v pager.View) string {
	return "Showing " + strconv.Itoa(v.First) + "-" + strconv.Itoa(v.Last) + " of " + strconv.Itoa(v.Of) + " results"
}

func pageLabel(v pager.View) string {
	return "Page " + strconv.Itoa(v.Page+1) + " of " + strconv.Itoa(v.TotalPages)
}

// partial reports whether the server holds rows not yet buffered.
func partial(v pager.View) bool {
	return !v.Explicit && v.Buffered < v.Total
}

func loadedLabel(v pager.View) string {
	return strconv.Itoa(v.Buffered) + " of " + strconv.Itoa(v.Total) + " rows loaded"
}
