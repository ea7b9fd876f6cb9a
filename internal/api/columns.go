package api

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// DisplayColumns is the default results table layout.
var DisplayColumns = []string{
	"game_date", "player", "team", "match_up",
	"pts", "reb", "ast", "stl", "blk", "fg_percent", "three_p_percent",
}

// detailColumns follow the display columns in box score order.
var detailColumns = []string{
	"season", "w_l", "min", "fgm", "fga", "three_pm", "three_pa",
	"ftm", "fta", "ft_percent", "oreb", "dreb", "tov", "pf",
	"plus_minus", "fp", "player_id", "game_id", "team_id",
}

var percentColumns = map[string]bool{
	"fg_percent":      true,
	"three_p_percent": true,
	"ft_percent":      true,
}

var columnTitles = map[string]string{
	"game_date":       "Date",
	"player":          "Player",
	"team":            "Team",
	"match_up":        "Matchup",
	"fg_percent":      "FG%",
	"three_p_percent": "3P%",
	"ft_percent":      "FT%",
	"three_pm":        "3PM",
	"three_pa":        "3PA",
	"plus_minus":      "+/-",
	"w_l":             "W/L",
	"season":          "Season",
	"player_id":       "Player ID",
	"game_id":         "Game ID",
	"team_id":         "Team ID",
}

// Columns returns the columns present in rows: known box score columns first
// in their fixed order, then any other column alphabetically.
func Columns(rows []Row) []string {
	seen := map[string]bool{}
	for _, r := range rows {
		for k := range r {
			seen[k] = true
		}
	}

	cols := make([]string, 0, len(seen))
	for _, c := range DisplayColumns {
		if seen[c] {
			cols = append(cols, c)
		}
	}
	for _, c := range detailColumns {
		if seen[c] {
			cols = append(cols, c)
		}
	}
	var rest []string
	for c := range seen {
		if !slices.Contains(DisplayColumns, c) && !slices.Contains(detailColumns, c) {
			rest = append(rest, c)
		}
	}
	sort.Strings(rest)
	return append(cols, rest...)
}

// ColumnTitle returns the table header for a column.
func ColumnTitle(col string) string {
	if t, ok := columnTitles[col]; ok {
		return t
	}
	if slices.Contains(NumericFields, col) {
		return strings.ToUpper(col)
	}
	return col
}

// FormatValue renders one cell. Null is "-", percentages keep one decimal.
func FormatValue(col string, v any) string {
	if v == nil {
		return "-"
	}
	if percentColumns[col] {
		if f, ok := toFloat(v); ok {
			return strconv.FormatFloat(f, 'f', 1, 64)
		}
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case float64:
		return t, true
	case int:
		return float64(t), true
	default:
		return 0, false
	}
}
