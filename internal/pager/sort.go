package pager

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/leapstats/internal/api"
)

// Direction is the order applied to a sorted column.
type Direction int

// Sort directions, in the order a column cycles through them.
const (
	Unsorted Direction = iota
	Descending
	Ascending
)

func (d Direction) String() string {
	switch d {
	case Descending:
		return "desc"
	case Ascending:
		return "asc"
	default:
		return "none"
	}
}

// SortState is the active client-side sort. The zero value is unsorted.
type SortState struct {
	Column    string
	Direction Direction
}

// Active reports whether a sort applies.
func (s SortState) Active() bool {
	return s.Column != "" && s.Direction != Unsorted
}

// DirectionOf returns the direction applied to col.
func (s SortState) DirectionOf(col string) Direction {
	if s.Column != col {
		return Unsorted
	}
	return s.Direction
}

// Next returns the state after col is selected: a new column starts
// descending, the same column goes descending -> ascending -> unsorted.
func (s SortState) Next(col string) SortState {
	if col != s.Column || s.Direction == Unsorted {
		return SortState{Column: col, Direction: Descending}
	}
	if s.Direction == Descending {
		return SortState{Column: col, Direction: Ascending}
	}
	return SortState{}
}

// SortRows returns a sorted copy of rows. Rows whose value is missing or null
// sort last in either direction; two numbers compare numerically; anything
// else compares as case-insensitive text. The sort is stable, so an unsorted
// state returns rows in their original order.
func SortRows(rows []api.Row, s SortState) []api.Row {
	out := slices.Clone(rows)
	if !s.Active() {
		return out
	}

	coll := collate.New(language.English, collate.IgnoreCase)
	slices.SortStableFunc(out, func(a, b api.Row) int {
		return compareValues(coll, a[s.Column], b[s.Column], s.Direction)
	})
	return out
}

func compareValues(coll *collate.Collator, a, b any, dir Direction) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}

	var c int
	fa, aNum := number(a)
	fb, bNum := number(b)
	if aNum && bNum {
		c = cmp.Compare(fa, fb)
	} else {
		c = coll.CompareString(text(a), text(b))
	}

	if dir == Descending {
		return -c
	}
	return c
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}

func text(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
