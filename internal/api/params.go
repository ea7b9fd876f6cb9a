package api

import (
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// Pagination keys shared by every filter request.
const (
	ParamLimit  = "limit"
	ParamOffset = "offset"
)

// NumericFields are the stat thresholds the backend filters on.
var NumericFields = []string{
	"pts", "reb", "ast", "stl", "blk",
	"fgm", "fga", "fg_percent",
	"three_pm", "three_pa", "three_p_percent",
	"ftm", "fta", "ft_percent",
	"oreb", "dreb", "tov", "pf", "plus_minus", "fp", "min",
}

// IdentifierFields are the string-valued filters.
var IdentifierFields = []string{"season", "player", "team", "player_id", "game_id"}

// Params is a filter mapping of field name to scalar value. Nil values are
// treated as absent.
type Params map[string]any

// Clone returns a shallow copy.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Values returns the non-nil subset of p as URL values.
func (p Params) Values() url.Values {
	v := url.Values{}
	for key, val := range p {
		if val == nil {
			continue
		}
		v.Set(key, formatParam(val))
	}
	return v
}

// Encode returns the query string for p with keys in sorted order.
func (p Params) Encode() string {
	return p.Values().Encode()
}

// Int reads an integer param, reporting whether it was present and valid.
func (p Params) Int(key string) (int, bool) {
	switch v := p[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	default:
		return 0, false
	}
}

func formatParam(v any) string {
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

// ParseParam parses a "key=value" filter expression. Numeric fields and the
// pagination keys must hold numbers; identifier fields keep their text.
// Unknown keys are rejected.
func ParseParam(expr string) (string, any, error) {
	key, raw, ok := strings.Cut(expr, "=")
	key = strings.ToLower(strings.TrimSpace(key))
	raw = strings.TrimSpace(raw)
	if !ok || key == "" {
		return "", nil, fmt.Errorf("invalid filter %q (want key=value)", expr)
	}
	switch {
	case key == ParamLimit || key == ParamOffset:
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return "", nil, fmt.Errorf("%s must be a non-negative integer, got %q", key, raw)
		}
		return key, n, nil
	case slices.Contains(NumericFields, key):
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return "", nil, fmt.Errorf("%s must be numeric, got %q", key, raw)
		}
		return key, json.Number(strconv.FormatFloat(f, 'f', -1, 64)), nil
	case slices.Contains(IdentifierFields, key):
		return key, raw, nil
	default:
		return "", nil, fmt.Errorf("unknown filter field %q", key)
	}
}

// ParseParams parses a list of "key=value" expressions. Blank entries are
// skipped.
func ParseParams(exprs []string) (Params, error) {
	p := Params{}
	for _, e := range exprs {
		if strings.TrimSpace(e) == "" {
			continue
		}
		k, v, err := ParseParam(e)
		if err != nil {
			return nil, err
		}
		p[k] = v
	}
	return p, nil
}

// ParseParamString splits free text such as "pts=30, team=LAL" or
// "pts=30 team=LAL" into params. Pairs are separated by commas, semicolons,
// ampersands, newlines or spaces; a word without "=" continues the previous
// value, so "player=Stephen Curry" keeps its space.
func ParseParamString(s string) (Params, error) {
	return ParseParams(splitParamText(s))
}

func splitParamText(s string) []string {
	var out []string
	chunks := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' || r == '&' || r == '\n' })
	for _, chunk := range chunks {
		start := len(out)
		for _, word := range strings.Fields(chunk) {
			if len(out) > start {
				last := out[len(out)-1]
				if !strings.Contains(word, "=") || strings.HasPrefix(word, "=") ||
					!strings.Contains(last, "=") || strings.HasSuffix(last, "=") {
					out[len(out)-1] = last + " " + word
					continue
				}
			}
			out = append(out, word)
		}
	}
	return out
}

// Keys returns the non-nil keys of p in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k, v := range p {
		if v != nil {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
