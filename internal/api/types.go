package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Mode selects which backend endpoint a query is sent to.
type Mode string

// Query modes.
const (
	ModeSQL    Mode = "sql"    // raw SQL, POST /api/sql
	ModeAsk    Mode = "ask"    // natural language, POST /api/query
	ModeFilter Mode = "filter" // structured filter, GET /api/boxscores
)

// ParseMode validates a mode name. The empty string means ModeAsk.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeAsk, nil
	case ModeSQL, ModeAsk, ModeFilter:
		return m, nil
	default:
		return "", fmt.Errorf("unknown query mode %q (want sql, ask or filter)", s)
	}
}

// Query is a user submission: free text for sql/ask modes, filter params for
// filter mode.
type Query struct {
	Mode   Mode
	Text   string
	Params Params
}

// IsZero reports whether the query carries nothing to send.
func (q Query) IsZero() bool {
	if q.Mode == ModeFilter {
		return len(q.Params) == 0
	}
	return strings.TrimSpace(q.Text) == ""
}

// String renders the query for logs and status lines.
func (q Query) String() string {
	if q.Mode == ModeFilter {
		return string(q.Mode) + ": " + q.Params.Encode()
	}
	return string(q.Mode) + ": " + q.Text
}

// Row is one record of a result page: column name to string, json.Number or
// nil. The schema is owned by the backend.
type Row map[string]any

// ResultPage is the response contract shared by every backend endpoint.
type ResultPage struct {
	Data          []Row  `json:"data"`
	Total         int    `json:"total"`
	Limit         int    `json:"limit"`
	Offset        int    `json:"offset"`
	QueryParams   Params `json:"query_params,omitempty"`
	ExplicitLimit bool   `json:"explicit_limit"`
}

// decodeResultPage decodes a response body keeping numbers as json.Number so
// ids and stats print exactly as the backend sent them.
func decodeResultPage(b []byte) (*ResultPage, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var page ResultPage
	if err := dec.Decode(&page); err != nil {
		return nil, err
	}
	return &page, nil
}

// queryRequest is the body of the two POST endpoints.
type queryRequest struct {
	Query string `json:"query"`
}
