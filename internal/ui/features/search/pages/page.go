// Package pages renders the full search page.
package pages

import (
	"encoding/json"

	"github.com/leapstack-labs/leapstats/internal/api"
	"github.com/leapstack-labs/leapstats/internal/pager"
)

// Signals is the initial client state of the page.
type Signals struct {
	Mode  string `json:"mode"`
	Query string `json:"query"`
	Jump  string `json:"jump"`
}

// InitialSignals seeds the form from the session's last query.
func InitialSignals(v pager.View) Signals {
	s := Signals{Mode: string(api.ModeAsk)}
	if v.Query.Mode != "" {
		s.Mode = string(v.Query.Mode)
	}
	if v.Query.Mode == api.ModeFilter {
		s.Query = v.Query.Params.Encode()
	} else {
		s.Query = v.Query.Text
	}
	return s
}

func signalsJSON(s Signals) string {
	b, _ := json.Marshal(s)
	return string(b)
}
