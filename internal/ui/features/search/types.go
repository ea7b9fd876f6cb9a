// Package search provides the box score search page and its actions.
package search

// Signals represents the signals sent from the frontend.
type Signals struct {
	Mode  string `json:"mode"`
	Query string `json:"query"`
	Jump  string `json:"jump"`
}
