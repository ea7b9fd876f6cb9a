package pager

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFetchAhead_ShouldPrefetch(t *testing.T) {
	policy := FetchAhead{Margin: DefaultLookahead, PageSize: DefaultPageSize}

	tests := []struct {
		name  string
		state State
		want  bool
	}{
		{"far from the edge", State{Page: 0, Buffered: 100, Total: 250}, false},
		{"one page before the margin", State{Page: 7, Buffered: 100, Total: 250}, false},
		{"at the margin", State{Page: 8, Buffered: 100, Total: 250}, true},
		{"on the last buffered page", State{Page: 9, Buffered: 100, Total: 250}, true},
		{"past the buffered edge", State{Page: 20, Buffered: 100, Total: 250}, true},
		{"everything buffered", State{Page: 9, Buffered: 100, Total: 100}, false},
		{"already in flight", State{Page: 9, Buffered: 100, Total: 250, InFlight: true}, false},
		{"explicit limit", State{Page: 9, Buffered: 100, Total: 250, Explicit: true}, false},
		{"second server page", State{Page: 18, Buffered: 200, Total: 250}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.ShouldPrefetch(tt.state))
		})
	}
}

func TestFetchAhead_WiderMargin(t *testing.T) {
	policy := FetchAhead{Margin: 5, PageSize: 20}
	assert.False(t, policy.ShouldPrefetch(State{Page: 4, Buffered: 200, Total: 500}))
	assert.True(t, policy.ShouldPrefetch(State{Page: 5, Buffered: 200, Total: 500}))
}
