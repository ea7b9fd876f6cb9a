package commands

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clitest "github.com/leapstack-labs/leapstats/internal/cli/testutil"
	"github.com/leapstack-labs/leapstats/internal/testutil"
)

func TestFilter_UsesFilterEndpoint(t *testing.T) {
	b := testutil.NewBackend(t, 30)
	useBackend(t, b)

	res := clitest.Run(t, NewFilterCommand(), "--where", "pts=40", "-w", "team=LAL", "--limit", "5", "--offset", "10")
	require.NoError(t, res.Err)

	reqs := b.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/api/boxscores/filter", reqs[0].Path)
	assert.Equal(t, "limit=5&offset=10&pts=40&team=LAL", reqs[0].Query)

	assert.Contains(t, res.Out, "Player 10")
	assert.Contains(t, res.Out, "(11-15 of 30 rows)")
}

func TestFilter_NoFlagsSendsNoParams(t *testing.T) {
	b := testutil.NewBackend(t, 3)
	useBackend(t, b)

	res := clitest.Run(t, NewFilterCommand(), "--format", "json")
	require.NoError(t, res.Err)
	assert.Empty(t, b.Requests()[0].Query)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Out), &rows))
	assert.Len(t, rows, 3)
}

func TestFilter_InvalidInput(t *testing.T) {
	b := testutil.NewBackend(t, 3)
	useBackend(t, b)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown field", []string{"--where", "height=7"}, "unknown filter field"},
		{"non numeric stat", []string{"--where", "pts=lots"}, "pts must be numeric"},
		{"missing value", []string{"--where", "pts"}, "want key=value"},
		{"negative limit", []string{"--limit", "-1"}, "--limit must not be negative"},
		{"negative offset", []string{"--offset", "-3"}, "--offset must not be negative"},
		{"positional args", []string{"pts=3"}, "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := clitest.Run(t, NewFilterCommand(), tt.args...)
			require.Error(t, res.Err)
			assert.Contains(t, res.Err.Error(), tt.want)
		})
	}
	assert.Empty(t, b.Requests())
}

func TestFilter_EmptyResult(t *testing.T) {
	b := testutil.NewBackend(t, 3)
	useBackend(t, b)

	res := clitest.Run(t, NewFilterCommand(), "--offset", "50")
	require.NoError(t, res.Err)
	assert.Equal(t, "(0 rows)\n", res.Out)
}
