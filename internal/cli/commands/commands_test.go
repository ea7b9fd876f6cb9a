package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewQueryCommand(t *testing.T) {
	cmd := NewQueryCommand()

	assert.Equal(t, "query [TEXT]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	for _, flag := range []string{"sql", "format", "input"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
	assert.Equal(t, FormatTable, cmd.Flags().Lookup("format").DefValue)
}

func TestNewFilterCommand(t *testing.T) {
	cmd := NewFilterCommand()

	assert.Equal(t, "filter", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")

	for _, flag := range []string{"where", "limit", "offset", "format"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
	assert.Equal(t, "w", cmd.Flags().Lookup("where").Shorthand)
}

func TestNewUICommand(t *testing.T) {
	cmd := NewUICommand()

	assert.Equal(t, "ui", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")

	// Note: --backend-url is a global persistent flag on root, not local to ui
	for _, flag := range []string{"port", "no-browser", "watch"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewBrowseCommand(t *testing.T) {
	cmd := NewBrowseCommand()

	assert.Equal(t, "browse", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotNil(t, cmd.Flags().Lookup("sql"))
}

func TestNewConfigCommand(t *testing.T) {
	cmd := NewConfigCommand()

	assert.Equal(t, "config", cmd.Use)
	show, _, err := cmd.Find([]string{"show"})
	assert.NoError(t, err)
	assert.Equal(t, "show", show.Use)
}

func TestGenerateSessionSecret(t *testing.T) {
	a, b := generateSessionSecret(), generateSessionSecret()
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}
