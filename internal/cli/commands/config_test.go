package commands

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	clitest "github.com/leapstack-labs/leapstats/internal/cli/testutil"
)

func TestConfigShow_YAML(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LEAPSTATS_BACKEND_URL", "http://stats:3000")
	t.Setenv("LEAPSTATS_UI_SESSION_SECRET", "hunter2")

	res := clitest.Run(t, NewConfigCommand(), "show")
	require.NoError(t, res.Err)

	assert.Contains(t, res.Out, "# no config file")
	assert.NotContains(t, res.Out, "hunter2")

	var shown struct {
		Backend struct {
			URL     string `yaml:"url"`
			Timeout string `yaml:"timeout"`
		} `yaml:"backend"`
		Pager struct {
			PageSize int `yaml:"page_size"`
		} `yaml:"pager"`
		UI struct {
			SessionTTL    string `yaml:"session_ttl"`
			SessionSecret string `yaml:"session_secret"`
		} `yaml:"ui"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(res.Out), &shown))
	assert.Equal(t, "http://stats:3000", shown.Backend.URL)
	assert.Equal(t, "0s", shown.Backend.Timeout)
	assert.Equal(t, 10, shown.Pager.PageSize)
	assert.Equal(t, "30m0s", shown.UI.SessionTTL)
	assert.Equal(t, "********", shown.UI.SessionSecret)
}

func TestConfigShow_JSON(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LEAPSTATS_OUTPUT", "json")

	res := clitest.Run(t, NewConfigCommand(), "show")
	require.NoError(t, res.Err)

	var shown map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Out), &shown))
	assert.Contains(t, shown, "backend")
	assert.Equal(t, "json", shown["output"])
}
