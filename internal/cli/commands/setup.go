package commands

import (
	"log/slog"

	"github.com/leapstack-labs/leapstats/internal/api"
	"github.com/leapstack-labs/leapstats/internal/cli/config"
	"github.com/leapstack-labs/leapstats/internal/cli/output"
	"github.com/leapstack-labs/leapstats/internal/pager"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Client   *api.Client
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with a backend client and
// renderer built from the loaded configuration.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output))

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Client:   newClient(cfg, logger),
		Renderer: r,
	}
}

// NewPager creates a pager on the command's backend client.
func (c *CommandContext) NewPager(onChange func()) *pager.Pager {
	return pager.New(pager.Config{
		Fetcher:   c.Client,
		PageSize:  c.Cfg.Pager.PageSize,
		Lookahead: c.Cfg.Pager.Lookahead,
		Logger:    c.Logger,
		OnChange:  onChange,
	})
}

// getConfig returns the current configuration, or the defaults when the
// root command did not load one (tests invoking a command directly).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	cfg, err := config.LoadConfig("", nil)
	if err != nil {
		return &config.Config{
			Backend: config.BackendConfig{URL: api.DefaultBaseURL},
			Pager:   config.PagerConfig{PageSize: pager.DefaultPageSize, Lookahead: pager.DefaultLookahead},
			UI:      config.UIConfig{Port: config.DefaultPort, SessionTTL: config.DefaultSessionTTL},
			Output:  config.DefaultOutput,
		}
	}
	return cfg
}

func newClient(cfg *config.Config, logger *slog.Logger) *api.Client {
	return api.New(append(cfg.ClientOptions(), api.WithLogger(logger))...)
}
