package commands

import (
	"github.com/leapstack-labs/leapstats/internal/cli/config"
	"github.com/leapstack-labs/leapstats/internal/cli/output"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(newConfigShowCommand())
	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Long: `Print the configuration after defaults, leapstats.yaml, LEAPSTATS_*
environment variables and flags have been applied. The session secret is
masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			r := cmdCtx.Renderer
			redacted := cmdCtx.Cfg.Redacted()

			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(redacted)
			}

			if file := config.GetConfigFileUsed(); file != "" {
				r.Muted("# from " + file)
			} else {
				r.Muted("# no config file, defaults and environment only")
			}
			enc := yaml.NewEncoder(r.Writer())
			enc.SetIndent(2)
			if err := enc.Encode(redacted); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
