package commands

import (
	"fmt"

	"github.com/leapstack-labs/leapstats/internal/api"
	"github.com/spf13/cobra"
)

// FilterOptions holds options for the filter command.
type FilterOptions struct {
	Where  []string
	Limit  int
	Offset int
	Format string
}

// Params builds the request parameters from the flags.
func (o *FilterOptions) Params(cmd *cobra.Command) (api.Params, error) {
	params, err := api.ParseParams(o.Where)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("limit") {
		if o.Limit < 0 {
			return nil, fmt.Errorf("--limit must not be negative")
		}
		params[api.ParamLimit] = o.Limit
	}
	if cmd.Flags().Changed("offset") {
		if o.Offset < 0 {
			return nil, fmt.Errorf("--offset must not be negative")
		}
		params[api.ParamOffset] = o.Offset
	}
	return params, nil
}

// NewFilterCommand creates the filter command.
func NewFilterCommand() *cobra.Command {
	opts := &FilterOptions{}

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Fetch box scores matching structured filters",
		Long: `Fetch box scores from the backend's filter endpoint.

Numeric stat fields are minimum thresholds (pts=30 means 30 or more points);
player, team, season, player_id and game_id match exactly.`,
		Example: `  # 40-point games by the Lakers
  leapstats filter --where pts=40 --where team=LAL

  # Second page of 25
  leapstats filter --where reb=20 --limit 25 --offset 25

  # As JSON
  leapstats filter --where ast=15 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			params, err := opts.Params(cmd)
			if err != nil {
				return err
			}

			cmdCtx.Logger.Debug("filtering box scores", "params", params.Encode())
			page, err := cmdCtx.Client.FilterBoxscores(cmd.Context(), params)
			if err != nil {
				return fmt.Errorf("filter failed: %w", err)
			}
			return renderResults(cmd.OutOrStdout(), pageResult(page), opts.Format)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Where, "where", "w", nil, "Filter as key=value (repeatable)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Rows per server page")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Rows to skip")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", FormatTable, "Output format: table, json, csv, md")

	_ = cmd.RegisterFlagCompletionFunc("where", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		fields := make([]string, 0, len(api.NumericFields)+len(api.IdentifierFields))
		for _, f := range append(append([]string{}, api.IdentifierFields...), api.NumericFields...) {
			fields = append(fields, f+"=")
		}
		return fields, cobra.ShellCompDirectiveNoSpace | cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}
