package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/leapstack-labs/leapstats/internal/api"
	"github.com/leapstack-labs/leapstats/internal/cli/output"
	"github.com/spf13/cobra"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	SQL    bool
	Format string
	Input  string
}

// Mode returns the query mode selected by the flags.
func (o *QueryOptions) Mode() api.Mode {
	if o.SQL {
		return api.ModeSQL
	}
	return api.ModeAsk
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [TEXT]",
		Short: "Ask a question or run SQL against the box score backend",
		Long: `Send a natural-language question (default) or raw SQL (--sql) to the
backend and print the first page of results.

When invoked without arguments on a terminal, enters an interactive REPL that
pages through results with client-side read-ahead.`,
		Example: `  # Ask a question
  leapstats query "LeBron games with 40 points"

  # Raw SQL
  leapstats query --sql "SELECT * FROM boxscores WHERE pts > 50"

  # Output as CSV
  leapstats query "triple doubles in 2023" --format csv

  # SQL from a file or a pipe
  leapstats query --sql --input top.sql
  echo "SELECT 1" | leapstats query --sql

  # Interactive mode
  leapstats query`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.SQL, "sql", false, "Treat input as SQL instead of a question")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", FormatTable, "Output format: table, json, csv, md")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read the query from file")

	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{FormatTable, FormatJSON, FormatCSV, FormatMarkdown}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	cmdCtx := NewCommandContext(cmd)

	var text string
	switch {
	case len(args) > 0:
		text = strings.Join(args, " ")
	case opts.Input != "":
		content, err := os.ReadFile(opts.Input)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		text = string(content)
	case !output.IsTerminal(cmd.InOrStdin()):
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		text = string(content)
	default:
		return runQueryREPL(cmd, cmdCtx, opts)
	}

	q := api.Query{Mode: opts.Mode(), Text: strings.TrimSpace(text)}
	if q.IsZero() {
		return fmt.Errorf("query cannot be empty")
	}

	cmdCtx.Logger.Debug("running query", "query", q.String())
	page, err := cmdCtx.Client.Execute(cmd.Context(), q)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	return renderResults(cmd.OutOrStdout(), pageResult(page), opts.Format)
}
