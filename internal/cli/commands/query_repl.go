package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/leapstats/internal/api"
	"github.com/leapstack-labs/leapstats/internal/pager"
	"github.com/spf13/cobra"
)

const replPrompt = "leapstats> "

func runQueryREPL(cmd *cobra.Command, cmdCtx *CommandContext, opts *QueryOptions) error {
	ctx := cmd.Context()

	p := cmdCtx.NewPager(nil)
	defer p.Close()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile(),
		AutoComplete:    newREPLCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	s := &replSession{
		pager:  p,
		mode:   opts.Mode(),
		format: opts.Format,
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
	}

	_, _ = fmt.Fprintf(s.out, "leapstats query REPL (backend: %s)\n", cmdCtx.Client.BaseURL)
	_, _ = fmt.Fprintln(s.out, "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(s.out)

	for {
		rl.SetPrompt(s.prompt())
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if s.handleLine(ctx, line) {
			break
		}
	}
	return nil
}

// historyFile returns the REPL history path, or "" to keep history in memory.
func historyFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	dir = filepath.Join(dir, "leapstats")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return ""
	}
	return filepath.Join(dir, "query_history")
}

// replSession is the state of one REPL: a pager plus the input mode.
type replSession struct {
	pager  *pager.Pager
	mode   api.Mode
	format string
	out    io.Writer
	errOut io.Writer
}

func (s *replSession) prompt() string {
	if s.mode == api.ModeAsk {
		return replPrompt
	}
	return "leapstats[" + string(s.mode) + "]> "
}

// handleLine runs one line of input and reports whether the REPL should exit.
func (s *replSession) handleLine(ctx context.Context, line string) (quit bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if strings.HasPrefix(line, ".") {
		return s.handleDotCommand(line)
	}

	q := api.Query{Mode: s.mode, Text: line}
	if s.mode == api.ModeFilter {
		params, err := api.ParseParamString(line)
		if err != nil {
			s.errorf("%v", err)
			return false
		}
		q = api.Query{Mode: api.ModeFilter, Params: params}
	}

	if err := s.pager.Submit(ctx, q); err != nil {
		if errors.Is(err, pager.ErrNoQuery) {
			s.errorf("query cannot be empty")
		} else {
			s.errorf("%s", api.UserMessage(err))
		}
		return false
	}
	s.render()
	return false
}

func (s *replSession) handleDotCommand(line string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(s.out)

	case ".next":
		if !s.pager.AdvancePage() {
			s.errorf("no next page")
			return false
		}
		s.render()

	case ".prev":
		if !s.pager.RetreatPage() {
			s.errorf("already on the first page")
			return false
		}
		s.render()

	case ".page":
		if len(parts) < 2 {
			s.errorf("usage: .page <n>")
			return false
		}
		if !s.pager.JumpToPageInput(parts[1]) {
			s.errorf("no page %s (1-%d)", parts[1], s.pager.TotalPages())
			return false
		}
		s.render()

	case ".sort":
		if len(parts) < 2 {
			s.errorf("usage: .sort <column>")
			return false
		}
		s.pager.SortBy(parts[1])
		s.render()

	case ".mode":
		if len(parts) < 2 {
			_, _ = fmt.Fprintf(s.out, "mode: %s\n", s.mode)
			return false
		}
		m, err := api.ParseMode(parts[1])
		if err != nil {
			s.errorf("%v", err)
			return false
		}
		s.mode = m
		_, _ = fmt.Fprintf(s.out, "mode: %s\n", s.mode)

	case ".format":
		if len(parts) < 2 {
			_, _ = fmt.Fprintf(s.out, "format: %s\n", s.format)
			return false
		}
		s.format = parts[1]

	case ".info":
		s.printInfo()

	case ".clear":
		_, _ = fmt.Fprint(s.out, "\033[H\033[2J")

	default:
		s.errorf("unknown command: %s (type .help for commands)", command)
	}
	return false
}

// render prints the current client page, waiting for the read-ahead when
// the page lies past the buffered rows.
func (s *replSession) render() {
	v := s.pager.View()
	if v.AwaitingRows() {
		s.pager.Wait()
		v = s.pager.View()
	}
	if v.Error != "" {
		s.errorf("%s", v.Error)
	}
	if !v.HasResults {
		return
	}
	if err := renderResults(s.out, viewResult(v), s.format); err != nil {
		s.errorf("%v", err)
	}
}

func (s *replSession) printInfo() {
	v := s.pager.View()
	if !v.HasResults {
		_, _ = fmt.Fprintf(s.out, "mode: %s\nno results yet\n", s.mode)
		return
	}
	sort := "none"
	if v.Sort.Active() {
		sort = v.Sort.Column + " " + v.Sort.Direction.String()
	}
	_, _ = fmt.Fprintf(s.out, "query:    %s\n", v.Query)
	_, _ = fmt.Fprintf(s.out, "page:     %d of %d (%d rows per page)\n", v.Page+1, v.TotalPages, v.PageSize)
	_, _ = fmt.Fprintf(s.out, "rows:     %d of %d loaded\n", v.Buffered, v.Total)
	_, _ = fmt.Fprintf(s.out, "sort:     %s\n", sort)
	_, _ = fmt.Fprintf(s.out, "limited:  %s\n", strconv.FormatBool(v.Explicit))
	if v.Prefetching {
		_, _ = fmt.Fprintln(s.out, "loading more rows in the background")
	}
}

func (s *replSession) errorf(format string, a ...any) {
	_, _ = fmt.Fprintf(s.errOut, "Error: "+format+"\n", a...)
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help                 Show this help message
  .next / .prev         Move to the next or previous page
  .page <n>             Jump to page n
  .sort <column>        Cycle sorting on a column (desc, asc, off)
  .mode ask|sql|filter  Change how input lines are sent
  .format <fmt>         Output format: table, json, csv, md
  .info                 Show the current query, page and buffer state
  .clear                Clear the screen
  .quit / .exit         Exit the REPL

Tips:
  - In filter mode type key=value pairs, e.g. pts=40, team=LAL
  - Further rows load in the background while you page
  - Use arrow keys to navigate history
`
	_, _ = fmt.Fprintln(w, help)
}

// newREPLCompleter completes dot-commands and sortable column names.
func newREPLCompleter() *readline.PrefixCompleter {
	cols := make([]readline.PrefixCompleterInterface, 0, len(api.DisplayColumns))
	for _, c := range api.DisplayColumns {
		cols = append(cols, readline.PcItem(c))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".next"),
		readline.PcItem(".prev"),
		readline.PcItem(".page"),
		readline.PcItem(".sort", cols...),
		readline.PcItem(".mode",
			readline.PcItem(string(api.ModeAsk)),
			readline.PcItem(string(api.ModeSQL)),
			readline.PcItem(string(api.ModeFilter)),
		),
		readline.PcItem(".format",
			readline.PcItem(FormatTable),
			readline.PcItem(FormatJSON),
			readline.PcItem(FormatCSV),
			readline.PcItem(FormatMarkdown),
		),
		readline.PcItem(".info"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
}
