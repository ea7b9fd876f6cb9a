package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/leapstack-labs/leapstats/internal/api"
	"github.com/leapstack-labs/leapstats/internal/cli/output"
	"github.com/leapstack-labs/leapstats/internal/pager"
	"github.com/spf13/cobra"
)

// BrowseOptions holds options for the browse command.
type BrowseOptions struct {
	SQL bool
}

// NewBrowseCommand creates the browse command.
func NewBrowseCommand() *cobra.Command {
	opts := &BrowseOptions{}

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse box scores in an interactive terminal UI",
		Long: `Open a full-screen terminal browser: type a question, SQL or filter,
page through the results and sort columns. Further rows are read ahead in the
background as you approach the end of what has been loaded.`,
		Example: `  leapstats browse
  leapstats browse --sql`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			mode := api.ModeAsk
			if opts.SQL {
				mode = api.ModeSQL
			}

			var link programLink
			p := cmdCtx.NewPager(link.pagerChanged)
			defer p.Close()

			m := newBrowseModel(cmd.Context(), p, mode)
			program := tea.NewProgram(m,
				tea.WithAltScreen(),
				tea.WithContext(cmd.Context()),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			)
			link.attach(program)
			_, err := program.Run()
			if errors.Is(err, tea.ErrProgramKilled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&opts.SQL, "sql", false, "Start in SQL mode")
	return cmd
}

// pagerChangedMsg is sent whenever the pager state changes, including when a
// background read-ahead lands.
type pagerChangedMsg struct{}

// programLink forwards pager changes to a running program. The pager hook
// also fires from inside Update when a key pages or sorts, and Send blocks
// until the event loop reads the message, so it is sent from a goroutine.
type programLink struct {
	program atomic.Pointer[tea.Program]
}

func (l *programLink) attach(p *tea.Program) { l.program.Store(p) }

func (l *programLink) pagerChanged() {
	if p := l.program.Load(); p != nil {
		go p.Send(pagerChangedMsg{})
	}
}

// submitDoneMsg carries the result of a foreground submit.
type submitDoneMsg struct{ err error }

type browseFocus int

const (
	focusInput browseFocus = iota
	focusTable
)

type browseKeyMap struct {
	Submit   key.Binding
	Focus    key.Binding
	Mode     key.Binding
	Next     key.Binding
	Prev     key.Binding
	First    key.Binding
	Last     key.Binding
	SortCol  key.Binding
	SortPrev key.Binding
	Sort     key.Binding
	Quit     key.Binding
}

func defaultBrowseKeys() browseKeyMap {
	return browseKeyMap{
		Submit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "search")),
		Focus:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "input/table")),
		Mode:     key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "mode")),
		Next:     key.NewBinding(key.WithKeys("right", "n"), key.WithHelp("→/n", "next page")),
		Prev:     key.NewBinding(key.WithKeys("left", "p"), key.WithHelp("←/p", "prev page")),
		First:    key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "first")),
		Last:     key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "last")),
		SortCol:  key.NewBinding(key.WithKeys("]"), key.WithHelp("[/]", "sort column")),
		SortPrev: key.NewBinding(key.WithKeys("[")),
		Sort:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k browseKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Focus, k.Mode, k.Next, k.Prev, k.SortCol, k.Sort, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k browseKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp(), {k.First, k.Last}}
}

type browseStyles struct {
	Title  lipgloss.Style
	Mode   lipgloss.Style
	Status lipgloss.Style
	Error  lipgloss.Style
	SortOn lipgloss.Style
}

func newBrowseStyles() browseStyles {
	return browseStyles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(output.ColorAccent).MarginBottom(1),
		Mode:   lipgloss.NewStyle().Bold(true).Foreground(output.ColorAccent),
		Status: lipgloss.NewStyle().Foreground(output.ColorMuted),
		Error:  lipgloss.NewStyle().Foreground(output.ColorError),
		SortOn: lipgloss.NewStyle().Foreground(output.ColorWarning),
	}
}

// browseModel is the bubbletea model of the browse command. All paging state
// lives in the pager; the model only mirrors its View.
type browseModel struct {
	ctx    context.Context
	pager  *pager.Pager
	mode   api.Mode
	focus  browseFocus
	input  textinput.Model
	table  table.Model
	spin   spinner.Model
	help   help.Model
	keys   browseKeyMap
	styles browseStyles

	view    pager.View
	sortCol int
	notice  string
	width   int
	height  int
}

func newBrowseModel(ctx context.Context, p *pager.Pager, mode api.Mode) browseModel {
	ti := textinput.New()
	ti.Placeholder = "who scored 50 in 2023?"
	ti.CharLimit = 1024
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	tbl := table.New(table.WithFocused(false), table.WithHeight(p.View().PageSize))
	ts := table.DefaultStyles()
	ts.Header = ts.Header.BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).Bold(true)
	tbl.SetStyles(ts)

	m := browseModel{
		ctx:    ctx,
		pager:  p,
		mode:   mode,
		input:  ti,
		table:  tbl,
		spin:   sp,
		help:   help.New(),
		keys:   defaultBrowseKeys(),
		styles: newBrowseStyles(),
	}
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m browseModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spin.Tick)
}

// Update implements tea.Model.
func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.input.Width = max(msg.Width-20, 20)
		return m, nil

	case pagerChangedMsg:
		m.refresh()
		return m, nil

	case submitDoneMsg:
		m.refresh()
		switch {
		case msg.err == nil:
			m.notice = ""
			m.setFocus(focusTable)
		case errors.Is(msg.err, pager.ErrNoQuery):
			m.notice = "Query cannot be empty"
		case errors.Is(msg.err, pager.ErrBusy):
			m.notice = "Still loading the previous query"
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m browseModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch {
	case key.Matches(msg, m.keys.Focus):
		if m.focus == focusInput {
			m.setFocus(focusTable)
		} else {
			m.setFocus(focusInput)
		}
		return m, nil

	case key.Matches(msg, m.keys.Mode):
		m.mode = nextMode(m.mode)
		m.input.Placeholder = placeholderFor(m.mode)
		return m, nil
	}

	if m.focus == focusInput {
		if key.Matches(msg, m.keys.Submit) {
			return m, m.submit()
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Next):
		m.pager.AdvancePage()
	case key.Matches(msg, m.keys.Prev):
		m.pager.RetreatPage()
	case key.Matches(msg, m.keys.First):
		m.pager.JumpToPage(1)
	case key.Matches(msg, m.keys.Last):
		m.pager.JumpToPage(m.pager.TotalPages())
	case key.Matches(msg, m.keys.SortCol):
		m.moveSortColumn(1)
	case key.Matches(msg, m.keys.SortPrev):
		m.moveSortColumn(-1)
	case key.Matches(msg, m.keys.Sort):
		if m.sortCol < len(m.view.Columns) {
			m.pager.SortBy(m.view.Columns[m.sortCol])
		}
	default:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	m.refresh()
	return m, nil
}

// submit builds the query from the input and runs it off the event loop.
func (m *browseModel) submit() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	q := api.Query{Mode: m.mode, Text: text}
	if m.mode == api.ModeFilter {
		params, err := api.ParseParamString(text)
		if err != nil {
			m.notice = err.Error()
			return nil
		}
		q = api.Query{Mode: api.ModeFilter, Params: params}
	}
	m.notice = ""
	p, ctx := m.pager, m.ctx
	return func() tea.Msg {
		return submitDoneMsg{err: p.Submit(ctx, q)}
	}
}

func (m *browseModel) setFocus(f browseFocus) {
	m.focus = f
	if f == focusInput {
		m.input.Focus()
		m.table.Blur()
		return
	}
	m.input.Blur()
	m.table.Focus()
}

func (m *browseModel) moveSortColumn(delta int) {
	n := len(m.view.Columns)
	if n == 0 {
		return
	}
	m.sortCol = (m.sortCol + delta + n) % n
	m.applyColumns()
}

// refresh copies the pager state into the table.
func (m *browseModel) refresh() {
	m.view = m.pager.View()
	if m.sortCol >= len(m.view.Columns) {
		m.sortCol = 0
	}
	rows := make([]table.Row, len(m.view.Rows))
	for i, r := range m.view.Rows {
		row := make(table.Row, len(m.view.Columns))
		for j, col := range m.view.Columns {
			row[j] = api.FormatValue(col, r[col])
		}
		rows[i] = row
	}
	// Rows must never be wider than the columns while they are swapped.
	m.table.SetRows(nil)
	m.applyColumns()
	m.table.SetRows(rows)
}

func (m *browseModel) applyColumns() {
	cols := make([]table.Column, len(m.view.Columns))
	for i, col := range m.view.Columns {
		title := api.ColumnTitle(col)
		switch m.view.Sort.DirectionOf(col) {
		case pager.Descending:
			title += " ▼"
		case pager.Ascending:
			title += " ▲"
		}
		if i == m.sortCol && m.focus == focusTable {
			title = "[" + title + "]"
		}
		width := utf8.RuneCountInString(title)
		for _, r := range m.view.Rows {
			width = max(width, utf8.RuneCountInString(api.FormatValue(col, r[col])))
		}
		cols[i] = table.Column{Title: title, Width: min(width, 24)}
	}
	m.table.SetColumns(cols)
}

// View implements tea.Model.
func (m browseModel) View() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("leapstats"))
	b.WriteString("\n")
	b.WriteString(m.styles.Mode.Render(fmt.Sprintf("%-6s", m.mode)))
	b.WriteString(m.input.View())
	if m.view.Loading {
		b.WriteString(" " + m.spin.View())
	}
	b.WriteString("\n\n")

	switch {
	case m.view.Error != "":
		b.WriteString(m.styles.Error.Render(m.view.Error) + "\n")
	case m.notice != "":
		b.WriteString(m.styles.Error.Render(m.notice) + "\n")
	}

	switch {
	case m.view.Loading && !m.view.HasResults:
		b.WriteString(m.spin.View() + " Loading...\n")
	case !m.view.HasResults:
		b.WriteString(m.styles.Status.Render("Ask a question, type SQL (ctrl+t) or filters like pts=40, team=LAL") + "\n")
	case m.view.Of == 0:
		b.WriteString("No results found\n")
	default:
		b.WriteString(m.table.View() + "\n")
		b.WriteString(m.statusLine() + "\n")
	}

	b.WriteString("\n" + m.help.View(m.keys))
	return b.String()
}

func (m browseModel) statusLine() string {
	v := m.view
	parts := []string{fmt.Sprintf("Page %d of %d", v.Page+1, v.TotalPages)}
	if v.AwaitingRows() {
		parts = append(parts, "loading rows...")
	} else {
		parts = append(parts, fmt.Sprintf("rows %d-%d of %d", v.First, v.Last, v.Of))
	}
	parts = append(parts, fmt.Sprintf("%d of %d loaded", v.Buffered, v.Total))
	line := m.styles.Status.Render(strings.Join(parts, " · "))
	if v.Prefetching {
		line += " " + m.spin.View() + m.styles.Status.Render(" loading more")
	}
	if v.Sort.Active() {
		line += " " + m.styles.SortOn.Render("sorted by "+api.ColumnTitle(v.Sort.Column)+" "+v.Sort.Direction.String())
	}
	return line
}

func nextMode(m api.Mode) api.Mode {
	switch m {
	case api.ModeAsk:
		return api.ModeSQL
	case api.ModeSQL:
		return api.ModeFilter
	default:
		return api.ModeAsk
	}
}

func placeholderFor(m api.Mode) string {
	switch m {
	case api.ModeSQL:
		return "SELECT * FROM boxscores WHERE pts >= 50"
	case api.ModeFilter:
		return "pts=40, team=LAL"
	default:
		return "who scored 50 in 2023?"
	}
}
