package output

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used for terminal output.
type Styles struct {
	Header  lipgloss.Style
	Bold    lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Muted   lipgloss.Style
	Key     lipgloss.Style
	Prompt  lipgloss.Style
}

// Palette colors, shared with the browse TUI.
var (
	ColorAccent  = lipgloss.AdaptiveColor{Light: "#1d4ed8", Dark: "#60a5fa"}
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#15803d", Dark: "#4ade80"}
	ColorError   = lipgloss.AdaptiveColor{Light: "#b91c1c", Dark: "#f87171"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#a16207", Dark: "#facc15"}
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#6b7280", Dark: "#9ca3af"}
)

// DefaultStyles returns the styles used on a color terminal.
func DefaultStyles() *Styles {
	return &Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(ColorAccent),
		Bold:    lipgloss.NewStyle().Bold(true),
		Success: lipgloss.NewStyle().Foreground(ColorSuccess),
		Error:   lipgloss.NewStyle().Foreground(ColorError),
		Warning: lipgloss.NewStyle().Foreground(ColorWarning),
		Info:    lipgloss.NewStyle().Foreground(ColorAccent),
		Muted:   lipgloss.NewStyle().Foreground(ColorMuted),
		Key:     lipgloss.NewStyle().Foreground(ColorMuted).Width(18),
		Prompt:  lipgloss.NewStyle().Bold(true).Foreground(ColorAccent),
	}
}

// PlainStyles returns styles that render text unchanged.
func PlainStyles() *Styles {
	plain := lipgloss.NewStyle()
	return &Styles{
		Header:  plain,
		Bold:    plain,
		Success: plain,
		Error:   plain,
		Warning: plain,
		Info:    plain,
		Muted:   plain,
		Key:     plain,
		Prompt:  plain,
	}
}
