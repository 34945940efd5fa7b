package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Theme is the report colour palette.
type Theme struct {
	Primary lipgloss.Color
	Muted   lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
}

// DefaultTheme returns the default colour theme.
func DefaultTheme() Theme {
	return Theme{
		Primary: lipgloss.Color("#7C3AED"), // Purple
		Muted:   lipgloss.Color("#6C7086"), // Medium gray
		Success: lipgloss.Color("#A6E3A1"), // Green
		Warning: lipgloss.Color("#F9E2AF"), // Yellow
		Error:   lipgloss.Color("#F38BA8"), // Red
	}
}

// styles renders report text. Without colour every style is the identity.
type styles struct {
	colour bool

	title   lipgloss.Style
	section lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
}

// newStyles builds styles for w. Colour is used only when w is a terminal.
func newStyles(w io.Writer) styles {
	if !isTerminal(w) {
		return styles{}
	}

	r := lipgloss.NewRenderer(w)
	t := DefaultTheme()
	return styles{
		colour:  true,
		title:   r.NewStyle().Bold(true).Foreground(t.Primary),
		section: r.NewStyle().Bold(true).Foreground(t.Primary).MarginTop(1),
		muted:   r.NewStyle().Foreground(t.Muted),
		success: r.NewStyle().Foreground(t.Success),
		warning: r.NewStyle().Foreground(t.Warning),
		failure: r.NewStyle().Bold(true).Foreground(t.Error),
	}
}

func (s styles) render(style lipgloss.Style, text string) string {
	if !s.colour {
		return text
	}
	return style.Render(text)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
