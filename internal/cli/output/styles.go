package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Styles holds the lipgloss styles used for text output.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Name    lipgloss.Style
}

// newStyles builds styles for w. Without a terminal every style renders plain.
func newStyles(w io.Writer, isTTY bool) *Styles {
	var lr *lipgloss.Renderer
	if isTTY {
		lr = lipgloss.NewRenderer(w)
	} else {
		lr = lipgloss.NewRenderer(w, termenv.WithProfile(termenv.Ascii))
	}
	return &Styles{
		Header1: lr.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Header2: lr.NewStyle().Bold(true),
		Bold:    lr.NewStyle().Bold(true),
		Muted:   lr.NewStyle().Foreground(lipgloss.Color("8")),
		Success: lr.NewStyle().Foreground(lipgloss.Color("10")),
		Warning: lr.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   lr.NewStyle().Foreground(lipgloss.Color("9")),
		Name:    lr.NewStyle().Foreground(lipgloss.Color("14")),
	}
}
