package report

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Markdown renders an analysis reply for the terminal. styled selects the dark
// ANSI theme; otherwise the plain notty theme is used. The input is returned
// trimmed when rendering fails.
func Markdown(body string, width int, styled bool) string {
	style := "notty"
	if styled {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return strings.TrimSpace(body)
	}
	out, err := r.Render(body)
	if err != nil {
		return strings.TrimSpace(body)
	}
	return strings.Trim(out, "\n")
}
