package tui

import (
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"

	"github.com/aretw0/callflow/pkg/domain"
)

// NewRenderer returns a function that renders markdown using glamour.
// Without a usable terminal style it returns the markdown unchanged.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // light/dark detection
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// Speaker prefixes a chat line with a coloured label for its role.
func Speaker(role domain.Role, text string) string {
	p := termenv.ColorProfile()
	var label termenv.Style
	switch role {
	case domain.RoleAssistant:
		label = termenv.String("assistant").Foreground(p.Color("#a78bfa")).Bold()
	case domain.RoleUser:
		label = termenv.String("you").Foreground(p.Color("#34d399")).Bold()
	default:
		label = termenv.String(string(role)).Foreground(p.Color("#9ca3af")).Faint()
	}
	return label.String() + "  " + text
}

// Faint renders secondary information such as routing notes.
func Faint(text string) string {
	return termenv.String(text).Faint().String()
}
