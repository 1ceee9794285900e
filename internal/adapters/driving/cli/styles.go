package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// palette holds the colours used in command output.
var palette = struct {
	Primary, Secondary, Muted, Success, Warning, Error, Border lipgloss.Color
}{
	Primary:   lipgloss.Color("#7C3AED"),
	Secondary: lipgloss.Color("#06B6D4"),
	Muted:     lipgloss.Color("#6C7086"),
	Success:   lipgloss.Color("#A6E3A1"),
	Warning:   lipgloss.Color("#F9E2AF"),
	Error:     lipgloss.Color("#F38BA8"),
	Border:    lipgloss.Color("#45475A"),
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(palette.Primary)
	labelStyle   = lipgloss.NewStyle().Foreground(palette.Secondary).Width(13)
	mutedStyle   = lipgloss.NewStyle().Foreground(palette.Muted)
	successStyle = lipgloss.NewStyle().Foreground(palette.Success)
	warningStyle = lipgloss.NewStyle().Foreground(palette.Warning)
	errorStyle   = lipgloss.NewStyle().Foreground(palette.Error)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(palette.Secondary).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

// line renders "label value" with an aligned label.
func line(label, format string, args ...any) string {
	return "  " + labelStyle.Render(label) + fmt.Sprintf(format, args...)
}

// newTable returns a bordered table with the given headers.
func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(palette.Border)).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

// maskSecret hides all but the edges of a secret.
func maskSecret(s string) string {
	if s == "" {
		return mutedStyle.Render("(not set)")
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// orNone renders empty values as a muted placeholder.
func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return mutedStyle.Render("(none)")
	}
	return s
}
