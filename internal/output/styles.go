package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette. These are the single source of truth; never use inline
// lipgloss.Color literals.
var (
	// ColorCyan is used for identifiable nouns: layer names, group ids, file names.
	ColorCyan = lipgloss.Color("14")

	// ColorGreen is used for the "done" group status and written editions.
	ColorGreen = lipgloss.Color("82")

	// ColorYellow is used for the "short" group status.
	ColorYellow = lipgloss.Color("220")

	// ColorBoldRed is used for the "failed" status (matches ERROR level).
	ColorBoldRed = lipgloss.Color("204")

	// ColorGreenCheck is used for the completion checkmark.
	ColorGreenCheck = lipgloss.Color("10")

	// ColorDimGray is used for borders and other structural chrome.
	ColorDimGray = lipgloss.Color("240")

	// ColorBlue is used for table headers.
	ColorBlue = lipgloss.Color("12")
)

// Semantic styles.
var (
	// StyleNoun styles identifiable nouns.
	StyleNoun = lipgloss.NewStyle().Foreground(ColorCyan)

	// StyleAction styles action verbs.
	StyleAction = lipgloss.NewStyle().Bold(true)

	// StyleDim styles structural chrome (scope prefixes, separators).
	StyleDim = lipgloss.NewStyle().Faint(true)

	// StyleSummary styles completion and summary lines.
	StyleSummary = lipgloss.NewStyle().Bold(true)
)

// Group and edition status constants.
const (
	StatusWritten   = "written"
	StatusDone      = "done"
	StatusShort     = "short"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// StatusStyle returns the lipgloss style for a status string.
// Unknown statuses return an unstyled default.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case StatusWritten, StatusDone:
		return lipgloss.NewStyle().Foreground(ColorGreen)
	case StatusShort:
		return lipgloss.NewStyle().Foreground(ColorYellow)
	case StatusCancelled:
		return lipgloss.NewStyle().Faint(true)
	case StatusFailed:
		return lipgloss.NewStyle().Bold(true).Foreground(ColorBoldRed)
	default:
		return lipgloss.NewStyle()
	}
}

// minEditionColumnWidth keeps status words aligned across edition lines.
const minEditionColumnWidth = 40

// FormatEditionLine renders an edition file name with a right-aligned,
// color-coded status suffix.
//
// Format: e:<file>  <status>
func FormatEditionLine(file, status string) string {
	padding := minEditionColumnWidth - len(file)
	if padding < 2 {
		padding = 2
	}

	return StyleDim.Render("e:") +
		StyleNoun.Render(file) +
		strings.Repeat(" ", padding) +
		StatusStyle(status).Render(status)
}

// FormatCheckmark renders a green checkmark with a message for stdout output.
func FormatCheckmark(msg string) string {
	check := lipgloss.NewStyle().Foreground(ColorGreenCheck).Render("✔")
	return check + " " + msg
}

// FormatSummary renders the final run summary line.
func FormatSummary(produced, requested, groups int) string {
	return StyleSummary.Render(fmt.Sprintf("%d/%d editions across %d group(s)", produced, requested, groups))
}
