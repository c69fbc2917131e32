package tui

import "github.com/charmbracelet/lipgloss"

// Column widths, recalculated from the window size when known.
const (
	defaultColWidth = 12
	minColWidth     = 6
	maxColWidth     = 18
	hourColWidth    = 6
)

// Styles holds all lipgloss styles for the TUI.
type Styles struct {
	TitleStyle      lipgloss.Style
	DayHeaderStyle  lipgloss.Style
	TodayStyle      lipgloss.Style
	TimeColumnStyle lipgloss.Style

	FreeStyle     lipgloss.Style
	BusyStyle     lipgloss.Style
	SelectedStyle lipgloss.Style // selection over free hours
	ConflictStyle lipgloss.Style // selection over busy hours

	StatusStyle  lipgloss.Style
	WarningStyle lipgloss.Style
	ErrorStyle   lipgloss.Style
	HelpStyle    lipgloss.Style
}

// DefaultStyles returns the default palette.
func DefaultStyles() *Styles {
	var (
		accent  = lipgloss.Color("#7aa2f7")
		free    = lipgloss.Color("#9ece6a")
		busy    = lipgloss.Color("#f7768e")
		muted   = lipgloss.Color("#565f89")
		warning = lipgloss.Color("#e0af68")
		dark    = lipgloss.Color("#1a1b26")
	)

	return &Styles{
		TitleStyle:      lipgloss.NewStyle().Bold(true).Foreground(accent).MarginBottom(1),
		DayHeaderStyle:  lipgloss.NewStyle().Bold(true),
		TodayStyle:      lipgloss.NewStyle().Bold(true).Foreground(accent).Underline(true),
		TimeColumnStyle: lipgloss.NewStyle().Foreground(muted),

		FreeStyle:     lipgloss.NewStyle().Foreground(free),
		BusyStyle:     lipgloss.NewStyle().Foreground(busy),
		SelectedStyle: lipgloss.NewStyle().Background(free).Foreground(dark).Bold(true),
		ConflictStyle: lipgloss.NewStyle().Background(busy).Foreground(dark).Bold(true),

		StatusStyle:  lipgloss.NewStyle().Foreground(accent),
		WarningStyle: lipgloss.NewStyle().Foreground(warning).Bold(true),
		ErrorStyle:   lipgloss.NewStyle().Foreground(busy).Bold(true),
		HelpStyle:    lipgloss.NewStyle().Foreground(muted),
	}
}
