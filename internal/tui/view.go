package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const freeMark = "·"

// View renders the week browser.
func (m Model) View() string {
	if m.timetable == nil {
		if m.err != nil {
			return m.styles.ErrorStyle.Render("Error: "+m.err.Error()) + "\n"
		}
		return "Loading...\n"
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderGrid())
	b.WriteString("\n\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderHeader() string {
	tt := m.timetable
	title := "Week"
	if len(tt.Dates) > 0 {
		title = "Week of " + tt.Dates[0].Format("Mon Jan 2, 2006")
	}
	title += fmt.Sprintf("  [%dh]", m.hours)
	if m.loading {
		title += "  loading..."
	}
	header := m.styles.TitleStyle.Render(title)
	if !tt.Authorized {
		header += "\n" + m.styles.WarningStyle.Render("Calendar access is not granted; every hour is shown as free.")
	}
	return header
}

func (m Model) renderGrid() string {
	tt := m.timetable
	width := m.colWidth()
	today := m.now().In(m.location())

	headers := []string{m.styles.TimeColumnStyle.Width(hourColWidth).Render("")}
	for _, d := range tt.Dates {
		style := m.styles.DayHeaderStyle
		if d.Year() == today.Year() && d.YearDay() == today.YearDay() {
			style = m.styles.TodayStyle
		}
		headers = append(headers, style.Width(width).Render(d.Format("Mon 02")))
	}
	rows := []string{lipgloss.JoinHorizontal(lipgloss.Top, headers...)}

	for hour := tt.PreferStart; hour < tt.PreferEnd; hour++ {
		line := []string{m.styles.TimeColumnStyle.Width(hourColWidth).Render(fmt.Sprintf("%02d:00", hour))}
		for day := range tt.Dates {
			line = append(line, m.renderCell(day, hour, width))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, line...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) renderCell(day, hour, width int) string {
	title, busy := "", false
	if c, ok := m.timetable.Cell(m.timetable.Dates[day], hour); ok {
		title, busy = c.Title, c.Occupied
	}

	text := freeMark
	style := m.styles.FreeStyle
	if busy {
		text = ansi.Truncate(title, width-1, "…")
		style = m.styles.BusyStyle
	}
	if m.selected(day, hour) {
		style = m.styles.SelectedStyle
		if busy {
			style = m.styles.ConflictStyle
		}
	}
	return style.Width(width).MaxWidth(width).Render(text)
}

func (m Model) renderFooter() string {
	var lines []string
	switch {
	case m.err != nil:
		lines = append(lines, m.styles.ErrorStyle.Render("Error: "+m.err.Error()))
	case m.statusMsg != "":
		lines = append(lines, m.styles.StatusStyle.Render(m.statusMsg))
	}
	if m.mode == ModePrompt {
		lines = append(lines, m.input.View())
		lines = append(lines, m.styles.HelpStyle.Render("enter book • esc cancel"))
	} else {
		lines = append(lines, m.styles.HelpStyle.Render(
			"←→↑↓ move • H/L week • t today • +/- hours • n next free • enter book • r reload • q quit"))
	}
	return strings.Join(lines, "\n")
}

// colWidth spreads the window width over the day columns.
func (m Model) colWidth() int {
	n := len(m.timetable.Dates)
	if m.width <= 0 || n == 0 {
		return defaultColWidth
	}
	return clamp((m.width-hourColWidth)/n, minColWidth, maxColWidth)
}

func (m Model) location() *time.Location {
	if len(m.timetable.Dates) > 0 {
		return m.timetable.Dates[0].Location()
	}
	return m.now().Location()
}
