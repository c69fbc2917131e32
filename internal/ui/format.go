package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"

	"github.com/javiermolinar/freeslot/internal/availability"
	"github.com/javiermolinar/freeslot/internal/dateutil"
	"github.com/javiermolinar/freeslot/internal/planner"
	"github.com/javiermolinar/freeslot/internal/summary"
)

const freeMark = "·"

// formatDuration renders d as "2h", "45m" or "1h30m".
func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh%02dm", h, m)
	}
}

// formatSpan renders a clock range such as "09:00-11:00".
func formatSpan(start, end time.Time) string {
	return start.Format("15:04") + "-" + end.Format("15:04")
}

// truncate shortens s to at most width terminal cells, marking the cut
// with "…". Wide runes count as two cells.
func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	return ansi.Truncate(s, width, "…")
}

// parseDay accepts YYYY-MM-DD or a relative date such as "tomorrow" or
// "next-friday". Absolute dates may lie in the past.
func parseDay(s string, now time.Time) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return dateutil.ParseRelativeDate(s, now)
	}
	if d, err := dateutil.ParseDate(s, now.Location()); err == nil {
		return d, nil
	}
	d, err := dateutil.ParseRelativeDate(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", err, s)
	}
	return d, nil
}

// parseStart combines a day and an HH:MM clock time.
func parseStart(day, at string, now time.Time) (time.Time, error) {
	d, err := parseDay(day, now)
	if err != nil {
		return time.Time{}, err
	}
	start, err := dateutil.ParseClock(d, at)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", err, at)
	}
	return start, nil
}

// parseOptionalDay returns nil for an empty string.
func parseOptionalDay(s string, now time.Time) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := parseDay(s, now)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// printAccessWarning explains why an unauthorized calendar looks free.
func printAccessWarning(w io.Writer, authorized bool) {
	if authorized {
		return
	}
	fmt.Fprintf(w, "%s calendar access is not granted; every hour is shown as free.\n\n",
		formatWarn("warning:"))
}

// printBlocks prints busy blocks grouped by day.
func printBlocks(w io.Writer, blocks []availability.Block) {
	if len(blocks) == 0 {
		fmt.Fprintln(w, "No busy hours in the specified date range.")
		return
	}

	var currentDate string
	for _, b := range blocks {
		date := b.Start.Format(time.DateOnly)
		if date != currentDate {
			if currentDate != "" {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "%s\n", formatHeader(b.Start.Format("Mon Jan 2, 2006")))
			currentDate = date
		}
		fmt.Fprintf(w, "  %02d:00-%02d:00  %s  %s\n",
			b.StartHour, b.EndHour,
			formatTitle(b.Title),
			formatMuted(formatSpan(b.Start, b.End)),
		)
	}
}

// printVerdict explains the outcome of a slot check.
func printVerdict(w io.Writer, v availability.Verdict) {
	span := fmt.Sprintf("%s %dh", v.Start.Format("Mon Jan 2 15:04"), v.Hours)
	if v.Available {
		fmt.Fprintf(w, "%s %s\n", formatFree("free:"), span)
		return
	}
	fmt.Fprintf(w, "%s %s (%s at %s)\n", formatBusy("taken:"), span,
		formatTitle(v.BlockedBy), v.BlockedAt.Format("15:04"))
}

// cellWidth splits the terminal width between the timetable's day columns.
func cellWidth(days int) int {
	if days <= 0 {
		return 0
	}
	w := (termWidth()-8)/days - 3
	return max(6, min(w, 16))
}

// renderTimetable draws the timetable as a table with one column per date
// and one row per hour of the preferred window.
func renderTimetable(t *planner.Timetable, width int) string {
	headers := make([]string, 0, len(t.Dates)+1)
	headers = append(headers, "")
	for _, d := range t.Dates {
		headers = append(headers, d.Format("Mon 02"))
	}

	rows := make([][]string, 0, t.PreferEnd-t.PreferStart)
	for hour := t.PreferStart; hour < t.PreferEnd; hour++ {
		row := make([]string, 0, len(t.Dates)+1)
		row = append(row, fmt.Sprintf("%02d:00", hour))
		for _, d := range t.Dates {
			c, _ := t.Cell(d, hour)
			if !c.Occupied {
				row = append(row, freeMark)
				continue
			}
			row = append(row, truncate(c.Title, width))
		}
		rows = append(rows, row)
	}

	hourStyle := lipgloss.NewStyle().Faint(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	freeStyle := cellStyle.Foreground(lipgloss.Color("2"))
	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return hourStyle
			case row >= 0 && row < len(rows) && rows[row][col] == freeMark:
				return freeStyle
			default:
				return cellStyle
			}
		})
	return tbl.Render()
}

// timetableText renders the timetable as tab-separated text for pasting.
func timetableText(t *planner.Timetable) string {
	var b strings.Builder
	b.WriteString("hour")
	for _, d := range t.Dates {
		b.WriteString("\t" + d.Format(time.DateOnly))
	}
	b.WriteString("\n")
	for hour := t.PreferStart; hour < t.PreferEnd; hour++ {
		fmt.Fprintf(&b, "%02d:00", hour)
		for _, d := range t.Dates {
			c, _ := t.Cell(d, hour)
			title := "free"
			if c.Occupied {
				title = c.Title
			}
			b.WriteString("\t" + title)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// printWeekStats prints the footer under a week's timetable.
func printWeekStats(w io.Writer, s *summary.WeekSummary) {
	st := s.Stats
	fmt.Fprintf(w, "  Busy: %s  Free: %s  Blocks: %d",
		formatBusy(fmt.Sprintf("%dh", st.BusyHours)),
		formatFree(fmt.Sprintf("%dh", st.FreeHours)),
		st.TotalBlocks,
	)
	if !st.BusiestDay.IsZero() {
		fmt.Fprintf(w, "  Busiest: %s", st.BusiestDay.Format("Monday"))
	}
	fmt.Fprintln(w)
	if st.Collisions > 0 {
		fmt.Fprintf(w, "  %s %d overlapping hours; the later event is shown\n",
			formatWarn("note:"), st.Collisions)
	}
}
