package tui

import (
	"fmt"
	"math"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/javiermolinar/freeslot/internal/dateutil"
	applog "github.com/javiermolinar/freeslot/internal/log"
	"github.com/javiermolinar/freeslot/internal/tui/commands"
)

// Update handles messages and returns the updated model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case commands.WeekLoadedMsg:
		m.loading = false
		m.err = nil
		m.offset = msg.Offset
		m.timetable = msg.Timetable
		m.applyFocus()
		return m, nil

	case commands.BookedMsg:
		b := msg.Booking
		if !b.Booked {
			m.statusMsg = fmt.Sprintf("Taken by %s at %s", b.Verdict.BlockedBy, b.Verdict.BlockedAt.Format("Mon 15:04"))
			return m, commands.ClearStatusAfter(statusTimeout)
		}
		ev := b.Event
		m.statusMsg = fmt.Sprintf("Booked %s %s %s-%s", ev.Title, ev.Start.Format("Mon Jan 2"),
			ev.Start.Format("15:04"), ev.End.Format("15:04"))
		if n := len(b.Replaced); n > 0 {
			m.statusMsg += fmt.Sprintf(" (replaced %d)", n)
		}
		m.loading = true
		return m, tea.Batch(
			commands.LoadWeek(m.planner, m.now(), m.offset),
			commands.ClearStatusAfter(statusTimeout),
		)

	case commands.SuggestedMsg:
		if len(msg.Cells) == 0 {
			m.statusMsg = fmt.Sprintf("No free %dh slot in range", msg.Hours)
			return m, commands.ClearStatusAfter(statusTimeout)
		}
		start := msg.Cells[0].Start()
		m.focus = start
		if offset := weekOffset(m.now(), start); offset != m.offset {
			m.loading = true
			return m, commands.LoadWeek(m.planner, m.now(), offset)
		}
		m.applyFocus()
		return m, nil

	case commands.ErrMsg:
		applog.Error("tui command failed", msg.Err)
		m.loading = false
		m.err = msg.Err
		return m, nil

	case commands.ClearStatusMsg:
		m.statusMsg = ""
		return m, nil
	}

	if m.mode == ModePrompt {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// weekOffset returns how many weeks t lies after the week of now.
func weekOffset(now, t time.Time) int {
	a, _ := dateutil.WeekRange(now)
	b, _ := dateutil.WeekRange(t.In(now.Location()))
	days := int(math.Round(b.Sub(a).Hours() / 24))
	return days / 7
}
