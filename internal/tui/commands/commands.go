// Package commands provides TUI command constructors and message types.
package commands

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/javiermolinar/freeslot/internal/availability"
	"github.com/javiermolinar/freeslot/internal/planner"
)

// WeekLoadedMsg is sent when a week's timetable is loaded.
type WeekLoadedMsg struct {
	Offset    int
	Timetable *planner.Timetable
}

// BookedMsg is sent when a booking attempt finishes. Booking.Booked is
// false when the slot turned out to be taken.
type BookedMsg struct {
	Booking *planner.Booking
}

// SuggestedMsg carries the next free start, if any.
type SuggestedMsg struct {
	Hours int
	Cells []availability.Cell
}

// ErrMsg is sent when an error occurs.
type ErrMsg struct {
	Err error
}

// ClearStatusMsg is sent to clear the status message.
type ClearStatusMsg struct{}

// LoadWeek builds the timetable of the week containing base shifted by
// offset weeks.
func LoadWeek(pl *planner.Planner, base time.Time, offset int) tea.Cmd {
	return func() tea.Msg {
		tt, err := pl.Week(context.Background(), base, offset)
		if err != nil {
			return ErrMsg{Err: err}
		}
		return WeekLoadedMsg{Offset: offset, Timetable: tt}
	}
}

// Book books title at start for the given whole hours.
func Book(pl *planner.Planner, title string, start time.Time, hours int) tea.Cmd {
	return func() tea.Msg {
		b, err := pl.Book(context.Background(), planner.BookRequest{
			Title:    title,
			Start:    start,
			Duration: time.Duration(hours) * time.Hour,
		})
		if err != nil {
			return ErrMsg{Err: err}
		}
		return BookedMsg{Booking: b}
	}
}

// NextFree finds the first start from from on at which hours fit.
func NextFree(pl *planner.Planner, from time.Time, hours int) tea.Cmd {
	return func() tea.Msg {
		cells, err := pl.Suggest(context.Background(), planner.SuggestRequest{
			From:     from,
			Duration: time.Duration(hours) * time.Hour,
			Limit:    1,
		})
		if err != nil {
			return ErrMsg{Err: err}
		}
		return SuggestedMsg{Hours: hours, Cells: cells}
	}
}

// ClearStatusAfter clears the status line after d.
func ClearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}
