// Package tui provides the interactive week browser for freeslot.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/javiermolinar/freeslot/internal/planner"
	"github.com/javiermolinar/freeslot/internal/tui/commands"
)

// Mode represents the current interaction mode.
type Mode int

const (
	ModeNormal Mode = iota
	ModePrompt      // typing the title of a booking
)

// Selection length bounds, in hours.
const (
	minHours = 1
	maxHours = 12
)

const statusTimeout = 3 * time.Second

// Position is a cursor position in the timetable.
type Position struct {
	Day  int // index into the timetable's dates
	Hour int // hour of day
}

// Model is the main TUI model.
type Model struct {
	// Dependencies
	planner *planner.Planner
	now     func() time.Time
	styles  *Styles

	// State
	offset    int // weeks from the current one
	timetable *planner.Timetable
	cursor    Position
	focus     time.Time // moves the cursor once the next week loads
	hours     int       // selection length
	mode      Mode
	loading   bool
	input     textinput.Model
	statusMsg string
	err       error

	width  int
	height int
}

// Option configures a Model.
type Option func(*Model)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Model) { m.now = now }
}

// New creates a Model over a planner.
func New(pl *planner.Planner, opts ...Option) Model {
	input := textinput.New()
	input.Prompt = "Book: "
	input.Placeholder = "title"
	input.CharLimit = 80

	m := Model{
		planner: pl,
		now:     time.Now,
		styles:  DefaultStyles(),
		hours:   minHours,
		loading: true,
		input:   input,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.focus = m.now()
	return m
}

// Init loads the current week.
func (m Model) Init() tea.Cmd {
	return commands.LoadWeek(m.planner, m.now(), m.offset)
}

// Run starts the week browser in the alternate screen.
func Run(pl *planner.Planner, opts ...Option) error {
	p := tea.NewProgram(New(pl, opts...), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// selectionStart is the start time of the cursor's cell.
func (m Model) selectionStart() (time.Time, bool) {
	if m.timetable == nil || len(m.timetable.Dates) == 0 {
		return time.Time{}, false
	}
	d := m.timetable.Dates[m.cursor.Day]
	return time.Date(d.Year(), d.Month(), d.Day(), m.cursor.Hour, 0, 0, 0, d.Location()), true
}

// selected reports whether hour of day index lies in the selection.
func (m Model) selected(day, hour int) bool {
	return day == m.cursor.Day && hour >= m.cursor.Hour && hour < m.cursor.Hour+m.hours
}

// applyFocus moves the cursor to the focus time if it lies in the loaded week.
func (m *Model) applyFocus() {
	tt := m.timetable
	m.cursor.Day = min(m.cursor.Day, max(len(tt.Dates)-1, 0))
	m.cursor.Hour = clamp(m.cursor.Hour, tt.PreferStart, tt.PreferEnd-1)
	if m.focus.IsZero() || len(tt.Dates) == 0 {
		return
	}
	defer func() { m.focus = time.Time{} }()

	f := m.focus.In(tt.Dates[0].Location())
	for i, d := range tt.Dates {
		if d.Year() == f.Year() && d.YearDay() == f.YearDay() {
			m.cursor.Day = i
			m.cursor.Hour = clamp(f.Hour(), tt.PreferStart, tt.PreferEnd-1)
			return
		}
	}
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return max(lo, min(v, hi))
}
