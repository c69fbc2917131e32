// Package scheduler decides which days and hours are searched for free time.
package scheduler

import (
	"time"

	"github.com/javiermolinar/freeslot/internal/availability"
	"github.com/javiermolinar/freeslot/internal/dateutil"
)

// Scheduler combines the preferred hour window with the searchable weekdays.
type Scheduler struct {
	workdays    map[time.Weekday]bool
	preferStart int
	preferEnd   int
}

// New creates a Scheduler. An empty workdays list means every day.
// Returns availability.ErrInvalidRange for an invalid window.
func New(workdays []time.Weekday, preferStart, preferEnd int) (*Scheduler, error) {
	if err := availability.ValidateWindow(preferStart, preferEnd); err != nil {
		return nil, err
	}

	wd := make(map[time.Weekday]bool)
	for _, d := range workdays {
		wd[d] = true
	}
	if len(wd) == 0 {
		for d := time.Sunday; d <= time.Saturday; d++ {
			wd[d] = true
		}
	}
	return &Scheduler{
		workdays:    wd,
		preferStart: preferStart,
		preferEnd:   preferEnd,
	}, nil
}

// PreferStart returns the first hour of the preferred window.
func (s *Scheduler) PreferStart() int {
	return s.preferStart
}

// PreferEnd returns the exclusive end hour of the preferred window.
func (s *Scheduler) PreferEnd() int {
	return s.preferEnd
}

// IsWorkday returns true if the given time falls on a searchable weekday.
func (s *Scheduler) IsWorkday(t time.Time) bool {
	return s.workdays[t.Weekday()]
}

// IsWithinWindow returns true if t is on a workday inside the preferred window.
func (s *Scheduler) IsWithinWindow(t time.Time) bool {
	return s.IsWorkday(t) && t.Hour() >= s.preferStart && t.Hour() < s.preferEnd
}

// NextSearchStart returns the earliest hour worth searching from now.
// Before the window it is today's window start; inside the window it is
// the next top of the hour; after the window it is the next workday's
// window start.
func (s *Scheduler) NextSearchStart(now time.Time) time.Time {
	today := dateutil.TruncateToDay(now)

	if s.IsWorkday(now) {
		if now.Hour() < s.preferStart {
			return atHour(today, s.preferStart)
		}
		if next := roundUpToHour(now); next.Hour() < s.preferEnd && sameDay(next, now) {
			return next
		}
	}

	next := today.AddDate(0, 0, 1)
	for range 7 {
		if s.IsWorkday(next) {
			return atHour(next, s.preferStart)
		}
		next = next.AddDate(0, 0, 1)
	}
	return atHour(today.AddDate(0, 0, 1), s.preferStart)
}

// SearchDates returns every workday between from and to, inclusive, at midnight.
func (s *Scheduler) SearchDates(from, to time.Time) []time.Time {
	var dates []time.Time
	last := dateutil.TruncateToDay(to)
	for d := dateutil.TruncateToDay(from); !d.After(last); d = d.AddDate(0, 0, 1) {
		if s.IsWorkday(d) {
			dates = append(dates, d)
		}
	}
	return dates
}

// WeekDates returns the workdays of the Monday-based week containing base,
// shifted by offset weeks.
func (s *Scheduler) WeekDates(base time.Time, offset int) []time.Time {
	monday, sunday := dateutil.WeekRange(base)
	return s.SearchDates(monday.AddDate(0, 0, 7*offset), sunday.AddDate(0, 0, 7*offset))
}

// Suggest returns up to limit candidate starts between from and to, in
// date-major order, at which a task of duration d fits in the grid. Starts
// before from are skipped. A limit of zero or less returns every start.
func (s *Scheduler) Suggest(g *availability.Grid, from, to time.Time, d time.Duration, limit int) ([]availability.Cell, error) {
	cells, err := availability.CandidateCells(g, s.preferStart, s.preferEnd, s.SearchDates(from, to))
	if err != nil {
		return nil, err
	}

	earliest := atHour(from, from.Hour())
	upcoming := cells[:0]
	for _, c := range cells {
		if !c.Start().Before(earliest) {
			upcoming = append(upcoming, c)
		}
	}

	free, err := availability.FreeStarts(g, upcoming, d)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(free) > limit {
		free = free[:limit]
	}
	return free, nil
}

func atHour(day time.Time, hour int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// roundUpToHour rounds a time up to the next hour boundary.
func roundUpToHour(t time.Time) time.Time {
	top := atHour(t, t.Hour())
	if top.Equal(t) {
		return t
	}
	return top.Add(time.Hour)
}
