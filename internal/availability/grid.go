package availability

import (
	"fmt"
	"time"
)

// MaxRangeDays bounds the number of days a single grid may cover.
const MaxRangeDays = 366

// Collision records an hour whose title was overwritten by a later event.
// The grid keeps the later title; collisions are informational only.
type Collision struct {
	Day      time.Time
	Hour     int
	Previous string
	Current  string
}

// Grid is an immutable day → hour → title occupancy snapshot.
type Grid struct {
	loc        *time.Location
	days       []time.Time
	rows       map[dayKey]map[int]string
	collisions []Collision
}

// BuildOption configures Build.
type BuildOption func(*buildOptions)

type buildOptions struct {
	partialHours bool
}

// WithPartialHours marks the hour containing a non-aligned event end as busy.
// Without it an event ending at 10:30 leaves hour 10 free.
func WithPartialHours() BuildOption {
	return func(o *buildOptions) { o.partialHours = true }
}

// Build aggregates events into a grid covering every day from
// StartOfDay(rangeStart) to StartOfDay(rangeEnd) inclusive.
// Returns ErrInvalidRange if rangeEnd is before rangeStart or the range
// spans more than MaxRangeDays days.
func Build(events []Event, rangeStart, rangeEnd time.Time, opts ...BuildOption) (*Grid, error) {
	if rangeEnd.Before(rangeStart) {
		return nil, fmt.Errorf("%w: end %s is before start %s",
			ErrInvalidRange, rangeEnd.Format(time.DateOnly), rangeStart.Format(time.DateOnly))
	}

	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	loc := rangeStart.Location()
	first := StartOfDay(rangeStart)
	last := StartOfDay(rangeEnd.In(loc))

	g := &Grid{
		loc:  loc,
		rows: make(map[dayKey]map[int]string),
	}

	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		if len(g.days) >= MaxRangeDays {
			return nil, fmt.Errorf("%w: range exceeds %d days", ErrInvalidRange, MaxRangeDays)
		}
		g.days = append(g.days, day)
		g.rows[keyOf(day)] = g.buildRow(day, events, o)
	}

	return g, nil
}

func (g *Grid) buildRow(day time.Time, events []Event, o buildOptions) map[int]string {
	row := make(map[int]string)
	nextDay := day.AddDate(0, 0, 1)

	for _, e := range events {
		if !e.Valid() || !e.Overlaps(day, nextDay) {
			continue
		}
		start := e.Start.In(g.loc)
		end := e.End.In(g.loc)

		startHour := 0
		if start.After(day) {
			startHour = start.Hour()
		}

		endHour := 24
		if end.Before(nextDay) {
			endHour = end.Hour()
			if o.partialHours && end.After(atHour(end, endHour)) {
				endHour++
			}
		}
		endHour = min(endHour, 24)

		title := e.DisplayTitle()
		for hour := startHour; hour < endHour; hour++ {
			if prev, ok := row[hour]; ok && prev != title {
				g.collisions = append(g.collisions, Collision{
					Day:      day,
					Hour:     hour,
					Previous: prev,
					Current:  title,
				})
			}
			row[hour] = title
		}
	}

	return row
}

// Days returns the days covered by the grid in ascending order.
func (g *Grid) Days() []time.Time {
	out := make([]time.Time, len(g.days))
	copy(out, g.days)
	return out
}

// Location returns the location the grid's days are expressed in.
func (g *Grid) Location() *time.Location {
	return g.loc
}

// Start returns the first day of the grid.
func (g *Grid) Start() time.Time {
	return g.days[0]
}

// End returns the last day of the grid.
func (g *Grid) End() time.Time {
	return g.days[len(g.days)-1]
}

// Covers returns true if t falls on a day covered by the grid.
func (g *Grid) Covers(t time.Time) bool {
	_, ok := g.rows[keyOf(t.In(g.loc))]
	return ok
}

// Title returns the occupant of the given day and hour.
func (g *Grid) Title(day time.Time, hour int) (string, bool) {
	row, ok := g.rows[keyOf(day.In(g.loc))]
	if !ok {
		return "", false
	}
	title, ok := row[hour]
	return title, ok
}

// At returns the occupant of the hour containing t.
func (g *Grid) At(t time.Time) (string, bool) {
	t = t.In(g.loc)
	return g.Title(t, t.Hour())
}

// Row returns a copy of the hour → title entries for a day.
func (g *Grid) Row(day time.Time) map[int]string {
	row := g.rows[keyOf(day.In(g.loc))]
	out := make(map[int]string, len(row))
	for h, title := range row {
		out[h] = title
	}
	return out
}

// Occupied returns the number of occupied hours on a day.
func (g *Grid) Occupied(day time.Time) int {
	return len(g.rows[keyOf(day.In(g.loc))])
}

// Len returns the total number of occupied hours in the grid.
func (g *Grid) Len() int {
	n := 0
	for _, row := range g.rows {
		n += len(row)
	}
	return n
}

// Collisions returns the hours where a later event overwrote an earlier title.
func (g *Grid) Collisions() []Collision {
	out := make([]Collision, len(g.collisions))
	copy(out, g.collisions)
	return out
}
