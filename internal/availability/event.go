// Package availability implements the hour-granular availability engine:
// decomposing calendar events into occupancy marks, building busy grids,
// merging marks back into task blocks and searching for free runs.
//
// Every function in this package is pure. Callers pass the events or grid
// they need and get a new value back.
package availability

import (
	"errors"
	"time"
)

// Validation errors.
var (
	ErrInvalidRange    = errors.New("invalid range")
	ErrInvalidDuration = errors.New("duration must be positive")
)

// UntitledEvent is used for events that carry no title.
const UntitledEvent = "untitled"

// Event is a busy block read from a calendar provider.
type Event struct {
	ID         string
	Title      string
	Start      time.Time
	End        time.Time
	CalendarID string
	Notes      string
}

// DisplayTitle returns the event title or UntitledEvent when it is blank.
func (e Event) DisplayTitle() string {
	if e.Title == "" {
		return UntitledEvent
	}
	return e.Title
}

// Valid returns true if the event has a positive duration.
func (e Event) Valid() bool {
	return e.Start.Before(e.End)
}

// Overlaps returns true if the event intersects the half-open range [start, end).
func (e Event) Overlaps(start, end time.Time) bool {
	return e.Start.Before(end) && e.End.After(start)
}

// Mark records that one hour of one day is consumed by an event.
type Mark struct {
	Day        time.Time // local midnight
	Hour       int       // 0-23
	Title      string
	EventStart time.Time
	EventEnd   time.Time
}

// Block is a run of contiguous same-title hours within a single day.
type Block struct {
	Title     string
	StartHour int
	EndHour   int // exclusive
	Start     time.Time
	End       time.Time
}

// Hours returns the number of grid hours the block spans.
func (b Block) Hours() int {
	return b.EndHour - b.StartHour
}

// Duration returns the exact duration between the block's start and end.
func (b Block) Duration() time.Duration {
	return b.End.Sub(b.Start)
}

// Cell is one timetable entry of a grid restricted to a preferred window.
type Cell struct {
	Date     time.Time
	Hour     int
	Title    string // empty when the cell is free
	Occupied bool
}

// Start returns the cell's date at the top of its hour.
func (c Cell) Start() time.Time {
	return atHour(c.Date, c.Hour)
}

// StartOfDay returns t with the clock set to midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func atHour(day time.Time, hour int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())
}

// nextHour returns the top of the hour following t. It steps in absolute
// time so a repeated wall-clock hour at a DST fall-back is still left behind.
func nextHour(t time.Time) time.Time {
	past := time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
	return t.Add(time.Hour - past)
}

// dayKey identifies a calendar date independent of clock and location pointer.
type dayKey struct {
	year  int
	month time.Month
	day   int
}

func keyOf(t time.Time) dayKey {
	y, m, d := t.Date()
	return dayKey{year: y, month: m, day: d}
}

func (k dayKey) before(o dayKey) bool {
	if k.year != o.year {
		return k.year < o.year
	}
	if k.month != o.month {
		return k.month < o.month
	}
	return k.day < o.day
}
