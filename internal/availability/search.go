package availability

import (
	"fmt"
	"time"
)

// Verdict is the outcome of checking a candidate start against a grid.
// An unavailable candidate is an ordinary result, not an error.
type Verdict struct {
	Start     time.Time
	Hours     int  // required whole hours
	Available bool // every required hour is free
	BlockedAt time.Time
	BlockedBy string
}

// RequiredHours rounds a duration up to whole hours.
func RequiredHours(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	hours := int(d / time.Hour)
	if d%time.Hour != 0 {
		hours++
	}
	return hours
}

// Check reports whether start can host a task of duration d.
// Each hour start, start+1h, ... must be absent from the grid; the first
// occupied hour ends the check. Hours outside the grid count as free.
// Returns ErrInvalidDuration if d rounds to zero hours.
func Check(g *Grid, start time.Time, d time.Duration) (Verdict, error) {
	hours := RequiredHours(d)
	if hours <= 0 {
		return Verdict{}, fmt.Errorf("%w: got %s", ErrInvalidDuration, d)
	}

	v := Verdict{Start: start, Hours: hours, Available: true}
	for offset := range hours {
		at := start.Add(time.Duration(offset) * time.Hour)
		if title, busy := g.At(at); busy {
			v.Available = false
			v.BlockedAt = at
			v.BlockedBy = title
			return v, nil
		}
	}
	return v, nil
}

// IsAvailable reports whether start is free for the full duration d.
func IsAvailable(g *Grid, start time.Time, d time.Duration) (bool, error) {
	v, err := Check(g, start, d)
	if err != nil {
		return false, err
	}
	return v.Available, nil
}

// ValidateWindow checks a preferred hour window [start, end).
func ValidateWindow(start, end int) error {
	if start < 0 || end > 24 || start >= end {
		return fmt.Errorf("%w: preferred window %d-%d must satisfy 0 <= start < end <= 24",
			ErrInvalidRange, start, end)
	}
	return nil
}

// CandidateCells enumerates dates × [preferStart, preferEnd) date by date.
// Cells outside the preferred window are never produced.
func CandidateCells(g *Grid, preferStart, preferEnd int, dates []time.Time) ([]Cell, error) {
	if err := ValidateWindow(preferStart, preferEnd); err != nil {
		return nil, err
	}

	cells := make([]Cell, 0, len(dates)*(preferEnd-preferStart))
	for _, date := range dates {
		day := StartOfDay(date.In(g.loc))
		for hour := preferStart; hour < preferEnd; hour++ {
			title, occupied := g.Title(day, hour)
			cells = append(cells, Cell{
				Date:     day,
				Hour:     hour,
				Title:    title,
				Occupied: occupied,
			})
		}
	}
	return cells, nil
}

// FreeStarts returns the free cells from which a task of duration d fits.
func FreeStarts(g *Grid, cells []Cell, d time.Duration) ([]Cell, error) {
	if RequiredHours(d) <= 0 {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidDuration, d)
	}

	var free []Cell
	for _, c := range cells {
		if c.Occupied {
			continue
		}
		ok, err := IsAvailable(g, c.Start(), d)
		if err != nil {
			return nil, err
		}
		if ok {
			free = append(free, c)
		}
	}
	return free, nil
}
