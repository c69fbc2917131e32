package planner

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/javiermolinar/freeslot/internal/availability"
	"github.com/javiermolinar/freeslot/internal/booking"
	"github.com/javiermolinar/freeslot/internal/calendar"
	applog "github.com/javiermolinar/freeslot/internal/log"
)

// BookRequest describes a block to commit to the calendar.
type BookRequest struct {
	Title      string
	Start      time.Time
	Duration   time.Duration
	CalendarID string     // empty means the configured default
	Contacted  *time.Time // optional, recorded in the event notes
	Deadline   *time.Time // optional, recorded in the event notes
	Force      bool       // book even if the slot is taken
}

// Booking is the result of Book. When the slot is taken and the request
// is not forced, Booked is false and nothing was written.
type Booking struct {
	booking.Committed
	Booked  bool
	Verdict availability.Verdict
	Grid    *availability.Grid // rebuilt after the commit
}

// Book checks that the requested slot is free, commits it through the
// reconciler and rebuilds the grid around it. A taken slot is reported
// through the returned verdict, not as an error.
//
// Earlier events with the same title inside the reconciler window are about
// to be replaced, so they do not count as conflicts. Bookings of the same
// title are serialized.
func (p *Planner) Book(ctx context.Context, req BookRequest) (*Booking, error) {
	if availability.RequiredHours(req.Duration) <= 0 {
		return nil, fmt.Errorf("%w: got %s", availability.ErrInvalidDuration, req.Duration)
	}

	breq := booking.Request{
		Title:      strings.TrimSpace(req.Title),
		Start:      req.Start,
		End:        req.Start.Add(req.Duration),
		CalendarID: req.CalendarID,
		Notes:      Notes(req.Duration, req.Contacted, req.Deadline),
		Pad:        p.pad,
	}
	if breq.CalendarID == "" {
		breq.CalendarID = p.defaultCalendar
	}
	if err := breq.Validate(); err != nil {
		return nil, err
	}
	if !p.Authorized(ctx) {
		return nil, calendar.ErrUnauthorized
	}

	unlock := p.lock(breq.Title)
	defer unlock()

	events, err := p.Events(ctx, breq.Start, breq.End)
	if err != nil {
		return nil, err
	}
	windowStart, windowEnd := breq.Window()
	others := slices.DeleteFunc(events, func(e availability.Event) bool {
		return e.Title == breq.Title && e.Overlaps(windowStart, windowEnd)
	})
	g, err := p.build(others, breq.Start, breq.End)
	if err != nil {
		return nil, err
	}

	verdict, err := availability.Check(g, breq.Start, req.Duration)
	if err != nil {
		return nil, err
	}
	if !verdict.Available && !req.Force {
		applog.Info("slot taken", "title", breq.Title, "at", verdict.BlockedAt.Format(time.RFC3339), "by", verdict.BlockedBy)
		return &Booking{Verdict: verdict, Grid: g}, nil
	}

	committed, err := p.reconciler.Confirm(ctx, breq)
	if err != nil {
		return nil, fmt.Errorf("booking %q: %w", breq.Title, err)
	}

	rebuilt, err := p.Grid(ctx, breq.Start, breq.End)
	if err != nil {
		// The booking is committed; a stale grid is not fatal.
		applog.Warn("rebuilding grid after booking failed", "title", breq.Title, "error", err)
	}

	return &Booking{Committed: *committed, Booked: true, Verdict: verdict, Grid: rebuilt}, nil
}

// Notes renders the event notes for a booking.
func Notes(d time.Duration, contacted, deadline *time.Time) string {
	lines := []string{fmt.Sprintf("Duration: %d min", int(d.Round(time.Minute)/time.Minute))}
	if contacted != nil {
		lines = append(lines, "Contacted: "+contacted.Format(time.DateOnly))
	}
	if deadline != nil {
		lines = append(lines, "Deadline: "+deadline.Format(time.DateOnly))
	}
	return strings.Join(lines, "\n")
}
