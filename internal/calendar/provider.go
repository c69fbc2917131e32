// Package calendar defines the calendar provider contract the availability
// engine and the booking reconciler depend on.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/javiermolinar/freeslot/internal/availability"
)

// Domain errors.
var (
	ErrProvider     = errors.New("calendar provider error")
	ErrUnauthorized = fmt.Errorf("%w: calendar access not granted", ErrProvider)
	ErrNotFound     = errors.New("event not found")
)

// Calendar is a named collection of events.
type Calendar struct {
	ID    string
	Title string
}

// NewEvent describes an event to be created.
type NewEvent struct {
	Title      string
	Start      time.Time
	End        time.Time
	CalendarID string
	Notes      string
}

// Validate checks the event has a title and a positive duration.
func (e NewEvent) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("%w: event title is empty", ErrProvider)
	}
	if !e.Start.Before(e.End) {
		return fmt.Errorf("%w: event end %s is not after start %s",
			availability.ErrInvalidRange, e.End.Format(time.RFC3339), e.Start.Format(time.RFC3339))
	}
	return nil
}

// Provider reads and writes calendar events.
// QueryEvents returns events intersecting [start, end) across the given
// calendars; an empty calendar list means all calendars.
type Provider interface {
	RequestAuthorization(ctx context.Context) (bool, error)
	ListCalendars(ctx context.Context) ([]Calendar, error)
	QueryEvents(ctx context.Context, start, end time.Time, calendars []string) ([]availability.Event, error)
	CreateEvent(ctx context.Context, ev NewEvent) (availability.Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

// Replacer is implemented by providers that can replace every event titled
// title inside [windowStart, windowEnd] with ev in one call. A plain error
// means nothing was changed; a replace that fails after changing the
// calendar returns *PartialReplaceError.
type Replacer interface {
	ReplaceByTitle(ctx context.Context, title string, windowStart, windowEnd time.Time, ev NewEvent) (created availability.Event, replaced []availability.Event, err error)
}

// PartialReplaceError reports which changes of a replace were already
// written when it failed.
type PartialReplaceError struct {
	Created   *availability.Event  // set once the new event is stored
	Deleted   []availability.Event // matches already removed
	Remaining []availability.Event // matches still stored
	Err       error
}

func (e *PartialReplaceError) Error() string {
	return fmt.Sprintf("replace partially applied (removed %d of %d): %v",
		len(e.Deleted), len(e.Deleted)+len(e.Remaining), e.Err)
}

func (e *PartialReplaceError) Unwrap() error {
	return e.Err
}

// MatchTitle returns the events whose title equals title exactly.
func MatchTitle(events []availability.Event, title string) []availability.Event {
	var out []availability.Event
	for _, e := range events {
		if e.Title == title {
			out = append(out, e)
		}
	}
	return out
}

// InCalendars reports whether id is selected by the calendar filter.
func InCalendars(id string, calendars []string) bool {
	if len(calendars) == 0 {
		return true
	}
	for _, c := range calendars {
		if c == id {
			return true
		}
	}
	return false
}
