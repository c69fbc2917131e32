// Package memory provides an in-memory calendar provider.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/javiermolinar/freeslot/internal/availability"
	"github.com/javiermolinar/freeslot/internal/calendar"
)

// Provider is a mutex-guarded calendar held in memory.
type Provider struct {
	mu        sync.RWMutex
	granted   bool
	calendars []calendar.Calendar
	events    map[string]availability.Event
}

// New creates an empty provider with the given calendars. Access is granted.
func New(calendars ...calendar.Calendar) *Provider {
	return &Provider{
		granted:   true,
		calendars: calendars,
		events:    make(map[string]availability.Event),
	}
}

// Deny makes RequestAuthorization report a denial.
func (p *Provider) Deny() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.granted = false
}

// Seed inserts events as-is, assigning IDs to those without one.
func (p *Provider) Seed(events ...availability.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range events {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		p.events[e.ID] = e
	}
}

// All returns every stored event ordered by start.
func (p *Provider) All() []availability.Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sorted(func(availability.Event) bool { return true })
}

func (p *Provider) RequestAuthorization(_ context.Context) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.granted, nil
}

func (p *Provider) ListCalendars(_ context.Context) ([]calendar.Calendar, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.calendars), nil
}

func (p *Provider) QueryEvents(ctx context.Context, start, end time.Time, calendars []string) ([]availability.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sorted(func(e availability.Event) bool {
		return e.Overlaps(start, end) && calendar.InCalendars(e.CalendarID, calendars)
	}), nil
}

func (p *Provider) CreateEvent(ctx context.Context, ev calendar.NewEvent) (availability.Event, error) {
	if err := ctx.Err(); err != nil {
		return availability.Event{}, err
	}
	if err := ev.Validate(); err != nil {
		return availability.Event{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.insert(ev), nil
}

func (p *Provider) DeleteEvent(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.events[id]; !ok {
		return fmt.Errorf("%w: %s", calendar.ErrNotFound, id)
	}
	delete(p.events, id)
	return nil
}

// ReplaceByTitle swaps matching events for ev under a single lock.
func (p *Provider) ReplaceByTitle(ctx context.Context, title string, windowStart, windowEnd time.Time, ev calendar.NewEvent) (availability.Event, []availability.Event, error) {
	if err := ctx.Err(); err != nil {
		return availability.Event{}, nil, err
	}
	if err := ev.Validate(); err != nil {
		return availability.Event{}, nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	replaced := p.sorted(func(e availability.Event) bool {
		return e.Title == title && e.Overlaps(windowStart, windowEnd)
	})
	for _, e := range replaced {
		delete(p.events, e.ID)
	}
	return p.insert(ev), replaced, nil
}

func (p *Provider) insert(ev calendar.NewEvent) availability.Event {
	e := availability.Event{
		ID:         uuid.NewString(),
		Title:      ev.Title,
		Start:      ev.Start,
		End:        ev.End,
		CalendarID: ev.CalendarID,
		Notes:      ev.Notes,
	}
	p.events[e.ID] = e
	return e
}

func (p *Provider) sorted(keep func(availability.Event) bool) []availability.Event {
	var out []availability.Event
	for _, e := range p.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b availability.Event) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return a.End.Compare(b.End)
	})
	return out
}
