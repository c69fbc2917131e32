package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/javiermolinar/freeslot/internal/dateutil"
	"github.com/javiermolinar/freeslot/internal/deferred"
	applog "github.com/javiermolinar/freeslot/internal/log"
)

// DeferRequest describes a search to set aside.
type DeferRequest struct {
	Title         string
	DurationHours int
	SearchStart   time.Time // zero means today
	Deadline      time.Time // zero means SearchStart plus the configured range
	Contacted     *time.Time
	CalendarID    string
}

// Defer saves a search to book later.
func (p *Planner) Defer(ctx context.Context, req DeferRequest) (*deferred.Task, error) {
	start := req.SearchStart
	if start.IsZero() {
		start = p.now()
	}
	deadline := req.Deadline
	if deadline.IsZero() {
		deadline = start.AddDate(0, 0, p.rangeDays)
	}

	t, err := deferred.New(req.Title, req.DurationHours, start, deadline)
	if err != nil {
		return nil, err
	}
	if req.Contacted != nil {
		c := dateutil.TruncateToDay(*req.Contacted)
		t.ContactedDate = &c
	}
	t.CalendarID = req.CalendarID
	t.SavedAt = p.now()

	if err := p.repo.SaveDeferred(ctx, t); err != nil {
		return nil, fmt.Errorf("saving deferred task: %w", err)
	}
	applog.Info("task deferred", "id", t.ID, "title", t.Title, "deadline", t.Deadline.Format(time.DateOnly))
	return t, nil
}

// Deferred lists saved searches, most recent first.
func (p *Planner) Deferred(ctx context.Context) ([]*deferred.Task, error) {
	tasks, err := p.repo.ListDeferred(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing deferred tasks: %w", err)
	}
	return tasks, nil
}

// DeleteDeferred removes one saved search.
func (p *Planner) DeleteDeferred(ctx context.Context, id int64) error {
	if err := p.repo.DeleteDeferred(ctx, id); err != nil {
		return fmt.Errorf("deleting deferred task: %w", err)
	}
	return nil
}

// ClearDeferred removes every saved search.
func (p *Planner) ClearDeferred(ctx context.Context) (int, error) {
	n, err := p.repo.ClearDeferred(ctx)
	if err != nil {
		return 0, fmt.Errorf("clearing deferred tasks: %w", err)
	}
	return n, nil
}

// BookDeferred books a saved search and removes it. A zero start picks the
// earliest free slot between the search start (or now, if later) and the
// deadline. A taken slot keeps the saved search.
//
// If the booking succeeds but the saved search cannot be removed, the
// booking is returned together with the error.
func (p *Planner) BookDeferred(ctx context.Context, id int64, start time.Time) (*Booking, error) {
	t, err := p.repo.GetDeferred(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading deferred task: %w", err)
	}

	if start.IsZero() {
		if start, err = p.firstFree(ctx, t); err != nil {
			return nil, err
		}
	}

	deadline := t.Deadline
	b, err := p.Book(ctx, BookRequest{
		Title:      t.Title,
		Start:      start,
		Duration:   t.Duration(),
		CalendarID: t.CalendarID,
		Contacted:  t.ContactedDate,
		Deadline:   &deadline,
	})
	if err != nil {
		return nil, err
	}
	if !b.Booked {
		return b, nil
	}

	if err := p.repo.DeleteDeferred(ctx, id); err != nil {
		applog.Error("removing booked deferred task failed", err, "id", id)
		return b, fmt.Errorf("booked %q but could not remove deferred task #%d: %w", t.Title, id, err)
	}
	return b, nil
}

func (p *Planner) firstFree(ctx context.Context, t *deferred.Task) (time.Time, error) {
	from := t.SearchStart
	if next := p.scheduler.NextSearchStart(p.now()); next.After(from) {
		from = next
	}
	if t.Deadline.Before(dateutil.TruncateToDay(from)) {
		return time.Time{}, fmt.Errorf("%w: deadline %s has passed", ErrNoFreeSlot, t.Deadline.Format(time.DateOnly))
	}

	cells, err := p.Suggest(ctx, SuggestRequest{
		From:     from,
		To:       t.Deadline,
		Duration: t.Duration(),
		Limit:    1,
	})
	if err != nil {
		return time.Time{}, err
	}
	if len(cells) == 0 {
		return time.Time{}, fmt.Errorf("%w: %q before %s", ErrNoFreeSlot, t.Title, t.Deadline.Format(time.DateOnly))
	}
	return cells[0].Start(), nil
}
