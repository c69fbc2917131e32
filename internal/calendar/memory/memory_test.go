package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/javiermolinar/freeslot/internal/availability"
	"github.com/javiermolinar/freeslot/internal/calendar"
)

func at(day, hour int) time.Time {
	return time.Date(2025, 1, day, hour, 0, 0, 0, time.UTC)
}

func TestProvider_QueryEvents(t *testing.T) {
	ctx := context.Background()
	p := New(calendar.Calendar{ID: "work"}, calendar.Calendar{ID: "home"})
	p.Seed(
		availability.Event{Title: "Standup", Start: at(13, 9), End: at(13, 10), CalendarID: "work"},
		availability.Event{Title: "Dentist", Start: at(13, 15), End: at(13, 16), CalendarID: "home"},
		availability.Event{Title: "Later", Start: at(20, 9), End: at(20, 10), CalendarID: "work"},
	)

	t.Run("all calendars", func(t *testing.T) {
		events, err := p.QueryEvents(ctx, at(13, 0), at(14, 0), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(events) != 2 {
			t.Fatalf("expected 2 events, got %d", len(events))
		}
		if events[0].Title != "Standup" {
			t.Errorf("expected events ordered by start, got %q first", events[0].Title)
		}
	})

	t.Run("filtered", func(t *testing.T) {
		events, err := p.QueryEvents(ctx, at(13, 0), at(14, 0), []string{"home"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(events) != 1 || events[0].Title != "Dentist" {
			t.Errorf("expected only Dentist, got %+v", events)
		}
	})

	t.Run("half-open window", func(t *testing.T) {
		events, err := p.QueryEvents(ctx, at(13, 10), at(13, 15), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(events) != 0 {
			t.Errorf("expected touching events to be excluded, got %+v", events)
		}
	})
}

func TestProvider_CreateAndDelete(t *testing.T) {
	ctx := context.Background()
	p := New()

	created, err := p.CreateEvent(ctx, calendar.NewEvent{Title: "Report", Start: at(13, 9), End: at(13, 11)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID == "" {
		t.Error("expected an ID to be assigned")
	}

	if err := p.DeleteEvent(ctx, created.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.DeleteEvent(ctx, created.ID); !errors.Is(err, calendar.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if _, err := p.CreateEvent(ctx, calendar.NewEvent{Title: "Bad", Start: at(13, 11), End: at(13, 9)}); !errors.Is(err, availability.ErrInvalidRange) {
		t.Errorf("expected ErrInvalidRange, got %v", err)
	}
}

func TestProvider_ReplaceByTitle(t *testing.T) {
	ctx := context.Background()
	p := New()
	p.Seed(
		availability.Event{ID: "old", Title: "Report", Start: at(10, 9), End: at(10, 10)},
		availability.Event{ID: "far", Title: "Report", Start: at(1, 9), End: at(1, 10)},
		availability.Event{ID: "other", Title: "report", Start: at(10, 11), End: at(10, 12)},
	)

	created, replaced, err := p.ReplaceByTitle(ctx, "Report", at(6, 0), at(20, 0),
		calendar.NewEvent{Title: "Report", Start: at(13, 9), End: at(13, 11)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(replaced) != 1 || replaced[0].ID != "old" {
		t.Errorf("expected only the in-window exact match replaced, got %+v", replaced)
	}

	all := p.All()
	if len(all) != 3 {
		t.Fatalf("expected 3 events, got %d", len(all))
	}
	ids := map[string]bool{}
	for _, e := range all {
		ids[e.ID] = true
	}
	if !ids["far"] || !ids["other"] || !ids[created.ID] || ids["old"] {
		t.Errorf("unexpected events after replace: %+v", all)
	}
}

func TestGate_Denied(t *testing.T) {
	ctx := context.Background()
	p := New()
	p.Seed(availability.Event{Title: "Busy", Start: at(13, 9), End: at(13, 10)})
	p.Deny()

	g := calendar.NewGate(p)
	events, err := g.QueryEvents(ctx, at(13, 0), at(14, 0), nil)
	if err != nil {
		t.Fatalf("expected no error for denied query, got %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events while denied, got %d", len(events))
	}
	if g.Authorized() {
		t.Error("expected Authorized to be false")
	}

	_, err = g.CreateEvent(ctx, calendar.NewEvent{Title: "x", Start: at(13, 9), End: at(13, 10)})
	if !errors.Is(err, calendar.ErrUnauthorized) || !errors.Is(err, calendar.ErrProvider) {
		t.Errorf("expected ErrUnauthorized wrapping ErrProvider, got %v", err)
	}
	if err := g.DeleteEvent(ctx, "any"); !errors.Is(err, calendar.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if _, _, err := g.Replacer().ReplaceByTitle(ctx, "x", at(1, 0), at(20, 0), calendar.NewEvent{}); !errors.Is(err, calendar.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized from gated replacer, got %v", err)
	}
}

func TestGate_Granted(t *testing.T) {
	ctx := context.Background()
	p := New()
	p.Seed(availability.Event{Title: "Busy", Start: at(13, 9), End: at(13, 10)})

	g := calendar.NewGate(p)
	if g.Authorized() {
		t.Error("expected Authorized to be false before the first request")
	}
	events, err := g.QueryEvents(ctx, at(13, 0), at(14, 0), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("expected 1 event, got %d", len(events))
	}
	if !g.Authorized() {
		t.Error("expected Authorized to be true")
	}
	if g.Replacer() == nil {
		t.Error("expected memory provider to expose a replacer")
	}
}

func TestGate_AccessRevokedByConfig(t *testing.T) {
	ctx := context.Background()
	p := New()
	p.Seed(availability.Event{Title: "Busy", Start: at(13, 9), End: at(13, 10)})

	g := calendar.NewGate(p, calendar.WithAccess(false))
	ok, err := g.RequestAuthorization(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || g.Authorized() {
		t.Error("expected access to be denied")
	}
	events, err := g.QueryEvents(ctx, at(13, 0), at(14, 0), nil)
	if err != nil || len(events) != 0 {
		t.Errorf("expected empty result without error, got %d events, err %v", len(events), err)
	}
}
