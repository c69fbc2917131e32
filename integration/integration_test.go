package integration

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/javiermolinar/freeslot/internal/availability"
	"github.com/javiermolinar/freeslot/internal/calendar"
	"github.com/javiermolinar/freeslot/internal/calendar/ics"
	"github.com/javiermolinar/freeslot/internal/config"
	"github.com/javiermolinar/freeslot/internal/db"
	"github.com/javiermolinar/freeslot/internal/deferred"
	"github.com/javiermolinar/freeslot/internal/planner"
)

// Monday 2025-01-13, before the preferred window opens.
var now = time.Date(2025, 1, 13, 8, 0, 0, 0, time.UTC)

// openRepo creates a fresh database for each test with automatic cleanup.
func openRepo(t *testing.T) *db.SQLite {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	repo, err := db.New(dbPath, db.WithLocation(time.UTC))
	if err != nil {
		t.Fatalf("failed to open repo: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func newPlanner(t *testing.T, p calendar.Provider, repo deferred.Repository, opts ...planner.Option) *planner.Planner {
	t.Helper()
	return newPlannerWith(t, config.Default(), p, repo, opts...)
}

func newPlannerWith(t *testing.T, cfg *config.Config, p calendar.Provider, repo deferred.Repository, opts ...planner.Option) *planner.Planner {
	t.Helper()
	opts = append([]planner.Option{planner.WithClock(func() time.Time { return now })}, opts...)
	pl, err := planner.New(cfg, p, repo, opts...)
	if err != nil {
		t.Fatalf("failed to create planner: %v", err)
	}
	return pl
}

// at returns 2025-01-day at hour:00 UTC.
func at(day, hour int) time.Time {
	return time.Date(2025, 1, day, hour, 0, 0, 0, time.UTC)
}

// createEvent is a helper to insert an event.
func createEvent(t *testing.T, p calendar.Provider, title string, start, end time.Time) availability.Event {
	t.Helper()
	ev, err := p.CreateEvent(context.Background(), calendar.NewEvent{Title: title, Start: start, End: end})
	if err != nil {
		t.Fatalf("failed to create event %q: %v", title, err)
	}
	return ev
}

func queryTitle(t *testing.T, p calendar.Provider, title string, from, to time.Time) []availability.Event {
	t.Helper()
	events, err := p.QueryEvents(context.Background(), from, to, nil)
	if err != nil {
		t.Fatalf("failed to query events: %v", err)
	}
	return calendar.MatchTitle(events, title)
}

func TestBook_ReplacesWithinPad(t *testing.T) {
	repo := openRepo(t)
	pl := newPlanner(t, repo, repo)
	ctx := context.Background()

	old := createEvent(t, repo, "Report", at(1, 10), at(1, 12))
	recent := createEvent(t, repo, "Report", at(7, 10), at(7, 12))

	deadline := at(17, 0)
	b, err := pl.Book(ctx, planner.BookRequest{
		Title:    "Report",
		Start:    at(13, 14),
		Duration: 2 * time.Hour,
		Deadline: &deadline,
	})
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}
	if !b.Booked {
		t.Fatalf("expected booking, got verdict %+v", b.Verdict)
	}
	if len(b.Replaced) != 1 || b.Replaced[0].ID != recent.ID {
		t.Errorf("expected only the Jan 7 report to be replaced, got %+v", b.Replaced)
	}

	reports := queryTitle(t, repo, "Report", at(1, 0), at(20, 0))
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	if reports[0].ID != old.ID {
		t.Errorf("expected the Jan 1 report to survive, got %+v", reports[0])
	}
	booked := reports[1]
	if !booked.Start.Equal(at(13, 14)) || !booked.End.Equal(at(13, 16)) {
		t.Errorf("expected 14:00-16:00 on Jan 13, got %v-%v", booked.Start, booked.End)
	}
	if !strings.Contains(booked.Notes, "Duration: 120 min") || !strings.Contains(booked.Notes, "Deadline: 2025-01-17") {
		t.Errorf("unexpected notes: %q", booked.Notes)
	}
	if booked.CalendarID != "personal" {
		t.Errorf("expected default calendar, got %q", booked.CalendarID)
	}
}

func TestBook_TakenSlotWritesNothing(t *testing.T) {
	repo := openRepo(t)
	pl := newPlanner(t, repo, repo)
	ctx := context.Background()

	createEvent(t, repo, "Dentist", at(13, 15), at(13, 16))

	b, err := pl.Book(ctx, planner.BookRequest{Title: "Report", Start: at(13, 14), Duration: 2 * time.Hour})
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}
	if b.Booked {
		t.Fatal("expected the slot to be reported as taken")
	}
	if b.Verdict.BlockedBy != "Dentist" || !b.Verdict.BlockedAt.Equal(at(13, 15)) {
		t.Errorf("unexpected verdict: %+v", b.Verdict)
	}
	if got := queryTitle(t, repo, "Report", at(13, 0), at(14, 0)); len(got) != 0 {
		t.Errorf("expected no report to be written, got %d", len(got))
	}
}

func TestBookDeferred_FirstFreeSlot(t *testing.T) {
	repo := openRepo(t)
	pl := newPlanner(t, repo, repo)
	ctx := context.Background()

	createEvent(t, repo, "Offsite", at(13, 9), at(13, 18))

	task, err := pl.Defer(ctx, planner.DeferRequest{
		Title:         "Review",
		DurationHours: 2,
		Deadline:      at(15, 0),
	})
	if err != nil {
		t.Fatalf("Defer failed: %v", err)
	}

	b, err := pl.BookDeferred(ctx, task.ID, time.Time{})
	if err != nil {
		t.Fatalf("BookDeferred failed: %v", err)
	}
	if !b.Event.Start.Equal(at(14, 9)) {
		t.Errorf("expected Jan 14 09:00, got %v", b.Event.Start)
	}
	if !strings.Contains(b.Event.Notes, "Deadline: 2025-01-15") {
		t.Errorf("expected deadline in notes, got %q", b.Event.Notes)
	}

	if _, err := repo.GetDeferred(ctx, task.ID); !errors.Is(err, deferred.ErrNotFound) {
		t.Errorf("expected booked task to be removed, got %v", err)
	}
}

func TestBookDeferred_NoSlotKeepsTask(t *testing.T) {
	repo := openRepo(t)
	pl := newPlanner(t, repo, repo)
	ctx := context.Background()

	createEvent(t, repo, "Conference", at(13, 0), at(15, 0))

	task, err := pl.Defer(ctx, planner.DeferRequest{Title: "Review", DurationHours: 1, Deadline: at(14, 0)})
	if err != nil {
		t.Fatalf("Defer failed: %v", err)
	}

	if _, err := pl.BookDeferred(ctx, task.ID, time.Time{}); !errors.Is(err, planner.ErrNoFreeSlot) {
		t.Fatalf("expected ErrNoFreeSlot, got %v", err)
	}
	tasks, err := pl.Deferred(ctx)
	if err != nil {
		t.Fatalf("Deferred failed: %v", err)
	}
	if len(tasks) != 1 {
		t.Errorf("expected the task to be kept, got %d tasks", len(tasks))
	}
}

const weeklyStandup = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
X-WR-CALNAME:Work
BEGIN:VEVENT
UID:standup-1
DTSTAMP:20250101T000000Z
DTSTART:20250106T100000Z
DTEND:20250106T110000Z
SUMMARY:Standup
RRULE:FREQ=WEEKLY;BYDAY=MO,WE
END:VEVENT
END:VCALENDAR
`

func TestICS_RecurringEventBlocksSlots(t *testing.T) {
	p := ics.New(afero.NewMemMapFs(), "/calendars", ics.WithLocation(time.UTC))
	ctx := context.Background()
	if _, err := p.RequestAuthorization(ctx); err != nil {
		t.Fatalf("RequestAuthorization failed: %v", err)
	}
	if _, err := p.Import("work", []byte(weeklyStandup)); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	pl := newPlanner(t, p, openRepo(t))

	v, err := pl.Check(ctx, at(15, 9), 2*time.Hour)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if v.Available || v.BlockedBy != "Standup" || !v.BlockedAt.Equal(at(15, 10)) {
		t.Errorf("expected Wednesday standup to block, got %+v", v)
	}

	v, err = pl.Check(ctx, at(14, 9), 2*time.Hour)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !v.Available {
		t.Errorf("expected Tuesday to be free, got %+v", v)
	}

	blocks, err := pl.Blocks(ctx, at(13, 0), at(19, 0))
	if err != nil {
		t.Fatalf("Blocks failed: %v", err)
	}
	if len(blocks) != 2 {
		t.Errorf("expected Monday and Wednesday standups, got %+v", blocks)
	}
}

const halfHourStandup = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:standup-2
DTSTAMP:20250101T000000Z
DTSTART:20250106T100000Z
DTEND:20250106T103000Z
SUMMARY:Standup
RRULE:FREQ=WEEKLY;BYDAY=MO,WE
END:VEVENT
END:VCALENDAR
`

func TestICS_HalfHourEventAndPartialHours(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		partial bool
		blocked bool
	}{
		{name: "default leaves the 10:00 hour free", partial: false, blocked: false},
		{name: "count_partial_hours marks it busy", partial: true, blocked: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := ics.New(afero.NewMemMapFs(), "/calendars", ics.WithLocation(time.UTC))
			if _, err := p.Import("work", []byte(halfHourStandup)); err != nil {
				t.Fatalf("Import failed: %v", err)
			}
			cfg := config.Default()
			cfg.Search.CountPartialHours = tc.partial
			pl := newPlannerWith(t, cfg, p, openRepo(t))

			v, err := pl.Check(ctx, at(15, 10), time.Hour)
			if err != nil {
				t.Fatalf("Check failed: %v", err)
			}
			if v.Available == tc.blocked {
				t.Errorf("expected blocked=%v, got %+v", tc.blocked, v)
			}
		})
	}
}

func TestICS_StagedCommitReplaces(t *testing.T) {
	p := ics.New(afero.NewMemMapFs(), "/calendars", ics.WithLocation(time.UTC))
	pl := newPlanner(t, calendar.NewGate(p), openRepo(t), planner.WithStagedCommit())
	ctx := context.Background()

	for _, start := range []time.Time{at(13, 10), at(14, 11)} {
		b, err := pl.Book(ctx, planner.BookRequest{Title: "Sync", Start: start, Duration: time.Hour})
		if err != nil {
			t.Fatalf("Book failed: %v", err)
		}
		if !b.Booked {
			t.Fatalf("expected booking at %v", start)
		}
	}

	syncs := queryTitle(t, p, "Sync", at(1, 0), at(31, 0))
	if len(syncs) != 1 {
		t.Fatalf("expected a single Sync after rebooking, got %d", len(syncs))
	}
	if !syncs[0].Start.Equal(at(14, 11)) {
		t.Errorf("expected the later booking to remain, got %v", syncs[0].Start)
	}
}

func TestDeniedAccess(t *testing.T) {
	repo := openRepo(t)
	createEvent(t, repo, "Offsite", at(13, 9), at(13, 18))

	gate := calendar.NewGate(repo, calendar.WithAccess(false))
	pl := newPlanner(t, gate, repo)
	ctx := context.Background()

	if pl.Authorized(ctx) {
		t.Fatal("expected access to be denied")
	}

	cells, err := pl.Suggest(ctx, planner.SuggestRequest{Duration: time.Hour, Limit: 1})
	if err != nil {
		t.Fatalf("Suggest failed: %v", err)
	}
	if len(cells) != 1 || !cells[0].Start().Equal(at(13, 9)) {
		t.Errorf("expected an empty grid to offer 09:00, got %+v", cells)
	}

	_, err = pl.Book(ctx, planner.BookRequest{Title: "Report", Start: at(13, 14), Duration: time.Hour})
	if !errors.Is(err, calendar.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}
