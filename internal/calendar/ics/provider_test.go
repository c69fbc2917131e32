package ics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/javiermolinar/freeslot/internal/calendar"
)

const weeklyStandup = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
X-WR-CALNAME:Work
BEGIN:VEVENT
UID:standup-1
DTSTAMP:20250101T000000Z
DTSTART:20250113T090000Z
DTEND:20250113T093000Z
SUMMARY:Standup
RRULE:FREQ=DAILY;COUNT=5
EXDATE:20250115T090000Z
END:VEVENT
BEGIN:VEVENT
UID:review-1
DTSTAMP:20250101T000000Z
DTSTART:20250114T140000Z
DTEND:20250114T150000Z
SUMMARY:Review
DESCRIPTION:quarterly
END:VEVENT
BEGIN:VEVENT
UID:holiday-1
DTSTAMP:20250101T000000Z
DTSTART;VALUE=DATE:20250117
DTEND;VALUE=DATE:20250118
SUMMARY:Holiday
END:VEVENT
END:VCALENDAR
`

func at(day, hour, minute int) time.Time {
	return time.Date(2025, 1, day, hour, minute, 0, 0, time.UTC)
}

func newTestProvider(t *testing.T, files map[string]string) (*Provider, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, body := range files {
		if err := afero.WriteFile(fs, "/cal/"+name, []byte(strings.ReplaceAll(body, "\n", "\r\n")), 0o644); err != nil {
			t.Fatalf("writing fixture: %v", err)
		}
	}
	return New(fs, "/cal", WithLocation(time.UTC)), fs
}

func TestProvider_ListCalendars(t *testing.T) {
	p, fs := newTestProvider(t, map[string]string{"work.ics": weeklyStandup})
	if err := afero.WriteFile(fs, "/cal/notes.txt", []byte("ignored"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	cals, err := p.ListCalendars(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cals) != 1 {
		t.Fatalf("expected 1 calendar, got %d", len(cals))
	}
	if cals[0].ID != "work" || cals[0].Title != "Work" {
		t.Errorf("expected work/Work, got %+v", cals[0])
	}
}

func TestProvider_QueryExpandsRecurrence(t *testing.T) {
	p, _ := newTestProvider(t, map[string]string{"work.ics": weeklyStandup})

	events, err := p.QueryEvents(context.Background(), at(13, 0, 0), at(20, 0, 0), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var standups, reviews, holidays int
	for _, e := range events {
		switch e.Title {
		case "Standup":
			standups++
			if e.Start.Day() == 15 {
				t.Error("expected excluded occurrence on the 15th to be skipped")
			}
			if e.End.Sub(e.Start) != 30*time.Minute {
				t.Errorf("expected 30 minute occurrences, got %s", e.End.Sub(e.Start))
			}
		case "Review":
			reviews++
			if e.Notes != "quarterly" {
				t.Errorf("expected description as notes, got %q", e.Notes)
			}
		case "Holiday":
			holidays++
			if !e.Start.Equal(at(17, 0, 0)) || !e.End.Equal(at(18, 0, 0)) {
				t.Errorf("expected all-day bounds, got %v-%v", e.Start, e.End)
			}
		}
		if e.CalendarID != "work" {
			t.Errorf("expected calendar work, got %q", e.CalendarID)
		}
	}
	if standups != 4 || reviews != 1 || holidays != 1 {
		t.Errorf("expected 4 standups, 1 review, 1 holiday; got %d, %d, %d", standups, reviews, holidays)
	}
}

func TestProvider_QueryWindow(t *testing.T) {
	p, _ := newTestProvider(t, map[string]string{"work.ics": weeklyStandup})

	events, err := p.QueryEvents(context.Background(), at(14, 9, 30), at(14, 14, 0), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected touching events to be excluded, got %+v", events)
	}

	events, err = p.QueryEvents(context.Background(), at(14, 9, 15), at(14, 9, 20), []string{"work"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 || events[0].Title != "Standup" {
		t.Errorf("expected the standup in progress, got %+v", events)
	}
}

func TestProvider_CreateAndDelete(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider(t, nil)

	created, err := p.CreateEvent(ctx, calendar.NewEvent{
		Title: "Report", Start: at(13, 9, 0), End: at(13, 11, 0), Notes: "Duration: 120 min",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.CalendarID != defaultCalendar {
		t.Errorf("expected default calendar, got %q", created.CalendarID)
	}

	events, err := p.QueryEvents(ctx, at(13, 0, 0), at(14, 0, 0), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 || events[0].ID != created.ID || events[0].Notes != "Duration: 120 min" {
		t.Fatalf("expected created event to round-trip, got %+v", events)
	}

	if err := p.DeleteEvent(ctx, created.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.DeleteEvent(ctx, created.ID); !errors.Is(err, calendar.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestProvider_DeleteOccurrenceAddsExdate(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider(t, map[string]string{"work.ics": weeklyStandup})

	id := occurrenceID("standup-1", at(14, 9, 0))
	if err := p.DeleteEvent(ctx, id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events, err := p.QueryEvents(ctx, at(13, 0, 0), at(20, 0, 0), []string{"work"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	standups := 0
	for _, e := range events {
		if e.Title == "Standup" {
			standups++
			if e.Start.Day() == 14 {
				t.Error("expected deleted occurrence to be gone")
			}
		}
	}
	if standups != 3 {
		t.Errorf("expected 3 standups left, got %d", standups)
	}
}

func TestProvider_ReplaceByTitle(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider(t, map[string]string{"work.ics": weeklyStandup})

	created, replaced, err := p.ReplaceByTitle(ctx, "Review", at(7, 0, 0), at(21, 0, 0),
		calendar.NewEvent{Title: "Review", Start: at(16, 10, 0), End: at(16, 11, 0), CalendarID: "work"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(replaced) != 1 || replaced[0].ID != "review-1" {
		t.Errorf("expected review-1 replaced, got %+v", replaced)
	}

	events, err := p.QueryEvents(ctx, at(13, 0, 0), at(20, 0, 0), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reviews := 0
	for _, e := range events {
		if e.Title == "Review" {
			reviews++
			if e.ID != created.ID {
				t.Errorf("expected only the new review, got %+v", e)
			}
		}
	}
	if reviews != 1 {
		t.Errorf("expected exactly one review, got %d", reviews)
	}
}

const reportCalendar = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:report-1
DTSTAMP:20250101T000000Z
DTSTART:20250107T090000Z
DTEND:20250107T110000Z
SUMMARY:Report
END:VEVENT
END:VCALENDAR
`

const emptyCalendar = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
END:VCALENDAR
`

// readOnlyFileFs refuses writes to one file name.
type readOnlyFileFs struct {
	afero.Fs
	name string
}

func (f readOnlyFileFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if filepath.Base(name) == f.name && flag&(os.O_WRONLY|os.O_RDWR) != 0 {
		return nil, errors.New("disk full")
	}
	return f.Fs.OpenFile(name, flag, perm)
}

func (f readOnlyFileFs) Create(name string) (afero.File, error) {
	return f.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
}

func replaceReportInto(t *testing.T, failing string) (*Provider, error) {
	t.Helper()
	_, fs := newTestProvider(t, map[string]string{"a.ics": reportCalendar, "b.ics": emptyCalendar})
	p := New(readOnlyFileFs{Fs: fs, name: failing}, "/cal", WithLocation(time.UTC))
	_, _, err := p.ReplaceByTitle(context.Background(), "Report", at(7, 0, 0), at(21, 0, 0),
		calendar.NewEvent{Title: "Report", Start: at(14, 9, 0), End: at(14, 11, 0), CalendarID: "b"})
	return p, err
}

func reportsByCalendar(t *testing.T, p *Provider) map[string]int {
	t.Helper()
	events, err := p.QueryEvents(context.Background(), at(1, 0, 0), at(28, 0, 0), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := make(map[string]int)
	for _, e := range calendar.MatchTitle(events, "Report") {
		out[e.CalendarID]++
	}
	return out
}

func TestProvider_ReplaceByTitle_TargetWriteFails(t *testing.T) {
	p, err := replaceReportInto(t, "b.ics")
	if err == nil {
		t.Fatal("expected an error")
	}
	var partial *calendar.PartialReplaceError
	if errors.As(err, &partial) {
		t.Errorf("expected nothing written, got partial %+v", partial)
	}
	got := reportsByCalendar(t, p)
	if got["a"] != 1 || got["b"] != 0 {
		t.Errorf("expected the old report untouched, got %v", got)
	}
}

func TestProvider_ReplaceByTitle_RemovalWriteFails(t *testing.T) {
	p, err := replaceReportInto(t, "a.ics")
	var partial *calendar.PartialReplaceError
	if !errors.As(err, &partial) {
		t.Fatalf("expected PartialReplaceError, got %v", err)
	}
	if partial.Created == nil || partial.Created.CalendarID != "b" {
		t.Errorf("expected the new report in b, got %+v", partial.Created)
	}
	if len(partial.Deleted) != 0 || len(partial.Remaining) != 1 || partial.Remaining[0].ID != "report-1" {
		t.Errorf("expected report-1 remaining, got deleted=%v remaining=%v", partial.Deleted, partial.Remaining)
	}
	if !errors.Is(err, calendar.ErrProvider) {
		t.Errorf("expected ErrProvider, got %v", err)
	}
	got := reportsByCalendar(t, p)
	if got["a"] != 1 || got["b"] != 1 {
		t.Errorf("expected both reports stored, got %v", got)
	}
}

func TestProvider_Import(t *testing.T) {
	p, _ := newTestProvider(t, nil)

	n, err := p.Import("imported", []byte(strings.ReplaceAll(weeklyStandup, "\n", "\r\n")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 events imported, got %d", n)
	}
	events, err := p.QueryEvents(context.Background(), at(13, 0, 0), at(14, 0, 0), []string{"imported"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 || events[0].Title != "Standup" {
		t.Errorf("expected the imported standup, got %+v", events)
	}
}

func TestProvider_InvalidCalendarID(t *testing.T) {
	p, _ := newTestProvider(t, nil)
	_, err := p.CreateEvent(context.Background(), calendar.NewEvent{
		Title: "x", Start: at(13, 9, 0), End: at(13, 10, 0), CalendarID: "../etc",
	})
	if !errors.Is(err, calendar.ErrProvider) {
		t.Errorf("expected ErrProvider, got %v", err)
	}
}

func TestProvider_MissingDirectory(t *testing.T) {
	p := New(afero.NewMemMapFs(), "/nowhere")
	events, err := p.QueryEvents(context.Background(), at(13, 0, 0), at(14, 0, 0), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}
}
