package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/javiermolinar/freeslot/internal/availability"
)

var weekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

func newScheduler(t *testing.T, days []time.Weekday, start, end int) *Scheduler {
	t.Helper()
	s, err := New(days, start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s
}

func TestNew_InvalidWindow(t *testing.T) {
	if _, err := New(nil, 18, 9); !errors.Is(err, availability.ErrInvalidRange) {
		t.Errorf("expected ErrInvalidRange, got %v", err)
	}
}

func TestNew_EmptyWorkdaysMeansEveryDay(t *testing.T) {
	s := newScheduler(t, nil, 9, 18)
	for d := 12; d <= 18; d++ {
		if !s.IsWorkday(time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("expected Jan %d to be searchable", d)
		}
	}
}

func TestNextSearchStart(t *testing.T) {
	s := newScheduler(t, weekdays, 9, 17)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before window", time.Date(2025, 1, 6, 7, 30, 0, 0, time.UTC), time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)},
		{"during window rounds up", time.Date(2025, 1, 6, 10, 23, 0, 0, time.UTC), time.Date(2025, 1, 6, 11, 0, 0, 0, time.UTC)},
		{"exactly on the hour", time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC), time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)},
		{"last hour rounds past window", time.Date(2025, 1, 6, 16, 10, 0, 0, time.UTC), time.Date(2025, 1, 7, 9, 0, 0, 0, time.UTC)},
		{"after window", time.Date(2025, 1, 6, 18, 0, 0, 0, time.UTC), time.Date(2025, 1, 7, 9, 0, 0, 0, time.UTC)},
		{"friday evening", time.Date(2025, 1, 10, 19, 0, 0, 0, time.UTC), time.Date(2025, 1, 13, 9, 0, 0, 0, time.UTC)},
		{"weekend", time.Date(2025, 1, 11, 10, 0, 0, 0, time.UTC), time.Date(2025, 1, 13, 9, 0, 0, 0, time.UTC)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := s.NextSearchStart(tc.now)
			if !got.Equal(tc.want) {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestNextSearchStart_WindowToMidnight(t *testing.T) {
	s := newScheduler(t, nil, 20, 24)
	got := s.NextSearchStart(time.Date(2025, 1, 6, 23, 30, 0, 0, time.UTC))
	want := time.Date(2025, 1, 7, 20, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestIsWithinWindow(t *testing.T) {
	s := newScheduler(t, weekdays, 9, 17)

	tests := []struct {
		t    time.Time
		want bool
	}{
		{time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC), true},
		{time.Date(2025, 1, 6, 16, 59, 0, 0, time.UTC), true},
		{time.Date(2025, 1, 6, 17, 0, 0, 0, time.UTC), false},
		{time.Date(2025, 1, 6, 8, 59, 0, 0, time.UTC), false},
		{time.Date(2025, 1, 11, 10, 0, 0, 0, time.UTC), false},
	}
	for _, tc := range tests {
		if got := s.IsWithinWindow(tc.t); got != tc.want {
			t.Errorf("IsWithinWindow(%v) = %v, want %v", tc.t, got, tc.want)
		}
	}
}

func TestSearchDates(t *testing.T) {
	s := newScheduler(t, weekdays, 9, 17)

	// Friday 10th through Tuesday 14th skips the weekend.
	dates := s.SearchDates(time.Date(2025, 1, 10, 15, 0, 0, 0, time.UTC), time.Date(2025, 1, 14, 8, 0, 0, 0, time.UTC))
	want := []int{10, 13, 14}
	if len(dates) != len(want) {
		t.Fatalf("expected %d dates, got %d", len(want), len(dates))
	}
	for i, d := range dates {
		if d.Day() != want[i] || d.Hour() != 0 {
			t.Errorf("date %d: expected Jan %d at midnight, got %v", i, want[i], d)
		}
	}
}

func TestWeekDates(t *testing.T) {
	s := newScheduler(t, nil, 9, 17)
	wednesday := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		offset     int
		wantMonday int
		wantMonth  time.Month
	}{
		{0, 13, time.January},
		{1, 20, time.January},
		{-1, 6, time.January},
		{3, 3, time.February},
	}
	for _, tc := range tests {
		dates := s.WeekDates(wednesday, tc.offset)
		if len(dates) != 7 {
			t.Fatalf("offset %d: expected 7 dates, got %d", tc.offset, len(dates))
		}
		if dates[0].Weekday() != time.Monday || dates[0].Day() != tc.wantMonday || dates[0].Month() != tc.wantMonth {
			t.Errorf("offset %d: expected Monday %s %d, got %v", tc.offset, tc.wantMonth, tc.wantMonday, dates[0])
		}
		if dates[6].Weekday() != time.Sunday {
			t.Errorf("offset %d: expected week to end on Sunday, got %v", tc.offset, dates[6].Weekday())
		}
	}
}

func TestSuggest(t *testing.T) {
	s := newScheduler(t, weekdays, 9, 12)
	events := []availability.Event{
		{Title: "Standup", Start: time.Date(2025, 1, 13, 9, 0, 0, 0, time.UTC), End: time.Date(2025, 1, 13, 10, 0, 0, 0, time.UTC)},
		{Title: "Review", Start: time.Date(2025, 1, 14, 10, 0, 0, 0, time.UTC), End: time.Date(2025, 1, 14, 11, 0, 0, 0, time.UTC)},
	}
	from := time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC)
	g, err := availability.Build(events, from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("all free starts", func(t *testing.T) {
		got, err := s.Suggest(g, from, to, 2*time.Hour, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// 13th: 10, 11. 14th: 11 (11-13, beyond the window is allowed).
		want := []struct{ day, hour int }{{13, 10}, {13, 11}, {14, 11}}
		if len(got) != len(want) {
			t.Fatalf("expected %d starts, got %d: %+v", len(want), len(got), got)
		}
		for i, w := range want {
			if got[i].Date.Day() != w.day || got[i].Hour != w.hour {
				t.Errorf("start %d: expected %d@%d, got %d@%d", i, w.day, w.hour, got[i].Date.Day(), got[i].Hour)
			}
		}
	})

	t.Run("limit", func(t *testing.T) {
		got, err := s.Suggest(g, from, to, time.Hour, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("expected 2 starts, got %d", len(got))
		}
	})

	t.Run("skips past hours", func(t *testing.T) {
		got, err := s.Suggest(g, from.Add(10*time.Hour+30*time.Minute), to, time.Hour, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) == 0 || got[0].Hour != 10 || got[0].Date.Day() != 13 {
			t.Errorf("expected the 10:00 hour in progress to remain, got %+v", got)
		}
	})

	t.Run("invalid duration", func(t *testing.T) {
		if _, err := s.Suggest(g, from, to, 0, 0); !errors.Is(err, availability.ErrInvalidDuration) {
			t.Errorf("expected ErrInvalidDuration, got %v", err)
		}
	})
}
