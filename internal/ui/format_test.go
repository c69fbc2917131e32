package ui

import (
	"bufio"
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"
	"gopkg.in/yaml.v3"

	"github.com/javiermolinar/freeslot/internal/availability"
	"github.com/javiermolinar/freeslot/internal/config"
	"github.com/javiermolinar/freeslot/internal/deferred"
	"github.com/javiermolinar/freeslot/internal/planner"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{45 * time.Minute, "45m"},
		{2 * time.Hour, "2h"},
		{90 * time.Minute, "1h30m"},
		{25*time.Hour + 5*time.Minute, "25h05m"},
	}

	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			if got := formatDuration(tc.d); got != tc.want {
				t.Errorf("formatDuration(%s) = %q, want %q", tc.d, got, tc.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		s     string
		width int
		want  string
	}{
		{"Standup", 10, "Standup"},
		{"Standup", 7, "Standup"},
		{"Design review", 6, "Desig…"},
		{"Café crème", 5, "Café…"},
		{"abc", 1, "…"},
		{"abc", 0, "abc"},
		{"회의실예약", 10, "회의실예약"},
		{"회의실예약", 6, "회의…"},
	}

	for _, tc := range tests {
		if got := truncate(tc.s, tc.width); got != tc.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tc.s, tc.width, got, tc.want)
		}
		if tc.width > 0 && ansi.StringWidth(truncate(tc.s, tc.width)) > tc.width {
			t.Errorf("truncate(%q, %d) is wider than %d cells", tc.s, tc.width, tc.width)
		}
	}
}

func TestParseDay(t *testing.T) {
	now := time.Date(2025, 1, 15, 16, 30, 0, 0, time.UTC) // Wednesday

	tests := []struct {
		input string
		want  time.Time
	}{
		{"2025-01-10", time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)},
		{"", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"tomorrow", time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC)},
		{"next-monday", time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := parseDay(tc.input, now)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tc.want) {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}

	if _, err := parseDay("someday", now); err == nil {
		t.Error("expected error for an unknown date")
	}
}

func TestParseStart(t *testing.T) {
	now := time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)

	got, err := parseStart("2025-01-16", "14:30", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2025, 1, 16, 14, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	if _, err := parseStart("2025-01-16", "2pm", now); err == nil {
		t.Error("expected error for a malformed clock time")
	}
}

func testTimetable() *planner.Timetable {
	mon := time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC)
	tue := mon.AddDate(0, 0, 1)
	return &planner.Timetable{
		Dates:       []time.Time{mon, tue},
		PreferStart: 9,
		PreferEnd:   11,
		Cells: []availability.Cell{
			{Date: mon, Hour: 9, Title: "Standup", Occupied: true},
			{Date: mon, Hour: 10},
			{Date: tue, Hour: 9},
			{Date: tue, Hour: 10, Title: "Design review", Occupied: true},
		},
		Authorized: true,
	}
}

func TestTimetableText(t *testing.T) {
	want := "hour\t2025-01-13\t2025-01-14\n" +
		"09:00\tStandup\tfree\n" +
		"10:00\tfree\tDesign review\n"
	if got := timetableText(testTimetable()); got != want {
		t.Errorf("expected:\n%s\ngot:\n%s", want, got)
	}
}

func TestRenderTimetable(t *testing.T) {
	out := renderTimetable(testTimetable(), 8)

	for _, want := range []string{"Mon 13", "Tue 14", "09:00", "10:00", "Standup", "Design …", freeMark} {
		if !strings.Contains(out, want) {
			t.Errorf("expected table to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Design review") {
		t.Errorf("expected long titles to be truncated, got:\n%s", out)
	}
}

func TestWriteDeferredYAML(t *testing.T) {
	contacted := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	tasks := []*deferred.Task{
		{
			ID:            4,
			Title:         "Quarterly review",
			DurationHours: 3,
			SearchStart:   time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC),
			Deadline:      time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
			ContactedDate: &contacted,
			SavedAt:       time.Date(2025, 1, 12, 18, 0, 0, 0, time.UTC),
		},
		{
			ID:            5,
			Title:         "Dentist",
			DurationHours: 1,
			SearchStart:   time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC),
			Deadline:      time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC),
			CalendarID:    "family",
		},
	}

	var buf bytes.Buffer
	if err := writeDeferredYAML(&buf, tasks); err != nil {
		t.Fatalf("writeDeferredYAML failed: %v", err)
	}

	var docs []map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &docs); err != nil {
		t.Fatalf("output is not valid YAML: %v\n%s", err, buf.String())
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0]["title"] != "Quarterly review" || docs[0]["hours"] != 3 {
		t.Errorf("unexpected first task: %v", docs[0])
	}
	if _, ok := docs[1]["contacted"]; ok {
		t.Errorf("expected contacted to be omitted, got %v", docs[1])
	}
	if docs[1]["calendar"] != "family" {
		t.Errorf("expected calendar family, got %v", docs[1]["calendar"])
	}
}

func TestRunConfigInteractive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	// Answers: edit, start, end, workdays, then keep every other default.
	in := strings.NewReader("y\n10\n16\nmonday, tuesday\n\n\n\n\n\n")
	var out bytes.Buffer
	if err := runConfigInteractive(in, &out, path); err != nil {
		t.Fatalf("runConfigInteractive failed: %v\n%s", err, out.String())
	}

	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("loading saved config: %v", err)
	}
	if cfg.Search.PreferStartHour != 10 || cfg.Search.PreferEndHour != 16 {
		t.Errorf("expected window 10-16, got %d-%d", cfg.Search.PreferStartHour, cfg.Search.PreferEndHour)
	}
	if len(cfg.Search.Workdays) != 2 || cfg.Search.Workdays[1] != "tuesday" {
		t.Errorf("expected monday and tuesday, got %v", cfg.Search.Workdays)
	}
	if !strings.Contains(out.String(), "Configuration saved!") {
		t.Errorf("expected confirmation, got:\n%s", out.String())
	}
}

func TestRunConfigInteractiveDecline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	var out bytes.Buffer
	if err := runConfigInteractive(strings.NewReader("n\n"), &out, path); err != nil {
		t.Fatalf("runConfigInteractive failed: %v", err)
	}
	if !strings.Contains(out.String(), "Created "+path) {
		t.Errorf("expected the default file to be created, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "prefer_start_hour   = 9") {
		t.Errorf("expected current config to be printed, got:\n%s", out.String())
	}
}

func TestPromptInt_RetriesInvalid(t *testing.T) {
	reader := bufio.NewReader(strings.NewReader("soon\n12\n"))
	var out bytes.Buffer
	if got := promptInt(reader, &out, "Hour", 9); got != 12 {
		t.Errorf("expected 12, got %d", got)
	}
	if !strings.Contains(out.String(), `Invalid number "soon"`) {
		t.Errorf("expected retry message, got %q", out.String())
	}
}
