// Package ics implements a calendar provider backed by a directory of
// iCalendar files. Each file is one calendar named after the file.
package ics

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/javiermolinar/freeslot/internal/availability"
	"github.com/javiermolinar/freeslot/internal/calendar"
	applog "github.com/javiermolinar/freeslot/internal/log"
)

const (
	extension       = ".ics"
	productID       = "-//freeslot//EN"
	defaultCalendar = "personal"
)

// Provider reads and writes .ics files on an afero filesystem.
type Provider struct {
	fs             afero.Fs
	dir            string
	loc            *time.Location
	maxOccurrences int
	defaultCal     string

	mu sync.Mutex
}

// Option configures a Provider.
type Option func(*Provider)

// WithLocation sets the location used for all-day and floating times.
func WithLocation(loc *time.Location) Option {
	return func(p *Provider) { p.loc = loc }
}

// WithMaxOccurrences caps how many occurrences a single series expands to.
func WithMaxOccurrences(n int) Option {
	return func(p *Provider) { p.maxOccurrences = n }
}

// WithDefaultCalendar sets the calendar new events go to when none is given.
func WithDefaultCalendar(id string) Option {
	return func(p *Provider) { p.defaultCal = id }
}

// New returns a provider over the .ics files in dir.
func New(fs afero.Fs, dir string, opts ...Option) *Provider {
	p := &Provider{
		fs:             fs,
		dir:            dir,
		loc:            time.Local,
		maxOccurrences: defaultMaxOccurrences,
		defaultCal:     defaultCalendar,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RequestAuthorization grants access when the directory exists or can be created.
func (p *Provider) RequestAuthorization(_ context.Context) (bool, error) {
	if err := p.fs.MkdirAll(p.dir, 0o755); err != nil {
		return false, fmt.Errorf("%w: creating calendar directory: %w", calendar.ErrProvider, err)
	}
	return true, nil
}

func (p *Provider) ListCalendars(_ context.Context) ([]calendar.Calendar, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids, err := p.calendarIDs()
	if err != nil {
		return nil, err
	}

	cals := make([]calendar.Calendar, 0, len(ids))
	for _, id := range ids {
		c := calendar.Calendar{ID: id, Title: id}
		cal, err := p.load(id)
		if err != nil {
			return nil, err
		}
		if name := calendarName(cal); name != "" {
			c.Title = name
		}
		cals = append(cals, c)
	}
	return cals, nil
}

func (p *Provider) QueryEvents(ctx context.Context, start, end time.Time, calendars []string) ([]availability.Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.query(ctx, start, end, calendars)
}

func (p *Provider) query(ctx context.Context, start, end time.Time, calendars []string) ([]availability.Event, error) {
	ids, err := p.calendarIDs()
	if err != nil {
		return nil, err
	}

	var out []availability.Event
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !calendar.InCalendars(id, calendars) {
			continue
		}
		cal, err := p.load(id)
		if err != nil {
			return nil, err
		}
		out = append(out, expand(id, p.parse(id, cal), start, end, p.maxOccurrences)...)
	}

	slices.SortFunc(out, func(a, b availability.Event) int {
		return a.Start.Compare(b.Start)
	})
	return out, nil
}

func (p *Provider) CreateEvent(_ context.Context, ev calendar.NewEvent) (availability.Event, error) {
	if err := ev.Validate(); err != nil {
		return availability.Event{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.calendarFor(ev)
	cal, err := p.loadOrCreate(id)
	if err != nil {
		return availability.Event{}, err
	}
	created := p.add(cal, id, ev)
	if err := p.save(id, cal); err != nil {
		return availability.Event{}, err
	}
	return created, nil
}

// DeleteEvent removes a single event by ID. For an occurrence of a
// recurring series an EXDATE is added to the series instead.
func (p *Provider) DeleteEvent(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	calID, cal, err := p.find(id)
	if err != nil {
		return err
	}
	if !removeEvent(cal, id) {
		return fmt.Errorf("%w: %s", calendar.ErrNotFound, id)
	}
	return p.save(calID, cal)
}

// ReplaceByTitle removes every event titled title within the window and
// adds ev. Each affected file is rewritten once, the target calendar first,
// so the new event is stored before any other file loses a match. A write
// failing after the first returns *calendar.PartialReplaceError.
func (p *Provider) ReplaceByTitle(ctx context.Context, title string, windowStart, windowEnd time.Time, ev calendar.NewEvent) (availability.Event, []availability.Event, error) {
	if err := ev.Validate(); err != nil {
		return availability.Event{}, nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	existing, err := p.query(ctx, windowStart, windowEnd, nil)
	if err != nil {
		return availability.Event{}, nil, err
	}
	replaced := calendar.MatchTitle(existing, title)

	dirty := make(map[string]*ical.Calendar)
	byCal := make(map[string][]availability.Event)
	for _, e := range replaced {
		cal, ok := dirty[e.CalendarID]
		if !ok {
			if cal, err = p.load(e.CalendarID); err != nil {
				return availability.Event{}, nil, err
			}
			dirty[e.CalendarID] = cal
		}
		removeEvent(cal, e.ID)
		byCal[e.CalendarID] = append(byCal[e.CalendarID], e)
	}

	target := p.calendarFor(ev)
	cal, ok := dirty[target]
	if !ok {
		if cal, err = p.loadOrCreate(target); err != nil {
			return availability.Event{}, nil, err
		}
		dirty[target] = cal
	}
	created := p.add(cal, target, ev)

	order := []string{target}
	for _, id := range slices.Sorted(maps.Keys(dirty)) {
		if id != target {
			order = append(order, id)
		}
	}

	var deleted []availability.Event
	for i, id := range order {
		if err := p.save(id, dirty[id]); err != nil {
			if i == 0 {
				return availability.Event{}, nil, err
			}
			var remaining []availability.Event
			for _, rest := range order[i:] {
				remaining = append(remaining, byCal[rest]...)
			}
			return availability.Event{}, nil, &calendar.PartialReplaceError{
				Created:   &created,
				Deleted:   deleted,
				Remaining: remaining,
				Err:       err,
			}
		}
		deleted = append(deleted, byCal[id]...)
	}
	return created, replaced, nil
}

// Import copies every event of an iCalendar payload into calendar id,
// keeping their UIDs. Returns the number of VEVENTs added.
func (p *Provider) Import(id string, data []byte) (int, error) {
	src, err := ical.ParseCalendar(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("%w: parsing calendar: %w", calendar.ErrProvider, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	cal, err := p.loadOrCreate(id)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, ve := range src.Events() {
		cal.AddVEvent(ve)
		n++
	}
	return n, p.save(id, cal)
}

func (p *Provider) calendarFor(ev calendar.NewEvent) string {
	if ev.CalendarID != "" {
		return ev.CalendarID
	}
	return p.defaultCal
}

func (p *Provider) add(cal *ical.Calendar, calID string, ev calendar.NewEvent) availability.Event {
	uid := uuid.NewString()
	ve := cal.AddEvent(uid)
	ve.SetDtStampTime(time.Now())
	ve.SetStartAt(ev.Start)
	ve.SetEndAt(ev.End)
	ve.SetSummary(ev.Title)
	if ev.Notes != "" {
		ve.SetDescription(ev.Notes)
	}
	return availability.Event{
		ID:         uid,
		Title:      ev.Title,
		Start:      ev.Start,
		End:        ev.End,
		CalendarID: calID,
		Notes:      ev.Notes,
	}
}

// find locates the calendar holding the series or event behind id.
func (p *Provider) find(id string) (string, *ical.Calendar, error) {
	uid, _, _ := strings.Cut(id, occurrenceSep)
	ids, err := p.calendarIDs()
	if err != nil {
		return "", nil, err
	}
	for _, calID := range ids {
		cal, err := p.load(calID)
		if err != nil {
			return "", nil, err
		}
		for _, ve := range cal.Events() {
			if ve.Id() == uid {
				return calID, cal, nil
			}
		}
	}
	return "", nil, fmt.Errorf("%w: %s", calendar.ErrNotFound, id)
}

// removeEvent drops a plain event or excludes one occurrence of a series.
func removeEvent(cal *ical.Calendar, id string) bool {
	uid, stamp, recurring := strings.Cut(id, occurrenceSep)
	if !recurring {
		return filterEvents(cal, func(ve *ical.VEvent) bool { return ve.Id() != uid }) > 0
	}

	original, err := time.Parse(utcLayout, stamp)
	if err != nil {
		return false
	}
	found := false
	for _, ve := range cal.Events() {
		if ve.Id() == uid && ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")) == nil {
			ve.AddProperty(ical.ComponentPropertyExdate, original.Format(utcLayout))
			found = true
		}
	}
	filterEvents(cal, func(ve *ical.VEvent) bool {
		rid := ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID"))
		if ve.Id() != uid || rid == nil {
			return true
		}
		t, err := parseTime(rid.Value, time.UTC)
		return err != nil || !t.Equal(original)
	})
	return found
}

// filterEvents keeps the VEVENTs for which keep returns true and reports
// how many were dropped.
func filterEvents(cal *ical.Calendar, keep func(*ical.VEvent) bool) int {
	kept := cal.Components[:0]
	dropped := 0
	for _, c := range cal.Components {
		if ve, ok := c.(*ical.VEvent); ok && !keep(ve) {
			dropped++
			continue
		}
		kept = append(kept, c)
	}
	cal.Components = kept
	return dropped
}

func (p *Provider) parse(id string, cal *ical.Calendar) []vevent {
	var out []vevent
	for _, ve := range cal.Events() {
		v, err := parseVEvent(ve, p.loc)
		if err != nil {
			applog.Error("skipping unparseable event", err, "calendar", id)
			continue
		}
		out = append(out, v)
	}
	return out
}

func (p *Provider) calendarIDs() ([]string, error) {
	entries, err := afero.ReadDir(p.fs, p.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading calendar directory: %w", calendar.ErrProvider, err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), extension) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), extension))
	}
	slices.Sort(ids)
	return ids, nil
}

func (p *Provider) path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return "", fmt.Errorf("%w: invalid calendar id %q", calendar.ErrProvider, id)
	}
	return filepath.Join(p.dir, id+extension), nil
}

func (p *Provider) load(id string) (*ical.Calendar, error) {
	path, err := p.path(id)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(p.fs, path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading calendar %s: %w", calendar.ErrProvider, id, err)
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing calendar %s: %w", calendar.ErrProvider, id, err)
	}
	return cal, nil
}

func (p *Provider) loadOrCreate(id string) (*ical.Calendar, error) {
	path, err := p.path(id)
	if err != nil {
		return nil, err
	}
	exists, err := afero.Exists(p.fs, path)
	if err != nil {
		return nil, fmt.Errorf("%w: checking calendar %s: %w", calendar.ErrProvider, id, err)
	}
	if exists {
		return p.load(id)
	}
	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	return cal, nil
}

func (p *Provider) save(id string, cal *ical.Calendar) error {
	path, err := p.path(id)
	if err != nil {
		return err
	}
	if err := p.fs.MkdirAll(p.dir, 0o755); err != nil {
		return fmt.Errorf("%w: creating calendar directory: %w", calendar.ErrProvider, err)
	}
	if err := afero.WriteFile(p.fs, path, []byte(cal.Serialize()), 0o644); err != nil {
		return fmt.Errorf("%w: writing calendar %s: %w", calendar.ErrProvider, id, err)
	}
	return nil
}
