// Package planner provides high-level availability orchestration.
// It coordinates the calendar provider, the scheduler, the booking
// reconciler and the deferred task store. The CLI and the integration
// tests both go through this package.
package planner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/javiermolinar/freeslot/internal/availability"
	"github.com/javiermolinar/freeslot/internal/booking"
	"github.com/javiermolinar/freeslot/internal/calendar"
	"github.com/javiermolinar/freeslot/internal/config"
	"github.com/javiermolinar/freeslot/internal/deferred"
	applog "github.com/javiermolinar/freeslot/internal/log"
	"github.com/javiermolinar/freeslot/internal/scheduler"
)

// Domain errors.
var (
	ErrNoFreeSlot = errors.New("no free slot before the deadline")
)

// Planner orchestrates availability queries and bookings.
type Planner struct {
	provider   calendar.Provider
	repo       deferred.Repository
	scheduler  *scheduler.Scheduler
	reconciler *booking.Reconciler

	calendars       []string
	defaultCalendar string
	buildOpts       []availability.BuildOption
	pad             time.Duration
	rangeDays       int
	maxRangeDays    int
	now             func() time.Time

	mu    sync.Mutex
	locks map[string]*titleLock
}

// Option configures a Planner.
type Option func(*plannerOptions)

type plannerOptions struct {
	calendars []string
	now       func() time.Time
	booking   []booking.Option
}

// WithCalendars restricts queries to the given calendar IDs.
func WithCalendars(ids ...string) Option {
	return func(o *plannerOptions) { o.calendars = ids }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *plannerOptions) { o.now = now }
}

// WithStagedCommit forces the reconciler's staged commit.
func WithStagedCommit() Option {
	return func(o *plannerOptions) { o.booking = append(o.booking, booking.WithStagedCommit()) }
}

// New creates a Planner over a calendar provider and a deferred task store.
func New(cfg *config.Config, p calendar.Provider, repo deferred.Repository, opts ...Option) (*Planner, error) {
	o := plannerOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	sched, err := scheduler.New(cfg.Weekdays(), cfg.Search.PreferStartHour, cfg.Search.PreferEndHour)
	if err != nil {
		return nil, fmt.Errorf("creating scheduler: %w", err)
	}

	return &Planner{
		provider:        p,
		repo:            repo,
		scheduler:       sched,
		reconciler:      booking.New(p, o.booking...),
		calendars:       o.calendars,
		defaultCalendar: cfg.Calendar.DefaultCalendar,
		buildOpts:       cfg.BuildOptions(),
		pad:             cfg.Pad(),
		rangeDays:       cfg.Search.RangeDays,
		maxRangeDays:    cfg.Search.MaxRangeDays,
		now:             o.now,
		locks:           make(map[string]*titleLock),
	}, nil
}

// Scheduler returns the scheduler deciding searched days and hours.
func (p *Planner) Scheduler() *scheduler.Scheduler {
	return p.scheduler
}

// Authorized reports whether the calendar granted access. An empty grid
// from an unauthorized provider says nothing about availability.
func (p *Planner) Authorized(ctx context.Context) bool {
	ok, err := p.provider.RequestAuthorization(ctx)
	return err == nil && ok
}

// Calendars lists the provider's calendars.
func (p *Planner) Calendars(ctx context.Context) ([]calendar.Calendar, error) {
	cals, err := p.provider.ListCalendars(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing calendars: %w", err)
	}
	return cals, nil
}

// Events returns the events intersecting the days from through to.
func (p *Planner) Events(ctx context.Context, from, to time.Time) ([]availability.Event, error) {
	start, end, err := p.dayRange(from, to)
	if err != nil {
		return nil, err
	}
	events, err := p.provider.QueryEvents(ctx, start, end, p.calendars)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	applog.Debug("events loaded", "from", start.Format(time.DateOnly), "to", end.Format(time.DateOnly), "count", len(events))
	return events, nil
}

// Grid builds the busy grid for the days from through to.
func (p *Planner) Grid(ctx context.Context, from, to time.Time) (*availability.Grid, error) {
	events, err := p.Events(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return p.build(events, from, to)
}

func (p *Planner) build(events []availability.Event, from, to time.Time) (*availability.Grid, error) {
	g, err := availability.Build(events, from, to, p.buildOpts...)
	if err != nil {
		return nil, fmt.Errorf("building grid: %w", err)
	}
	for _, c := range g.Collisions() {
		applog.Debug("hour overwritten", "day", c.Day.Format(time.DateOnly), "hour", c.Hour, "previous", c.Previous, "current", c.Current)
	}
	return g, nil
}

// Blocks returns the busy blocks of the days from through to.
func (p *Planner) Blocks(ctx context.Context, from, to time.Time) ([]availability.Block, error) {
	events, err := p.Events(ctx, from, to)
	if err != nil {
		return nil, err
	}

	first := availability.StartOfDay(from)
	last := availability.StartOfDay(to.In(from.Location()))
	marks := slices.DeleteFunc(availability.DecomposeAll(events), func(m availability.Mark) bool {
		day := availability.StartOfDay(m.Day.In(from.Location()))
		return day.Before(first) || day.After(last)
	})
	return availability.Merge(marks), nil
}

// Timetable is a grid restricted to the preferred window of some dates.
type Timetable struct {
	Dates       []time.Time
	PreferStart int
	PreferEnd   int
	Cells       []availability.Cell
	Grid        *availability.Grid
	Authorized  bool
}

// Cell returns the timetable cell of a date and hour.
func (t *Timetable) Cell(date time.Time, hour int) (availability.Cell, bool) {
	day := availability.StartOfDay(date)
	for _, c := range t.Cells {
		if c.Hour == hour && c.Date.Equal(day) {
			return c, true
		}
	}
	return availability.Cell{}, false
}

// Timetable builds the timetable for the given dates.
func (p *Planner) Timetable(ctx context.Context, dates []time.Time) (*Timetable, error) {
	t := &Timetable{
		Dates:       dates,
		PreferStart: p.scheduler.PreferStart(),
		PreferEnd:   p.scheduler.PreferEnd(),
		Authorized:  p.Authorized(ctx),
	}
	if len(dates) == 0 {
		return t, nil
	}

	from := slices.MinFunc(dates, time.Time.Compare)
	to := slices.MaxFunc(dates, time.Time.Compare)
	g, err := p.Grid(ctx, from, to)
	if err != nil {
		return nil, err
	}
	cells, err := availability.CandidateCells(g, t.PreferStart, t.PreferEnd, dates)
	if err != nil {
		return nil, err
	}
	t.Grid = g
	t.Cells = cells
	return t, nil
}

// Week builds the timetable for the week containing base shifted by offset
// weeks.
func (p *Planner) Week(ctx context.Context, base time.Time, offset int) (*Timetable, error) {
	return p.Timetable(ctx, p.scheduler.WeekDates(base, offset))
}

// Check reports whether start can host a task of duration d.
// Without calendar access every hour looks free; see Authorized.
func (p *Planner) Check(ctx context.Context, start time.Time, d time.Duration) (availability.Verdict, error) {
	if availability.RequiredHours(d) <= 0 {
		return availability.Verdict{}, fmt.Errorf("%w: got %s", availability.ErrInvalidDuration, d)
	}
	end := start.Add(time.Duration(availability.RequiredHours(d)) * time.Hour)
	g, err := p.Grid(ctx, start, end)
	if err != nil {
		return availability.Verdict{}, err
	}
	return availability.Check(g, start, d)
}

// SuggestRequest describes a free-slot search.
type SuggestRequest struct {
	From     time.Time // zero means the next searchable hour
	To       time.Time // zero means From plus the configured range
	Duration time.Duration
	Limit    int // zero or less means every start
}

// Suggest returns the earliest starts at which the duration fits.
func (p *Planner) Suggest(ctx context.Context, req SuggestRequest) ([]availability.Cell, error) {
	if availability.RequiredHours(req.Duration) <= 0 {
		return nil, fmt.Errorf("%w: got %s", availability.ErrInvalidDuration, req.Duration)
	}
	from := req.From
	if from.IsZero() {
		from = p.scheduler.NextSearchStart(p.now())
	}
	to := req.To
	if to.IsZero() {
		to = from.AddDate(0, 0, p.rangeDays)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: search end %s is before start %s",
			availability.ErrInvalidRange, to.Format(time.DateOnly), from.Format(time.DateOnly))
	}

	// Runs starting late on the last day may spill into the following days.
	spill := (availability.RequiredHours(req.Duration) + 23) / 24
	g, err := p.Grid(ctx, from, to.AddDate(0, 0, spill))
	if err != nil {
		return nil, err
	}
	return p.scheduler.Suggest(g, from, to, req.Duration, req.Limit)
}

func (p *Planner) dayRange(from, to time.Time) (time.Time, time.Time, error) {
	start := availability.StartOfDay(from)
	last := availability.StartOfDay(to.In(from.Location()))
	if last.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end %s is before start %s",
			availability.ErrInvalidRange, to.Format(time.DateOnly), from.Format(time.DateOnly))
	}
	end := last.AddDate(0, 0, 1)
	if days := int(end.Sub(start).Hours()/24 + 0.5); days > p.maxRangeDays {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %d days exceeds %d",
			availability.ErrInvalidRange, days, p.maxRangeDays)
	}
	return start, end, nil
}

// titleLock is a per-title mutex counting its holder and waiters.
type titleLock struct {
	sync.Mutex
	refs int
}

// lock serializes bookings of the same title. The entry is dropped once
// nobody holds or waits on it.
func (p *Planner) lock(title string) func() {
	p.mu.Lock()
	l, ok := p.locks[title]
	if !ok {
		l = &titleLock{}
		p.locks[title] = l
	}
	l.refs++
	p.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, title)
		}
		p.mu.Unlock()
	}
}
