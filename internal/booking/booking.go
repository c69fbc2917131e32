// Package booking commits a chosen time block to the calendar, replacing any
// earlier event with the same title near it.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/javiermolinar/freeslot/internal/availability"
	"github.com/javiermolinar/freeslot/internal/calendar"
	applog "github.com/javiermolinar/freeslot/internal/log"
)

// DefaultPad is the safety window used when a request sets no pad.
const DefaultPad = 7 * 24 * time.Hour

// Validation errors.
var (
	ErrEmptyTitle = errors.New("title is empty")
)

// errNotVisible is reported when a created event cannot be read back.
var errNotVisible = errors.New("created event not visible after commit")

// Request describes the block to commit.
type Request struct {
	Title      string
	Start      time.Time
	End        time.Time
	CalendarID string
	Notes      string
	Pad        time.Duration // zero means DefaultPad
}

// Window returns the safety window [Start-pad, End+pad] searched for
// events to replace.
func (r Request) Window() (time.Time, time.Time) {
	pad := r.Pad
	if pad == 0 {
		pad = DefaultPad
	}
	return r.Start.Add(-pad), r.End.Add(pad)
}

// Validate checks the request before any provider call.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return ErrEmptyTitle
	}
	if !r.Start.Before(r.End) {
		return fmt.Errorf("%w: end %s is not after start %s",
			availability.ErrInvalidRange, r.End.Format(time.RFC3339), r.Start.Format(time.RFC3339))
	}
	if r.Pad < 0 {
		return fmt.Errorf("%w: negative pad %s", availability.ErrInvalidRange, r.Pad)
	}
	return nil
}

// Committed is the result of a successful confirm.
type Committed struct {
	Event    availability.Event
	Replaced []availability.Event
}

// Reconciler replaces same-title events around a new booking.
// It holds no mutable state; callers serialize confirms per title when
// they need to.
type Reconciler struct {
	provider calendar.Provider
	replacer calendar.Replacer
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithStagedCommit forces the staged commit even when the provider can
// replace atomically.
func WithStagedCommit() Option {
	return func(r *Reconciler) { r.replacer = nil }
}

// New returns a reconciler over p. If p implements calendar.Replacer, or
// exposes one through a Replacer method, the atomic path is used.
func New(p calendar.Provider, opts ...Option) *Reconciler {
	r := &Reconciler{provider: p, replacer: replacerOf(p)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func replacerOf(p calendar.Provider) calendar.Replacer {
	if rp, ok := p.(calendar.Replacer); ok {
		return rp
	}
	if src, ok := p.(interface{ Replacer() calendar.Replacer }); ok {
		return src.Replacer()
	}
	return nil
}

// Atomic reports whether confirms use a single atomic replace.
func (r *Reconciler) Atomic() bool {
	return r.replacer != nil
}

// Confirm creates the requested event and deletes every event titled
// req.Title inside the safety window. Calling Confirm twice with the same
// request leaves exactly one event with that title in the window.
//
// Provider failures are returned as *CommitError describing how far the
// commit got.
func (r *Reconciler) Confirm(ctx context.Context, req Request) (*Committed, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	windowStart, windowEnd := req.Window()
	ev := calendar.NewEvent{
		Title:      req.Title,
		Start:      req.Start,
		End:        req.End,
		CalendarID: req.CalendarID,
		Notes:      req.Notes,
	}

	if r.replacer != nil {
		return r.replace(ctx, ev, windowStart, windowEnd)
	}
	return r.staged(ctx, ev, windowStart, windowEnd)
}

func (r *Reconciler) replace(ctx context.Context, ev calendar.NewEvent, windowStart, windowEnd time.Time) (*Committed, error) {
	created, replaced, err := r.replacer.ReplaceByTitle(ctx, ev.Title, windowStart, windowEnd, ev)
	if err != nil {
		applog.Error("replace failed", err, "title", ev.Title)
		var partial *calendar.PartialReplaceError
		if errors.As(err, &partial) {
			return nil, &CommitError{
				Stage:     StageReplace,
				Created:   partial.Created,
				Deleted:   partial.Deleted,
				Remaining: partial.Remaining,
				Err:       partial.Err,
			}
		}
		return nil, &CommitError{Stage: StageReplace, Err: err}
	}
	applog.Info("booking committed", "title", ev.Title, "start", ev.Start.Format(time.RFC3339), "replaced", len(replaced))
	return &Committed{Event: created, Replaced: replaced}, nil
}

// staged runs create, verify, then delete. Nothing is rolled back; a
// failure reports exactly which deletions already happened.
func (r *Reconciler) staged(ctx context.Context, ev calendar.NewEvent, windowStart, windowEnd time.Time) (*Committed, error) {
	created, err := r.provider.CreateEvent(ctx, ev)
	if err != nil {
		applog.Error("creating event failed", err, "title", ev.Title)
		return nil, &CommitError{Stage: StageCreate, Err: err}
	}
	applog.Debug("event created", "id", created.ID, "title", ev.Title)

	events, err := r.provider.QueryEvents(ctx, windowStart, windowEnd, nil)
	if err != nil {
		applog.Error("verifying event failed", err, "id", created.ID)
		return nil, &CommitError{Stage: StageVerify, Created: &created, Err: err}
	}

	visible := false
	var stale []availability.Event
	for _, e := range calendar.MatchTitle(events, ev.Title) {
		if e.ID == created.ID {
			visible = true
			continue
		}
		stale = append(stale, e)
	}
	if !visible {
		applog.Error("verifying event failed", errNotVisible, "id", created.ID)
		return nil, &CommitError{Stage: StageVerify, Created: &created, Remaining: stale, Err: errNotVisible}
	}

	var deleted []availability.Event
	for i, e := range stale {
		if err := r.provider.DeleteEvent(ctx, e.ID); err != nil {
			applog.Error("deleting replaced event failed", err, "id", e.ID, "deleted", len(deleted))
			return nil, &CommitError{
				Stage:     StageDelete,
				Created:   &created,
				Deleted:   deleted,
				Remaining: stale[i:],
				Err:       err,
			}
		}
		deleted = append(deleted, e)
	}

	applog.Info("booking committed", "title", ev.Title, "start", ev.Start.Format(time.RFC3339), "replaced", len(deleted))
	return &Committed{Event: created, Replaced: deleted}, nil
}
