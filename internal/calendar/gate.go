package calendar

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/javiermolinar/freeslot/internal/availability"
	applog "github.com/javiermolinar/freeslot/internal/log"
)

// Gate wraps a provider and enforces the authorization grant.
//
// Without a grant every query yields no events and no error, so a caller
// that skips Authorized would see an empty calendar. Callers must check
// Authorized before treating an empty grid as confirmed availability.
// Mutations are refused with ErrUnauthorized.
type Gate struct {
	inner   Provider
	revoked bool

	mu         sync.Mutex
	requested  bool
	authorized bool
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithAccess overrides the grant. A false value denies access without
// consulting the wrapped provider.
func WithAccess(granted bool) GateOption {
	return func(g *Gate) { g.revoked = !granted }
}

// NewGate returns a gate around p. Authorization is requested lazily.
func NewGate(p Provider, opts ...GateOption) *Gate {
	g := &Gate{inner: p}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Inner returns the wrapped provider.
func (g *Gate) Inner() Provider {
	return g.inner
}

// RequestAuthorization asks the wrapped provider for access once and caches
// the answer. A provider error is treated as a denial.
func (g *Gate) RequestAuthorization(ctx context.Context) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.requested {
		return g.authorized, nil
	}
	if g.revoked {
		g.requested = true
		applog.Warn("calendar access disabled by configuration; queries will return no events")
		return false, nil
	}

	ok, err := g.inner.RequestAuthorization(ctx)
	if err != nil {
		applog.Error("calendar authorization failed", err)
		return false, fmt.Errorf("%w: requesting authorization: %w", ErrProvider, err)
	}
	g.requested = true
	g.authorized = ok
	if !ok {
		applog.Warn("calendar access denied; queries will return no events")
	}
	return ok, nil
}

// Authorized reports whether access has been granted.
func (g *Gate) Authorized() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requested && g.authorized
}

func (g *Gate) ensure(ctx context.Context) bool {
	ok, err := g.RequestAuthorization(ctx)
	return err == nil && ok
}

func (g *Gate) ListCalendars(ctx context.Context) ([]Calendar, error) {
	if !g.ensure(ctx) {
		return nil, nil
	}
	return g.inner.ListCalendars(ctx)
}

func (g *Gate) QueryEvents(ctx context.Context, start, end time.Time, calendars []string) ([]availability.Event, error) {
	if !g.ensure(ctx) {
		return nil, nil
	}
	return g.inner.QueryEvents(ctx, start, end, calendars)
}

func (g *Gate) CreateEvent(ctx context.Context, ev NewEvent) (availability.Event, error) {
	if !g.ensure(ctx) {
		return availability.Event{}, ErrUnauthorized
	}
	return g.inner.CreateEvent(ctx, ev)
}

func (g *Gate) DeleteEvent(ctx context.Context, id string) error {
	if !g.ensure(ctx) {
		return ErrUnauthorized
	}
	return g.inner.DeleteEvent(ctx, id)
}

// Replacer returns the wrapped provider's Replacer behind the same gate,
// or nil when the provider does not support atomic replacement.
func (g *Gate) Replacer() Replacer {
	if _, ok := g.inner.(Replacer); !ok {
		return nil
	}
	return gatedReplacer{g}
}

type gatedReplacer struct {
	g *Gate
}

func (r gatedReplacer) ReplaceByTitle(ctx context.Context, title string, windowStart, windowEnd time.Time, ev NewEvent) (availability.Event, []availability.Event, error) {
	if !r.g.ensure(ctx) {
		return availability.Event{}, nil, ErrUnauthorized
	}
	return r.g.inner.(Replacer).ReplaceByTitle(ctx, title, windowStart, windowEnd, ev)
}
