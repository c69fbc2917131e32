// Package deferred models search requests the user set aside to book later.
package deferred

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/javiermolinar/freeslot/internal/dateutil"
)

// Validation errors.
var (
	ErrEmptyTitle          = errors.New("title cannot be empty")
	ErrInvalidDuration     = errors.New("duration must be a positive number of hours")
	ErrDeadlineBeforeStart = errors.New("deadline must be on or after the search start")
)

// Domain errors.
var (
	ErrNotFound = errors.New("deferred task not found")
)

// Task is a saved search: book Title for DurationHours somewhere between
// SearchStart and Deadline.
type Task struct {
	ID            int64
	Title         string
	DurationHours int
	Deadline      time.Time  // last day searched
	ContactedDate *time.Time // optional, when the request came in
	SearchStart   time.Time
	CalendarID    string // empty means the default calendar
	SavedAt       time.Time
}

// New creates a Task with validation. searchStart and deadline are
// truncated to the day.
func New(title string, durationHours int, searchStart, deadline time.Time) (*Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if durationHours <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDuration, durationHours)
	}

	start := dateutil.TruncateToDay(searchStart)
	end := dateutil.TruncateToDay(deadline)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: %s < %s", ErrDeadlineBeforeStart,
			end.Format(time.DateOnly), start.Format(time.DateOnly))
	}

	return &Task{
		Title:         title,
		DurationHours: durationHours,
		Deadline:      end,
		SearchStart:   start,
		SavedAt:       time.Now(),
	}, nil
}

// Duration returns the task length.
func (t *Task) Duration() time.Duration {
	return time.Duration(t.DurationHours) * time.Hour
}

// Expired reports whether the deadline day is before now's day.
func (t *Task) Expired(now time.Time) bool {
	return t.Deadline.Before(dateutil.TruncateToDay(now.In(t.Deadline.Location())))
}

// Repository stores deferred tasks.
type Repository interface {
	// SaveDeferred inserts a task and sets its ID.
	SaveDeferred(ctx context.Context, t *Task) error

	// ListDeferred returns all tasks, most recently saved first.
	ListDeferred(ctx context.Context) ([]*Task, error)

	// GetDeferred returns a task by ID or ErrNotFound.
	GetDeferred(ctx context.Context, id int64) (*Task, error)

	// DeleteDeferred removes a task or returns ErrNotFound.
	DeleteDeferred(ctx context.Context, id int64) error

	// ClearDeferred removes every task and returns how many were removed.
	ClearDeferred(ctx context.Context) (int, error)

	// Close releases any resources held by the repository.
	Close() error
}
