// Package db provides SQLite storage for deferred tasks and a local calendar.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/javiermolinar/freeslot/internal/deferred"
)

const defaultCalendar = "personal"

// SQLite implements deferred.Repository and calendar.Provider using SQLite.
type SQLite struct {
	db         *sql.DB
	loc        *time.Location
	defaultCal string
}

// Option configures a SQLite store.
type Option func(*SQLite)

// WithLocation sets the location stored times are returned in.
func WithLocation(loc *time.Location) Option {
	return func(s *SQLite) { s.loc = loc }
}

// WithDefaultCalendar sets the calendar new events go to when none is given.
func WithDefaultCalendar(id string) Option {
	return func(s *SQLite) { s.defaultCal = id }
}

// New creates a new SQLite store and runs migrations.
func New(path string, opts ...Option) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &SQLite{db: db, loc: time.Local, defaultCal: defaultCalendar}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close releases database resources.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// SaveDeferred inserts a deferred task and sets its ID.
func (s *SQLite) SaveDeferred(ctx context.Context, t *deferred.Task) error {
	query := `
		INSERT INTO deferred_tasks (
			title, duration_hours, deadline, contacted_date, search_start, calendar_id, saved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	var contacted any
	if t.ContactedDate != nil {
		contacted = t.ContactedDate.Format(time.DateOnly)
	}
	var calendarID any
	if t.CalendarID != "" {
		calendarID = t.CalendarID
	}
	if t.SavedAt.IsZero() {
		t.SavedAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx, query,
		t.Title,
		t.DurationHours,
		t.Deadline.Format(time.DateOnly),
		contacted,
		t.SearchStart.Format(time.DateOnly),
		calendarID,
		t.SavedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("inserting deferred task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting last insert id: %w", err)
	}
	t.ID = id

	return nil
}

const selectDeferred = `
	SELECT id, title, duration_hours, deadline, contacted_date, search_start, calendar_id, saved_at
	FROM deferred_tasks
`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLite) scanDeferred(row rowScanner) (*deferred.Task, error) {
	var (
		t           deferred.Task
		deadline    string
		contacted   sql.NullString
		searchStart string
		calendarID  sql.NullString
		savedAt     int64
	)

	if err := row.Scan(
		&t.ID,
		&t.Title,
		&t.DurationHours,
		&deadline,
		&contacted,
		&searchStart,
		&calendarID,
		&savedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if t.Deadline, err = s.parseDate(deadline); err != nil {
		return nil, fmt.Errorf("parsing deadline: %w", err)
	}
	if t.SearchStart, err = s.parseDate(searchStart); err != nil {
		return nil, fmt.Errorf("parsing search start: %w", err)
	}
	if contacted.Valid {
		d, err := s.parseDate(contacted.String)
		if err != nil {
			return nil, fmt.Errorf("parsing contacted date: %w", err)
		}
		t.ContactedDate = &d
	}
	t.CalendarID = calendarID.String
	t.SavedAt = time.Unix(0, savedAt).In(s.loc)

	return &t, nil
}

// ListDeferred returns all deferred tasks, most recently saved first.
func (s *SQLite) ListDeferred(ctx context.Context) ([]*deferred.Task, error) {
	rows, err := s.db.QueryContext(ctx, selectDeferred+` ORDER BY saved_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying deferred tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*deferred.Task
	for rows.Next() {
		t, err := s.scanDeferred(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning deferred task: %w", err)
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating deferred tasks: %w", err)
	}

	return tasks, nil
}

// GetDeferred retrieves a deferred task by ID.
func (s *SQLite) GetDeferred(ctx context.Context, id int64) (*deferred.Task, error) {
	t, err := s.scanDeferred(s.db.QueryRowContext(ctx, selectDeferred+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: #%d", deferred.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying deferred task: %w", err)
	}
	return t, nil
}

// DeleteDeferred removes a deferred task.
func (s *SQLite) DeleteDeferred(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM deferred_tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting deferred task: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: #%d", deferred.ErrNotFound, id)
	}

	return nil
}

// ClearDeferred removes every deferred task.
func (s *SQLite) ClearDeferred(ctx context.Context) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM deferred_tasks`)
	if err != nil {
		return 0, fmt.Errorf("clearing deferred tasks: %w", err)
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}

// parseDate parses a date string in the formats SQLite might return as
// midnight in the store's location.
func (s *SQLite) parseDate(v string) (time.Time, error) {
	if t, err := time.ParseInLocation(time.DateOnly, v, s.loc); err == nil {
		return t, nil
	}

	// DATE columns can come back as "2006-01-02T00:00:00Z".
	if len(v) == 20 && v[10] == 'T' && v[19] == 'Z' {
		if t, err := time.ParseInLocation(time.DateOnly, v[:10], s.loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date format: %s", v)
}
