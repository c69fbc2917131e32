package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/javiermolinar/freeslot/internal/availability"
	"github.com/javiermolinar/freeslot/internal/calendar"
)

// RequestAuthorization always grants access to the local calendar.
func (s *SQLite) RequestAuthorization(_ context.Context) (bool, error) {
	return true, nil
}

// EnsureCalendar creates a calendar if it does not exist yet.
func (s *SQLite) EnsureCalendar(ctx context.Context, id, title string) error {
	return insertCalendar(ctx, s.db, id, title)
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertCalendar(ctx context.Context, ex execer, id, title string) error {
	if title == "" {
		title = id
	}
	_, err := ex.ExecContext(ctx, `INSERT OR IGNORE INTO calendars (id, title) VALUES (?, ?)`, id, title)
	if err != nil {
		return fmt.Errorf("%w: creating calendar %s: %w", calendar.ErrProvider, id, err)
	}
	return nil
}

// ListCalendars returns all local calendars ordered by ID.
func (s *SQLite) ListCalendars(ctx context.Context) ([]calendar.Calendar, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title FROM calendars ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying calendars: %w", calendar.ErrProvider, err)
	}
	defer func() { _ = rows.Close() }()

	var cals []calendar.Calendar
	for rows.Next() {
		var c calendar.Calendar
		if err := rows.Scan(&c.ID, &c.Title); err != nil {
			return nil, fmt.Errorf("%w: scanning calendar: %w", calendar.ErrProvider, err)
		}
		cals = append(cals, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating calendars: %w", calendar.ErrProvider, err)
	}
	return cals, nil
}

const selectEvents = `SELECT id, calendar_id, title, start_at, end_at, notes FROM events`

// QueryEvents returns events intersecting [start, end) ordered by start.
func (s *SQLite) QueryEvents(ctx context.Context, start, end time.Time, calendars []string) ([]availability.Event, error) {
	return queryEvents(ctx, s.db, s.loc, start, end, "", calendars)
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryEvents(ctx context.Context, q queryer, loc *time.Location, start, end time.Time, title string, calendars []string) ([]availability.Event, error) {
	var (
		where = []string{"start_at < ?", "end_at > ?"}
		args  = []any{end.Unix(), start.Unix()}
	)
	if title != "" {
		where = append(where, "title = ?")
		args = append(args, title)
	}
	if len(calendars) > 0 {
		where = append(where, "calendar_id IN (?"+strings.Repeat(", ?", len(calendars)-1)+")")
		for _, c := range calendars {
			args = append(args, c)
		}
	}

	query := selectEvents + " WHERE " + strings.Join(where, " AND ") + " ORDER BY start_at, end_at"
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying events: %w", calendar.ErrProvider, err)
	}
	defer func() { _ = rows.Close() }()

	var events []availability.Event
	for rows.Next() {
		var (
			e       availability.Event
			startAt int64
			endAt   int64
			notes   sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.CalendarID, &e.Title, &startAt, &endAt, &notes); err != nil {
			return nil, fmt.Errorf("%w: scanning event: %w", calendar.ErrProvider, err)
		}
		e.Start = time.Unix(startAt, 0).In(loc)
		e.End = time.Unix(endAt, 0).In(loc)
		e.Notes = notes.String
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating events: %w", calendar.ErrProvider, err)
	}
	return events, nil
}

// CreateEvent stores a new event, creating its calendar if needed.
func (s *SQLite) CreateEvent(ctx context.Context, ev calendar.NewEvent) (availability.Event, error) {
	if err := ev.Validate(); err != nil {
		return availability.Event{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return availability.Event{}, fmt.Errorf("%w: beginning transaction: %w", calendar.ErrProvider, err)
	}
	defer func() { _ = tx.Rollback() }()

	created, err := s.insertEvent(ctx, tx, ev)
	if err != nil {
		return availability.Event{}, err
	}

	if err := tx.Commit(); err != nil {
		return availability.Event{}, fmt.Errorf("%w: committing transaction: %w", calendar.ErrProvider, err)
	}
	return created, nil
}

// DeleteEvent removes an event by ID.
func (s *SQLite) DeleteEvent(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: deleting event: %w", calendar.ErrProvider, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: %s", calendar.ErrNotFound, id)
	}
	return nil
}

// ReplaceByTitle deletes every event titled title intersecting the window
// and inserts ev in one transaction.
func (s *SQLite) ReplaceByTitle(ctx context.Context, title string, windowStart, windowEnd time.Time, ev calendar.NewEvent) (availability.Event, []availability.Event, error) {
	if err := ev.Validate(); err != nil {
		return availability.Event{}, nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return availability.Event{}, nil, fmt.Errorf("%w: beginning transaction: %w", calendar.ErrProvider, err)
	}
	defer func() { _ = tx.Rollback() }()

	replaced, err := queryEvents(ctx, tx, s.loc, windowStart, windowEnd, title, nil)
	if err != nil {
		return availability.Event{}, nil, err
	}

	for _, e := range replaced {
		if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, e.ID); err != nil {
			return availability.Event{}, nil, fmt.Errorf("%w: deleting event %s: %w", calendar.ErrProvider, e.ID, err)
		}
	}

	created, err := s.insertEvent(ctx, tx, ev)
	if err != nil {
		return availability.Event{}, nil, err
	}

	if err := tx.Commit(); err != nil {
		return availability.Event{}, nil, fmt.Errorf("%w: committing transaction: %w", calendar.ErrProvider, err)
	}
	return created, replaced, nil
}

// ImportEvents upserts events keeping their IDs. Events without a calendar
// go to the default calendar.
func (s *SQLite) ImportEvents(ctx context.Context, events []availability.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: beginning transaction: %w", calendar.ErrProvider, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO events (id, calendar_id, title, start_at, end_at, notes)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("%w: preparing statement: %w", calendar.ErrProvider, err)
	}
	defer func() { _ = stmt.Close() }()

	seen := make(map[string]bool)
	n := 0
	for _, e := range events {
		if !e.Valid() {
			continue
		}
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.CalendarID == "" {
			e.CalendarID = s.defaultCal
		}
		if !seen[e.CalendarID] {
			if err := insertCalendar(ctx, tx, e.CalendarID, ""); err != nil {
				return 0, err
			}
			seen[e.CalendarID] = true
		}
		if _, err := stmt.ExecContext(ctx, e.ID, e.CalendarID, e.Title, e.Start.Unix(), e.End.Unix(), e.Notes); err != nil {
			return 0, fmt.Errorf("%w: importing event %q: %w", calendar.ErrProvider, e.Title, err)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: committing transaction: %w", calendar.ErrProvider, err)
	}
	return n, nil
}

func (s *SQLite) insertEvent(ctx context.Context, tx *sql.Tx, ev calendar.NewEvent) (availability.Event, error) {
	calID := ev.CalendarID
	if calID == "" {
		calID = s.defaultCal
	}
	if err := insertCalendar(ctx, tx, calID, ""); err != nil {
		return availability.Event{}, err
	}

	e := availability.Event{
		ID:         uuid.NewString(),
		Title:      ev.Title,
		Start:      ev.Start.In(s.loc),
		End:        ev.End.In(s.loc),
		CalendarID: calID,
		Notes:      ev.Notes,
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO events (id, calendar_id, title, start_at, end_at, notes)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.CalendarID, e.Title, e.Start.Unix(), e.End.Unix(), e.Notes)
	if err != nil {
		return availability.Event{}, fmt.Errorf("%w: inserting event: %w", calendar.ErrProvider, err)
	}
	return e, nil
}
