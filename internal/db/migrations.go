package db

import "fmt"

// migrate runs database migrations.
func (s *SQLite) migrate() error {
	query := `
		CREATE TABLE IF NOT EXISTS deferred_tasks (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			title          TEXT NOT NULL,
			duration_hours INTEGER NOT NULL CHECK(duration_hours > 0),
			deadline       DATE NOT NULL,
			contacted_date DATE,
			search_start   DATE NOT NULL,
			calendar_id    TEXT,
			saved_at       INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_deferred_saved ON deferred_tasks(saved_at);

		CREATE TABLE IF NOT EXISTS calendars (
			id    TEXT PRIMARY KEY,
			title TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS events (
			id          TEXT PRIMARY KEY,
			calendar_id TEXT NOT NULL REFERENCES calendars(id),
			title       TEXT NOT NULL,
			start_at    INTEGER NOT NULL,
			end_at      INTEGER NOT NULL CHECK(end_at > start_at),
			notes       TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_events_range ON events(start_at, end_at);
		CREATE INDEX IF NOT EXISTS idx_events_title ON events(title);
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}

	return nil
}
