package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/javiermolinar/freeslot/internal/availability"
	"github.com/javiermolinar/freeslot/internal/calendar"
	"github.com/javiermolinar/freeslot/internal/calendar/ics"
	"github.com/javiermolinar/freeslot/internal/config"
	"github.com/javiermolinar/freeslot/internal/dateutil"
)

// Default import window around today.
const (
	importPastDays   = 90
	importFutureDays = 365
)

func (a *App) importCmd() *cobra.Command {
	var (
		calendarID string
		startDate  string
		endDate    string
	)

	cmd := &cobra.Command{
		Use:   "import [file.ics]",
		Short: "Import events from an iCalendar file",
		Long: `Import the events of an .ics file into the configured calendar provider.

Recurring events are expanded between --start and --end; by default the
window runs from 90 days ago to a year ahead. Importing the same file again
updates the events instead of duplicating them.`,
		Example: `  freeslot import ~/Downloads/work.ics --calendar=work
  freeslot import team.ics --start=2025-01-01 --end=2025-06-30`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ensurePlanner(); err != nil {
				return err
			}
			path, err := resolvePath(args[0])
			if err != nil {
				return err
			}
			data, err := afero.ReadFile(a.fs, path)
			if err != nil {
				if os.IsNotExist(err) {
					return fmt.Errorf("calendar file does not exist: %s", path)
				}
				return fmt.Errorf("reading calendar file: %w", err)
			}
			if calendarID == "" {
				calendarID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			}

			now := a.now()
			today := dateutil.TruncateToDay(now)
			from, to := today.AddDate(0, 0, -importPastDays), today.AddDate(0, 0, importFutureDays)
			if startDate != "" || endDate != "" {
				dr, err := dateutil.NewDateRange(startDate, endDate, now.Location())
				if err != nil {
					return err
				}
				from, to = dr.Start, dr.End.AddDate(0, 0, 1)
			}

			n, err := a.importICS(context.Background(), data, calendarID, from, to)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d events into %s from %s\n", n, calendarID, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&calendarID, "calendar", "", "Target calendar (default: file name)")
	cmd.Flags().StringVar(&startDate, "start", "", "First day to import (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "end", "", "Last day to import (YYYY-MM-DD)")
	return cmd
}

// importICS stores the events of an iCalendar payload in the configured
// provider. The ics provider keeps the raw calendar; the SQLite store
// receives the occurrences expanded between from and to.
func (a *App) importICS(ctx context.Context, data []byte, calendarID string, from, to time.Time) (int, error) {
	if !a.planner.Authorized(ctx) {
		return 0, calendar.ErrUnauthorized
	}
	switch a.config.Calendar.Provider {
	case config.ProviderICS:
		p := ics.New(a.fs, a.config.Calendar.ICSDir, ics.WithLocation(from.Location()))
		if _, err := p.RequestAuthorization(ctx); err != nil {
			return 0, err
		}
		n, err := p.Import(calendarID, data)
		if err != nil {
			return 0, fmt.Errorf("importing calendar: %w", err)
		}
		return n, nil
	case config.ProviderSQLite:
		events, err := readICS(ctx, data, calendarID, from, to)
		if err != nil {
			return 0, err
		}
		n, err := a.store.ImportEvents(ctx, events)
		if err != nil {
			return 0, fmt.Errorf("importing events: %w", err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("the %s provider does not keep imported events", a.config.Calendar.Provider)
	}
}

// readICS expands the events of an iCalendar payload between from and to,
// using a scratch in-memory calendar directory.
func readICS(ctx context.Context, data []byte, calendarID string, from, to time.Time) ([]availability.Event, error) {
	p := ics.New(afero.NewMemMapFs(), "/import", ics.WithLocation(from.Location()))
	if _, err := p.RequestAuthorization(ctx); err != nil {
		return nil, err
	}
	if _, err := p.Import(calendarID, data); err != nil {
		return nil, fmt.Errorf("parsing calendar: %w", err)
	}
	events, err := p.QueryEvents(ctx, from, to, nil)
	if err != nil {
		return nil, fmt.Errorf("expanding events: %w", err)
	}
	return events, nil
}

func resolvePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("empty path")
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	return absPath, nil
}
