package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/javiermolinar/freeslot/internal/calendar"
	"github.com/javiermolinar/freeslot/internal/calendar/ics"
	"github.com/javiermolinar/freeslot/internal/calendar/memory"
	"github.com/javiermolinar/freeslot/internal/config"
	"github.com/javiermolinar/freeslot/internal/db"
	applog "github.com/javiermolinar/freeslot/internal/log"
	"github.com/javiermolinar/freeslot/internal/planner"
)

var (
	// Version is set at build time
	Version = "dev"
	// Commit is set at build time
	Commit = "none"
)

// App holds the CLI application state.
type App struct {
	config    *config.Config
	root      *cobra.Command
	debug     bool
	calendars []string // restricts queries, empty means all
	fs        afero.Fs
	now       func() time.Time

	// Opened on first use by ensurePlanner.
	store    *db.SQLite
	provider calendar.Provider
	planner  *planner.Planner
}

// Option configures an App.
type Option func(*App)

// WithFs sets the filesystem holding .ics calendars.
func WithFs(fs afero.Fs) Option {
	return func(a *App) { a.fs = fs }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// NewApp creates a new CLI application with the given config.
func NewApp(cfg *config.Config, opts ...Option) *App {
	a := &App{config: cfg, fs: afero.NewOsFs(), now: time.Now}
	for _, opt := range opts {
		opt(a)
	}

	a.root = &cobra.Command{
		Use:   "freeslot",
		Short: "Find free hours in your calendar and book them",
		Long: `Freeslot reads your calendars, lays the busy hours out on an hourly grid
and finds the slots where a task of a given length still fits.

Without a subcommand it shows this week's timetable.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.setup()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.printWeek(cmd, 0, false)
		},
	}

	a.root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")
	a.root.PersistentFlags().StringSliceVar(&a.calendars, "calendars", nil, "Only read these calendar IDs (comma-separated)")

	a.root.AddCommand(a.versionCmd())
	a.root.AddCommand(a.configCmd())
	a.root.AddCommand(a.calendarsCmd())
	a.root.AddCommand(a.blocksCmd())
	a.root.AddCommand(a.weekCmd())
	a.root.AddCommand(a.browseCmd())
	a.root.AddCommand(a.checkCmd())
	a.root.AddCommand(a.suggestCmd())
	a.root.AddCommand(a.bookCmd())
	a.root.AddCommand(a.deferCmd())
	a.root.AddCommand(a.deferredCmd())
	a.root.AddCommand(a.eventCmd())
	a.root.AddCommand(a.importCmd())

	return a
}

func (a *App) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "freeslot %s (commit: %s)\n", Version, Commit)
		},
	}
}

// setup applies the logging and color settings before any command runs.
func (a *App) setup() error {
	level, err := applog.ParseLevel(a.config.Log.Level)
	if err != nil {
		return err
	}
	if a.debug {
		level = applog.LevelDebug
	}
	applog.SetLevel(level)

	if !a.config.UI.Color {
		DisableColor()
	}
	return nil
}

// ensurePlanner opens the store and the calendar provider on first use.
// The SQLite store always holds deferred tasks; it also serves events
// when it is the configured provider.
func (a *App) ensurePlanner() error {
	if a.planner != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(a.config.Storage.DBPath), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	loc := a.now().Location()
	store, err := db.New(a.config.Storage.DBPath,
		db.WithDefaultCalendar(a.config.Calendar.DefaultCalendar),
		db.WithLocation(loc),
	)
	if err != nil {
		return err
	}

	var p calendar.Provider
	switch a.config.Calendar.Provider {
	case config.ProviderICS:
		p = ics.New(a.fs, a.config.Calendar.ICSDir,
			ics.WithDefaultCalendar(a.config.Calendar.DefaultCalendar),
			ics.WithLocation(loc),
		)
	case config.ProviderMemory:
		p = memory.New(calendar.Calendar{ID: a.config.Calendar.DefaultCalendar, Title: a.config.Calendar.DefaultCalendar})
	default:
		p = store
	}
	gate := calendar.NewGate(p, calendar.WithAccess(a.config.AccessGranted()))

	pl, err := planner.New(a.config, gate, store, planner.WithCalendars(a.calendars...), planner.WithClock(a.now))
	if err != nil {
		_ = store.Close()
		return err
	}

	applog.Debug("planner ready", "provider", a.config.Calendar.Provider, "db", a.config.Storage.DBPath)
	a.store = store
	a.provider = gate
	a.planner = pl
	return nil
}

// Close releases the store, if it was opened.
func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

// Execute runs the CLI application.
func (a *App) Execute() error {
	return a.root.Execute()
}
