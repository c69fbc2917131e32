package ui

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/javiermolinar/freeslot/internal/deferred"
	"github.com/javiermolinar/freeslot/internal/planner"
)

func (a *App) deferCmd() *cobra.Command {
	var (
		hours      int
		from       string
		deadline   string
		contacted  string
		calendarID string
	)

	cmd := &cobra.Command{
		Use:   "defer [title]",
		Short: "Save a search to book later",
		Long: `Save a task that still needs a slot. It can be booked later with
"freeslot deferred book", which picks the first free slot before the deadline.`,
		Example: `  freeslot defer "Quarterly review" --hours=3 --deadline=2025-01-31
  freeslot defer "Dentist" --hours=1 --from=next-monday --contacted=today`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ensurePlanner(); err != nil {
				return err
			}
			now := a.now()
			req := planner.DeferRequest{
				Title:         args[0],
				DurationHours: hours,
				CalendarID:    calendarID,
			}
			var err error
			if from != "" {
				if req.SearchStart, err = parseDay(from, now); err != nil {
					return err
				}
			}
			if deadline != "" {
				if req.Deadline, err = parseDay(deadline, now); err != nil {
					return err
				}
			}
			if req.Contacted, err = parseOptionalDay(contacted, now); err != nil {
				return err
			}

			t, err := a.planner.Defer(context.Background(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deferred #%d: %s (%dh, %s to %s)\n",
				t.ID, formatTitle(t.Title), t.DurationHours,
				t.SearchStart.Format(time.DateOnly), t.Deadline.Format(time.DateOnly))
			return nil
		},
	}

	cmd.Flags().IntVar(&hours, "hours", 1, "Whole hours needed")
	cmd.Flags().StringVar(&from, "from", "", "First day to search (default: today)")
	cmd.Flags().StringVar(&deadline, "deadline", "", "Last day to search (default: from + range_days)")
	cmd.Flags().StringVar(&contacted, "contacted", "", "Day the request came in")
	cmd.Flags().StringVar(&calendarID, "calendar", "", "Target calendar (default from config)")
	return cmd
}

func (a *App) deferredCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deferred",
		Short: "Manage deferred tasks",
	}
	cmd.AddCommand(a.deferredListCmd())
	cmd.AddCommand(a.deferredBookCmd())
	cmd.AddCommand(a.deferredRmCmd())
	cmd.AddCommand(a.deferredClearCmd())
	return cmd
}

func (a *App) deferredListCmd() *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List deferred tasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.ensurePlanner(); err != nil {
				return err
			}
			tasks, err := a.planner.Deferred(context.Background())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if asYAML {
				return writeDeferredYAML(w, tasks)
			}
			if len(tasks) == 0 {
				fmt.Fprintln(w, "No deferred tasks.")
				return nil
			}
			now := a.now()
			for _, t := range tasks {
				line := fmt.Sprintf("  #%d %s  %dh  %s to %s",
					t.ID, formatTitle(t.Title), t.DurationHours,
					t.SearchStart.Format(time.DateOnly), t.Deadline.Format(time.DateOnly))
				if t.Expired(now) {
					line += "  " + formatWarn("expired")
				}
				fmt.Fprintln(w, line)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print as YAML")
	return cmd
}

func (a *App) deferredBookCmd() *cobra.Command {
	var (
		date string
		at   string
	)

	cmd := &cobra.Command{
		Use:   "book [id]",
		Short: "Book a deferred task",
		Long: `Book a deferred task and remove it from the list.

Without --at the first free slot between the search start and the deadline
is used.`,
		Example: `  freeslot deferred book 3
  freeslot deferred book 3 --date=tomorrow --at=14:00`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ensurePlanner(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var start time.Time
			if at != "" {
				if start, err = parseStart(date, at, a.now()); err != nil {
					return err
				}
			}

			b, err := a.planner.BookDeferred(context.Background(), id, start)
			if b != nil {
				printBooking(cmd.OutOrStdout(), b)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Day, used with --at (default: today)")
	cmd.Flags().StringVar(&at, "at", "", "Start time (HH:MM, default: first free slot)")
	return cmd
}

func (a *App) deferredRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm [id]",
		Short: "Remove a deferred task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ensurePlanner(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.planner.DeleteDeferred(context.Background(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed deferred task #%d\n", id)
			return nil
		},
	}
}

func (a *App) deferredClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every deferred task",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.ensurePlanner(); err != nil {
				return err
			}
			n, err := a.planner.ClearDeferred(context.Background())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d deferred tasks\n", n)
			return nil
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", s)
	}
	return id, nil
}

type deferredDoc struct {
	ID          int64  `yaml:"id"`
	Title       string `yaml:"title"`
	Hours       int    `yaml:"hours"`
	SearchStart string `yaml:"search_start"`
	Deadline    string `yaml:"deadline"`
	Contacted   string `yaml:"contacted,omitempty"`
	Calendar    string `yaml:"calendar,omitempty"`
	SavedAt     string `yaml:"saved_at"`
}

// writeDeferredYAML exports deferred tasks as a YAML list.
func writeDeferredYAML(w io.Writer, tasks []*deferred.Task) error {
	docs := make([]deferredDoc, 0, len(tasks))
	for _, t := range tasks {
		d := deferredDoc{
			ID:          t.ID,
			Title:       t.Title,
			Hours:       t.DurationHours,
			SearchStart: t.SearchStart.Format(time.DateOnly),
			Deadline:    t.Deadline.Format(time.DateOnly),
			Calendar:    t.CalendarID,
			SavedAt:     t.SavedAt.Format(time.RFC3339),
		}
		if t.ContactedDate != nil {
			d.Contacted = t.ContactedDate.Format(time.DateOnly)
		}
		docs = append(docs, d)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(docs); err != nil {
		return fmt.Errorf("encoding deferred tasks: %w", err)
	}
	return enc.Close()
}
