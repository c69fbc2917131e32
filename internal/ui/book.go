package ui

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/freeslot/internal/dateutil"
	"github.com/javiermolinar/freeslot/internal/planner"
)

func (a *App) bookCmd() *cobra.Command {
	var (
		date       string
		at         string
		duration   string
		calendarID string
		contacted  string
		deadline   string
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "book [title]",
		Short: "Book a task into the calendar",
		Long: `Book a task at a start time if the slot is free.

Earlier events with the same title within pad_days of the new one are
replaced, so booking a recurring task again moves it. A taken slot leaves
the calendar untouched unless --force is given.`,
		Example: `  freeslot book "Weekly report" --date=tomorrow --at=10:00 --duration=2
  freeslot book "Client call" --date=2025-01-14 --at=15:00 --duration=45m --deadline=2025-01-17`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ensurePlanner(); err != nil {
				return err
			}
			now := a.now()
			start, err := parseStart(date, at, now)
			if err != nil {
				return err
			}
			d, err := dateutil.ParseDuration(duration)
			if err != nil {
				return err
			}
			req := planner.BookRequest{
				Title:      args[0],
				Start:      start,
				Duration:   d,
				CalendarID: calendarID,
				Force:      force,
			}
			if req.Contacted, err = parseOptionalDay(contacted, now); err != nil {
				return err
			}
			if req.Deadline, err = parseOptionalDay(deadline, now); err != nil {
				return err
			}

			b, err := a.planner.Book(context.Background(), req)
			if err != nil {
				return err
			}
			printBooking(cmd.OutOrStdout(), b)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Day (YYYY-MM-DD or tomorrow, next-friday...; default: today)")
	cmd.Flags().StringVar(&at, "at", "", "Start time (HH:MM, required)")
	cmd.Flags().StringVar(&duration, "duration", "1", "Hours, or a duration such as 90m")
	cmd.Flags().StringVar(&calendarID, "calendar", "", "Target calendar (default from config)")
	cmd.Flags().StringVar(&contacted, "contacted", "", "Day the request came in, recorded in the notes")
	cmd.Flags().StringVar(&deadline, "deadline", "", "Deadline, recorded in the notes")
	cmd.Flags().BoolVar(&force, "force", false, "Book even if the slot is taken")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}

// printBooking reports what Book did.
func printBooking(w io.Writer, b *planner.Booking) {
	if !b.Booked {
		printVerdict(w, b.Verdict)
		fmt.Fprintln(w, "Nothing was booked. Use --force to book anyway.")
		return
	}

	ev := b.Event
	fmt.Fprintf(w, "Booked %s on %s %s [%s]\n",
		formatTitle(ev.Title),
		ev.Start.Format("Mon Jan 2"),
		formatSpan(ev.Start, ev.End),
		ev.CalendarID,
	)
	for _, r := range b.Replaced {
		fmt.Fprintf(w, "  %s %s %s\n", formatMuted("replaced"), r.Start.Format("Mon Jan 2"), formatSpan(r.Start, r.End))
	}
	if !b.Verdict.Available {
		fmt.Fprintf(w, "  %s overlaps %s\n", formatWarn("forced:"), formatTitle(b.Verdict.BlockedBy))
	}
}
