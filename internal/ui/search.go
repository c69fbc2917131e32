package ui

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/freeslot/internal/dateutil"
	"github.com/javiermolinar/freeslot/internal/planner"
)

func (a *App) blocksCmd() *cobra.Command {
	var (
		startDate string
		endDate   string
	)

	cmd := &cobra.Command{
		Use:   "blocks",
		Short: "List busy blocks in a date range",
		Long: `List the busy hours of a date range merged into blocks: contiguous hours
of the same event on the same day.

If no dates are specified, lists today's blocks.
If only --start is specified, lists blocks for that single day.`,
		Example: `  freeslot blocks
  freeslot blocks --start=2025-01-13 --end=2025-01-17`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.ensurePlanner(); err != nil {
				return err
			}
			dr, err := dateutil.NewDateRange(startDate, endDate, a.now().Location())
			if err != nil {
				return err
			}

			ctx := context.Background()
			blocks, err := a.planner.Blocks(ctx, dr.Start, dr.End)
			if err != nil {
				return fmt.Errorf("listing blocks: %w", err)
			}

			w := cmd.OutOrStdout()
			printAccessWarning(w, a.planner.Authorized(ctx))
			printBlocks(w, blocks)
			return nil
		},
	}

	cmd.Flags().StringVar(&startDate, "start", "", "Start date (YYYY-MM-DD, defaults to today)")
	cmd.Flags().StringVar(&endDate, "end", "", "End date (YYYY-MM-DD, defaults to start date)")
	return cmd
}

func (a *App) checkCmd() *cobra.Command {
	var (
		date     string
		at       string
		duration string
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check whether a slot is free",
		Long: `Check whether a task of the given length fits at a start time.
The duration is rounded up to whole hours.`,
		Example: `  freeslot check --date=tomorrow --at=10:00 --duration=2
  freeslot check --date=2025-01-14 --at=15:00 --duration=90m`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.ensurePlanner(); err != nil {
				return err
			}
			start, err := parseStart(date, at, a.now())
			if err != nil {
				return err
			}
			d, err := dateutil.ParseDuration(duration)
			if err != nil {
				return err
			}

			ctx := context.Background()
			v, err := a.planner.Check(ctx, start, d)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printAccessWarning(w, a.planner.Authorized(ctx))
			printVerdict(w, v)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Day (YYYY-MM-DD or tomorrow, next-friday...; default: today)")
	cmd.Flags().StringVar(&at, "at", "", "Start time (HH:MM, required)")
	cmd.Flags().StringVar(&duration, "duration", "1", "Hours, or a duration such as 90m")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}

func (a *App) suggestCmd() *cobra.Command {
	var (
		from     string
		to       string
		duration string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest free slots for a task",
		Long: `List the earliest starts, inside the preferred window of each workday,
at which a task of the given length fits.

Without --from the search begins at the next searchable hour; without --to
it covers the configured range_days.`,
		Example: `  freeslot suggest --duration=2
  freeslot suggest --duration=3 --from=next-monday --to=2025-01-31 --limit=10`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.ensurePlanner(); err != nil {
				return err
			}
			d, err := dateutil.ParseDuration(duration)
			if err != nil {
				return err
			}
			req := planner.SuggestRequest{Duration: d, Limit: limit}
			if from != "" {
				day, err := parseDay(from, a.now())
				if err != nil {
					return err
				}
				// Today or earlier starts at the next searchable hour.
				req.From = day
				if !day.After(a.now()) {
					req.From = a.planner.Scheduler().NextSearchStart(a.now())
				}
			}
			if to != "" {
				if req.To, err = parseDay(to, a.now()); err != nil {
					return err
				}
			}

			ctx := context.Background()
			cells, err := a.planner.Suggest(ctx, req)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printAccessWarning(w, a.planner.Authorized(ctx))
			if len(cells) == 0 {
				fmt.Fprintf(w, "No free %s slot found.\n", formatDuration(d))
				return nil
			}
			fmt.Fprintf(w, "%s\n", formatHeader(fmt.Sprintf("Free slots for %s:", formatDuration(d))))
			for _, c := range cells {
				start := c.Start()
				fmt.Fprintf(w, "  %s  %s\n", formatFree(start.Format("Mon Jan 2")), formatSpan(start, start.Add(d)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "First day searched (default: now)")
	cmd.Flags().StringVar(&to, "to", "", "Last day searched (default: from + range_days)")
	cmd.Flags().StringVar(&duration, "duration", "1", "Hours, or a duration such as 90m")
	cmd.Flags().IntVar(&limit, "limit", 5, "Maximum suggestions (0 for all)")
	return cmd
}
