package ui

import (
	"context"
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/javiermolinar/freeslot/internal/summary"
	"github.com/javiermolinar/freeslot/internal/tui"
)

func (a *App) browseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse the week interactively and book free hours",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := a.ensurePlanner(); err != nil {
				return err
			}
			return tui.Run(a.planner, tui.WithClock(a.now))
		},
	}
}

func (a *App) weekCmd() *cobra.Command {
	var (
		offset  int
		copyOut bool
	)

	cmd := &cobra.Command{
		Use:   "week",
		Short: "Show a week's timetable",
		Long: `Display the workdays of a Monday-based week as an hourly timetable of the
preferred window, with busy hours labelled by event title and a summary footer.

--offset moves by whole weeks; --copy also puts a tab-separated version
of the timetable on the clipboard.`,
		Example: `  freeslot week
  freeslot week --offset=1
  freeslot week --offset=-1 --copy`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.printWeek(cmd, offset, copyOut)
		},
	}

	cmd.Flags().IntVar(&offset, "offset", 0, "Weeks relative to the current one")
	cmd.Flags().BoolVar(&copyOut, "copy", false, "Copy the timetable to the clipboard")
	return cmd
}

func (a *App) printWeek(cmd *cobra.Command, offset int, copyOut bool) error {
	if err := a.ensurePlanner(); err != nil {
		return err
	}
	ctx := context.Background()
	w := cmd.OutOrStdout()

	tt, err := a.planner.Week(ctx, a.now(), offset)
	if err != nil {
		return fmt.Errorf("building timetable: %w", err)
	}
	printAccessWarning(w, tt.Authorized)

	ws, err := summary.BuildWeekSummary(ctx, a.provider, summary.BuildWeekSummaryOptions{
		WeekStart:   a.now().AddDate(0, 0, 7*offset),
		PreferStart: tt.PreferStart,
		PreferEnd:   tt.PreferEnd,
		Calendars:   a.calendars,
		BuildOpts:   a.config.BuildOptions(),
	})
	if err != nil {
		return fmt.Errorf("building week summary: %w", err)
	}

	header := fmt.Sprintf("WEEK: %s - %s", ws.Start.Format("Mon Jan 2"), ws.End.Format("Mon Jan 2, 2006"))
	fmt.Fprintf(w, "\n  %s\n", formatHeader(header))
	fmt.Fprintln(w, renderTimetable(tt, cellWidth(len(tt.Dates))))
	printWeekStats(w, ws)

	if copyOut {
		if err := clipboard.WriteAll(timetableText(tt)); err != nil {
			return fmt.Errorf("copying to clipboard: %w", err)
		}
		fmt.Fprintln(w, formatMuted("  Copied to clipboard."))
	}
	return nil
}
