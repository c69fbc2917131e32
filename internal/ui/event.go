package ui

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/freeslot/internal/calendar"
	"github.com/javiermolinar/freeslot/internal/dateutil"
)

func (a *App) calendarsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "calendars",
		Short: "List calendars",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.ensurePlanner(); err != nil {
				return err
			}
			ctx := context.Background()
			cals, err := a.planner.Calendars(ctx)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printAccessWarning(w, a.planner.Authorized(ctx))
			if len(cals) == 0 {
				fmt.Fprintln(w, "No calendars found.")
				return nil
			}
			for _, c := range cals {
				marker := " "
				if c.ID == a.config.Calendar.DefaultCalendar {
					marker = "*"
				}
				fmt.Fprintf(w, "%s %s  %s\n", marker, c.ID, formatMuted(c.Title))
			}
			return nil
		},
	}
}

func (a *App) eventCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Add, remove or list calendar events",
	}
	cmd.AddCommand(a.eventAddCmd())
	cmd.AddCommand(a.eventRmCmd())
	cmd.AddCommand(a.eventListCmd())
	return cmd
}

func (a *App) eventAddCmd() *cobra.Command {
	var (
		date       string
		start      string
		end        string
		calendarID string
		notes      string
	)

	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Add a busy event",
		Long: `Add an event to the calendar without any availability check.
Use "freeslot book" to book only into free slots.`,
		Example: `  freeslot event add "Standup" --date=2025-01-13 --start=09:00 --end=09:30`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ensurePlanner(); err != nil {
				return err
			}
			now := a.now()
			from, err := parseStart(date, start, now)
			if err != nil {
				return err
			}
			to, err := parseStart(date, end, now)
			if err != nil {
				return err
			}
			if calendarID == "" {
				calendarID = a.config.Calendar.DefaultCalendar
			}

			ev, err := a.provider.CreateEvent(context.Background(), calendar.NewEvent{
				Title:      args[0],
				Start:      from,
				End:        to,
				CalendarID: calendarID,
				Notes:      notes,
			})
			if err != nil {
				return fmt.Errorf("creating event: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created event %s: %s %s %s\n",
				formatMuted(ev.ID), formatTitle(ev.Title), ev.Start.Format("Mon Jan 2"), formatSpan(ev.Start, ev.End))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Day (YYYY-MM-DD, default: today)")
	cmd.Flags().StringVar(&start, "start", "", "Start time (HH:MM, required)")
	cmd.Flags().StringVar(&end, "end", "", "End time (HH:MM, required)")
	cmd.Flags().StringVar(&calendarID, "calendar", "", "Calendar ID (default from config)")
	cmd.Flags().StringVar(&notes, "notes", "", "Event notes")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func (a *App) eventRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm [id]",
		Short: "Remove an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ensurePlanner(); err != nil {
				return err
			}
			if err := a.provider.DeleteEvent(context.Background(), args[0]); err != nil {
				return fmt.Errorf("removing event: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed event %s\n", args[0])
			return nil
		},
	}
}

func (a *App) eventListCmd() *cobra.Command {
	var (
		startDate string
		endDate   string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List events in a date range",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.ensurePlanner(); err != nil {
				return err
			}
			dr, err := dateutil.NewDateRange(startDate, endDate, a.now().Location())
			if err != nil {
				return err
			}
			ctx := context.Background()
			events, err := a.planner.Events(ctx, dr.Start, dr.End)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printAccessWarning(w, a.planner.Authorized(ctx))
			if len(events) == 0 {
				fmt.Fprintln(w, "No events found in the specified date range.")
				return nil
			}
			for _, e := range events {
				fmt.Fprintf(w, "  %s %s  %s  %s\n",
					e.Start.Format("2006-01-02"), formatSpan(e.Start, e.End),
					formatTitle(e.DisplayTitle()), formatMuted(e.ID))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&startDate, "start", "", "Start date (YYYY-MM-DD, defaults to today)")
	cmd.Flags().StringVar(&endDate, "end", "", "End date (YYYY-MM-DD, defaults to start date)")
	return cmd
}
