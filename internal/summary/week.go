// Package summary provides shared week summary utilities.
package summary

import (
	"context"
	"fmt"
	"time"

	"github.com/javiermolinar/freeslot/internal/availability"
	"github.com/javiermolinar/freeslot/internal/calendar"
	"github.com/javiermolinar/freeslot/internal/dateutil"
)

// DaySummary holds the occupancy of one day inside the preferred window.
type DaySummary struct {
	Date      time.Time
	BusyHours int
	FreeHours int
	Blocks    []availability.Block
}

// WeekStats aggregates a week of day summaries.
type WeekStats struct {
	BusyHours   int
	FreeHours   int
	TotalBlocks int
	BusiestDay  time.Time
	Collisions  int
}

// WeekSummary holds aggregated week data.
type WeekSummary struct {
	Start time.Time
	End   time.Time
	Days  []DaySummary
	Stats WeekStats
}

// WeekSummaryOptions configures week summary statistics.
type WeekSummaryOptions struct {
	PreferStart int
	PreferEnd   int
	BuildOpts   []availability.BuildOption
}

// BuildWeekSummaryOptions configures the provider-backed summary builder.
type BuildWeekSummaryOptions struct {
	WeekStart   time.Time
	PreferStart int
	PreferEnd   int
	Calendars   []string
	BuildOpts   []availability.BuildOption
}

// SummarizeWeek builds week summary data from events and a reference date.
// Blocks list every busy hour of the day; busy and free counts only cover
// the preferred window.
func SummarizeWeek(weekStart time.Time, events []availability.Event, opts WeekSummaryOptions) (*WeekSummary, error) {
	if err := availability.ValidateWindow(opts.PreferStart, opts.PreferEnd); err != nil {
		return nil, err
	}

	start, end := dateutil.WeekRange(weekStart)
	g, err := availability.Build(events, start, end, opts.BuildOpts...)
	if err != nil {
		return nil, fmt.Errorf("building grid: %w", err)
	}

	marks := availability.DecomposeAll(events)
	summary := &WeekSummary{Start: start, End: end}
	busiest := -1
	for _, day := range g.Days() {
		ds := DaySummary{
			Date:   day,
			Blocks: availability.MergeDay(marks, day),
		}
		for hour := opts.PreferStart; hour < opts.PreferEnd; hour++ {
			if _, busy := g.Title(day, hour); busy {
				ds.BusyHours++
			} else {
				ds.FreeHours++
			}
		}

		summary.Stats.BusyHours += ds.BusyHours
		summary.Stats.FreeHours += ds.FreeHours
		summary.Stats.TotalBlocks += len(ds.Blocks)
		if ds.BusyHours > busiest {
			busiest = ds.BusyHours
			summary.Stats.BusiestDay = day
		}
		summary.Days = append(summary.Days, ds)
	}
	summary.Stats.Collisions = len(g.Collisions())

	return summary, nil
}

// BuildWeekSummary loads events for the requested week and summarizes them.
func BuildWeekSummary(ctx context.Context, p calendar.Provider, opts BuildWeekSummaryOptions) (*WeekSummary, error) {
	weekStart := opts.WeekStart
	if weekStart.IsZero() {
		weekStart = time.Now()
	}

	start, end := dateutil.WeekRange(weekStart)
	events, err := p.QueryEvents(ctx, start, end.AddDate(0, 0, 1), opts.Calendars)
	if err != nil {
		return nil, fmt.Errorf("fetching events: %w", err)
	}

	return SummarizeWeek(start, events, WeekSummaryOptions{
		PreferStart: opts.PreferStart,
		PreferEnd:   opts.PreferEnd,
		BuildOpts:   opts.BuildOpts,
	})
}
