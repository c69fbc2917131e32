package ics

import (
	"time"

	"github.com/teambition/rrule-go"

	"github.com/javiermolinar/freeslot/internal/availability"
	applog "github.com/javiermolinar/freeslot/internal/log"
)

const defaultMaxOccurrences = 5000

// occurrenceSep joins a series UID with an occurrence's original start.
const occurrenceSep = "#"

func occurrenceID(uid string, originalStart time.Time) string {
	return uid + occurrenceSep + originalStart.UTC().Format(utcLayout)
}

// expand turns parsed VEVENTs into concrete events intersecting
// [start, end). Recurring series are expanded with their EXDATEs applied
// and RECURRENCE-ID overrides substituted.
func expand(calendarID string, events []vevent, start, end time.Time, maxOccurrences int) []availability.Event {
	overrides := make(map[string][]vevent)
	for _, v := range events {
		if v.isOverride() {
			overrides[v.uid] = append(overrides[v.uid], v)
		}
	}

	var out []availability.Event
	for _, v := range events {
		if v.isOverride() {
			continue
		}
		if v.rrule == "" {
			e := toEvent(calendarID, v.uid, v)
			if e.Overlaps(start, end) {
				out = append(out, e)
			}
			continue
		}
		out = append(out, expandSeries(calendarID, v, overrides[v.uid], start, end, maxOccurrences)...)
	}
	return out
}

func expandSeries(calendarID string, v vevent, overrides []vevent, start, end time.Time, maxOccurrences int) []availability.Event {
	r, err := rrule.StrToRRule(v.rrule)
	if err != nil {
		applog.Error("skipping unparseable RRULE", err, "uid", v.uid, "rrule", v.rrule)
		return nil
	}
	r.DTStart(v.start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range v.exdates {
		set.ExDate(ex.In(v.start.Location()))
	}

	// Occurrences that started before the window may still overlap it.
	length := v.end.Sub(v.start)
	loc := v.start.Location()
	starts := set.Between(start.Add(-length).In(loc), end.In(loc), true)
	if len(starts) > maxOccurrences {
		applog.Warn("recurrence expansion truncated", "uid", v.uid, "cap", maxOccurrences)
		starts = starts[:maxOccurrences]
	}

	var out []availability.Event
	for _, s := range starts {
		occ := v
		occ.start = s
		occ.end = s.Add(length)
		if o, ok := findOverride(overrides, s); ok {
			occ = o
		}
		e := toEvent(calendarID, occurrenceID(v.uid, s), occ)
		if e.Overlaps(start, end) {
			out = append(out, e)
		}
	}
	return out
}

func findOverride(overrides []vevent, originalStart time.Time) (vevent, bool) {
	for _, o := range overrides {
		if o.recurrence.Equal(originalStart) {
			return o, true
		}
	}
	return vevent{}, false
}

func toEvent(calendarID, id string, v vevent) availability.Event {
	return availability.Event{
		ID:         id,
		Title:      v.summary,
		Start:      v.start,
		End:        v.end,
		CalendarID: calendarID,
		Notes:      v.description,
	}
}
