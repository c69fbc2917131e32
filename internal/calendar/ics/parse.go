package ics

import (
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
)

const (
	utcLayout      = "20060102T150405Z"
	floatingLayout = "20060102T150405"
	dateLayout     = "20060102"
)

// vevent is the subset of a VEVENT the provider cares about.
type vevent struct {
	uid         string
	summary     string
	description string
	start       time.Time
	end         time.Time
	allDay      bool
	rrule       string
	exdates     []time.Time
	recurrence  *time.Time // RECURRENCE-ID of an overridden instance
}

func (v vevent) isOverride() bool {
	return v.recurrence != nil
}

// parseVEvent extracts the fields of a VEVENT. All-day and floating values
// are interpreted in loc.
func parseVEvent(ve *ical.VEvent, loc *time.Location) (vevent, error) {
	var out vevent

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return out, errors.New("missing UID")
	}
	out.uid = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.description = p.Value
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return out, errors.New("missing DTSTART")
	}
	out.allDay = isDateValue(dtStart)

	if out.allDay {
		start, err := parseTime(dtStart.Value, loc)
		if err != nil {
			return out, err
		}
		out.start = start
		out.end = out.start.AddDate(0, 0, 1)
		if dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); dtEnd != nil {
			if end, err := parseTime(dtEnd.Value, loc); err == nil {
				out.end = end
			}
		}
	} else {
		start, err := ve.GetStartAt()
		if err != nil {
			return out, err
		}
		out.start = start
		out.end = start
		if end, err := ve.GetEndAt(); err == nil {
			out.end = end
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.rrule = p.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseTime(part, loc); err == nil {
				out.exdates = append(out.exdates, t)
			}
		}
	}

	if p := ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")); p != nil {
		if t, err := parseTime(p.Value, loc); err == nil {
			out.recurrence = &t
		}
	}

	return out, nil
}

func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// parseTime handles the UTC, floating and date-only forms used by EXDATE
// and RECURRENCE-ID.
func parseTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse(utcLayout, v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation(floatingLayout, v, loc)
	default:
		return time.ParseInLocation(dateLayout, v, loc)
	}
}

// calendarName returns the X-WR-CALNAME of a calendar, if any.
func calendarName(cal *ical.Calendar) string {
	for _, p := range cal.CalendarProperties {
		if p.IANAToken == "X-WR-CALNAME" {
			return p.Value
		}
	}
	return ""
}
