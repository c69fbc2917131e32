package availability

// Decompose splits an event into one Mark per hour it overlaps.
// The hour containing the end is included only when the end is past the
// top of that hour. Events with End <= Start produce no marks.
func Decompose(e Event) []Mark {
	if !e.Valid() {
		return nil
	}

	title := e.DisplayTitle()
	marks := make([]Mark, 0, int(e.End.Sub(e.Start).Hours())+2)
	for current := e.Start; current.Before(e.End); current = nextHour(current) {
		marks = append(marks, Mark{
			Day:        StartOfDay(current),
			Hour:       current.Hour(),
			Title:      title,
			EventStart: e.Start,
			EventEnd:   e.End,
		})
	}
	return marks
}

// DecomposeAll decomposes every event and concatenates the marks.
func DecomposeAll(events []Event) []Mark {
	var marks []Mark
	for _, e := range events {
		marks = append(marks, Decompose(e)...)
	}
	return marks
}
