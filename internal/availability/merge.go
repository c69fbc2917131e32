package availability

import (
	"cmp"
	"slices"
	"time"
)

// Merge collapses contiguous same-title marks into blocks.
// Marks are ordered by date and hour first; runs never cross a day boundary.
func Merge(marks []Mark) []Block {
	if len(marks) == 0 {
		return nil
	}

	sorted := make([]Mark, len(marks))
	copy(sorted, marks)
	slices.SortStableFunc(sorted, compareMarks)

	var (
		blocks []Block
		buffer []Mark
	)
	for _, m := range sorted {
		if len(buffer) == 0 || joins(buffer[len(buffer)-1], m) {
			buffer = append(buffer, m)
			continue
		}
		blocks = append(blocks, flush(buffer))
		buffer = []Mark{m}
	}
	blocks = append(blocks, flush(buffer))

	return blocks
}

// MergeDay merges only the marks that fall on the given day.
func MergeDay(marks []Mark, day time.Time) []Block {
	want := keyOf(day)
	return Merge(slices.DeleteFunc(slices.Clone(marks), func(m Mark) bool {
		return keyOf(m.Day) != want
	}))
}

func joins(last, m Mark) bool {
	return last.Title == m.Title &&
		last.Hour+1 == m.Hour &&
		keyOf(last.Day) == keyOf(m.Day)
}

func flush(buffer []Mark) Block {
	first, last := buffer[0], buffer[len(buffer)-1]
	return Block{
		Title:     first.Title,
		StartHour: first.Hour,
		EndHour:   last.Hour + 1,
		Start:     first.EventStart,
		End:       last.EventEnd,
	}
}

func compareMarks(a, b Mark) int {
	ka, kb := keyOf(a.Day), keyOf(b.Day)
	switch {
	case ka.before(kb):
		return -1
	case kb.before(ka):
		return 1
	}
	return cmp.Compare(a.Hour, b.Hour)
}
