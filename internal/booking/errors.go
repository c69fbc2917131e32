package booking

import (
	"fmt"
	"strings"

	"github.com/javiermolinar/freeslot/internal/availability"
	"github.com/javiermolinar/freeslot/internal/calendar"
)

// Stage names the step of a commit that failed.
type Stage string

const (
	StageCreate  Stage = "create"
	StageVerify  Stage = "verify"
	StageDelete  Stage = "delete"
	StageReplace Stage = "replace"
)

// CommitError reports a provider failure part way through a commit.
// It matches calendar.ErrProvider and the underlying cause.
type CommitError struct {
	Stage     Stage
	Created   *availability.Event  // set once the new event exists
	Deleted   []availability.Event // prior matches already removed
	Remaining []availability.Event // prior matches still present
	Err       error
}

func (e *CommitError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "commit failed at %s", e.Stage)
	if e.Created != nil {
		fmt.Fprintf(&b, " (created %s", e.Created.ID)
		if len(e.Deleted) > 0 || len(e.Remaining) > 0 {
			fmt.Fprintf(&b, ", replaced %d of %d", len(e.Deleted), len(e.Deleted)+len(e.Remaining))
		}
		b.WriteString(")")
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *CommitError) Unwrap() []error {
	return []error{calendar.ErrProvider, e.Err}
}

// Partial reports whether the calendar was changed before the failure.
func (e *CommitError) Partial() bool {
	return e.Created != nil || len(e.Deleted) > 0
}
