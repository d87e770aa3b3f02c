package expiry

import (
	"errors"
	"time"
)

// ErrNoActionableDates is returned by Plan when every candidate
// notification date is already in the past.
var ErrNoActionableDates = errors.New("all candidate notification dates are in the past")

// Plan computes the ordered notification dates for a license expiring
// on expiry, as observed at the local instant now. The candidates are
// the weekend-adjusted date seven days before expiry, then the expiry
// date itself; each is kept when it lies strictly in the future, or
// falls on today while today's send window has not yet opened.
//
// The plan is informational: it is shown to the user as confirmation
// and never persisted. The scheduler re-derives due-ness from the raw
// expiry date on every tick, so clock or zone changes self-correct.
func Plan(expiry, now time.Time) ([]time.Time, error) {
	today := DateOf(now)

	candidates := []time.Time{
		AdjustForWeekend(DateOf(expiry).AddDate(0, 0, -ReminderLeadDays)),
		DateOf(expiry),
	}

	var due []time.Time
	for _, c := range candidates {
		if c.After(today) || (c.Equal(today) && BeforeSendWindow(now)) {
			due = append(due, c)
		}
	}
	if len(due) == 0 {
		return nil, ErrNoActionableDates
	}
	return due, nil
}
