// Package expiry holds the pure temporal logic of the bot: business-day
// adjustment, the daily send window, due-date planning for license
// reminders, and the per-host suppression state for certificate
// warnings. Nothing in this package touches the network or the store,
// which keeps it exhaustively table-testable.
package expiry

import "time"

// ReminderLeadDays is how many days before expiry the advance license
// reminder is planned.
const ReminderLeadDays = 7

// WarnWindowDays is the size of the certificate warning window: hosts
// whose certificate expires in 1..WarnWindowDays days get one warning
// per distinct day count.
const WarnWindowDays = 7

// sendWindowHour is the hour whose [HH:00, HH+1:00) span forms the
// daily send window. The scheduler's tick interval must stay below one
// hour or a due date can slip past the window unobserved.
const sendWindowHour = 9

// AdjustForWeekend moves a date falling on a weekend back to the
// preceding Friday: Saturday by one day, Sunday by two. Weekdays pass
// through unchanged.
func AdjustForWeekend(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, -2)
	default:
		return d
	}
}

// InSendWindow reports whether the wall-clock time lies inside the
// daily [09:00, 10:00) notification window.
func InSendWindow(now time.Time) bool {
	return now.Hour() == sendWindowHour
}

// BeforeSendWindow reports whether the wall-clock time is still ahead
// of today's window, i.e. a notification planned for today can still
// fire.
func BeforeSendWindow(now time.Time) bool {
	return now.Hour() < sendWindowHour
}

// DateOf strips the time-of-day and zone from an instant, returning the
// calendar day as midnight UTC. Day arithmetic on the results is exact
// regardless of DST or zone offsets.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole calendar days from one instant's day to
// another's. Negative when to precedes from.
func DaysBetween(from, to time.Time) int {
	return int(DateOf(to).Sub(DateOf(from)) / (24 * time.Hour))
}

// SameDay reports whether two instants fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return DateOf(a).Equal(DateOf(b))
}
