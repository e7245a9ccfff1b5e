package engine

import "time"

// Clock abstracts wall-clock time so ticks can be driven deterministically in
// tests.
type Clock interface {
	Now() time.Time
}

// systemClock is the production clock.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// startOfDay truncates t to midnight UTC.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// calendarDaysBetween counts midnight boundaries crossed between from and to,
// evaluated in UTC. It is a day-boundary difference, not a rolling 24h
// window, so fires cannot drift across DST transitions. Negative when from is
// after to.
func calendarDaysBetween(from, to time.Time) int {
	return int(startOfDay(to).Sub(startOfDay(from)) / (24 * time.Hour))
}

// sameCalendarDay reports whether a and b fall on the same UTC calendar day.
func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
