package timeutil

import "time"

// IsFuture reports whether t is strictly after now.
func IsFuture(t, now time.Time) bool {
	return t.After(now)
}

// Humanize renders t for email bodies, e.g. "Mon, 02 Jan 2006 15:04 UTC".
func Humanize(t time.Time) string {
	return t.UTC().Format("Mon, 02 Jan 2006 15:04 MST")
}
