package utils

import "time"

// NowUTC returns the current time in UTC, the zone every persisted timestamp
// in this service uses.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// RFC3339 renders t as an RFC 3339 UTC string, the format client-side
// timestamps travel and persist in.
func RFC3339(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
