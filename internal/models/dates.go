package models

import (
	"fmt"
	"time"
)

// DateLayout is the ISO calendar-date format used for all departure and
// return dates, both in snapshot rows and on the upstream wire.
const DateLayout = "2006-01-02"

// ParseDate parses an ISO calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// AddDays returns the ISO date n days after the given ISO date.
func AddDays(date string, n int) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(DateLayout), nil
}

// ReturnDateFor computes the return date for a departure and stay length.
// A stay of L days departing day N returns on day N+L-1.
func ReturnDateFor(departure string, stayLength int) (string, error) {
	return AddDays(departure, stayLength-1)
}
