package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidDate  = errors.New("invalid date, expected YYYY-MM-DD or RFC3339")
	ErrInvalidClock = errors.New("invalid time, expected HH:MM")
)

const DateLayout = "2006-01-02"

// ParseDay accepts YYYY-MM-DD or an RFC3339 timestamp and returns midnight UTC
// of the calendar day it names in UTC.
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return StartOfDay(t), nil
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseClock parses a 24h "HH:MM" value into minutes after midnight.
// "24:00" is accepted as the end of the day.
func ParseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	var h, m int
	if len(s) < 4 || len(s) > 5 {
		return 0, ErrInvalidClock
	}
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, ErrInvalidClock
	}
	if !strings.HasSuffix(s, fmt.Sprintf(":%02d", m)) {
		return 0, ErrInvalidClock
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, ErrInvalidClock
	}
	return h*60 + m, nil
}

// FormatClock renders minutes after midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// SlotStart combines a day and an "HH:MM" clock into an absolute UTC instant.
func SlotStart(day time.Time, clock string) (time.Time, error) {
	m, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return StartOfDay(day).Add(time.Duration(m) * time.Minute), nil
}
