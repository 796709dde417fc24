package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseClock parses an "HH:MM" string into hour and minute.
func ParseClock(s string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid clock time %q: expected HH:MM", s)
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, fmt.Errorf("invalid clock time %q: %v, %v", s, err1, err2)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("clock time %q out of range", s)
	}
	return h, m, nil
}

// ValidateClock reports whether s is a well-formed HH:MM string.
func ValidateClock(s string) bool {
	_, _, err := ParseClock(s)
	return err == nil
}

// dayEnd resolves the instant a rule window closes on the calendar day of
// date. "00:00" means midnight of the following day, so a window may end at
// midnight without being empty.
func dayEnd(date time.Time, end string) (time.Time, error) {
	if end == "00:00" {
		return time.Date(date.Year(), date.Month(), date.Day()+1, 0, 0, 0, 0, date.Location()), nil
	}
	h, m, err := ParseClock(end)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), h, m, 0, 0, date.Location()), nil
}
