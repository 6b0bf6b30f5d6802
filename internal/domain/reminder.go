package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidTime = errors.New("invalid time")

type Reminder struct {
	ID           string    `json:"id"`
	Text         string    `json:"text"`
	Time         string    `json:"time"`
	Active       bool      `json:"isActive"`
	ScheduledFor time.Time `json:"scheduledFor,omitzero"`
}

// Clock is a time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses a 24-hour "HH:MM" string. Single-digit hours are accepted.
func ParseClock(s string) (Clock, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 {
		return Clock{}, fmt.Errorf("%w: %q is not HH:MM", ErrInvalidTime, s)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return Clock{}, fmt.Errorf("%w: hour %q", ErrInvalidTime, hh)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil {
		return Clock{}, fmt.Errorf("%w: minute %q", ErrInvalidTime, mm)
	}
	c := Clock{Hour: hour, Minute: minute}
	if !c.Valid() {
		return Clock{}, fmt.Errorf("%w: %q out of range", ErrInvalidTime, s)
	}
	return c, nil
}

func ClockOf(t time.Time) Clock {
	return Clock{Hour: t.Hour(), Minute: t.Minute()}
}

func (c Clock) Valid() bool {
	return c.Hour >= 0 && c.Hour < 24 && c.Minute >= 0 && c.Minute < 60
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Next returns the first instant at this clock time strictly after now, in now's location.
func (c Clock) Next(now time.Time) time.Time {
	target := time.Date(now.Year(), now.Month(), now.Day(), c.Hour, c.Minute, 0, 0, now.Location())
	if !target.After(now) {
		target = target.AddDate(0, 0, 1)
	}
	return target
}
