package domain_test

import (
	"errors"
	"testing"
	"time"

	"voice-home/internal/domain"
)

func TestParseClock(t *testing.T) {
	valid := map[string]domain.Clock{
		"09:30": {Hour: 9, Minute: 30},
		"9:30":  {Hour: 9, Minute: 30},
		"23:59": {Hour: 23, Minute: 59},
		"00:00": {},
	}
	for in, want := range valid {
		got, err := domain.ParseClock(in)
		if err != nil || got != want {
			t.Errorf("ParseClock(%q) = %+v, %v", in, got, err)
		}
	}

	for _, in := range []string{"", "930", "24:00", "12:60", "1:2", "-1:00", "aa:bb", "123:00"} {
		if _, err := domain.ParseClock(in); !errors.Is(err, domain.ErrInvalidTime) {
			t.Errorf("ParseClock(%q) err = %v, want ErrInvalidTime", in, err)
		}
	}
}

func TestClockNext(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 5, 30, 0, time.UTC)

	tests := []struct {
		clock domain.Clock
		want  time.Time
	}{
		{domain.Clock{Hour: 9, Minute: 6}, time.Date(2026, 3, 10, 9, 6, 0, 0, time.UTC)},
		{domain.Clock{Hour: 9, Minute: 5}, time.Date(2026, 3, 11, 9, 5, 0, 0, time.UTC)},
		{domain.Clock{Hour: 9, Minute: 0}, time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)},
		{domain.Clock{Hour: 23, Minute: 59}, time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		if got := tt.clock.Next(now); !got.Equal(tt.want) {
			t.Errorf("%s.Next = %v, want %v", tt.clock, got, tt.want)
		}
	}
}
