package application_test

import (
	"errors"
	"testing"
	"time"

	"voice-home/internal/application"
	"voice-home/internal/domain"
)

func newTestScheduler(now time.Time) (*application.Scheduler, *fakeTimers) {
	timers := &fakeTimers{}
	clock := &fakeClock{now: now}
	return application.NewScheduler(clock.Now, timers.AfterFunc, discardLogger()), timers
}

func TestScheduler_ScheduleToday(t *testing.T) {
	s, timers := newTestScheduler(morning)

	at, err := s.Schedule(domain.Reminder{ID: "r1", Text: "stretch", Time: "10:30"})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	if want := morning.Add(30 * time.Minute); !at.Equal(want) {
		t.Errorf("at = %v, want %v", at, want)
	}
	armed := timers.active()
	if len(armed) != 1 || armed[0].delay != 30*time.Minute {
		t.Fatalf("unexpected timers: %d", len(armed))
	}
}

func TestScheduler_SameMinuteRollsOver(t *testing.T) {
	s, _ := newTestScheduler(morning)

	at, err := s.Schedule(domain.Reminder{ID: "r1", Time: "10:00"})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if want := morning.AddDate(0, 0, 1); !at.Equal(want) {
		t.Errorf("at = %v, want %v", at, want)
	}
}

func TestScheduler_RejectsMalformedTime(t *testing.T) {
	s, timers := newTestScheduler(morning)

	for _, in := range []string{"", "7", "24:00", "10:60", "ab:cd", "10:5", "100:00"} {
		_, err := s.Schedule(domain.Reminder{ID: "r", Time: in})
		if !errors.Is(err, domain.ErrInvalidTime) {
			t.Errorf("Schedule(%q) err = %v, want ErrInvalidTime", in, err)
		}
	}
	if len(timers.active()) != 0 {
		t.Error("invalid times armed a timer")
	}
}

func TestScheduler_RescheduleReplacesTimer(t *testing.T) {
	s, timers := newTestScheduler(morning)

	s.Schedule(domain.Reminder{ID: "r1", Time: "11:00"})
	s.Schedule(domain.Reminder{ID: "r1", Time: "12:00"})

	armed := timers.active()
	if len(armed) != 1 || armed[0].delay != 2*time.Hour {
		t.Fatalf("expected only the 12:00 timer, got %d active", len(armed))
	}
	if n, _ := s.Next(); n != 1 {
		t.Errorf("pending = %d", n)
	}
}

func TestScheduler_FireOnce(t *testing.T) {
	s, timers := newTestScheduler(morning)
	var fired []domain.Reminder
	s.OnFire(func(r domain.Reminder) { fired = append(fired, r) })

	s.Schedule(domain.Reminder{ID: "r1", Text: "call mom", Time: "10:05"})
	timer := timers.active()[0]

	timer.fn()
	timer.fn()

	if len(fired) != 1 || fired[0].Text != "call mom" {
		t.Fatalf("fired = %+v", fired)
	}
	if n, _ := s.Next(); n != 0 {
		t.Errorf("reminder still pending after firing")
	}
}

func TestScheduler_CancelIsIdempotent(t *testing.T) {
	s, timers := newTestScheduler(morning)
	fired := 0
	s.OnFire(func(domain.Reminder) { fired++ })

	s.Schedule(domain.Reminder{ID: "r1", Time: "10:05"})
	timer := timers.active()[0]

	if !s.Cancel("r1") {
		t.Error("first cancel should report true")
	}
	if s.Cancel("r1") {
		t.Error("second cancel should be a no-op")
	}
	if !timer.stopped {
		t.Error("timer not stopped")
	}

	// a timer that raced the cancel must not fire
	timer.fn()
	if fired != 0 {
		t.Error("cancelled reminder fired")
	}
}

func TestScheduler_PendingAndNext(t *testing.T) {
	s, _ := newTestScheduler(morning)

	s.Schedule(domain.Reminder{ID: "late", Time: "18:00"})
	s.Schedule(domain.Reminder{ID: "early", Time: "11:00"})
	s.Schedule(domain.Reminder{ID: "tomorrow", Time: "09:00"})

	pending := s.Pending()
	if len(pending) != 3 {
		t.Fatalf("pending = %d", len(pending))
	}
	if pending[0].ID != "early" || pending[2].ID != "tomorrow" {
		t.Errorf("order = %s, %s, %s", pending[0].ID, pending[1].ID, pending[2].ID)
	}

	n, next := s.Next()
	if n != 3 || !next.Equal(morning.Add(time.Hour)) {
		t.Errorf("Next() = %d, %v", n, next)
	}
}

func TestScheduler_Shutdown(t *testing.T) {
	s, timers := newTestScheduler(morning)
	s.Schedule(domain.Reminder{ID: "a", Time: "11:00"})
	s.Schedule(domain.Reminder{ID: "b", Time: "12:00"})

	s.Shutdown()

	if len(timers.active()) != 0 {
		t.Error("timers still armed after shutdown")
	}
	if _, err := s.Schedule(domain.Reminder{ID: "c", Time: "13:00"}); !errors.Is(err, application.ErrSchedulerClosed) {
		t.Errorf("err = %v, want ErrSchedulerClosed", err)
	}
}

func TestScheduler_RealTimer(t *testing.T) {
	now := time.Now()
	target := now.Add(time.Minute)
	// Fire almost immediately by pretending the clock is one tick before the target minute.
	clock := &fakeClock{now: time.Date(target.Year(), target.Month(), target.Day(), target.Hour(), target.Minute(), 0, 0, target.Location()).Add(-10 * time.Millisecond)}
	s := application.NewScheduler(clock.Now, nil, discardLogger())
	defer s.Shutdown()

	done := make(chan domain.Reminder, 1)
	s.OnFire(func(r domain.Reminder) { done <- r })

	if _, err := s.Schedule(domain.Reminder{ID: "r", Text: "now", Time: domain.ClockOf(target).String()}); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	select {
	case r := <-done:
		if r.ID != "r" {
			t.Errorf("fired %q", r.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
}
