package application

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"voice-home/internal/domain"
)

var ErrSchedulerClosed = errors.New("scheduler is shut down")

// Timer is the handle of an armed one-shot timer.
type Timer interface {
	Stop() bool
}

// AfterFunc arms f to run once after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type scheduledReminder struct {
	reminder domain.Reminder
	at       time.Time
	timer    Timer
}

// Scheduler arms exactly one timer per reminder id and invokes the fire
// callback once when it elapses.
type Scheduler struct {
	now    func() time.Time
	after  AfterFunc
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]*scheduledReminder
	onFire  func(domain.Reminder)
	closed  bool
}

func NewScheduler(now func() time.Time, after AfterFunc, logger *slog.Logger) *Scheduler {
	if now == nil {
		now = time.Now
	}
	if after == nil {
		after = realAfterFunc
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		now:     now,
		after:   after,
		logger:  logger,
		pending: make(map[string]*scheduledReminder),
	}
}

// OnFire registers the callback invoked when a reminder elapses.
func (s *Scheduler) OnFire(fn func(domain.Reminder)) {
	s.mu.Lock()
	s.onFire = fn
	s.mu.Unlock()
}

// Schedule arms a timer for the next occurrence of r.Time and returns that
// instant. A reminder already armed under the same id is replaced.
func (s *Scheduler) Schedule(r domain.Reminder) (time.Time, error) {
	clock, err := domain.ParseClock(r.Time)
	if err != nil {
		return time.Time{}, fmt.Errorf("scheduling reminder %s: %w", r.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return time.Time{}, ErrSchedulerClosed
	}
	if prev, ok := s.pending[r.ID]; ok {
		prev.timer.Stop()
	}

	now := s.now()
	at := clock.Next(now)
	r.ScheduledFor = at
	entry := &scheduledReminder{reminder: r, at: at}
	entry.timer = s.after(at.Sub(now), func() { s.fire(r.ID, entry) })
	s.pending[r.ID] = entry

	s.logger.Info("reminder scheduled", "id", r.ID, "at", at.Format(time.RFC3339), "in", at.Sub(now).Round(time.Second))
	return at, nil
}

// Cancel disarms the reminder. Cancelling an unknown id is a no-op.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.pending[id]
	if !ok {
		return false
	}
	entry.timer.Stop()
	delete(s.pending, id)
	return true
}

// Pending lists armed reminders ordered by fire time.
func (s *Scheduler) Pending() []domain.Reminder {
	s.mu.Lock()
	out := make([]domain.Reminder, 0, len(s.pending))
	for _, e := range s.pending {
		out = append(out, e.reminder)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledFor.Before(out[j].ScheduledFor)
	})
	return out
}

// Next reports how many reminders are armed and when the earliest fires.
func (s *Scheduler) Next() (int, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var earliest time.Time
	for _, e := range s.pending {
		if earliest.IsZero() || e.at.Before(earliest) {
			earliest = e.at
		}
	}
	return len(s.pending), earliest
}

// Shutdown stops every armed timer. Later Schedule calls fail.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.pending {
		e.timer.Stop()
		delete(s.pending, id)
	}
	s.closed = true
}

func (s *Scheduler) fire(id string, entry *scheduledReminder) {
	s.mu.Lock()
	current, ok := s.pending[id]
	if !ok || current != entry {
		s.mu.Unlock()
		return
	}
	delete(s.pending, id)
	callback := s.onFire
	s.mu.Unlock()

	s.logger.Info("reminder fired", "id", id, "text", entry.reminder.Text)
	if callback != nil {
		callback(entry.reminder)
	}
}
