package application

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"voice-home/internal/domain"
)

// ReminderStore owns every reminder and keeps the scheduler armed for the
// active ones.
type ReminderStore struct {
	scheduler *Scheduler
	events    Publisher
	newID     func() string
	logger    *slog.Logger

	mu      sync.Mutex
	items   map[string]domain.Reminder
	order   []string
	onAlert func(domain.Reminder)
}

func NewReminderStore(scheduler *Scheduler, events Publisher, newID func() string, logger *slog.Logger) *ReminderStore {
	if events == nil {
		events = nopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &ReminderStore{
		scheduler: scheduler,
		events:    events,
		newID:     newID,
		logger:    logger,
		items:     make(map[string]domain.Reminder),
	}
	scheduler.OnFire(s.handleFire)
	return s
}

// OnAlert registers the hook run after a reminder fires.
func (s *ReminderStore) OnAlert(fn func(domain.Reminder)) {
	s.mu.Lock()
	s.onAlert = fn
	s.mu.Unlock()
}

// Create validates the input, stores an active reminder and arms its timer.
// A malformed time yields an error wrapping domain.ErrInvalidTime.
func (s *ReminderStore) Create(text, at string) (domain.Reminder, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		var verr domain.ValidationError
		verr.Add("text", "is required")
		return domain.Reminder{}, &verr
	}
	clock, err := domain.ParseClock(strings.TrimSpace(at))
	if err != nil {
		return domain.Reminder{}, err
	}

	r := domain.Reminder{
		ID:     s.newID(),
		Text:   text,
		Time:   clock.String(),
		Active: true,
	}

	s.mu.Lock()
	scheduledFor, err := s.scheduler.Schedule(r)
	if err != nil {
		s.mu.Unlock()
		return domain.Reminder{}, fmt.Errorf("creating reminder: %w", err)
	}
	r.ScheduledFor = scheduledFor
	s.items[r.ID] = r
	s.order = append(s.order, r.ID)
	s.mu.Unlock()

	s.events.Publish(domain.Event{Type: domain.EventReminderChanged, Payload: r})
	return r, nil
}

// Toggle flips the active flag, re-arming or cancelling the timer.
func (s *ReminderStore) Toggle(id string) (domain.Reminder, bool, error) {
	s.mu.Lock()
	r, ok := s.items[id]
	if !ok {
		s.mu.Unlock()
		return domain.Reminder{}, false, nil
	}

	if r.Active {
		s.scheduler.Cancel(id)
		r.Active = false
		r.ScheduledFor = time.Time{}
	} else {
		at, err := s.scheduler.Schedule(r)
		if err != nil {
			s.mu.Unlock()
			return r, true, fmt.Errorf("re-arming reminder: %w", err)
		}
		r.Active = true
		r.ScheduledFor = at
	}
	s.items[id] = r
	s.mu.Unlock()

	s.events.Publish(domain.Event{Type: domain.EventReminderChanged, Payload: r})
	return r, true, nil
}

func (s *ReminderStore) Delete(id string) bool {
	s.mu.Lock()
	r, ok := s.items[id]
	if ok {
		s.scheduler.Cancel(id)
		delete(s.items, id)
		s.order = removeID(s.order, id)
	}
	s.mu.Unlock()

	if ok {
		s.events.Publish(domain.Event{Type: domain.EventReminderRemoved, Payload: r})
	}
	return ok
}

func (s *ReminderStore) Get(id string) (domain.Reminder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.items[id]
	return r, ok
}

// NextReminder summarizes the armed reminders.
type NextReminder struct {
	Pending  int              `json:"pending"`
	At       *time.Time       `json:"at"`
	Reminder *domain.Reminder `json:"reminder"`
}

// Next reports how many reminders are armed and which one fires first.
func (s *ReminderStore) Next() NextReminder {
	n, at := s.scheduler.Next()
	info := NextReminder{Pending: n}
	if n == 0 {
		return info
	}
	info.At = &at

	pending := s.scheduler.Pending()
	if len(pending) == 0 {
		return info
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.items[pending[0].ID]; ok {
		info.Reminder = &r
	}
	return info
}

// List returns reminders in creation order.
func (s *ReminderStore) List() []domain.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Reminder, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}

func (s *ReminderStore) handleFire(fired domain.Reminder) {
	s.mu.Lock()
	r, ok := s.items[fired.ID]
	if !ok {
		s.mu.Unlock()
		s.logger.Warn("fired reminder no longer stored", "id", fired.ID)
		return
	}
	// toggled off while the timer was firing
	if !r.Active {
		s.mu.Unlock()
		s.logger.Info("skipping fired reminder that is inactive", "id", fired.ID)
		return
	}
	r.Active = false
	r.ScheduledFor = time.Time{}
	s.items[r.ID] = r
	alert := s.onAlert
	s.mu.Unlock()

	s.events.Publish(domain.Event{Type: domain.EventReminderFired, Payload: r})
	s.events.Publish(domain.Event{Type: domain.EventReminderChanged, Payload: r})
	if alert != nil {
		alert(r)
	}
}

func removeID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
