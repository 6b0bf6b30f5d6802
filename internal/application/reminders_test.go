package application_test

import (
	"errors"
	"testing"
	"time"

	"voice-home/internal/domain"
)

func TestReminderStore_Create(t *testing.T) {
	h := newHome(morning)

	r, err := h.reminders.Create("water plants", "9:30")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if r.Time != "09:30" || !r.Active {
		t.Errorf("unexpected reminder: %+v", r)
	}
	if want := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC); !r.ScheduledFor.Equal(want) {
		t.Errorf("scheduled for %v, want %v", r.ScheduledFor, want)
	}
	if len(h.timers.active()) != 1 {
		t.Error("expected one armed timer")
	}
	if n := len(h.events.ofType(domain.EventReminderChanged)); n != 1 {
		t.Errorf("expected 1 change event, got %d", n)
	}
}

func TestReminderStore_CreateInvalid(t *testing.T) {
	h := newHome(morning)

	if _, err := h.reminders.Create("stretch", "25:99"); !errors.Is(err, domain.ErrInvalidTime) {
		t.Errorf("err = %v, want ErrInvalidTime", err)
	}

	var verr *domain.ValidationError
	if _, err := h.reminders.Create("  ", "10:30"); !errors.As(err, &verr) {
		t.Errorf("err = %v, want ValidationError", err)
	}

	if len(h.reminders.List()) != 0 || len(h.timers.active()) != 0 {
		t.Error("invalid reminders were stored")
	}
}

func TestReminderStore_ToggleCancelsAndRearms(t *testing.T) {
	h := newHome(morning)
	r, _ := h.reminders.Create("stretch", "10:30")

	off, ok, err := h.reminders.Toggle(r.ID)
	if err != nil || !ok {
		t.Fatalf("Toggle: ok=%v err=%v", ok, err)
	}
	if off.Active || !off.ScheduledFor.IsZero() {
		t.Errorf("expected inactive reminder, got %+v", off)
	}
	if len(h.timers.active()) != 0 {
		t.Error("timer still armed after toggling off")
	}

	h.clock.now = morning.Add(time.Hour)
	on, _, err := h.reminders.Toggle(r.ID)
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !on.Active {
		t.Error("expected active reminder")
	}
	if want := time.Date(2026, 10, 18, 10, 30, 0, 0, time.UTC); !on.ScheduledFor.Equal(want) {
		t.Errorf("re-armed for %v, want %v", on.ScheduledFor, want)
	}
	if len(h.timers.active()) != 1 {
		t.Error("expected one armed timer")
	}
}

func TestReminderStore_Delete(t *testing.T) {
	h := newHome(morning)
	r, _ := h.reminders.Create("stretch", "10:30")

	if !h.reminders.Delete(r.ID) {
		t.Fatal("Delete reported missing reminder")
	}
	if h.reminders.Delete(r.ID) {
		t.Error("second Delete should be a no-op")
	}
	if len(h.timers.active()) != 0 {
		t.Error("timer still armed after delete")
	}
	if _, _, err := h.reminders.Toggle(r.ID); err != nil {
		t.Errorf("toggle of deleted reminder: %v", err)
	}
	if n := len(h.events.ofType(domain.EventReminderRemoved)); n != 1 {
		t.Errorf("expected 1 removal event, got %d", n)
	}
}

func TestReminderStore_FireDeactivatesAndAlerts(t *testing.T) {
	h := newHome(morning)
	var alerted []domain.Reminder
	h.reminders.OnAlert(func(r domain.Reminder) { alerted = append(alerted, r) })

	r, _ := h.reminders.Create("call mom", "10:05")
	h.timers.active()[0].fn()

	got, _ := h.reminders.Get(r.ID)
	if got.Active {
		t.Error("fired reminder should be inactive")
	}
	if len(alerted) != 1 || alerted[0].Text != "call mom" {
		t.Fatalf("alerts = %+v", alerted)
	}
	if n := len(h.events.ofType(domain.EventReminderFired)); n != 1 {
		t.Errorf("expected 1 fired event, got %d", n)
	}
}

func TestReminderStore_FireAfterToggleOffIsIgnored(t *testing.T) {
	h := newHome(morning)
	var alerted []domain.Reminder
	h.reminders.OnAlert(func(r domain.Reminder) { alerted = append(alerted, r) })

	r, _ := h.reminders.Create("call mom", "10:05")
	// the timer has fired but the store has not seen it yet
	h.reminders.Toggle(r.ID)
	h.reminders.HandleFire(r)

	if len(alerted) != 0 {
		t.Errorf("alerts = %+v", alerted)
	}
	if n := len(h.events.ofType(domain.EventReminderFired)); n != 0 {
		t.Errorf("expected no fired event, got %d", n)
	}
	if got, _ := h.reminders.Get(r.ID); got.Active {
		t.Error("reminder should stay inactive")
	}
}

func TestReminderStore_Next(t *testing.T) {
	h := newHome(morning)
	if info := h.reminders.Next(); info.Pending != 0 || info.At != nil || info.Reminder != nil {
		t.Fatalf("empty store: %+v", info)
	}

	h.reminders.Create("late", "18:00")
	early, _ := h.reminders.Create("early", "11:00")
	off, _ := h.reminders.Create("off", "10:30")
	h.reminders.Toggle(off.ID)

	info := h.reminders.Next()
	if info.Pending != 2 {
		t.Errorf("pending = %d", info.Pending)
	}
	if info.At == nil || !info.At.Equal(morning.Add(time.Hour)) {
		t.Errorf("at = %v", info.At)
	}
	if info.Reminder == nil || info.Reminder.ID != early.ID {
		t.Errorf("reminder = %+v", info.Reminder)
	}
}

func TestReminderStore_ListKeepsCreationOrder(t *testing.T) {
	h := newHome(morning)
	h.reminders.Create("b", "18:00")
	h.reminders.Create("a", "11:00")

	list := h.reminders.List()
	if len(list) != 2 || list[0].Text != "b" || list[1].Text != "a" {
		t.Errorf("list = %+v", list)
	}
}
