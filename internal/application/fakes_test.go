package application_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"voice-home/internal/application"
	"voice-home/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

type fakeTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

// fakeTimers records armed timers; tests fire them explicitly.
type fakeTimers struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (f *fakeTimers) AfterFunc(d time.Duration, fn func()) application.Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{delay: d, fn: fn}
	f.timers = append(f.timers, t)
	return t
}

func (f *fakeTimers) active() []*fakeTimer {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*fakeTimer
	for _, t := range f.timers {
		if !t.stopped {
			out = append(out, t)
		}
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(e domain.Event) {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
}

func (p *recordingPublisher) ofType(t domain.EventType) []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.Event
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type mockChat struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []application.Prompt
}

func (m *mockChat) Name() string { return "mock" }

func (m *mockChat) Generate(_ context.Context, p application.Prompt) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, p)
	return m.reply, m.err
}

type mockNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (m *mockNotifier) Notify(_ context.Context, message string) error {
	m.mu.Lock()
	m.messages = append(m.messages, message)
	m.mu.Unlock()
	return nil
}

// home wires the core components around a fake clock and fake timers.
type home struct {
	clock       *fakeClock
	timers      *fakeTimers
	events      *recordingPublisher
	devices     *application.DeviceRegistry
	scheduler   *application.Scheduler
	reminders   *application.ReminderStore
	interpreter *application.Interpreter
}

func newHome(now time.Time) *home {
	h := &home{
		clock:  &fakeClock{now: now},
		timers: &fakeTimers{},
		events: &recordingPublisher{},
	}
	logger := discardLogger()
	h.devices = application.NewDeviceRegistry(h.events, sequentialIDs("dev"), application.DemoDevices(sequentialIDs("seed"))...)
	h.scheduler = application.NewScheduler(h.clock.Now, h.timers.AfterFunc, logger)
	h.reminders = application.NewReminderStore(h.scheduler, h.events, sequentialIDs("rem"), logger)
	h.interpreter = application.NewInterpreter(h.devices, h.reminders, h.clock.Now, logger)
	return h
}

func (h *home) device(name string) domain.Device {
	for _, d := range h.devices.List() {
		if d.Name == name {
			return d
		}
	}
	panic("no device named " + name)
}
