package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"voice-home/internal/domain"
)

const mirrorQueueSize = 64

// DeviceController drives a physical device to match a registry entry.
// target is the controller's own identifier for the device.
type DeviceController interface {
	Name() string
	Apply(ctx context.Context, target string, d domain.Device) error
}

type mirrorJob struct {
	target string
	device domain.Device
}

// Mirror forwards registry changes to an external controller for devices
// listed in its target map. Keys are device ids or names, case-insensitive.
type Mirror struct {
	controller DeviceController
	targets    map[string]string
	timeout    time.Duration
	queue      chan mirrorJob
	logger     *slog.Logger
}

func NewMirror(controller DeviceController, targets map[string]string, timeout time.Duration, logger *slog.Logger) *Mirror {
	normalized := make(map[string]string, len(targets))
	for k, v := range targets {
		normalized[strings.ToLower(strings.TrimSpace(k))] = v
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Mirror{
		controller: controller,
		targets:    normalized,
		timeout:    timeout,
		queue:      make(chan mirrorJob, mirrorQueueSize),
		logger:     logger,
	}
}

func (m *Mirror) Target(d domain.Device) (string, bool) {
	if t, ok := m.targets[strings.ToLower(d.ID)]; ok {
		return t, true
	}
	t, ok := m.targets[strings.ToLower(d.Name)]
	return t, ok
}

// HandleEvent queues device changes; it is safe to pass to Events.Subscribe.
func (m *Mirror) HandleEvent(e domain.Event) {
	if e.Type != domain.EventDeviceChanged {
		return
	}
	d, ok := e.Payload.(domain.Device)
	if !ok {
		return
	}
	target, ok := m.Target(d)
	if !ok {
		return
	}

	select {
	case m.queue <- mirrorJob{target: target, device: d}:
	default:
		m.logger.Warn("device mirror queue full, dropping update", "controller", m.controller.Name(), "device", d.Name)
	}
}

// Run applies queued changes one at a time until ctx is cancelled.
// Controller failures are logged; the registry stays authoritative.
func (m *Mirror) Run(ctx context.Context) error {
	m.logger.Info("device mirror started", "controller", m.controller.Name(), "devices", len(m.targets))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job := <-m.queue:
			m.apply(ctx, job)
		}
	}
}

func (m *Mirror) apply(ctx context.Context, job mirrorJob) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err := m.controller.Apply(ctx, job.target, job.device); err != nil {
		m.logger.Error("mirroring device state",
			"controller", m.controller.Name(),
			"device", job.device.Name,
			"target", job.target,
			"error", err,
		)
		return
	}
	m.logger.Debug("device state mirrored", "controller", m.controller.Name(), "device", job.device.Name, "on", job.device.On)
}
