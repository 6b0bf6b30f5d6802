package mqtt

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"

	"voice-home/internal/domain"
)

const outboxSize = 128

// Devices is the registry surface the bridge drives.
type Devices interface {
	List() []domain.Device
	SetPower(id string, on bool) (domain.Device, bool)
	SetLevel(id string, value int) (domain.Device, bool)
}

type outgoing struct {
	topic   string
	payload []byte
}

// Bridge publishes retained device state to
// <prefix>/<room>/<device-id>/state and listens on <prefix>/+/+/set.
type Bridge struct {
	broker  Broker
	devices Devices
	prefix  string
	logger  *slog.Logger
	outbox  chan outgoing
}

func NewBridge(broker Broker, devices Devices, prefix string, logger *slog.Logger) *Bridge {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "home"
	}
	return &Bridge{
		broker:  broker,
		devices: devices,
		prefix:  prefix,
		logger:  logger,
		outbox:  make(chan outgoing, outboxSize),
	}
}

// Run subscribes to commands, publishes the current state of every device
// and then drains queued state updates until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	if err := b.broker.Subscribe(b.prefix+"/+/+/set", b.handleSet); err != nil {
		return err
	}
	for _, d := range b.devices.List() {
		b.publish(b.stateTopic(d), stateJSON(d))
	}

	for {
		select {
		case <-ctx.Done():
			b.broker.Disconnect()
			return ctx.Err()
		case msg := <-b.outbox:
			b.publish(msg.topic, msg.payload)
		}
	}
}

// HandleEvent queues device changes for publishing. It never blocks.
func (b *Bridge) HandleEvent(e domain.Event) {
	d, ok := e.Payload.(domain.Device)
	if !ok {
		return
	}

	var msg outgoing
	switch e.Type {
	case domain.EventDeviceChanged:
		msg = outgoing{topic: b.stateTopic(d), payload: stateJSON(d)}
	case domain.EventDeviceRemoved:
		// an empty retained message clears the topic on the broker
		msg = outgoing{topic: b.stateTopic(d), payload: []byte{}}
	default:
		return
	}

	select {
	case b.outbox <- msg:
	default:
		b.logger.Warn("mqtt outbox full, dropping state update", "device", d.ID)
	}
}

func (b *Bridge) publish(topic string, payload []byte) {
	if err := b.broker.Publish(topic, true, payload); err != nil {
		b.logger.Error("mqtt publish failed", "topic", topic, "error", err)
	}
}

// handleSet accepts on/off/true/false to switch power, or a number to set the level.
func (b *Bridge) handleSet(topic string, payload []byte) {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 {
		return
	}
	id := parts[len(parts)-2]
	value := strings.ToLower(strings.TrimSpace(string(payload)))

	var ok bool
	switch value {
	case "on", "true":
		_, ok = b.devices.SetPower(id, true)
	case "off", "false":
		_, ok = b.devices.SetPower(id, false)
	default:
		n, err := strconv.Atoi(value)
		if err != nil {
			b.logger.Warn("mqtt set: unrecognized payload", "topic", topic, "payload", value)
			return
		}
		_, ok = b.devices.SetLevel(id, n)
	}
	if !ok {
		b.logger.Warn("mqtt set: no such device or level", "device", id)
		return
	}
	b.logger.Info("mqtt set applied", "device", id, "payload", value)
}

func (b *Bridge) stateTopic(d domain.Device) string {
	return b.prefix + "/" + slug(d.Room) + "/" + d.ID + "/state"
}

func stateJSON(d domain.Device) []byte {
	data, _ := json.Marshal(d)
	return data
}

// slug lowercases s and joins its words with underscores, dropping MQTT
// wildcard and separator characters.
func slug(s string) string {
	var sb strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSep && sb.Len() > 0 {
				sb.WriteByte('_')
			}
			pendingSep = false
			sb.WriteRune(r)
		default:
			pendingSep = true
		}
	}
	if sb.Len() == 0 {
		return "default"
	}
	return sb.String()
}
