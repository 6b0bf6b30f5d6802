package domain

type EventType string

const (
	EventMessageAppended EventType = "message.appended"
	EventDeviceChanged   EventType = "device.changed"
	EventDeviceRemoved   EventType = "device.removed"
	EventReminderChanged EventType = "reminder.changed"
	EventReminderRemoved EventType = "reminder.removed"
	EventReminderFired   EventType = "reminder.fired"
	EventSpeak           EventType = "speak"
)

type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// Utterance is the payload of a speak event; the browser synthesizes it.
type Utterance struct {
	Text     string        `json:"text"`
	Settings VoiceSettings `json:"settings"`
}
