package application_test

import (
	"strings"
	"testing"
	"time"

	"voice-home/internal/domain"
)

var morning = time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)

func TestInterpreter_TargetedPower(t *testing.T) {
	h := newHome(morning)

	res := h.interpreter.Interpret("turn on the bedroom fan")

	if !res.Handled || !res.Found || res.Action != domain.ActionTurnOn {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Response != "Bedroom fan turned on successfully!" {
		t.Errorf("response = %q", res.Response)
	}
	if !h.device("Bedroom Fan").On {
		t.Error("expected Bedroom Fan to be on")
	}
	for _, name := range []string{"Living Room Lights", "Kitchen AC", "Living Room TV"} {
		if h.device(name).On {
			t.Errorf("%s should be untouched", name)
		}
	}
}

func TestInterpreter_TargetedPowerMatchesRoomDevices(t *testing.T) {
	h := newHome(morning)
	h.devices.Add(domain.NewDevice("", "Bedroom Lamp", domain.CategoryLight, "Bedroom"))

	res := h.interpreter.Interpret("turn on the bedroom fan")

	if !res.Found {
		t.Fatalf("unexpected result: %+v", res)
	}
	// "bedroom" is the lamp's room, so it is a target too.
	if !h.device("Bedroom Fan").On || !h.device("Bedroom Lamp").On {
		t.Error("expected every bedroom device on")
	}
	if h.device("Living Room Lights").On {
		t.Error("living room lights should be untouched")
	}
}

func TestInterpreter_TargetedPowerNoMatch(t *testing.T) {
	h := newHome(morning)
	h.devices.Remove(h.device("Living Room TV").ID)
	before := h.devices.List()

	res := h.interpreter.Interpret("turn on the bathroom tv")

	if !res.Handled || res.Found {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !strings.HasPrefix(res.Response, "Couldn't find bathroom TV") {
		t.Errorf("response = %q", res.Response)
	}
	after := h.devices.List()
	for i := range before {
		if before[i].On != after[i].On {
			t.Errorf("device %s changed", before[i].Name)
		}
	}
}

func TestInterpreter_TurnOffByCategory(t *testing.T) {
	h := newHome(morning)
	h.devices.SetAll(true)

	res := h.interpreter.Interpret("Switch off the A/C please")

	if res.Action != domain.ActionTurnOff || !res.Found {
		t.Fatalf("unexpected result: %+v", res)
	}
	if h.device("Kitchen AC").On {
		t.Error("expected Kitchen AC off")
	}
	if !h.device("Bedroom Fan").On {
		t.Error("fan should stay on")
	}
}

func TestInterpreter_Bulk(t *testing.T) {
	h := newHome(morning)

	res := h.interpreter.Interpret("turn on all devices")
	if res.Action != domain.ActionSetAll || !strings.Contains(res.Response, "All devices are now on") {
		t.Fatalf("unexpected result: %+v", res)
	}
	for _, d := range h.devices.List() {
		if !d.On {
			t.Errorf("%s should be on", d.Name)
		}
	}
	fanLevel := *h.device("Bedroom Fan").Level

	res = h.interpreter.Interpret("switch off everything")
	if res.Response != "All devices have been turned off. Energy saved!" {
		t.Errorf("response = %q", res.Response)
	}
	for _, d := range h.devices.List() {
		if d.On {
			t.Errorf("%s should be off", d.Name)
		}
	}
	if got := *h.device("Bedroom Fan").Level; got != fanLevel {
		t.Errorf("bulk changed level: %d -> %d", fanLevel, got)
	}
}

func TestInterpreter_LevelAdjustments(t *testing.T) {
	tests := []struct {
		text   string
		device string
		want   int
	}{
		{"increase the fan speed", "Bedroom Fan", 70},
		{"lower the bedroom fan", "Bedroom Fan", 50},
		{"decrease the ac", "Kitchen AC", 16},
		{"set the ac to 25", "Kitchen AC", 25},
		{"set the ac to 5", "Kitchen AC", 16},
		{"set the living room light to 150", "Living Room Lights", 100},
		{"raise the lights", "Living Room Lights", 90},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			h := newHome(morning)

			res := h.interpreter.Interpret(tt.text)

			if res.Action != domain.ActionSetLevel || !res.Found {
				t.Fatalf("unexpected result: %+v", res)
			}
			d := h.device(tt.device)
			if d.Level == nil || *d.Level != tt.want {
				t.Errorf("level = %v, want %d", d.Level, tt.want)
			}
			if !d.On {
				t.Error("adjusting should turn the device on")
			}
		})
	}
}

func TestInterpreter_LevelWithoutValue(t *testing.T) {
	h := newHome(morning)

	res := h.interpreter.Interpret("set the fan")

	if !res.Handled || res.Found {
		t.Fatalf("unexpected result: %+v", res)
	}
	if *h.device("Bedroom Fan").Level != 60 {
		t.Error("level should be unchanged")
	}
}

func TestInterpreter_TVHasNoLevel(t *testing.T) {
	h := newHome(morning)

	for _, text := range []string{"increase the tv volume", "set the tv volume to 20"} {
		res := h.interpreter.Interpret(text)

		if !res.Handled || res.Found || res.Action != domain.ActionSetLevel {
			t.Fatalf("%q: unexpected result %+v", text, res)
		}
		if res.Response != "Sorry, the TV doesn't have an adjustable level." {
			t.Errorf("%q: response = %q", text, res.Response)
		}
	}
	if tv := h.device("Living Room TV"); tv.Level != nil || tv.On {
		t.Errorf("tv changed: %+v", tv)
	}
}

func TestInterpreter_RelativeReminder(t *testing.T) {
	h := newHome(morning)

	res := h.interpreter.Interpret("remind me to call mom in 5 minutes")

	if res.Action != domain.ActionRemind || !res.Found {
		t.Fatalf("unexpected result: %+v", res)
	}
	reminders := h.reminders.List()
	if len(reminders) != 1 {
		t.Fatalf("expected 1 reminder, got %d", len(reminders))
	}
	r := reminders[0]
	if r.Text != "call mom" {
		t.Errorf("text = %q", r.Text)
	}
	if r.Time != "10:05" {
		t.Errorf("time = %q", r.Time)
	}
	if !r.ScheduledFor.Equal(morning.Add(5 * time.Minute)) {
		t.Errorf("scheduled for %v", r.ScheduledFor)
	}
	armed := h.timers.active()
	if len(armed) != 1 || armed[0].delay != 5*time.Minute {
		t.Fatalf("expected one 5m timer, got %d", len(armed))
	}
	if !strings.Contains(res.Response, `"call mom"`) {
		t.Errorf("response = %q", res.Response)
	}
}

func TestInterpreter_AbsoluteReminderRollsToTomorrow(t *testing.T) {
	now := time.Date(2026, 10, 17, 9, 5, 0, 0, time.UTC)
	h := newHome(now)

	res := h.interpreter.Interpret("remind me to turn on the fan at 9:00 AM")

	if res.Action != domain.ActionRemind {
		t.Fatalf("unexpected result: %+v", res)
	}
	if h.device("Bedroom Fan").On {
		t.Error("the fan must not switch on before the reminder fires")
	}
	r := h.reminders.List()[0]
	if r.Text != "turn on the fan" {
		t.Errorf("text = %q", r.Text)
	}
	want := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	if !r.ScheduledFor.Equal(want) {
		t.Errorf("scheduled for %v, want %v", r.ScheduledFor, want)
	}
}

func TestInterpreter_ReminderTimeForms(t *testing.T) {
	tests := []struct {
		text     string
		wantTime string
		wantBody string
	}{
		{"remind me at 5pm to call mom", "17:00", "call mom"},
		{"remind me to buy 2 eggs at 12 am", "00:00", "buy 2 eggs"},
		{"set a reminder to water the plants at 18:30", "18:30", "water the plants"},
		{"reminder: stand up in 2 hours", "12:00", "stand up"},
		{"alert me to check the oven after 15 mins", "10:15", "check the oven"},
		{"remind me to pay rent at 12:15 p.m.", "12:15", "pay rent"},
		{"remind me to stretch in 23 hours", "09:00", "stretch"},
		{"remind me to stretch in 1439 minutes", "09:59", "stretch"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			h := newHome(morning)

			res := h.interpreter.Interpret(tt.text)

			if res.Action != domain.ActionRemind {
				t.Fatalf("unexpected result: %+v", res)
			}
			r := h.reminders.List()[0]
			if r.Time != tt.wantTime {
				t.Errorf("time = %q, want %q", r.Time, tt.wantTime)
			}
			if r.Text != tt.wantBody {
				t.Errorf("body = %q, want %q", r.Text, tt.wantBody)
			}
		})
	}
}

func TestInterpreter_ReminderNeedsTimeAndBody(t *testing.T) {
	for _, text := range []string{
		"remind me to stretch",
		"remind me at 25:00 to stretch",
		"remind me in 5 minutes",
		"remind me to call mom in 0 minutes",
		"remind me to call mom in 24 hours",
		"remind me to call mom in 30 hours",
		"remind me to call mom in 1440 minutes",
	} {
		t.Run(text, func(t *testing.T) {
			h := newHome(morning)

			res := h.interpreter.Interpret(text)

			if res.Handled {
				t.Fatalf("expected fall-through, got %+v", res)
			}
			if n := len(h.reminders.List()); n != 0 {
				t.Errorf("created %d reminders", n)
			}
		})
	}
}

func TestInterpreter_AddDevice(t *testing.T) {
	h := newHome(morning)

	res := h.interpreter.Interpret("add new device")
	if res.Action != domain.ActionAdd {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !strings.HasPrefix(res.Response, "New light added successfully!") {
		t.Errorf("response = %q", res.Response)
	}

	res = h.interpreter.Interpret("add device fan")
	if res.Action != domain.ActionAdd {
		t.Fatalf("unexpected result: %+v", res)
	}

	devices := h.devices.List()
	if len(devices) != 6 {
		t.Fatalf("expected 6 devices, got %d", len(devices))
	}
	light, fan := devices[4], devices[5]
	if light.Name != "New Light 2" || light.Category != domain.CategoryLight || light.Room != "Default Room" {
		t.Errorf("unexpected light: %+v", light)
	}
	if light.On || light.Level == nil || *light.Level != 50 {
		t.Errorf("light not in initial state: %+v", light)
	}
	if fan.Name != "New Fan 2" || fan.Category != domain.CategoryFan {
		t.Errorf("unexpected fan: %+v", fan)
	}
}

func TestInterpreter_NotHandled(t *testing.T) {
	h := newHome(morning)

	for _, text := range []string{
		"",
		"what's the weather like today?",
		"turn on the fancy music",
		"tell me a joke about acorns",
	} {
		if res := h.interpreter.Interpret(text); res.Handled {
			t.Errorf("%q should fall through, got %+v", text, res)
		}
	}
}

func TestInterpreter_ApplyDeviceAction(t *testing.T) {
	h := newHome(morning)

	if res := h.interpreter.ApplyDeviceAction("turn on the fan"); !res.Found {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !h.device("Bedroom Fan").On {
		t.Error("expected fan on")
	}
	if res := h.interpreter.ApplyDeviceAction("add device"); res.Handled {
		t.Errorf("device-add must not run from a reminder body: %+v", res)
	}
	if res := h.interpreter.ApplyDeviceAction("call mom"); res.Handled {
		t.Errorf("unexpected result: %+v", res)
	}
}
