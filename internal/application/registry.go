package application

import (
	"strings"
	"sync"

	"voice-home/internal/domain"
)

const DefaultRoom = "Default Room"

// DeviceRegistry is the authoritative in-memory device list. Every mutation
// replaces the whole slice under the lock and publishes one event per changed
// device after the lock is released.
type DeviceRegistry struct {
	events Publisher
	newID  func() string

	mu      sync.RWMutex
	devices []domain.Device
}

func NewDeviceRegistry(events Publisher, newID func() string, seed ...domain.Device) *DeviceRegistry {
	if events == nil {
		events = nopPublisher{}
	}
	r := &DeviceRegistry{events: events, newID: newID}
	for _, d := range seed {
		r.devices = append(r.devices, r.normalize(d))
	}
	return r
}

// DemoDevices is the starter household shown on first launch.
func DemoDevices(newID func() string) []domain.Device {
	light := domain.NewDevice(newID(), "Living Room Lights", domain.CategoryLight, "Living Room")
	light.Level = domain.IntPtr(80)
	fan := domain.NewDevice(newID(), "Bedroom Fan", domain.CategoryFan, "Bedroom")
	fan.Level = domain.IntPtr(60)
	return []domain.Device{
		light,
		fan,
		domain.NewDevice(newID(), "Kitchen AC", domain.CategoryAC, "Kitchen"),
		domain.NewDevice(newID(), "Living Room TV", domain.CategoryTV, "Living Room"),
	}
}

func (r *DeviceRegistry) List() []domain.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Device, len(r.devices))
	for i, d := range r.devices {
		out[i] = d.Clone()
	}
	return out
}

func (r *DeviceRegistry) Get(id string) (domain.Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.devices {
		if d.ID == id {
			return d.Clone(), true
		}
	}
	return domain.Device{}, false
}

func (r *DeviceRegistry) Count(category domain.Category) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, d := range r.devices {
		if d.Category == category {
			n++
		}
	}
	return n
}

// Match returns the devices an identifier such as "bedroom fan" refers to.
func (r *DeviceRegistry) Match(identifier string) []domain.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Device
	for _, d := range r.devices {
		if MatchesIdentifier(d, identifier) {
			out = append(out, d.Clone())
		}
	}
	return out
}

// MatchesIdentifier reports whether the identifier and the device's category,
// name or room contain one another. First words of the name and room count as
// well, so "bedroom fan" finds a device named "Bedroom Fan" in room "Bedroom".
func MatchesIdentifier(d domain.Device, identifier string) bool {
	id := strings.ToLower(strings.Join(strings.Fields(identifier), " "))
	if id == "" {
		return false
	}
	category := string(d.Category)
	name := strings.ToLower(d.Name)
	room := strings.ToLower(d.Room)

	for _, field := range []string{category, name, room} {
		if field != "" && strings.Contains(field, id) {
			return true
		}
	}
	for _, field := range []string{category, firstWord(name), firstWord(room)} {
		if field != "" && strings.Contains(id, field) {
			return true
		}
	}
	return false
}

func firstWord(s string) string {
	if fields := strings.Fields(s); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

// Create validates form input and adds a device in its initial state.
func (r *DeviceRegistry) Create(name string, category domain.Category, room string) (domain.Device, error) {
	var verr domain.ValidationError
	name = strings.TrimSpace(name)
	if name == "" {
		verr.Add("name", "is required")
	}
	if !category.Valid() {
		verr.Add("type", "must be one of light, fan, ac, tv")
	}
	if err := verr.OrNil(); err != nil {
		return domain.Device{}, err
	}
	return r.Add(domain.NewDevice("", name, category, room)), nil
}

// Add stores d, assigning an id and a default room when missing.
func (r *DeviceRegistry) Add(d domain.Device) domain.Device {
	d = r.normalize(d)

	r.mu.Lock()
	next := make([]domain.Device, len(r.devices), len(r.devices)+1)
	copy(next, r.devices)
	r.devices = append(next, d)
	r.mu.Unlock()

	r.publish(domain.EventDeviceChanged, d)
	return d.Clone()
}

func (r *DeviceRegistry) Remove(id string) (domain.Device, bool) {
	var removed domain.Device
	found := false

	r.mu.Lock()
	next := make([]domain.Device, 0, len(r.devices))
	for _, d := range r.devices {
		if d.ID == id {
			removed, found = d, true
			continue
		}
		next = append(next, d)
	}
	r.devices = next
	r.mu.Unlock()

	if found {
		r.publish(domain.EventDeviceRemoved, removed)
	}
	return removed, found
}

func (r *DeviceRegistry) Toggle(id string) (domain.Device, bool) {
	return r.updateOne(id, func(d *domain.Device) bool {
		d.On = !d.On
		return true
	})
}

func (r *DeviceRegistry) SetPower(id string, on bool) (domain.Device, bool) {
	return r.updateOne(id, func(d *domain.Device) bool {
		d.On = on
		return true
	})
}

// SetLevel clamps value to the category range. Devices without a level are
// left untouched and reported as not found.
func (r *DeviceRegistry) SetLevel(id string, value int) (domain.Device, bool) {
	return r.updateOne(id, func(d *domain.Device) bool {
		if d.Level == nil {
			return false
		}
		d.Level = domain.IntPtr(d.Category.Clamp(value))
		return true
	})
}

// SetAll sets the power flag of every device and returns the updated list.
func (r *DeviceRegistry) SetAll(on bool) []domain.Device {
	return r.UpdateWhere(
		func(domain.Device) bool { return true },
		func(d *domain.Device) { d.On = on },
	)
}

// UpdateWhere applies fn to every device matching pred and returns the
// updated devices.
func (r *DeviceRegistry) UpdateWhere(pred func(domain.Device) bool, fn func(*domain.Device)) []domain.Device {
	var changed []domain.Device

	r.mu.Lock()
	next := make([]domain.Device, len(r.devices))
	for i, d := range r.devices {
		if pred(d) {
			d = d.Clone()
			fn(&d)
			d = r.clampLevel(d)
			changed = append(changed, d)
		}
		next[i] = d
	}
	r.devices = next
	r.mu.Unlock()

	for _, d := range changed {
		r.publish(domain.EventDeviceChanged, d)
	}
	out := make([]domain.Device, len(changed))
	for i, d := range changed {
		out[i] = d.Clone()
	}
	return out
}

func (r *DeviceRegistry) updateOne(id string, fn func(*domain.Device) bool) (domain.Device, bool) {
	var updated domain.Device
	found := false

	r.mu.Lock()
	next := make([]domain.Device, len(r.devices))
	for i, d := range r.devices {
		if d.ID == id && !found {
			candidate := d.Clone()
			if fn(&candidate) {
				d = r.clampLevel(candidate)
				updated, found = d, true
			}
		}
		next[i] = d
	}
	r.devices = next
	r.mu.Unlock()

	if found {
		r.publish(domain.EventDeviceChanged, updated)
	}
	return updated.Clone(), found
}

func (r *DeviceRegistry) normalize(d domain.Device) domain.Device {
	d = d.Clone()
	if d.ID == "" && r.newID != nil {
		d.ID = r.newID()
	}
	d.Name = strings.TrimSpace(d.Name)
	d.Room = strings.TrimSpace(d.Room)
	if d.Room == "" {
		d.Room = DefaultRoom
	}
	spec, ok := d.Category.Level()
	switch {
	case !ok:
		d.Level = nil
	case d.Level == nil:
		d.Level = domain.IntPtr(spec.Default)
	}
	return r.clampLevel(d)
}

func (r *DeviceRegistry) clampLevel(d domain.Device) domain.Device {
	if _, ok := d.Category.Level(); !ok {
		d.Level = nil
		return d
	}
	if d.Level != nil {
		d.Level = domain.IntPtr(d.Category.Clamp(*d.Level))
	}
	return d
}

func (r *DeviceRegistry) publish(t domain.EventType, d domain.Device) {
	r.events.Publish(domain.Event{Type: t, Payload: d.Clone()})
}
