package domain

import "strings"

type Category string

const (
	CategoryLight Category = "light"
	CategoryFan   Category = "fan"
	CategoryAC    Category = "ac"
	CategoryTV    Category = "tv"
)

// LevelSpec describes the controllable numeric level of a category.
type LevelSpec struct {
	Label   string
	Unit    string
	Min     int
	Max     int
	Default int
}

var levelSpecs = map[Category]LevelSpec{
	CategoryLight: {Label: "brightness", Unit: "%", Min: 0, Max: 100, Default: 50},
	CategoryFan:   {Label: "speed", Unit: "%", Min: 0, Max: 100, Default: 50},
	CategoryAC:    {Label: "temperature", Unit: "°C", Min: 16, Max: 30, Default: 22},
}

var categoryNames = map[Category]string{
	CategoryLight: "Light",
	CategoryFan:   "Fan",
	CategoryAC:    "AC",
	CategoryTV:    "TV",
}

// Categories lists the closed set of device categories in display order.
func Categories() []Category {
	return []Category{CategoryLight, CategoryFan, CategoryAC, CategoryTV}
}

func ParseCategory(s string) (Category, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "light", "lamp":
		return CategoryLight, true
	case "fan":
		return CategoryFan, true
	case "ac", "a/c", "air conditioner", "air-conditioner":
		return CategoryAC, true
	case "tv", "television":
		return CategoryTV, true
	}
	return "", false
}

func (c Category) Valid() bool {
	_, ok := categoryNames[c]
	return ok
}

func (c Category) DisplayName() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return string(c)
}

// Level reports the level definition for the category. TVs have none.
func (c Category) Level() (LevelSpec, bool) {
	spec, ok := levelSpecs[c]
	return spec, ok
}

// Clamp bounds v to the category range. Categories without a level return v unchanged.
func (c Category) Clamp(v int) int {
	spec, ok := levelSpecs[c]
	if !ok {
		return v
	}
	if v < spec.Min {
		return spec.Min
	}
	if v > spec.Max {
		return spec.Max
	}
	return v
}

type Device struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category Category `json:"type"`
	On       bool     `json:"isOn"`
	Level    *int     `json:"value,omitempty"`
	Room     string   `json:"room"`
}

// NewDevice builds a device in its initial state: off, at the category default level.
func NewDevice(id, name string, category Category, room string) Device {
	d := Device{
		ID:       id,
		Name:     name,
		Category: category,
		Room:     room,
	}
	if spec, ok := category.Level(); ok {
		d.Level = IntPtr(spec.Default)
	}
	return d
}

// LevelValue returns the current level and whether the device has one.
func (d Device) LevelValue() (int, bool) {
	if d.Level == nil {
		return 0, false
	}
	return *d.Level, true
}

// Clone returns a copy that shares no pointers with d.
func (d Device) Clone() Device {
	out := d
	if d.Level != nil {
		out.Level = IntPtr(*d.Level)
	}
	return out
}

func IntPtr(v int) *int {
	return &v
}
