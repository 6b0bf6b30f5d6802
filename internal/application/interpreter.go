package application

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"voice-home/internal/domain"
)

const defaultLevelStep = 10

// ReminderCreator is the part of the reminder store the interpreter needs.
type ReminderCreator interface {
	Create(text, at string) (domain.Reminder, error)
}

var (
	turnOnRe  = regexp.MustCompile(`(?i)\b(?:turn|switch)\s+on\b`)
	turnOffRe = regexp.MustCompile(`(?i)\b(?:turn|switch)\s+off\b`)
	bulkRe    = regexp.MustCompile(`(?i)\b(?:all|everything)\b`)
	remindRe  = regexp.MustCompile(`(?i)\b(?:remind|reminder|alert)\b`)
	addRe     = regexp.MustCompile(`(?i)\b(?:add|new)\s+device\b`)
	numberRe  = regexp.MustCompile(`\d+`)

	increaseRe = regexp.MustCompile(`(?i)\b(?:increase|raise)\b`)
	decreaseRe = regexp.MustCompile(`(?i)\b(?:decrease|reduce|lower)\b`)
	setRe      = regexp.MustCompile(`(?i)\bset\b`)
)

var categoryKeywords = []struct {
	category domain.Category
	re       *regexp.Regexp
}{
	{domain.CategoryFan, regexp.MustCompile(`(?i)\bfans?\b`)},
	{domain.CategoryLight, regexp.MustCompile(`(?i)\b(?:lights?|lamps?)\b`)},
	{domain.CategoryAC, regexp.MustCompile(`(?i)(?:\ba/c\b|\bac\b|\bair[\s-]?condition(?:er|ing)\b)`)},
	{domain.CategoryTV, regexp.MustCompile(`(?i)\b(?:tv|television)\b`)},
}

var roomKeywords = []struct {
	room string
	re   *regexp.Regexp
}{
	{"bedroom", regexp.MustCompile(`(?i)\bbedroom\b`)},
	{"living room", regexp.MustCompile(`(?i)\bliving\s+room\b`)},
	{"kitchen", regexp.MustCompile(`(?i)\bkitchen\b`)},
	{"bathroom", regexp.MustCompile(`(?i)\bbathroom\b`)},
	{"hall", regexp.MustCompile(`(?i)\bhall\b`)},
	{"dining room", regexp.MustCompile(`(?i)\bdining\s+room\b`)},
}

// utterance is one input with everything the rules look at extracted once.
type utterance struct {
	text     string
	on       bool
	off      bool
	category domain.Category
	room     string
	reminder *reminderRequest
}

type rule struct {
	name   string
	when   func(u utterance) bool
	handle func(u utterance) domain.Result
}

// Interpreter turns free text into device and reminder actions. Rules are
// evaluated in order and the first whose predicate holds produces the result.
type Interpreter struct {
	devices   *DeviceRegistry
	reminders ReminderCreator
	now       func() time.Time
	logger    *slog.Logger

	rules       []rule
	deviceRules []rule
}

func NewInterpreter(devices *DeviceRegistry, reminders ReminderCreator, now func() time.Time, logger *slog.Logger) *Interpreter {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	in := &Interpreter{
		devices:   devices,
		reminders: reminders,
		now:       now,
		logger:    logger,
	}

	bulk := rule{name: "bulk", when: in.isBulk, handle: in.handleBulk}
	targeted := rule{name: "targeted", when: in.isTargeted, handle: in.handleTargeted}
	level := rule{name: "level", when: in.isLevel, handle: in.handleLevel}
	remind := rule{name: "reminder", when: in.isReminder, handle: in.handleReminder}
	add := rule{name: "add", when: in.isAdd, handle: in.handleAdd}

	in.rules = []rule{bulk, targeted, level, remind, add}
	in.deviceRules = []rule{bulk, targeted, level}
	return in
}

// Interpret evaluates every rule. A result with Handled=false means the text
// should go to the chat model.
func (in *Interpreter) Interpret(text string) domain.Result {
	return in.evaluate(in.rules, text, true)
}

// ApplyDeviceAction evaluates only the device rules. It is used on reminder
// bodies such as "turn on the fan" when the reminder fires.
func (in *Interpreter) ApplyDeviceAction(text string) domain.Result {
	return in.evaluate(in.deviceRules, text, false)
}

func (in *Interpreter) evaluate(rules []rule, text string, reminders bool) domain.Result {
	u := in.parse(text, reminders)
	if u.text == "" {
		return domain.NotHandled()
	}
	for _, r := range rules {
		if !r.when(u) {
			continue
		}
		res := r.handle(u)
		in.logger.Debug("command matched", "rule", r.name, "action", res.Action, "found", res.Found)
		return res
	}
	return domain.NotHandled()
}

func (in *Interpreter) parse(text string, reminders bool) utterance {
	u := utterance{
		text: strings.TrimSpace(text),
		on:   turnOnRe.MatchString(text),
		off:  turnOffRe.MatchString(text),
	}
	for _, k := range categoryKeywords {
		if k.re.MatchString(text) {
			u.category = k.category
			break
		}
	}
	for _, k := range roomKeywords {
		if k.re.MatchString(text) {
			u.room = k.room
			break
		}
	}
	if reminders && remindRe.MatchString(text) {
		if req, ok := parseReminderRequest(u.text, in.now()); ok && req.Body != "" {
			u.reminder = &req
		}
	}
	return u
}

// Device rules stand aside for complete reminder requests so that
// "remind me to turn on the fan at 9" schedules instead of acting now.

func (in *Interpreter) isBulk(u utterance) bool {
	return u.reminder == nil && (u.on || u.off) && bulkRe.MatchString(u.text)
}

func (in *Interpreter) handleBulk(u utterance) domain.Result {
	on := u.on && !u.off
	in.devices.SetAll(on)

	res := domain.Result{Handled: true, Action: domain.ActionSetAll, Found: true}
	if on {
		res.Response = "Perfect! All devices are now on. Your smart home is fully activated!"
	} else {
		res.Response = "All devices have been turned off. Energy saved!"
	}
	return res
}

func (in *Interpreter) isTargeted(u utterance) bool {
	return u.reminder == nil && (u.on || u.off) && u.category != ""
}

func (in *Interpreter) handleTargeted(u utterance) domain.Result {
	on := u.on && !u.off
	label := displayLabel(u)

	changed := in.devices.UpdateWhere(in.targets(u), func(d *domain.Device) { d.On = on })

	res := domain.Result{Handled: true, Action: domain.ActionTurnOff, Found: len(changed) > 0}
	if on {
		res.Action = domain.ActionTurnOn
	}
	switch {
	case res.Found && on:
		res.Response = fmt.Sprintf("%s turned on successfully!", label)
	case res.Found:
		res.Response = fmt.Sprintf("%s turned off successfully!", label)
	case on:
		res.Response = fmt.Sprintf("Couldn't find %s. Would you like me to add it to your smart home?", lowerFirst(label))
	default:
		res.Response = fmt.Sprintf("Couldn't find %s to turn off.", lowerFirst(label))
	}
	return res
}

func (in *Interpreter) isLevel(u utterance) bool {
	if u.reminder != nil || u.category == "" {
		return false
	}
	return increaseRe.MatchString(u.text) || decreaseRe.MatchString(u.text) || setRe.MatchString(u.text)
}

func (in *Interpreter) handleLevel(u utterance) domain.Result {
	label := displayLabel(u)
	res := domain.Result{Handled: true, Action: domain.ActionSetLevel}
	spec, ok := u.category.Level()
	if !ok {
		res.Response = fmt.Sprintf("Sorry, the %s doesn't have an adjustable level.", lowerFirst(label))
		return res
	}

	var adjust func(int) int
	switch {
	case decreaseRe.MatchString(u.text):
		adjust = func(v int) int { return v - defaultLevelStep }
	case increaseRe.MatchString(u.text):
		adjust = func(v int) int { return v + defaultLevelStep }
	default:
		raw := numberRe.FindString(u.text)
		target, err := strconv.Atoi(raw)
		if err != nil {
			res.Response = fmt.Sprintf("What %s should I set the %s to?", spec.Label, lowerFirst(label))
			return res
		}
		adjust = func(int) int { return target }
	}

	match := in.targets(u)
	changed := in.devices.UpdateWhere(
		func(d domain.Device) bool { return d.Level != nil && match(d) },
		func(d *domain.Device) {
			d.Level = domain.IntPtr(adjust(*d.Level))
			d.On = true
		},
	)
	if len(changed) == 0 {
		res.Response = fmt.Sprintf("Couldn't find %s to adjust. Would you like me to add one?", lowerFirst(label))
		return res
	}

	res.Found = true
	res.Response = fmt.Sprintf("%s %s set to %d%s.", label, spec.Label, *changed[0].Level, spec.Unit)
	return res
}

func (in *Interpreter) isReminder(u utterance) bool {
	return u.reminder != nil && in.reminders != nil
}

func (in *Interpreter) handleReminder(u utterance) domain.Result {
	res := domain.Result{Handled: true, Action: domain.ActionRemind}
	r, err := in.reminders.Create(u.reminder.Body, u.reminder.Clock.String())
	if err != nil {
		in.logger.Warn("reminder not created", "text", u.text, "error", err)
		res.Response = "Sorry, I couldn't set that reminder. Please try again."
		return res
	}
	res.Found = true
	res.Response = fmt.Sprintf("Got it! I'll remind you %q at %s with a voice notification.", r.Text, r.Time)
	return res
}

func (in *Interpreter) isAdd(u utterance) bool {
	return addRe.MatchString(u.text)
}

func (in *Interpreter) handleAdd(u utterance) domain.Result {
	category := u.category
	if category == "" {
		category = domain.CategoryLight
	}
	name := fmt.Sprintf("New %s %d", category.DisplayName(), in.devices.Count(category)+1)
	d := in.devices.Add(domain.NewDevice("", name, category, DefaultRoom))

	return domain.Result{
		Handled:  true,
		Action:   domain.ActionAdd,
		Found:    true,
		Response: fmt.Sprintf("New %s added successfully! You can control it with voice commands.", strings.ToLower(d.Category.DisplayName())),
	}
}

// targets selects devices matching the spoken identifier, "room category"
// when a room was named. Matching is the permissive MatchesIdentifier rule.
func (in *Interpreter) targets(u utterance) func(domain.Device) bool {
	identifier := string(u.category)
	if u.room != "" {
		identifier = u.room + " " + identifier
	}
	return func(d domain.Device) bool {
		return MatchesIdentifier(d, identifier)
	}
}

// displayLabel renders "Bedroom fan" or "Kitchen AC" for responses.
func displayLabel(u utterance) string {
	word := string(u.category)
	if u.category == domain.CategoryAC || u.category == domain.CategoryTV {
		word = u.category.DisplayName()
	}
	label := word
	if u.room != "" {
		label = u.room + " " + word
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

// lowerFirst leaves acronyms such as "TV" alone.
func lowerFirst(s string) string {
	if s == "" || len(s) > 1 && unicode.IsUpper(rune(s[1])) {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
