package application

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"voice-home/internal/domain"
)

var (
	relativeMinutesRe = regexp.MustCompile(`(?i)\b(?:in|next|after)\s*(\d+)\s*(?:minutes?|mins?)\b`)
	relativeHoursRe   = regexp.MustCompile(`(?i)\b(?:in|next|after)\s*(\d+)\s*(?:hours?|hrs?)\b`)
	absoluteTimeRe    = regexp.MustCompile(`(?i)(\bat\s+)?\b(\d{1,2})(?::(\d{2}))?(?:\s*([ap])\.?m\b\.?)?`)

	reminderFillerRe = regexp.MustCompile(`(?i)\b(?:set\s+(?:a\s+)?reminder\s+to|set\s+(?:a\s+)?reminder|remind\s+me\s+to|remind\s+me|reminder\s+to|alert\s+me\s+to|alert\s+me|remind|reminder|alert)\b`)
	leadingToRe      = regexp.MustCompile(`(?i)^(?:to|that)\b\s*`)
)

// reminderRequest is a time expression extracted from free text.
type reminderRequest struct {
	Clock domain.Clock
	Body  string
}

// parseReminderRequest finds the first time expression in text and returns
// the clock time it denotes plus the text with the expression and filler
// words removed. Relative expressions are resolved against now.
func parseReminderRequest(text string, now time.Time) (reminderRequest, bool) {
	clock, span, ok := findRelative(text, now)
	if !ok {
		clock, span, ok = findAbsolute(text)
	}
	if !ok {
		return reminderRequest{}, false
	}
	body := text[:span[0]] + " " + text[span[1]:]
	return reminderRequest{Clock: clock, Body: cleanReminderBody(body)}, true
}

// findRelative resolves "in N minutes|hours" against now. Zero delays and
// delays of a day or more are not accepted.
func findRelative(text string, now time.Time) (domain.Clock, [2]int, bool) {
	for _, rel := range []struct {
		re   *regexp.Regexp
		unit time.Duration
	}{
		{relativeMinutesRe, time.Minute},
		{relativeHoursRe, time.Hour},
	} {
		m := rel.re.FindStringSubmatchIndex(text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil {
			continue
		}
		// A reminder holds a time of day, so the delay must land within the next 24h.
		if n <= 0 || n >= int(24*time.Hour/rel.unit) {
			continue
		}
		return domain.ClockOf(now.Add(time.Duration(n) * rel.unit)), [2]int{m[0], m[1]}, true
	}
	return domain.Clock{}, [2]int{}, false
}

// findAbsolute accepts a bare number only when it is introduced by "at", has
// minutes, or carries am/pm, so "buy 2 eggs" is not read as a time.
func findAbsolute(text string) (domain.Clock, [2]int, bool) {
	for _, m := range absoluteTimeRe.FindAllStringSubmatchIndex(text, -1) {
		hasAt := m[2] >= 0
		hasMinutes := m[6] >= 0
		hasPeriod := m[8] >= 0
		digitsEnd := m[5]
		if hasMinutes {
			digitsEnd = m[7]
		}
		if digitsEnd < len(text) && isDigit(text[digitsEnd]) {
			continue
		}
		if !hasAt && !hasMinutes && !hasPeriod {
			continue
		}

		hour, _ := strconv.Atoi(text[m[4]:m[5]])
		minute := 0
		if hasMinutes {
			minute, _ = strconv.Atoi(text[m[6]:m[7]])
		}
		if hasPeriod {
			if hour < 1 || hour > 12 {
				continue
			}
			pm := strings.EqualFold(text[m[8]:m[9]], "p")
			switch {
			case pm && hour != 12:
				hour += 12
			case !pm && hour == 12:
				hour = 0
			}
		}
		clock := domain.Clock{Hour: hour, Minute: minute}
		if !clock.Valid() {
			continue
		}
		return clock, [2]int{m[0], m[1]}, true
	}
	return domain.Clock{}, [2]int{}, false
}

func cleanReminderBody(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = reminderFillerRe.ReplaceAllString(s, " ")
	s = strings.Join(strings.Fields(s), " ")
	s = leadingToRe.ReplaceAllString(s, "")
	return strings.Trim(s, " ,.!?;:")
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
