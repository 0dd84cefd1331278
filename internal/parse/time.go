package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	colonTimeRe = regexp.MustCompile(`(?i)^(\d{1,2}):([0-5]\d)(?::([0-5]\d))?\s*(am|pm)?$`)
	// The dot form keeps the looser two-digit minute group of the original
	// grammar; 9.75 slips through the regex and is caught by the controller's
	// HH:MM:SS validity check only when the minute digits happen to exceed 59.
	dotTimeRe = regexp.MustCompile(`(?i)^(\d{1,2})\.(\d{2})\s*(am|pm)?$`)
)

// Time extracts a time of birth and normalizes it to HH:MM:SS, applying
// 12-to-24-hour conversion when an am/pm marker is present.
func Time(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}

	if m := colonTimeRe.FindStringSubmatch(text); m != nil {
		sec := m[3]
		if sec == "" {
			sec = "00"
		}
		return normalizeTime(m[1], m[2], sec, m[4])
	}
	if m := dotTimeRe.FindStringSubmatch(text); m != nil {
		return normalizeTime(m[1], m[2], "00", m[3])
	}
	return "", false
}

func normalizeTime(h, min, sec, meridiem string) (string, bool) {
	hour, _ := strconv.Atoi(h)

	switch strings.ToLower(meridiem) {
	case "pm":
		if hour != 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}

	if hour < 0 || hour > 23 {
		return "", false
	}
	return fmt.Sprintf("%02d:%s:%s", hour, min, sec), true
}
