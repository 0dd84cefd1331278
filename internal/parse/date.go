package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	ymdRe       = regexp.MustCompile(`^(\d{4})[-/. ](\d{1,2})[-/. ](\d{1,2})$`)
	dmyRe       = regexp.MustCompile(`^(\d{1,2})[-/. ](\d{1,2})[-/. ](\d{4})$`)
	monthNameRe = regexp.MustCompile(`(?i)^(\d{1,2})(?:st|nd|rd|th)?\s+([A-Za-z]+)\s+(\d{4})$`)
)

var months = map[string]int{
	"january": 1, "jan": 1,
	"february": 2, "feb": 2,
	"march": 3, "mar": 3,
	"april": 4, "apr": 4,
	"may": 5,
	"june": 6, "jun": 6,
	"july": 7, "jul": 7,
	"august": 8, "aug": 8,
	"september": 9, "sep": 9, "sept": 9,
	"october": 10, "oct": 10,
	"november": 11, "nov": 11,
	"december": 12, "dec": 12,
}

// Date extracts a date of birth and normalizes it to YYYY-MM-DD.
// Recognized: year-first numeric, day-first numeric, and "15 May 1990" with
// full or abbreviated English month names. In the day-first form the first
// group is always the day, even when both groups could be a month; that
// ambiguity is inherited behavior, not locale detection.
func Date(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}

	if m := ymdRe.FindStringSubmatch(text); m != nil {
		return normalizeDate(m[1], m[2], m[3])
	}
	if m := dmyRe.FindStringSubmatch(text); m != nil {
		return normalizeDate(m[3], m[2], m[1])
	}
	if m := monthNameRe.FindStringSubmatch(text); m != nil {
		mon, ok := months[strings.ToLower(m[2])]
		if !ok {
			return "", false
		}
		return normalizeDate(m[3], strconv.Itoa(mon), m[1])
	}
	return "", false
}

func normalizeDate(y, mo, d string) (string, bool) {
	year, _ := strconv.Atoi(y)
	month, _ := strconv.Atoi(mo)
	day, _ := strconv.Atoi(d)
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
}
