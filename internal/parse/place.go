package parse

import (
	"regexp"
	"strings"
)

var (
	placeLblRe  = regexp.MustCompile(`(?i)^(?:birth\s*place|place|city|from|location|janam\s*sthaan|sthaan)\b\s*[:\-]?\s*(.+)$`)
	barePlaceRe = regexp.MustCompile(`^[A-Za-z][A-Za-z\s,.'-]{2,}$`)
)

// Place extracts a birth place: a labeled form ("place: Delhi") first, then
// a bare alphabetic phrase of at least three characters.
func Place(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}

	if m := placeLblRe.FindStringSubmatch(text); m != nil {
		if place := strings.TrimSpace(m[1]); place != "" {
			return spacesRe.ReplaceAllString(place, " "), true
		}
		return "", false
	}

	if barePlaceRe.MatchString(text) {
		return spacesRe.ReplaceAllString(text, " "), true
	}
	return "", false
}
