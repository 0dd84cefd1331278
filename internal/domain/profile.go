// Package domain contains core domain types for the astrology chat gateway.
package domain

import (
	"regexp"
	"time"
)

// DefaultTimezone is used when a session never supplies its own zone.
const DefaultTimezone = "Asia/Kolkata"

var (
	dateShape = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeShape = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d:[0-5]\d$`)
)

// Profile holds the birth details collected for one session.
// DOB is a normalized "YYYY-MM-DD" string, TOB a normalized "HH:MM:SS" string.
type Profile struct {
	Name     string `json:"name"`
	DOB      string `json:"dob"`
	TOB      string `json:"tob"`
	Place    string `json:"place"`
	Timezone string `json:"timezone"`
}

// Complete returns true if all four required fields are present and valid.
func (p *Profile) Complete() bool {
	return p.Name != "" &&
		ValidDate(p.DOB) == DateOK &&
		ValidTime(p.TOB) &&
		p.Place != ""
}

// Empty returns true if no field has been collected yet.
func (p *Profile) Empty() bool {
	return p.Name == "" && p.DOB == "" && p.TOB == "" && p.Place == ""
}

// DateValidity classifies a date-of-birth check result.
type DateValidity int

const (
	DateOK DateValidity = iota
	// DateMalformed means the value does not match YYYY-MM-DD or is not a
	// real calendar date.
	DateMalformed
	// DateInFuture means the date parses but lies after today.
	DateInFuture
	// DateTooOld means the date parses but lies before 1900.
	DateTooOld
)

// ValidDate checks a normalized date string for shape, calendar validity
// and plausible birth range.
func ValidDate(s string) DateValidity {
	if !dateShape.MatchString(s) {
		return DateMalformed
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return DateMalformed
	}
	if d.After(time.Now()) {
		return DateInFuture
	}
	if d.Year() < 1900 {
		return DateTooOld
	}
	return DateOK
}

// ValidTime checks a normalized time string against HH:MM:SS exactly.
func ValidTime(s string) bool {
	return timeShape.MatchString(s)
}
