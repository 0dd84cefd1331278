// Package parse extracts birth details from free-text chat input. Every
// parser returns a normalized value plus an ok flag and never fails on
// malformed input; validity beyond shape is the dialog controller's concern.
package parse

import (
	"regexp"
	"strings"
)

var (
	meraNaamRe = regexp.MustCompile(`(?i)\bmera\s+naam\s+(.+)`)
	myNameRe   = regexp.MustCompile(`(?i)\bmy\s+name\s+is\s+(.+)`)
	iAmRe      = regexp.MustCompile(`(?i)\bi\s*(?:am|'m)\s+(.+)`)
	nameLblRe  = regexp.MustCompile(`(?i)^(?:name|naam)\s*[:\-]\s*(.+)$`)
	bareNameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z\s.'-]*$`)
	spacesRe   = regexp.MustCompile(`\s+`)
)

// copulas are trailing Hindi verb forms that ride along with a name
// ("mera naam Rajesh hai").
var copulas = map[string]bool{"hai": true, "hun": true, "hu": true, "hoon": true}

// Name extracts a person's name from free text. Tried in order: the Hindi
// possessive form, "my name is", "I am"/"I'm", a "name:" label, then the
// whole input when it looks like a bare name.
func Name(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}

	for _, re := range []*regexp.Regexp{meraNaamRe, myNameRe, iAmRe, nameLblRe} {
		if m := re.FindStringSubmatch(text); m != nil {
			if name := cleanName(m[1]); name != "" {
				return name, true
			}
			return "", false
		}
	}

	if bareNameRe.MatchString(text) {
		if name := cleanName(text); name != "" {
			return name, true
		}
	}
	return "", false
}

func cleanName(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimRight(raw, ".!?,;")

	words := strings.Fields(raw)
	for len(words) > 0 && copulas[strings.ToLower(words[len(words)-1])] {
		words = words[:len(words)-1]
	}
	return spacesRe.ReplaceAllString(strings.Join(words, " "), " ")
}
