// Package dialog drives the stepwise intake conversation: it collects the
// birth profile field by field from free text, confirms it, and hands
// completed profiles off to the generation orchestrator.
package dialog

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/astroremedis/astrochat/internal/astro"
	"github.com/astroremedis/astrochat/internal/domain"
	"github.com/astroremedis/astrochat/internal/parse"
	"github.com/astroremedis/astrochat/internal/topics"
)

// Generator starts chart generation for a session. Implemented by the
// generate package; the interface exists so tests can observe triggers.
type Generator interface {
	Trigger(s *domain.Session)
}

// Chatter is the slice of the backend client the controller needs for
// free-form consultation turns.
type Chatter interface {
	Chat(ctx context.Context, req astro.ChatRequest) (astro.ChatResponse, error)
}

// Controller is the per-message entry point. It is stateless; all session
// state lives on the Session aggregate.
type Controller struct {
	chat Chatter
	gen  Generator
}

func NewController(chat Chatter, gen Generator) *Controller {
	return &Controller{chat: chat, gen: gen}
}

// changeRe matches the confirmation-step edit command, with Hindi field
// synonyms: "change dob: 1990-05-15", "change naam - Rajesh".
var changeRe = regexp.MustCompile(`(?i)^change\s+(name|naam|dob|date|janmtithi|tob|time|samay|place|city|sthaan)\s*[:\-]\s*(.+)$`)

const (
	promptAskName = "Namaste! 🙏 Main Pandit ji hun. Aapka swagat hai AstroRemedis mein! Shuru karne ke liye apna naam batayiye."
	promptAskDOB  = "Dhanyavaad %s ji! Ab apni date of birth batayiye (jaise 15/05/1990 ya 15 May 1990)."
	promptAskTOB  = "Badhiya! Ab apna time of birth batayiye (jaise 2:30 PM ya 14:30)."
	promptAskPOB  = "Aur aapka place of birth kaunsa sheher hai? (jaise Delhi, Mumbai)"

	retryName  = `Maaf kijiye, naam samajh nahi aaya. Kripya apna naam batayiye, jaise "Mera naam Rajesh hai".`
	retryDOB   = `Date samajh nahi aayi. Kripya DD/MM/YYYY ya "15 May 1990" format mein batayiye.`
	retryTOB   = `Time samajh nahi aaya. Kripya HH:MM ya "2:30 PM" format mein batayiye.`
	retryPlace = "Place samajh nahi aayi. Kripya apne janam ka sheher batayiye, jaise Delhi."

	dobFuture = "Date of birth future mein nahi ho sakti. Kripya apni sahi janm tithi batayiye."
	dobTooOld = "Yeh date bahut purani lag rahi hai. Kripya 1900 ke baad ki date batayiye."

	confirmRetry = `Kripya "yes" likhiye, ya kisi detail ko badalne ke liye "change dob: 1990-05-15" jaise likhiye.`
	pleaseWait   = "Aapki kundli ban rahi hai, kripya thoda intezaar kijiye... 🙏"
	unavailable  = "Maaf kijiye, seva abhi uplabdh nahi hai. Kripya thodi der baad phir se poochhiye."
)

// Start emits the opening assistant messages for a session according to its
// resume rules: a complete profile goes straight to generation, a profile
// with a known name resumes at the date question, anything else starts from
// the name question.
func (c *Controller) Start(s *domain.Session) []string {
	p := s.Profile()
	switch {
	case p.Complete():
		s.SetStep(domain.StepGenerating)
		c.gen.Trigger(s)
		return []string{fmt.Sprintf("Namaste %s ji! 🙏 Aapke details mil gaye, aapki kundli ban rahi hai...", p.Name)}
	case p.Name != "":
		s.SetStep(domain.StepAskDOB)
		return []string{fmt.Sprintf(promptAskDOB, p.Name)}
	default:
		s.SetStep(domain.StepAskName)
		return []string{promptAskName}
	}
}

// Handle processes one user message and returns the assistant replies to
// append. The caller records the user message and paces the replies.
func (c *Controller) Handle(ctx context.Context, s *domain.Session, text string) []string {
	text = strings.TrimSpace(text)

	switch s.Step() {
	case domain.StepAskName:
		return c.handleName(s, text)
	case domain.StepAskDOB:
		return c.handleDOB(s, text)
	case domain.StepAskTOB:
		return c.handleTOB(s, text)
	case domain.StepAskPlace:
		return c.handlePlace(s, text)
	case domain.StepConfirmDetails:
		return c.handleConfirm(s, text)
	case domain.StepGenerating:
		// A failed generation reopens the confirmation step, so the visitor
		// can retry with "yes" or fix a detail instead of waiting forever.
		if s.Generation() == domain.GenFailed {
			s.SetStep(domain.StepConfirmDetails)
			return c.handleConfirm(s, text)
		}
		return []string{pleaseWait}
	default:
		return c.handleChat(ctx, s, text)
	}
}

func (c *Controller) handleName(s *domain.Session, text string) []string {
	name, ok := parse.Name(text)
	if !ok {
		return []string{retryName}
	}
	s.SetProfileField(func(p *domain.Profile) { p.Name = name })
	s.SetStep(domain.StepAskDOB)
	return []string{fmt.Sprintf(promptAskDOB, name)}
}

func (c *Controller) handleDOB(s *domain.Session, text string) []string {
	dob, ok := parse.Date(text)
	if !ok {
		return []string{retryDOB}
	}
	if reply, bad := dateObjection(dob); bad {
		return []string{reply}
	}
	s.SetProfileField(func(p *domain.Profile) { p.DOB = dob })
	s.SetStep(domain.StepAskTOB)
	return []string{promptAskTOB}
}

func (c *Controller) handleTOB(s *domain.Session, text string) []string {
	tob, ok := parse.Time(text)
	if !ok || !domain.ValidTime(tob) {
		return []string{retryTOB}
	}
	s.SetProfileField(func(p *domain.Profile) { p.TOB = tob })
	s.SetStep(domain.StepAskPlace)
	return []string{promptAskPOB}
}

func (c *Controller) handlePlace(s *domain.Session, text string) []string {
	place, ok := parse.Place(text)
	if !ok {
		return []string{retryPlace}
	}
	s.SetProfileField(func(p *domain.Profile) { p.Place = place })
	s.SetStep(domain.StepConfirmDetails)
	return []string{summary(s.Profile())}
}

func (c *Controller) handleConfirm(s *domain.Session, text string) []string {
	switch strings.ToLower(text) {
	case "yes", "y":
		s.SetStep(domain.StepGenerating)
		c.gen.Trigger(s)
		return []string{"Dhanyavaad! Aapki kundli ban rahi hai... 🙏"}
	}

	m := changeRe.FindStringSubmatch(text)
	if m == nil {
		return []string{confirmRetry}
	}

	value := strings.TrimSpace(m[2])
	switch strings.ToLower(m[1]) {
	case "name", "naam":
		name, ok := parse.Name(value)
		if !ok {
			return []string{retryName}
		}
		s.SetProfileField(func(p *domain.Profile) { p.Name = name })
	case "dob", "date", "janmtithi":
		dob, ok := parse.Date(value)
		if !ok {
			return []string{retryDOB}
		}
		if reply, bad := dateObjection(dob); bad {
			return []string{reply}
		}
		s.SetProfileField(func(p *domain.Profile) { p.DOB = dob })
	case "tob", "time", "samay":
		tob, ok := parse.Time(value)
		if !ok {
			return []string{retryTOB}
		}
		s.SetProfileField(func(p *domain.Profile) { p.TOB = tob })
	case "place", "city", "sthaan":
		place, ok := parse.Place(value)
		if !ok {
			return []string{retryPlace}
		}
		s.SetProfileField(func(p *domain.Profile) { p.Place = place })
	}
	return []string{summary(s.Profile())}
}

func (c *Controller) handleChat(ctx context.Context, s *domain.Session, text string) []string {
	s.SetStep(domain.StepChatting)
	if topic, ok := topics.Detect(text); ok {
		s.SetLastTopic(string(topic))
	}

	resp, err := c.chat.Chat(ctx, astro.ChatRequest{
		Message:   text,
		ChartData: s.ChartContext(),
	})
	if err != nil {
		slog.Error("chat completion failed", "session", s.ID, "error", err)
		return []string{unavailable}
	}
	return []string{resp.Response}
}

// dateObjection maps a semantic date problem to its corrective message.
func dateObjection(dob string) (string, bool) {
	switch domain.ValidDate(dob) {
	case domain.DateInFuture:
		return dobFuture, true
	case domain.DateTooOld:
		return dobTooOld, true
	case domain.DateMalformed:
		return retryDOB, true
	}
	return "", false
}

func summary(p domain.Profile) string {
	return fmt.Sprintf(
		"Kripya apne details confirm kijiye:\n\nName: %s\nDate of birth: %s\nTime of birth: %s\nPlace of birth: %s\n\n"+
			`Sab sahi hai toh "yes" likhiye, ya "change dob: 1990-05-15" jaise badlav batayiye.`,
		p.Name, p.DOB, p.TOB, p.Place,
	)
}
