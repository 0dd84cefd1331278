// Package topics detects the astrological subject of a user utterance and
// produces a contextual Hinglish follow-up prompt.
package topics

import (
	"math/rand"
	"regexp"
)

// Topic names a follow-up prompt pool.
type Topic string

const (
	TopicMarriage  Topic = "marriage"
	TopicCareer    Topic = "career"
	TopicHealth    Topic = "health"
	TopicFinance   Topic = "finance"
	TopicEducation Topic = "education"
	TopicTravel    Topic = "travel"
	TopicProperty  Topic = "property"
	TopicChildren  Topic = "children"
	TopicGeneral   Topic = "general"
)

// rules is the ordered keyword table. The first matching entry wins, so the
// order here is the priority order.
var rules = []struct {
	re    *regexp.Regexp
	topic Topic
}{
	{regexp.MustCompile(`(?i)\b(marriage|shaadi|shadi|vivah|rishta|wedding)\b`), TopicMarriage},
	{regexp.MustCompile(`(?i)\b(career|job|naukri|business|promotion|rozi|work)\b`), TopicCareer},
	{regexp.MustCompile(`(?i)\b(health|swasthya|bimari|illness|disease)\b`), TopicHealth},
	{regexp.MustCompile(`(?i)\b(finance|money|wealth|paisa|dhan|loan)\b`), TopicFinance},
	{regexp.MustCompile(`(?i)\b(education|padhai|study|studies|exam|degree)\b`), TopicEducation},
	{regexp.MustCompile(`(?i)\b(travel|yatra|videsh|abroad|foreign)\b`), TopicTravel},
	{regexp.MustCompile(`(?i)\b(property|ghar|home|land|makaan|plot)\b`), TopicProperty},
	{regexp.MustCompile(`(?i)\b(child|children|santan|baby|bacche|bachche)\b`), TopicChildren},
}

var pools = map[Topic][]string{
	TopicMarriage: {
		"Kya aapke rishte ki baat chal rahi hai?",
		"Kya aap marriage ke liye ready hain ya koi specific concerns hain?",
		"Aapke family mein koi pressure hai marriage ke liye?",
		"Aapke partner ke saath kya issues hain jo solve karni hain?",
	},
	TopicCareer: {
		"Aapka current job role kya hai aur kya aap usse satisfied hain?",
		"Kya aap job change ya promotion ke baare mein soch rahe hain?",
		"Kya aap koi naya business start karna chahte hain?",
		"Aapke career goals kya hain jo aap achieve karna chahte hain?",
	},
	TopicHealth: {
		"Aapko koi specific health issues hain jo aapko pareshan kar rahe hain?",
		"Kya aap stress ya anxiety se deal kar rahe hain?",
		"Aapki sleep pattern kaise hai?",
		"Kya aap regular exercise aur healthy diet follow karte hain?",
	},
	TopicFinance: {
		"Kya aap savings ya investment ke baare mein soch rahe hain?",
		"Aapki financial situation mein kya biggest concern hai?",
		"Kya aapko paise ki dikkat chal rahi hai abhi?",
	},
	TopicEducation: {
		"Aap kis field mein padhai kar rahe hain ya karna chahte hain?",
		"Kya aap kisi exam ki tayari kar rahe hain?",
		"Kya aap higher studies ke liye videsh jaana chahte hain?",
	},
	TopicTravel: {
		"Kya aap videsh yatra ke baare mein soch rahe hain?",
		"Aapki travel plans kya hain aane wale samay mein?",
	},
	TopicProperty: {
		"Kya aap ghar ya property kharidne ka plan kar rahe hain?",
		"Kya aapka koi property dispute chal raha hai?",
	},
	TopicChildren: {
		"Kya aap santan prapti ke baare mein jaanna chahte hain?",
		"Aapke bacchon ke future ke liye kya concerns hain?",
	},
	TopicGeneral: {
		"Aapke man mein aur kya sawaal hai jiska jawab aap chahte hain?",
		"Kya aap koi specific problem face kar rahe hain jo solve karna chahte hain?",
		"Aapke life mein koi major changes aane wale hain?",
		"Kya aap koi important decision lene wale hain?",
	},
}

// Detect returns the first topic whose keyword group matches the text, or
// ("", false) when nothing matches.
func Detect(text string) (Topic, bool) {
	for _, r := range rules {
		if r.re.MatchString(text) {
			return r.topic, true
		}
	}
	return "", false
}

// Suggest picks a follow-up prompt for the user's utterance. When no keyword
// group matches it falls back to the last known topic, then to the generic
// pool. The returned topic is the pool actually used.
func Suggest(userText string, lastTopic Topic) (string, Topic) {
	topic, ok := Detect(userText)
	if !ok {
		if _, known := pools[lastTopic]; known && lastTopic != "" {
			topic = lastTopic
		} else {
			topic = TopicGeneral
		}
	}
	pool := pools[topic]
	return pool[rand.Intn(len(pool))], topic
}
