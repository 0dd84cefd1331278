package domain

import (
	"encoding/json"
	"time"
)

// Sender identifies who authored a transcript message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is a single transcript entry. Text and Chart are mutually
// exclusive: a chart-kind message carries the visual payload instead of text.
type Message struct {
	ID     int64           `json:"id"`
	Sender Sender          `json:"sender"`
	Text   string          `json:"text,omitempty"`
	Chart  json.RawMessage `json:"chart,omitempty"`
	At     time.Time       `json:"at"`
}

// IsChart returns true for the chart-kind message.
func (m *Message) IsChart() bool {
	return len(m.Chart) > 0
}
