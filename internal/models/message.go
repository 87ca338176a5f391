package models

import "time"

// Sender identifies who produced a chat turn
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Suggestion is a related link the backend attaches to an assistant turn
type Suggestion struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
}

// Message is a single chat turn in display form
type Message struct {
	ID          string       `json:"id"`
	Content     string       `json:"content"`
	Sender      Sender       `json:"sender"`
	Timestamp   time.Time    `json:"timestamp"`
	Suggestions []Suggestion `json:"suggestions"`
}

// IsUser reports whether the turn was sent by the user
func (m Message) IsUser() bool {
	return m.Sender == SenderUser
}

// Clone returns a copy that shares no slices with m
func (m Message) Clone() Message {
	out := m
	if m.Suggestions != nil {
		out.Suggestions = make([]Suggestion, len(m.Suggestions))
		copy(out.Suggestions, m.Suggestions)
	}
	return out
}
