package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/diogo/chatbridge/internal/models"
)

// ToTranscript converts the display conversation into the backend transcript.
// One entry per message, in order, with no filtering.
func ToTranscript(conversation []models.Message) []models.TranscriptEntry {
	entries := make([]models.TranscriptEntry, 0, len(conversation))
	for _, msg := range conversation {
		role := models.RoleModel
		if msg.Sender == models.SenderUser {
			role = models.RoleUser
		}
		entries = append(entries, models.NewTranscriptEntry(role, msg.Content))
	}
	return entries
}

// ToSavedHistory is ToTranscript plus the suggestions of assistant turns,
// which the persisted session format keeps alongside each entry.
func ToSavedHistory(conversation []models.Message) []models.TranscriptEntry {
	entries := ToTranscript(conversation)
	for i, msg := range conversation {
		if len(msg.Suggestions) > 0 {
			entries[i].Videos = append([]models.Suggestion{}, msg.Suggestions...)
		}
	}
	return entries
}

// FromSavedHistory converts a saved transcript back into display messages.
// IDs and timestamps are assigned locally; the saved format carries neither.
func FromSavedHistory(history []models.TranscriptEntry) []models.Message {
	return decodeHistory(history, NewMessageID, time.Now)
}

func decodeHistory(history []models.TranscriptEntry, newID func() string, now func() time.Time) []models.Message {
	messages := make([]models.Message, 0, len(history))
	for _, entry := range history {
		sender := models.SenderAssistant
		if entry.Role == models.RoleUser {
			sender = models.SenderUser
		}

		suggestions := []models.Suggestion{}
		if len(entry.Videos) > 0 {
			suggestions = append(suggestions, entry.Videos...)
		}

		messages = append(messages, models.Message{
			ID:          newID(),
			Content:     entry.Text(),
			Sender:      sender,
			Timestamp:   now(),
			Suggestions: suggestions,
		})
	}
	return messages
}

// NewMessageID returns a time-ordered unique message ID
func NewMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
