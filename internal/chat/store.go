// Package chat implements the chat session core: the message log, the
// transcript codec, the session binding and the request coordinator.
package chat

import (
	"sync"

	"github.com/diogo/chatbridge/internal/models"
)

// Store is the ordered, append-only log of chat turns.
// Past turns are never rewritten; the log only grows, or is swapped whole.
type Store struct {
	mu       sync.RWMutex
	messages []models.Message
}

// NewStore creates an empty message store
func NewStore() *Store {
	return &Store{}
}

// Append adds a turn to the end of the conversation
func (s *Store) Append(msg models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg.Clone())
}

// ReplaceAll atomically swaps the whole conversation.
// Previous content is discarded, not merged.
func (s *Store) ReplaceAll(msgs []models.Message) {
	next := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		next = append(next, m.Clone())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = next
}

// Clear empties the conversation
func (s *Store) Clear() {
	s.ReplaceAll(nil)
}

// Snapshot returns a copy of the conversation in order
func (s *Store) Snapshot() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = m.Clone()
	}
	return out
}

// Len returns the number of turns
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Last returns the most recent turn
func (s *Store) Last() (models.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.messages) == 0 {
		return models.Message{}, false
	}
	return s.messages[len(s.messages)-1].Clone(), true
}
