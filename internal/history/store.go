// Package history provides local storage for saved chat sessions.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/diogo/chatbridge/internal/config"
	"github.com/diogo/chatbridge/internal/models"
)

// MaxTitleLength bounds titles derived from the first user turn
const MaxTitleLength = 50

// Session is a saved conversation together with its server-side reference
type Session struct {
	ID         string                   `json:"id"`
	Title      string                   `json:"title"`
	SessionRef string                   `json:"sessionRef"`
	History    []models.TranscriptEntry `json:"history"`
	CreatedAt  time.Time                `json:"created_at"`
	UpdatedAt  time.Time                `json:"updated_at"`
}

// ToSaved returns the session in the format the chat coordinator loads
func (s *Session) ToSaved() models.SavedSession {
	history := make([]models.TranscriptEntry, len(s.History))
	copy(history, s.History)
	return models.SavedSession{
		SessionRef: s.SessionRef,
		History:    history,
	}
}

// Turns returns the number of entries in the session
func (s *Session) Turns() int {
	return len(s.History)
}

// Store manages saved session persistence, one JSON file per session
type Store struct {
	baseDir string
	mu      sync.RWMutex
	now     func() time.Time
}

// NewStore creates a store rooted at dir, creating it if needed
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	return &Store{
		baseDir: dir,
		now:     time.Now,
	}, nil
}

// DefaultStore creates a store using the default location
func DefaultStore() (*Store, error) {
	dir, err := config.GetSessionsDir()
	if err != nil {
		return nil, err
	}
	return NewStore(dir)
}

// Dir returns the directory sessions are stored in
func (s *Store) Dir() string {
	return s.baseDir
}

// Save stores a new session. An empty title is derived from the first user turn.
func (s *Store) Save(title string, saved models.SavedSession) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess := &Session{
		ID:         newSessionID(),
		Title:      strings.TrimSpace(title),
		SessionRef: saved.SessionRef,
		History:    cloneHistory(saved.History),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if sess.Title == "" {
		sess.Title = DeriveTitle(saved.History, now)
	}

	if err := s.saveSession(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Update replaces the contents of an existing session, keeping its title
func (s *Store) Update(id string, saved models.SavedSession) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.loadSession(id)
	if err != nil {
		return nil, err
	}

	sess.SessionRef = saved.SessionRef
	sess.History = cloneHistory(saved.History)
	sess.UpdatedAt = s.now()

	if err := s.saveSession(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get retrieves a session by ID
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loadSession(id)
}

// List returns all sessions, most recently updated first
func (s *Store) List() ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listSessions()
}

// Delete removes a session
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validateID(id); err != nil {
		return err
	}

	if err := os.Remove(s.sessionPath(id)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("session not found: %s", id)
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return s.removeFromMeta(id)
}

// Rename changes the title of a session
func (s *Store) Rename(id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("title cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.loadSession(id)
	if err != nil {
		return err
	}

	sess.Title = title
	sess.UpdatedAt = s.now()

	return s.saveSession(sess)
}

// ClearAll deletes every saved session
func (s *Store) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to read sessions directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		path := filepath.Join(s.baseDir, entry.Name())
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to delete %s: %w", entry.Name(), err)
		}
	}

	return nil
}

// DeriveTitle builds a title from the first user turn, falling back to a
// timestamped default when the history has none.
func DeriveTitle(history []models.TranscriptEntry, now time.Time) string {
	for _, entry := range history {
		if entry.Role != models.RoleUser {
			continue
		}
		text := strings.Join(strings.Fields(entry.Text()), " ")
		if text == "" {
			continue
		}
		return truncateTitle(text)
	}
	return fmt.Sprintf("Chat %s", now.Format("2006-01-02 15:04"))
}

func truncateTitle(text string) string {
	if utf8.RuneCountInString(text) <= MaxTitleLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:MaxTitleLength]) + "..."
}

func (s *Store) listSessions() ([]*Session, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var sessions []*Session
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" || entry.Name() == metaFileName {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ".json")
		sess, err := s.loadSession(id)
		if err != nil {
			continue // Skip corrupted files
		}
		sessions = append(sessions, sess)
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})

	return sessions, nil
}

func (s *Store) sessionPath(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

func (s *Store) loadSession(id string) (*Session, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.sessionPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("session not found: %s", id)
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}
	if sess.History == nil {
		sess.History = []models.TranscriptEntry{}
	}

	return &sess, nil
}

func (s *Store) saveSession(sess *Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := os.WriteFile(s.sessionPath(sess.ID), data, 0o600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}

	return nil
}

// IDs become file names; reject anything that could escape the directory
func validateID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") || id+".json" == metaFileName {
		return fmt.Errorf("invalid session id: %q", id)
	}
	return nil
}

func cloneHistory(history []models.TranscriptEntry) []models.TranscriptEntry {
	out := make([]models.TranscriptEntry, 0, len(history))
	for _, entry := range history {
		c := models.TranscriptEntry{
			Role:  entry.Role,
			Parts: append([]models.Part{}, entry.Parts...),
		}
		if len(entry.Videos) > 0 {
			c.Videos = append([]models.Suggestion{}, entry.Videos...)
		}
		out = append(out, c)
	}
	return out
}

func newSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
