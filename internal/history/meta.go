package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	metaFileName = "meta.json"
	metaVersion  = 1
)

// SessionMeta stores per-session flags that are not part of the saved format
type SessionMeta struct {
	ID         string `json:"id"`
	IsFavorite bool   `json:"is_favorite"`
}

// Meta is the contents of meta.json
type Meta struct {
	Version int                     `json:"version"` // For future migration
	Meta    map[string]*SessionMeta `json:"meta"`
}

func newMeta() *Meta {
	return &Meta{
		Version: metaVersion,
		Meta:    make(map[string]*SessionMeta),
	}
}

func (s *Store) metaPath() string {
	return filepath.Join(s.baseDir, metaFileName)
}

// loadMeta returns an empty Meta when meta.json does not exist
func (s *Store) loadMeta() (*Meta, error) {
	data, err := os.ReadFile(s.metaPath())
	if err != nil {
		if os.IsNotExist(err) {
			return newMeta(), nil
		}
		return nil, fmt.Errorf("failed to read meta file: %w", err)
	}

	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse meta file: %w", err)
	}

	if meta.Meta == nil {
		meta.Meta = make(map[string]*SessionMeta)
	}

	return &meta, nil
}

func (s *Store) saveMeta(meta *Meta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal meta: %w", err)
	}

	if err := os.WriteFile(s.metaPath(), data, 0o600); err != nil {
		return fmt.Errorf("failed to write meta file: %w", err)
	}

	return nil
}

func (s *Store) removeFromMeta(id string) error {
	meta, err := s.loadMeta()
	if err != nil {
		return err
	}

	if _, exists := meta.Meta[id]; !exists {
		return nil
	}
	delete(meta.Meta, id)

	return s.saveMeta(meta)
}

// IsFavorite returns whether a session is marked as favorite
func (s *Store) IsFavorite(id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meta, err := s.loadMeta()
	if err != nil {
		return false, err
	}

	if m, exists := meta.Meta[id]; exists {
		return m.IsFavorite, nil
	}

	return false, nil
}

// ToggleFavorite flips the favorite status of a session and returns the new status
func (s *Store) ToggleFavorite(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.loadSession(id); err != nil {
		return false, err
	}

	meta, err := s.loadMeta()
	if err != nil {
		return false, err
	}

	m, exists := meta.Meta[id]
	if !exists {
		m = &SessionMeta{ID: id}
		meta.Meta[id] = m
	}
	m.IsFavorite = !m.IsFavorite

	if err := s.saveMeta(meta); err != nil {
		return false, err
	}

	return m.IsFavorite, nil
}

// Favorites returns the IDs of all favorite sessions that still exist
func (s *Store) Favorites() (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meta, err := s.loadMeta()
	if err != nil {
		return nil, err
	}

	favorites := make(map[string]bool)
	for id, m := range meta.Meta {
		if !m.IsFavorite {
			continue
		}
		if _, err := os.Stat(s.sessionPath(id)); err == nil {
			favorites[id] = true
		}
	}
	return favorites, nil
}
