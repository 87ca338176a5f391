package history

import (
	"fmt"
	"strconv"
	"strings"
)

// Resolver resolves user-friendly references to session IDs
type Resolver struct {
	store *Store
}

// NewResolver creates a new reference resolver
func NewResolver(store *Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve converts a user-friendly reference to a session ID
//
// Supported references:
//   - "@last" - most recently updated session
//   - "@first" - oldest session
//   - "1", "2", "3" - by index (1-based, most recent first)
//   - a full session ID
//   - "substring" - case-insensitive match on title (error if ambiguous)
func (r *Resolver) Resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)

	if ref == "" {
		return "", fmt.Errorf("empty reference")
	}

	sessions, err := r.store.List()
	if err != nil {
		return "", fmt.Errorf("failed to list sessions: %w", err)
	}

	if len(sessions) == 0 {
		return "", fmt.Errorf("no saved sessions")
	}

	switch strings.ToLower(ref) {
	case "@last":
		return sessions[0].ID, nil
	case "@first":
		return sessions[len(sessions)-1].ID, nil
	}

	if index, err := strconv.Atoi(ref); err == nil {
		if index < 1 || index > len(sessions) {
			return "", fmt.Errorf("index %d out of range (1-%d)", index, len(sessions))
		}
		return sessions[index-1].ID, nil
	}

	for _, sess := range sessions {
		if sess.ID == ref {
			return sess.ID, nil
		}
	}

	refLower := strings.ToLower(ref)
	var matches []*Session
	for _, sess := range sessions {
		if strings.Contains(strings.ToLower(sess.Title), refLower) {
			matches = append(matches, sess)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no session matching '%s'", ref)
	case 1:
		return matches[0].ID, nil
	default:
		var titles []string
		for _, m := range matches {
			titles = append(titles, fmt.Sprintf("'%s'", m.Title))
		}
		return "", fmt.Errorf("multiple sessions match '%s': %s. Use ID or be more specific",
			ref, strings.Join(titles, ", "))
	}
}

// ResolveSession resolves a reference and loads the session
func (r *Resolver) ResolveSession(ref string) (*Session, error) {
	id, err := r.Resolve(ref)
	if err != nil {
		return nil, err
	}
	return r.store.Get(id)
}

// ListAliases returns help text describing supported references
func ListAliases() string {
	return `Supported references:
  @last          Most recently updated session
  @first         Oldest session
  1, 2, 3        By index (1-based, from most recent)
  "text"         Search by title substring
  <id>           Full session ID`
}
