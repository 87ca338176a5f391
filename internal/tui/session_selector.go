package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/chatbridge/internal/history"
	"github.com/diogo/chatbridge/internal/models"
)

// SessionStore is the subset of the session history used by the TUI
type SessionStore interface {
	List() ([]*history.Session, error)
	Save(title string, saved models.SavedSession) (*history.Session, error)
	Update(id string, saved models.SavedSession) (*history.Session, error)
	Rename(id, title string) error
	Delete(id string) error
	ToggleFavorite(id string) (bool, error)
	Favorites() (map[string]bool, error)
}

type sessionsLoadedMsg struct {
	sessions  []*history.Session
	favorites map[string]bool
	err       error
}

// sessionChosenMsg is emitted when the user picks an entry.
// A nil session means "start a new conversation".
type sessionChosenMsg struct {
	session *history.Session
}

type selectorClosedMsg struct{}

// SessionSelector lists saved sessions with a search box.
// It is embedded in the chat model and reports its outcome as messages.
type SessionSelector struct {
	store SessionStore

	sessions  []*history.Session
	favorites map[string]bool
	search    textinput.Model

	// cursor 0 is "New conversation"; i > 0 is filtered()[i-1]
	cursor int

	loading bool
	err     error
	now     func() time.Time

	width  int
	height int
}

// NewSessionSelector creates a selector backed by store
func NewSessionSelector(store SessionStore) SessionSelector {
	ti := textinput.New()
	ti.Placeholder = "Search sessions..."
	ti.Prompt = "🔍 "
	ti.CharLimit = 100
	ti.Focus()

	return SessionSelector{
		store:     store,
		favorites: map[string]bool{},
		search:    ti,
		loading:   true,
		now:       time.Now,
	}
}

// Init starts loading sessions
func (s SessionSelector) Init() tea.Cmd {
	return tea.Batch(s.load(), textinput.Blink)
}

func (s SessionSelector) load() tea.Cmd {
	store := s.store
	return func() tea.Msg {
		sessions, err := store.List()
		if err != nil {
			return sessionsLoadedMsg{err: err}
		}
		favorites, err := store.Favorites()
		if err != nil {
			return sessionsLoadedMsg{err: err}
		}
		return sessionsLoadedMsg{sessions: sessions, favorites: favorites}
	}
}

// Update handles selector input
func (s SessionSelector) Update(msg tea.Msg) (SessionSelector, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		return s, nil

	case sessionsLoadedMsg:
		s.loading = false
		s.err = msg.err
		if msg.err == nil {
			s.sessions = msg.sessions
			s.favorites = msg.favorites
			if s.favorites == nil {
				s.favorites = map[string]bool{}
			}
		}
		s.clampCursor()
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return s, emit(selectorClosedMsg{})

		case "up", "ctrl+p":
			s.cursor--
			if s.cursor < 0 {
				s.cursor = len(s.filtered())
			}
			return s, nil

		case "down", "ctrl+n", "tab":
			s.cursor++
			if s.cursor > len(s.filtered()) {
				s.cursor = 0
			}
			return s, nil

		case "enter":
			if s.loading {
				return s, nil
			}
			if s.cursor == 0 {
				return s, emit(sessionChosenMsg{})
			}
			return s, emit(sessionChosenMsg{session: s.filtered()[s.cursor-1]})

		case "ctrl+f":
			if sess := s.current(); sess != nil {
				isFav, err := s.store.ToggleFavorite(sess.ID)
				if err != nil {
					s.err = err
				} else {
					s.favorites[sess.ID] = isFav
				}
			}
			return s, nil

		case "ctrl+d":
			if sess := s.current(); sess != nil {
				if err := s.store.Delete(sess.ID); err != nil {
					s.err = err
					return s, nil
				}
				return s, s.load()
			}
			return s, nil
		}
	}

	var cmd tea.Cmd
	before := s.search.Value()
	s.search, cmd = s.search.Update(msg)
	if s.search.Value() != before {
		s.cursor = 0
	}
	return s, cmd
}

// filtered returns sessions matching the search box, favorites first
func (s SessionSelector) filtered() []*history.Session {
	query := strings.ToLower(strings.TrimSpace(s.search.Value()))

	var favs, rest []*history.Session
	for _, sess := range s.sessions {
		if query != "" && !strings.Contains(strings.ToLower(sess.Title), query) {
			continue
		}
		if s.favorites[sess.ID] {
			favs = append(favs, sess)
		} else {
			rest = append(rest, sess)
		}
	}
	return append(favs, rest...)
}

func (s SessionSelector) current() *history.Session {
	list := s.filtered()
	if s.cursor < 1 || s.cursor > len(list) {
		return nil
	}
	return list[s.cursor-1]
}

func (s *SessionSelector) clampCursor() {
	if n := len(s.filtered()); s.cursor > n {
		s.cursor = n
	}
}

// View renders the selector panel
func (s SessionSelector) View() string {
	width := s.width - 4
	if width < 40 {
		width = 40
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("Saved sessions"))
	content.WriteString("\n\n")
	content.WriteString(s.search.View())
	content.WriteString("\n\n")

	switch {
	case s.loading:
		content.WriteString(loadingStyle.Render("  Loading sessions..."))
	case s.err != nil:
		content.WriteString(errorStyle.Render(fmt.Sprintf("  Error: %v", s.err)))
	default:
		content.WriteString(s.renderList(width - 6))
	}

	content.WriteString("\n\n")
	content.WriteString(renderShortcuts([][2]string{
		{"↑↓", "Navigate"},
		{"Enter", "Open"},
		{"^F", "Favorite"},
		{"^D", "Delete"},
		{"Esc", "Back"},
	}))

	return selectorPanelStyle.Width(width).Render(content.String())
}

func (s SessionSelector) renderList(width int) string {
	list := s.filtered()

	lines := []string{s.renderItem(0, "+ New conversation", nil, width)}
	if len(list) == 0 {
		if len(s.sessions) == 0 {
			lines = append(lines, hintStyle.Render("  No saved sessions"))
		} else {
			lines = append(lines, hintStyle.Render("  No sessions match the search"))
		}
		return strings.Join(lines, "\n")
	}

	maxItems := max(5, s.height-14)
	offset := 0
	if s.cursor >= maxItems {
		offset = s.cursor - maxItems + 1
	}
	end := min(offset+maxItems, len(list)+1)

	if offset > 0 {
		lines = append(lines, hintStyle.Render("  ↑ more above"))
	}
	for i := max(offset, 1); i < end; i++ {
		lines = append(lines, s.renderItem(i, list[i-1].Title, list[i-1], width))
	}
	if end < len(list)+1 {
		lines = append(lines, hintStyle.Render("  ↓ more below"))
	}

	return strings.Join(lines, "\n")
}

func (s SessionSelector) renderItem(index int, title string, sess *history.Session, width int) string {
	cursor := "  "
	style := selectorItemStyle
	if index == s.cursor {
		cursor = selectorCursorStyle.Render("▸ ")
		style = selectorSelectedStyle
	}

	if sess == nil {
		return cursor + style.Render(title)
	}

	star := "  "
	if s.favorites[sess.ID] {
		star = favoriteStyle.Render("★ ")
	}

	meta := fmt.Sprintf(" · %d turns · %s", sess.Turns(), history.FormatRelativeTime(sess.UpdatedAt, s.now()))
	maxTitle := width - lipgloss.Width(meta) - 4
	if runes := []rune(title); maxTitle > 10 && len(runes) > maxTitle {
		title = string(runes[:maxTitle-1]) + "…"
	}

	return cursor + star + style.Render(title) + selectorMetaStyle.Render(meta)
}

func renderShortcuts(shortcuts [][2]string) string {
	items := make([]string, 0, len(shortcuts))
	for _, s := range shortcuts {
		items = append(items, statusKeyStyle.Render(s[0])+statusDescStyle.Render(" "+s[1]))
	}
	return statusBarStyle.Render(strings.Join(items, "  │  "))
}

func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return msg
	}
}
