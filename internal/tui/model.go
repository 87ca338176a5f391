package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/chatbridge/internal/chat"
	"github.com/diogo/chatbridge/internal/history"
	"github.com/diogo/chatbridge/internal/models"
	"github.com/diogo/chatbridge/internal/render"
)

// replyMsg reports that a send finished; the outcome lives in the coordinator
type replyMsg struct {
	ok bool
}

// Model is the chat screen. The coordinator owns the conversation;
// the model only renders it and forwards input.
type Model struct {
	coord *chat.Coordinator
	ctx   context.Context

	store        SessionStore
	autoSave     bool
	sessionID    string
	sessionTitle string

	renderOpts render.Options

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	selector  SessionSelector
	selecting bool

	notice string
	ready  bool

	width  int
	height int
}

// ModelOption configures a Model
type ModelOption func(*Model)

// WithSessionStore enables /save and /sessions; autoSave persists the
// session after every completed exchange.
func WithSessionStore(store SessionStore, autoSave bool) ModelOption {
	return func(m *Model) {
		m.store = store
		m.autoSave = autoSave
	}
}

// WithSession resumes a saved session
func WithSession(sess *history.Session) ModelOption {
	return func(m *Model) {
		if sess == nil {
			return
		}
		m.coord.LoadSession(sess.ToSaved())
		m.sessionID = sess.ID
		m.sessionTitle = sess.Title
	}
}

// WithRenderOptions sets how assistant turns are rendered
func WithRenderOptions(opts render.Options) ModelOption {
	return func(m *Model) {
		m.renderOpts = opts
	}
}

// WithContext sets the context passed to every send
func WithContext(ctx context.Context) ModelOption {
	return func(m *Model) {
		m.ctx = ctx
	}
}

// NewChatModel creates a chat model driving coord
func NewChatModel(coord *chat.Coordinator, opts ...ModelOption) Model {
	ta := textarea.New()
	ta.Placeholder = "Type your message here... (/help for commands)"
	ta.CharLimit = 8000
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.Focus()

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(colorText)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorTextDim)
	ta.BlurredStyle = ta.FocusedStyle

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = loadingStyle

	m := Model{
		coord:      coord,
		ctx:        context.Background(),
		renderOpts: render.DefaultOptions(),
		textarea:   ta,
		spinner:    s,
	}

	for _, opt := range opts {
		opt(&m)
	}

	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.selector, _ = m.selector.Update(msg)
		return m, nil

	case sessionsLoadedMsg:
		m.selector, cmd = m.selector.Update(msg)
		return m, cmd

	case sessionChosenMsg:
		m.selecting = false
		m.openSession(msg.session)
		return m, nil

	case selectorClosedMsg:
		m.selecting = false
		return m, nil

	case replyMsg:
		m.refresh()
		if msg.ok && m.autoSave {
			if err := m.persist(""); err != nil {
				m.notice = "Auto-save failed: " + err.Error()
			}
		}
		return m, nil

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.selecting {
			m.selector, cmd = m.selector.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "esc":
			if m.coord.Err() != nil {
				m.coord.ClearError()
				return m, nil
			}
			if m.notice != "" {
				m.notice = ""
				return m, nil
			}
			if !m.coord.IsLoading() {
				return m, tea.Quit
			}
			return m, nil

		case "enter":
			if m.coord.IsLoading() {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			m.textarea.Reset()
			if isCommand(input) {
				return m.runCommand(input)
			}
			return m.submit(input)
		}

		if !m.coord.IsLoading() {
			m.textarea, cmd = m.textarea.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	headerHeight := 3
	inputHeight := 5
	statusHeight := 1
	extra := 2
	if m.coord.Err() != nil || m.notice != "" {
		extra += 3
	}

	vpHeight := max(5, height-headerHeight-inputHeight-statusHeight-extra)
	contentWidth := max(20, width-4)

	if !m.ready {
		m.viewport = viewport.New(contentWidth, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = contentWidth
		m.viewport.Height = vpHeight
	}
	m.textarea.SetWidth(contentWidth - 4)
	m.refresh()
}

func (m Model) submit(input string) (tea.Model, tea.Cmd) {
	pending, ok := m.coord.Submit(input)
	if !ok {
		return m, nil
	}

	m.notice = ""
	m.refresh()

	ctx := m.ctx
	return m, tea.Batch(
		func() tea.Msg {
			_, ok := pending.Run(ctx)
			return replyMsg{ok: ok}
		},
		m.spinner.Tick,
	)
}

// openSession loads a chosen session, or starts fresh when sess is nil
func (m *Model) openSession(sess *history.Session) {
	if sess == nil {
		m.coord.Clear()
		m.sessionID = ""
		m.sessionTitle = ""
		m.notice = "Started a new conversation"
	} else {
		m.coord.LoadSession(sess.ToSaved())
		m.sessionID = sess.ID
		m.sessionTitle = sess.Title
		m.notice = fmt.Sprintf("Loaded %q", sess.Title)
	}
	m.refresh()
}

// persist saves the conversation, updating the current session when there is one
func (m *Model) persist(title string) error {
	if m.store == nil {
		return fmt.Errorf("session history is not available")
	}

	saved := m.coord.Saved()
	if len(saved.History) == 0 {
		return fmt.Errorf("nothing to save yet")
	}

	if m.sessionID == "" {
		sess, err := m.store.Save(title, saved)
		if err != nil {
			return err
		}
		m.sessionID = sess.ID
		m.sessionTitle = sess.Title
		return nil
	}

	if title != "" {
		if err := m.store.Rename(m.sessionID, title); err != nil {
			return err
		}
		m.sessionTitle = title
	}
	sess, err := m.store.Update(m.sessionID, saved)
	if err != nil {
		return err
	}
	m.sessionTitle = sess.Title
	return nil
}

// refresh re-renders the conversation into the viewport
func (m *Model) refresh() {
	if !m.ready {
		return
	}

	var content strings.Builder
	bubbleWidth := max(20, m.viewport.Width-6)
	opts := m.renderOpts.WithWidth(bubbleWidth - 4)

	for i, msg := range m.coord.Messages() {
		if i > 0 {
			content.WriteString("\n")
		}

		if msg.IsUser() {
			content.WriteString(userLabelStyle.Render("● You"))
			content.WriteString("\n")
			content.WriteString(userBubbleStyle.Width(bubbleWidth).Render(msg.Content))
		} else {
			content.WriteString(assistantLabelStyle.Render("✦ Assistant"))
			content.WriteString("\n")
			rendered, err := render.Reply(msg, opts)
			if err != nil {
				rendered = msg.Content + "\n\n" + render.SuggestionsMarkdown(msg.Suggestions)
			}
			rendered = strings.TrimRight(rendered, "\n")
			content.WriteString(assistantBubbleStyle.Width(bubbleWidth).Render(rendered))
		}
		content.WriteString("\n")
	}

	m.viewport.SetContent(content.String())
	m.viewport.GotoBottom()
}

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	contentWidth := max(20, m.width-4)

	if m.selecting {
		return m.selector.View()
	}

	sections := []string{m.renderHeader(contentWidth)}

	var messagesContent string
	if len(m.coord.Messages()) == 0 {
		messagesContent = m.renderWelcome()
	} else {
		messagesContent = m.viewport.View()
	}
	sections = append(sections, messagesAreaStyle.
		Width(contentWidth).
		Height(m.viewport.Height).
		Render(messagesContent))

	var inputContent string
	if m.coord.IsLoading() {
		inputContent = m.spinner.View() + loadingStyle.Render(" Thinking...")
	} else {
		inputContent = lipgloss.JoinVertical(
			lipgloss.Left,
			inputLabelStyle.Render("You"),
			m.textarea.View(),
		)
	}
	sections = append(sections, inputPanelStyle.Width(contentWidth).Render(inputContent))

	if err := m.coord.Err(); err != nil {
		panel := FormatError(err) + "\n" + hintStyle.Render("Press Esc to dismiss")
		sections = append(sections, errorPanelStyle.Width(contentWidth).Render(panel))
	} else if m.notice != "" {
		sections = append(sections, noticeStyle.Render("  "+m.notice))
	}

	sections = append(sections, m.renderStatusBar())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader(width int) string {
	session := "new session"
	if m.sessionTitle != "" {
		session = m.sessionTitle
	} else if ref := m.coord.SessionRef(); ref != "" {
		session = "unsaved session"
	}

	mode := models.ModeFromComplex(m.coord.IsComplex())

	parts := []string{
		titleStyle.Render("✦ chatbridge"),
		hintStyle.Render("  •  "),
		subtitleStyle.Render(mode.Name),
		hintStyle.Render("  •  "),
		subtitleStyle.Render(session),
	}
	return headerStyle.Width(width).Render(lipgloss.JoinHorizontal(lipgloss.Center, parts...))
}

func (m Model) renderWelcome() string {
	width := max(10, m.viewport.Width-4)

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		welcomeTitleStyle.Width(width).Render("Welcome to chatbridge"),
		"",
		welcomeStyle.Width(width).Render("Start a conversation by typing a message below"),
		welcomeStyle.Width(width).Render("Type /help to see the available commands"),
	)

	topPadding := max(0, (m.viewport.Height-lipgloss.Height(content))/2)
	return strings.Repeat("\n", topPadding) + content
}

func (m Model) renderStatusBar() string {
	escDesc := "Quit"
	if m.coord.Err() != nil {
		escDesc = "Dismiss error"
	}
	return renderShortcuts([][2]string{
		{"Enter", "Send"},
		{"Esc", escDesc},
		{"↑↓", "Scroll"},
		{"/sessions", "History"},
	})
}

// SessionID returns the ID of the saved session being edited, or ""
func (m Model) SessionID() string {
	return m.sessionID
}

// RunChat starts the chat TUI
func RunChat(coord *chat.Coordinator, opts ...ModelOption) error {
	p := tea.NewProgram(
		NewChatModel(coord, opts...),
		tea.WithAltScreen(),
	)

	_, err := p.Run()
	return err
}
