package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/diogo/chatbridge/internal/models"
)

const helpText = "/clear new conversation · /save [title] · /sessions · /complex [on|off] · /exit"

func isCommand(input string) bool {
	switch strings.ToLower(input) {
	case "exit", "quit":
		return true
	}
	return strings.HasPrefix(input, "/")
}

// runCommand executes a slash command typed in the input box
func (m Model) runCommand(input string) (tea.Model, tea.Cmd) {
	name, arg, _ := strings.Cut(strings.TrimPrefix(input, "/"), " ")
	name = strings.ToLower(name)
	arg = strings.TrimSpace(arg)

	switch name {
	case "exit", "quit":
		return m, tea.Quit

	case "clear", "new":
		m.coord.Clear()
		m.sessionID = ""
		m.sessionTitle = ""
		m.notice = "Started a new conversation"

	case "save":
		if err := m.persist(arg); err != nil {
			m.notice = "Save failed: " + err.Error()
		} else {
			m.notice = "Saved as " + m.sessionTitle
		}

	case "sessions", "history":
		if m.store == nil {
			m.notice = "Session history is not available"
			break
		}
		m.selector = NewSessionSelector(m.store)
		m.selector, _ = m.selector.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
		m.selecting = true
		return m, m.selector.Init()

	case "complex", "mode":
		switch strings.ToLower(arg) {
		case "":
			m.coord.SetComplex(!m.coord.IsComplex())
		case "on", models.ModeComplex.Name:
			m.coord.SetComplex(true)
		case "off", models.ModeFast.Name:
			m.coord.SetComplex(false)
		default:
			m.notice = "Usage: /complex [on|off]"
			return m, nil
		}
		m.notice = "Mode: " + models.ModeFromComplex(m.coord.IsComplex()).Name

	case "help":
		m.notice = helpText

	default:
		m.notice = "Unknown command /" + name + ". Type /help"
	}

	m.refresh()
	return m, nil
}
