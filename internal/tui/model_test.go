package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/diogo/chatbridge/internal/chat"
	apierrors "github.com/diogo/chatbridge/internal/errors"
	"github.com/diogo/chatbridge/internal/history"
	"github.com/diogo/chatbridge/internal/logging"
	"github.com/diogo/chatbridge/internal/models"
)

type mockTransport struct {
	mu    sync.Mutex
	calls []models.ChatRequest
	resp  *models.ChatResponse
	err   error
}

func (m *mockTransport) Chat(ctx context.Context, token string, req models.ChatRequest) (*models.ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	if m.err != nil {
		return nil, m.err
	}
	if m.resp != nil {
		return m.resp, nil
	}
	return &models.ChatResponse{Text: "**hello** back", SessionRef: "sess-1"}, nil
}

type mockTokens struct{}

func (mockTokens) IDToken(context.Context) (string, error) {
	return "token", nil
}

func newTestCoordinator(transport *mockTransport) *chat.Coordinator {
	return chat.NewCoordinator(transport, mockTokens{}, chat.WithLogger(logging.Discard()))
}

func newTestHistory(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store
}

// readyModel returns a model that has received its first window size
func readyModel(t *testing.T, coord *chat.Coordinator, opts ...ModelOption) Model {
	t.Helper()
	m := NewChatModel(coord, opts...)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(Model)
}

func typeAndEnter(t *testing.T, m Model, input string) (Model, tea.Cmd) {
	t.Helper()
	m.textarea.SetValue(input)
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return updated.(Model), cmd
}

// findReply runs a batched command and returns the replyMsg it produces
func findReply(t *testing.T, cmd tea.Cmd) replyMsg {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}

	msg := cmd()
	if reply, ok := msg.(replyMsg); ok {
		return reply
	}
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		t.Fatalf("unexpected message %T", msg)
	}
	for _, c := range batch {
		if c == nil {
			continue
		}
		if reply, ok := c().(replyMsg); ok {
			return reply
		}
	}
	t.Fatal("no replyMsg in batch")
	return replyMsg{}
}

func TestModel_View_NotReady(t *testing.T) {
	m := NewChatModel(newTestCoordinator(&mockTransport{}))

	if view := m.View(); !strings.Contains(view, "Initializing") {
		t.Errorf("View() = %q, want initializing text", view)
	}
}

func TestModel_Update_WindowSize(t *testing.T) {
	m := readyModel(t, newTestCoordinator(&mockTransport{}))

	if !m.ready {
		t.Error("model should be ready after WindowSizeMsg")
	}
	if m.width != 100 || m.height != 40 {
		t.Errorf("size = %dx%d, want 100x40", m.width, m.height)
	}
	if view := m.View(); !strings.Contains(view, "Welcome to chatbridge") {
		t.Error("empty conversation should show the welcome screen")
	}
}

func TestModel_Update_CtrlC(t *testing.T) {
	m := readyModel(t, newTestCoordinator(&mockTransport{}))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c should quit")
	}
}

func TestModel_SendMessage(t *testing.T) {
	transport := &mockTransport{}
	coord := newTestCoordinator(transport)
	m := readyModel(t, coord)

	m, cmd := typeAndEnter(t, m, "  hi there  ")

	if !coord.IsLoading() {
		t.Fatal("coordinator should be sending after enter")
	}
	if m.textarea.Value() != "" {
		t.Error("input should be cleared after submit")
	}
	if view := m.View(); !strings.Contains(view, "Thinking") {
		t.Error("loading view should show the spinner text")
	}

	reply := findReply(t, cmd)
	if !reply.ok {
		t.Fatal("reply should succeed")
	}

	updated, _ := m.Update(reply)
	m = updated.(Model)

	msgs := coord.Messages()
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
	if msgs[0].Content != "hi there" {
		t.Errorf("user content = %q", msgs[0].Content)
	}
	if coord.SessionRef() != "sess-1" {
		t.Errorf("session ref = %q", coord.SessionRef())
	}
	if view := m.View(); !strings.Contains(view, "hello") {
		t.Error("view should contain the reply")
	}
}

func TestModel_EnterIgnoredWhileLoading(t *testing.T) {
	transport := &mockTransport{}
	coord := newTestCoordinator(transport)
	m := readyModel(t, coord)

	m, _ = typeAndEnter(t, m, "first")
	m, cmd := typeAndEnter(t, m, "second")

	if cmd != nil {
		t.Error("enter while loading should not start a send")
	}
	if got := len(coord.Messages()); got != 1 {
		t.Errorf("messages = %d, want 1", got)
	}
}

func TestModel_EmptyInputIgnored(t *testing.T) {
	coord := newTestCoordinator(&mockTransport{})
	m := readyModel(t, coord)

	_, cmd := typeAndEnter(t, m, "   ")

	if cmd != nil {
		t.Error("blank input should not produce a command")
	}
	if coord.IsLoading() {
		t.Error("blank input should not start a send")
	}
}

func TestModel_ErrorPanelAndDismiss(t *testing.T) {
	transport := &mockTransport{err: apierrors.NewAPIError(503, "/api/chat", "Service unavailable")}
	coord := newTestCoordinator(transport)
	m := readyModel(t, coord)

	m, cmd := typeAndEnter(t, m, "hello")
	reply := findReply(t, cmd)
	if reply.ok {
		t.Fatal("reply should fail")
	}
	updated, _ := m.Update(reply)
	m = updated.(Model)

	view := m.View()
	if !strings.Contains(view, "Service unavailable") {
		t.Errorf("view should show the error, got %q", view)
	}
	if !strings.Contains(view, "Esc to dismiss") {
		t.Error("view should explain how to dismiss")
	}

	updated, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEscape})
	m = updated.(Model)
	if cmd != nil {
		t.Error("esc with an error should only dismiss it")
	}
	if coord.Err() != nil {
		t.Error("error should be cleared")
	}
	if got := len(coord.Messages()); got != 1 {
		t.Errorf("failed send should keep the user turn, got %d messages", got)
	}
}

func TestModel_EscQuitsWhenIdle(t *testing.T) {
	m := readyModel(t, newTestCoordinator(&mockTransport{}))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEscape})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("esc while idle should quit")
	}
}

func TestModel_Commands(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantComplex bool
		wantNotice  string
		wantQuit    bool
	}{
		{"toggle complex", "/complex", true, "Mode: complex", false},
		{"complex on", "/complex on", true, "Mode: complex", false},
		{"complex off", "/complex off", false, "Mode: fast", false},
		{"complex bad arg", "/complex maybe", false, "Usage", false},
		{"help", "/help", false, "/save", false},
		{"unknown", "/frobnicate", false, "Unknown command /frobnicate", false},
		{"sessions without store", "/sessions", false, "not available", false},
		{"save without store", "/save", false, "Save failed", false},
		{"exit", "/exit", false, "", true},
		{"bare quit", "quit", false, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coord := newTestCoordinator(&mockTransport{})
			m := readyModel(t, coord)

			m, cmd := typeAndEnter(t, m, tt.input)

			if tt.wantQuit {
				if cmd == nil {
					t.Fatal("expected quit command")
				}
				if _, ok := cmd().(tea.QuitMsg); !ok {
					t.Error("expected tea.QuitMsg")
				}
				return
			}
			if coord.IsComplex() != tt.wantComplex {
				t.Errorf("IsComplex() = %v, want %v", coord.IsComplex(), tt.wantComplex)
			}
			if !strings.Contains(m.notice, tt.wantNotice) {
				t.Errorf("notice = %q, want it to contain %q", m.notice, tt.wantNotice)
			}
			if len(coord.Messages()) != 0 {
				t.Error("commands must not be sent as messages")
			}
		})
	}
}

func TestModel_ClearCommand(t *testing.T) {
	coord := newTestCoordinator(&mockTransport{})
	coord.LoadSession(models.SavedSession{
		SessionRef: "old",
		History:    []models.TranscriptEntry{models.NewTranscriptEntry(models.RoleUser, "earlier")},
	})
	m := readyModel(t, coord)
	m.sessionID = "abc"

	m, _ = typeAndEnter(t, m, "/clear")

	if len(coord.Messages()) != 0 || coord.SessionRef() != "" {
		t.Error("clear should reset the conversation and binding")
	}
	if m.sessionID != "" {
		t.Error("clear should detach the saved session")
	}
}

func TestModel_SaveCommand(t *testing.T) {
	store := newTestHistory(t)
	coord := newTestCoordinator(&mockTransport{})
	m := readyModel(t, coord, WithSessionStore(store, false))

	m, _ = typeAndEnter(t, m, "/save")
	if !strings.Contains(m.notice, "nothing to save") {
		t.Errorf("notice = %q, want nothing to save", m.notice)
	}

	m, cmd := typeAndEnter(t, m, "what is go?")
	updated, _ := m.Update(findReply(t, cmd))
	m = updated.(Model)

	m, _ = typeAndEnter(t, m, "/save Go basics")
	if m.sessionID == "" {
		t.Fatal("save should attach a session ID")
	}

	sessions, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(sessions))
	}
	if sessions[0].Title != "Go basics" {
		t.Errorf("title = %q", sessions[0].Title)
	}
	if sessions[0].SessionRef != "sess-1" {
		t.Errorf("sessionRef = %q", sessions[0].SessionRef)
	}

	// saving again updates the same session
	m, _ = typeAndEnter(t, m, "/save Renamed")
	sessions, _ = store.List()
	if len(sessions) != 1 || sessions[0].Title != "Renamed" {
		t.Errorf("second save should rename in place, got %+v", sessions)
	}
	if m.sessionTitle != "Renamed" {
		t.Errorf("sessionTitle = %q", m.sessionTitle)
	}
}

func TestModel_AutoSave(t *testing.T) {
	store := newTestHistory(t)
	coord := newTestCoordinator(&mockTransport{})
	m := readyModel(t, coord, WithSessionStore(store, true))

	m, cmd := typeAndEnter(t, m, "remember this")
	updated, _ := m.Update(findReply(t, cmd))
	m = updated.(Model)

	sessions, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(sessions))
	}
	if sessions[0].Title != "remember this" {
		t.Errorf("title = %q, want derived title", sessions[0].Title)
	}
	if m.SessionID() != sessions[0].ID {
		t.Error("model should track the auto-saved session")
	}
}

func TestModel_AutoSaveSkippedOnFailure(t *testing.T) {
	store := newTestHistory(t)
	coord := newTestCoordinator(&mockTransport{err: errors.New("connection refused")})
	m := readyModel(t, coord, WithSessionStore(store, true))

	m, cmd := typeAndEnter(t, m, "hello")
	m.Update(findReply(t, cmd))

	sessions, _ := store.List()
	if len(sessions) != 0 {
		t.Errorf("failed send should not be saved, got %d sessions", len(sessions))
	}
}

func TestModel_WithSession(t *testing.T) {
	store := newTestHistory(t)
	sess, err := store.Save("Earlier chat", models.SavedSession{
		SessionRef: "ref-9",
		History: []models.TranscriptEntry{
			models.NewTranscriptEntry(models.RoleUser, "ping"),
			models.NewTranscriptEntry(models.RoleModel, "pong"),
		},
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	transport := &mockTransport{}
	coord := newTestCoordinator(transport)
	m := readyModel(t, coord, WithSessionStore(store, false), WithSession(sess))

	if m.SessionID() != sess.ID {
		t.Errorf("SessionID() = %q", m.SessionID())
	}
	if got := len(coord.Messages()); got != 2 {
		t.Fatalf("messages = %d, want 2", got)
	}
	if view := m.View(); !strings.Contains(view, "Earlier chat") {
		t.Error("header should show the session title")
	}

	_, cmd := typeAndEnter(t, m, "again")
	findReply(t, cmd)

	req := transport.calls[0]
	if req.SessionRef == nil || *req.SessionRef != "ref-9" {
		t.Errorf("request should carry the resumed session ref, got %v", req.SessionRef)
	}
	if len(req.History) != 3 {
		t.Errorf("history = %d entries, want 3", len(req.History))
	}
}

func TestModel_SessionsFlow(t *testing.T) {
	store := newTestHistory(t)
	if _, err := store.Save("Stored", models.SavedSession{
		SessionRef: "stored-ref",
		History:    []models.TranscriptEntry{models.NewTranscriptEntry(models.RoleUser, "stored question")},
	}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	coord := newTestCoordinator(&mockTransport{})
	m := readyModel(t, coord, WithSessionStore(store, false))

	m, _ = typeAndEnter(t, m, "/sessions")
	if !m.selecting {
		t.Fatal("/sessions should open the selector")
	}

	// deliver the load result directly instead of running the batch
	updated, _ := m.Update(m.selector.load()())
	m = updated.(Model)
	if view := m.View(); !strings.Contains(view, "Stored") {
		t.Errorf("selector should list the session, got %q", view)
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = updated.(Model)
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	if cmd == nil {
		t.Fatal("enter should choose a session")
	}

	updated, _ = m.Update(cmd())
	m = updated.(Model)

	if m.selecting {
		t.Error("selector should close after choosing")
	}
	if coord.SessionRef() != "stored-ref" {
		t.Errorf("session ref = %q", coord.SessionRef())
	}
	if m.sessionTitle != "Stored" {
		t.Errorf("sessionTitle = %q", m.sessionTitle)
	}
}

func TestModel_SelectorClosed(t *testing.T) {
	m := readyModel(t, newTestCoordinator(&mockTransport{}), WithSessionStore(newTestHistory(t), false))

	m, _ = typeAndEnter(t, m, "/sessions")
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEscape})
	m = updated.(Model)

	updated, _ = m.Update(cmd())
	m = updated.(Model)
	if m.selecting {
		t.Error("esc in the selector should return to the chat")
	}
}

func TestErrorHint(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"auth", apierrors.NewAuthError("User not authenticated"), "login"},
		{"forbidden", apierrors.NewAPIError(403, "/api/chat", "forbidden"), "login"},
		{"rate limit", apierrors.NewAPIError(429, "/api/chat", "slow down"), "Wait"},
		{"server", apierrors.NewAPIError(500, "/api/chat", "boom"), "Try again"},
		{"plain", errors.New("something"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ErrorHint(tt.err)
			if tt.want == "" {
				if got != "" {
					t.Errorf("ErrorHint() = %q, want empty", got)
				}
				return
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("ErrorHint() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestFormatError(t *testing.T) {
	if FormatError(nil) != "" {
		t.Error("FormatError(nil) should be empty")
	}

	got := FormatError(apierrors.NewAPIError(502, "/api/chat", "bad gateway"))
	for _, want := range []string{"bad gateway", "502", "Hint"} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatError() = %q, missing %q", got, want)
		}
	}
}
