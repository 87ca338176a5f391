package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	apierrors "github.com/diogo/chatbridge/internal/errors"
	"github.com/diogo/chatbridge/internal/logging"
	"github.com/diogo/chatbridge/internal/models"
)

// State is the request state of the coordinator
type State int

const (
	StateIdle State = iota
	StateSending
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateErrored:
		return "errored"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ChatTransport performs the chat request against the backend
type ChatTransport interface {
	Chat(ctx context.Context, token string, req models.ChatRequest) (*models.ChatResponse, error)
}

// TokenProvider supplies the bearer credential for each request
type TokenProvider interface {
	IDToken(ctx context.Context) (string, error)
}

// ResponseNotifier receives each successful assistant reply.
// Calls are fire-and-forget; errors are logged and otherwise ignored.
type ResponseNotifier interface {
	NotifyResponse(ctx context.Context, text string) error
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithComplex sets the complexity flag passed through to the backend
func WithComplex(isComplex bool) Option {
	return func(c *Coordinator) {
		c.isComplex = isComplex
	}
}

// WithNotifier attaches an audio-playback (or other) collaborator
func WithNotifier(n ResponseNotifier) Option {
	return func(c *Coordinator) {
		c.notifier = n
	}
}

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(c *Coordinator) {
		c.logger = l
	}
}

// WithClock overrides the clock used for message timestamps
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// WithIDGenerator overrides message ID generation
func WithIDGenerator(newID func() string) Option {
	return func(c *Coordinator) {
		c.newID = newID
	}
}

// Coordinator owns the send operation and the conversation state.
// All mutation happens against live state under mu; the network call
// runs outside the lock and its result is applied to whatever the
// conversation is when the response arrives.
type Coordinator struct {
	mu        sync.Mutex
	store     *Store
	binder    *Binder
	transport ChatTransport
	tokens    TokenProvider
	notifier  ResponseNotifier
	logger    *log.Logger
	isComplex bool
	inFlight  int
	lastErr   error
	now       func() time.Time
	newID     func() string
}

// NewCoordinator creates a coordinator with an empty conversation
func NewCoordinator(transport ChatTransport, tokens TokenProvider, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:     NewStore(),
		binder:    &Binder{},
		transport: transport,
		tokens:    tokens,
		now:       time.Now,
		newID:     NewMessageID,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = logging.WithPrefix("chat")
	}

	return c
}

// Pending is an accepted send whose user turn is already in the log
// and whose network call has not run yet.
type Pending struct {
	c          *Coordinator
	prompt     string
	transcript []models.TranscriptEntry
	sessionRef string
	isComplex  bool
	done       bool
}

// Prompt returns the trimmed user text
func (p *Pending) Prompt() string {
	return p.prompt
}

// Transcript returns the transcript that will be sent
func (p *Pending) Transcript() []models.TranscriptEntry {
	out := make([]models.TranscriptEntry, len(p.transcript))
	copy(out, p.transcript)
	return out
}

// Submit validates the input, appends the user turn and marks the
// coordinator as sending. It never touches the network.
// It returns false with no state change when the trimmed input is empty
// or a send is already in flight.
func (c *Coordinator) Submit(rawText string) (*Pending, bool) {
	text := strings.TrimSpace(rawText)
	if text == "" {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inFlight > 0 {
		c.logger.Debug("send rejected, request in flight")
		return nil, false
	}

	c.store.Append(models.Message{
		ID:          c.newID(),
		Content:     text,
		Sender:      models.SenderUser,
		Timestamp:   c.now(),
		Suggestions: []models.Suggestion{},
	})

	c.inFlight++
	c.lastErr = nil

	return &Pending{
		c:          c,
		prompt:     text,
		transcript: ToTranscript(c.store.Snapshot()),
		sessionRef: c.binder.Current(),
		isComplex:  c.isComplex,
	}, true
}

// Run performs the single chat request and applies its outcome.
// On success it returns the appended assistant turn. Failures are
// recorded on the coordinator and never returned.
// Run is a no-op after the first call.
func (p *Pending) Run(ctx context.Context) (models.Message, bool) {
	if p.done {
		return models.Message{}, false
	}
	p.done = true
	c := p.c

	resp, err := p.call(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight--

	if err != nil {
		c.lastErr = err
		c.logger.Warn("chat request failed", "error", err)
		return models.Message{}, false
	}

	reply := models.Message{
		ID:          c.newID(),
		Content:     resp.Text,
		Sender:      models.SenderAssistant,
		Timestamp:   c.now(),
		Suggestions: append([]models.Suggestion{}, resp.Videos...),
	}
	c.store.Append(reply)
	c.lastErr = nil

	if c.binder.Bind(resp.SessionRef) {
		c.logger.Debug("session bound", "session", resp.SessionRef)
	}

	if c.notifier != nil && resp.Text != "" {
		go c.notify(context.WithoutCancel(ctx), resp.Text)
	}

	return reply, true
}

// call obtains the credential and issues the request.
// A panicking collaborator is converted into an ordinary failure so the
// in-flight marker is always released.
func (p *Pending) call(ctx context.Context) (resp *models.ChatResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = fmt.Errorf("failed to send message: %v", r)
		}
	}()

	c := p.c
	if c.tokens == nil {
		return nil, apierrors.NewAuthError("User not authenticated")
	}

	token, err := c.tokens.IDToken(ctx)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("sending message",
		"turns", len(p.transcript),
		"session", p.sessionRef,
		"complex", p.isComplex,
	)

	req := models.NewChatRequest(p.prompt, p.isComplex, p.transcript, p.sessionRef)
	resp, err = c.transport.Chat(ctx, token, req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, apierrors.NewParseError("empty chat response", "")
	}
	return resp, nil
}

func (c *Coordinator) notify(ctx context.Context, text string) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("response notifier panicked", "panic", r)
		}
	}()

	if err := c.notifier.NotifyResponse(ctx, text); err != nil {
		c.logger.Warn("response notifier failed", "error", err)
	}
}

// Send is Submit followed by Run. It reports whether the input was accepted;
// the outcome is available through State, Err and Messages.
func (c *Coordinator) Send(ctx context.Context, rawText string) bool {
	pending, ok := c.Submit(rawText)
	if !ok {
		return false
	}
	pending.Run(ctx)
	return true
}

// LoadSession replaces the conversation and binding with a saved session
// and clears any error. An in-flight send is not cancelled; its response
// is applied to the loaded conversation when it arrives.
func (c *Coordinator) LoadSession(saved models.SavedSession) {
	messages := decodeHistory(saved.History, c.newID, c.now)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.ReplaceAll(messages)
	c.binder.Rebind(saved.SessionRef)
	c.lastErr = nil

	c.logger.Debug("session loaded", "session", saved.SessionRef, "turns", len(messages))
}

// Clear resets the conversation, the binding and the error.
// It does not cancel an in-flight send.
func (c *Coordinator) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.Clear()
	c.binder.Rebind("")
	c.lastErr = nil
}

// ClearError moves an errored coordinator back to idle
func (c *Coordinator) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = nil
}

// State returns the current request state
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.inFlight > 0:
		return StateSending
	case c.lastErr != nil:
		return StateErrored
	default:
		return StateIdle
	}
}

// IsLoading reports whether a send is in flight
func (c *Coordinator) IsLoading() bool {
	return c.State() == StateSending
}

// Err returns the recorded error, or nil
func (c *Coordinator) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// ErrorMessage returns the human-readable error description, or ""
func (c *Coordinator) ErrorMessage() string {
	err := c.Err()
	if err == nil {
		return ""
	}
	return err.Error()
}

// Messages returns a copy of the conversation
func (c *Coordinator) Messages() []models.Message {
	return c.store.Snapshot()
}

// Last returns the most recent turn
func (c *Coordinator) Last() (models.Message, bool) {
	return c.store.Last()
}

// SessionRef returns the current binding, or ""
func (c *Coordinator) SessionRef() string {
	return c.binder.Current()
}

// IsComplex returns the complexity flag used for new sends
func (c *Coordinator) IsComplex() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isComplex
}

// SetComplex changes the complexity flag for subsequent sends
func (c *Coordinator) SetComplex(isComplex bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isComplex = isComplex
}

// Saved returns the conversation in persisted form
func (c *Coordinator) Saved() models.SavedSession {
	c.mu.Lock()
	defer c.mu.Unlock()

	return models.SavedSession{
		SessionRef: c.binder.Current(),
		History:    ToSavedHistory(c.store.Snapshot()),
	}
}
