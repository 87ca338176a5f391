package commands

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/diogo/chatbridge/internal/auth"
	"github.com/diogo/chatbridge/internal/chat"
	"github.com/diogo/chatbridge/internal/config"
	"github.com/diogo/chatbridge/internal/history"
	"github.com/diogo/chatbridge/internal/models"
	"github.com/diogo/chatbridge/internal/tui"
)

// fakeBackend implements Backend
type fakeBackend struct {
	mu sync.Mutex

	chatReqs []models.ChatRequest
	chatResp *models.ChatResponse
	chatErr  error

	transcribed   []string
	transcription *models.Transcription
	transcribeErr error

	spoken   []string
	audio    *models.SpeechAudio
	speakErr error

	signIns  int
	signUps  int
	user     *models.User
	loginErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		chatResp: &models.ChatResponse{
			Text:       "Hello from the backend",
			SessionRef: "sess-1",
		},
		transcription: &models.Transcription{Prompt: "what is go"},
		audio:         &models.SpeechAudio{Data: []byte("RIFF0000WAVE"), ContentType: "audio/wav"},
		user:          &models.User{UID: "uid-1", Email: "ann@example.com", EmailVerified: true},
	}
}

func (f *fakeBackend) Chat(_ context.Context, _ string, req models.ChatRequest) (*models.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chatReqs = append(f.chatReqs, req)
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	resp := *f.chatResp
	return &resp, nil
}

func (f *fakeBackend) Speak(_ context.Context, text string) (*models.SpeechAudio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, text)
	if f.speakErr != nil {
		return nil, f.speakErr
	}
	return f.audio, nil
}

func (f *fakeBackend) TranscribeFile(_ context.Context, _ string, path string) (*models.Transcription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transcribed = append(f.transcribed, path)
	if f.transcribeErr != nil {
		return nil, f.transcribeErr
	}
	return f.transcription, nil
}

func (f *fakeBackend) SignIn(context.Context, string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signIns++
	return f.user, f.loginErr
}

func (f *fakeBackend) SignUp(context.Context, string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signUps++
	return f.user, f.loginErr
}

func (f *fakeBackend) requests() []models.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ChatRequest(nil), f.chatReqs...)
}

// fakeIdentity implements auth.IdentityService
type fakeIdentity struct {
	signInTok   *auth.IdentityToken
	signInErr   error
	signUpErr   error
	lookupUser  *models.User
	displayName string
	verifySent  int
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{
		signInTok: &auth.IdentityToken{
			IDToken:      "id-token",
			RefreshToken: "refresh-token",
			UID:          "uid-1",
			Email:        "ann@example.com",
			DisplayName:  "Ann",
		},
		lookupUser: &models.User{UID: "uid-1", Email: "ann@example.com", DisplayName: "Ann", EmailVerified: true},
	}
}

func (f *fakeIdentity) SignInWithPassword(context.Context, string, string) (*auth.IdentityToken, error) {
	return f.signInTok, f.signInErr
}

func (f *fakeIdentity) SignUp(context.Context, string, string) (*auth.IdentityToken, error) {
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	return &auth.IdentityToken{IDToken: "new-token", UID: "uid-2"}, nil
}

func (f *fakeIdentity) UpdateProfile(_ context.Context, _ string, name string) error {
	f.displayName = name
	return nil
}

func (f *fakeIdentity) SendVerificationEmail(context.Context, string) error {
	f.verifySent++
	return nil
}

func (f *fakeIdentity) Lookup(context.Context, string) (*models.User, error) {
	return f.lookupUser, nil
}

func (f *fakeIdentity) Refresh(context.Context, string) (*auth.IdentityToken, error) {
	return f.signInTok, nil
}

// fakeTUI records the coordinator handed to the chat UI
type fakeTUI struct {
	coord *chat.Coordinator
	opts  []tui.ModelOption
	err   error
}

func (f *fakeTUI) RunChat(coord *chat.Coordinator, opts ...tui.ModelOption) error {
	f.coord = coord
	f.opts = opts
	return f.err
}

// testEnv bundles the injected fakes of one test
type testEnv struct {
	deps    *Dependencies
	backend *fakeBackend
	store   *history.Store
	ui      *fakeTUI
	cfg     *config.Config
	copied  []string
	home    string
}

// newTestEnv points HOME at a temp dir and wires fakes for every
// external dependency. Tests may change env.cfg before running a command.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := history.NewStore(filepath.Join(home, "sessions"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	cfg := config.DefaultConfig()
	env := &testEnv{
		backend: newFakeBackend(),
		store:   store,
		ui:      &fakeTUI{},
		cfg:     &cfg,
		home:    home,
	}

	env.deps = &Dependencies{
		LoadConfig: func() (config.Config, error) {
			return *env.cfg, nil
		},
		Backend:  env.backend,
		Tokens:   auth.StaticToken("test-token"),
		Sessions: store,
		TUI:      env.ui,
		CopyText: func(text string) error {
			env.copied = append(env.copied, text)
			return nil
		},
	}
	return env
}

// run executes the root command with args and stdin, returning stdout and stderr
func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	cmd := NewRootCmd(e.deps)
	var out, errOut bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))

	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// seedSession saves a finished two-turn conversation
func (e *testEnv) seedSession(t *testing.T, title, prompt, reply, ref string) *history.Session {
	t.Helper()

	sess, err := e.store.Save(title, models.SavedSession{
		SessionRef: ref,
		History: []models.TranscriptEntry{
			models.NewTranscriptEntry(models.RoleUser, prompt),
			models.NewTranscriptEntry(models.RoleModel, reply),
		},
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	return sess
}
