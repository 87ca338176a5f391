package commands

import (
	"context"
	"fmt"

	"github.com/atotto/clipboard"

	"github.com/diogo/chatbridge/internal/api"
	"github.com/diogo/chatbridge/internal/auth"
	"github.com/diogo/chatbridge/internal/chat"
	"github.com/diogo/chatbridge/internal/config"
	"github.com/diogo/chatbridge/internal/history"
	"github.com/diogo/chatbridge/internal/models"
	"github.com/diogo/chatbridge/internal/speech"
	"github.com/diogo/chatbridge/internal/tui"
)

// Backend is everything the commands need from the chat backend
type Backend interface {
	chat.ChatTransport
	speech.Synthesizer
	auth.AccountBackend
	TranscribeFile(ctx context.Context, token, filePath string) (*models.Transcription, error)
}

// TUIInterface defines the methods required from the TUI package.
type TUIInterface interface {
	RunChat(coord *chat.Coordinator, opts ...tui.ModelOption) error
}

// Dependencies holds the external dependencies for the commands.
// Nil fields are built from the loaded configuration on first use,
// which lets tests inject fakes for any of them.
type Dependencies struct {
	// Config is filled in by the root command before any subcommand runs
	Config config.Config
	// LoadConfig reads the effective configuration
	LoadConfig func() (config.Config, error)

	Backend  Backend
	Tokens   chat.TokenProvider
	Identity auth.IdentityService
	Gate     *auth.Gate
	Sessions *history.Store
	TUI      TUIInterface

	// CopyText writes to the system clipboard
	CopyText func(text string) error
}

// DefaultTUI is the production implementation of TUIInterface.
type DefaultTUI struct{}

func (d *DefaultTUI) RunChat(coord *chat.Coordinator, opts ...tui.ModelOption) error {
	return tui.RunChat(coord, opts...)
}

// NewDependencies creates a new Dependencies struct with default implementations.
func NewDependencies() *Dependencies {
	return &Dependencies{
		LoadConfig: func() (config.Config, error) {
			return config.Load(".env")
		},
		TUI:      &DefaultTUI{},
		CopyText: clipboard.WriteAll,
	}
}

func (d *Dependencies) backend() (Backend, error) {
	if d.Backend != nil {
		return d.Backend, nil
	}

	client, err := api.NewClient(
		api.WithBaseURL(d.Config.BackendURL),
		api.WithTimeout(d.Config.Timeout()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	d.Backend = client
	return client, nil
}

func (d *Dependencies) identity() (auth.IdentityService, error) {
	if d.Identity != nil {
		return d.Identity, nil
	}

	client, err := auth.NewIdentityClient(d.Config.IdentityAPIKey)
	if err != nil {
		return nil, err
	}
	d.Identity = client
	return client, nil
}

// gate loads the stored credentials. Without an identity API key the
// gate still works but cannot refresh expired tokens.
func (d *Dependencies) gate() (*auth.Gate, error) {
	if d.Gate != nil {
		return d.Gate, nil
	}

	var refresher auth.Refresher
	if d.Identity != nil || d.Config.IdentityAPIKey != "" {
		identity, err := d.identity()
		if err != nil {
			return nil, err
		}
		refresher = identity
	}

	gate, err := auth.NewGate(refresher)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	d.Gate = gate
	return gate, nil
}

func (d *Dependencies) tokens() (chat.TokenProvider, error) {
	if d.Tokens != nil {
		return d.Tokens, nil
	}
	gate, err := d.gate()
	if err != nil {
		return nil, err
	}
	return gate, nil
}

func (d *Dependencies) authenticator() (*auth.Authenticator, error) {
	identity, err := d.identity()
	if err != nil {
		return nil, err
	}
	backend, err := d.backend()
	if err != nil {
		return nil, err
	}
	gate, err := d.gate()
	if err != nil {
		return nil, err
	}
	return auth.NewAuthenticator(identity, backend, gate), nil
}

func (d *Dependencies) sessions() (*history.Store, error) {
	if d.Sessions != nil {
		return d.Sessions, nil
	}

	store, err := history.DefaultStore()
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	d.Sessions = store
	return store, nil
}

// speaker returns a speaker writing under the configured audio directory
func (d *Dependencies) speaker() (*speech.Speaker, string, error) {
	backend, err := d.backend()
	if err != nil {
		return nil, "", err
	}
	dir, err := config.GetAudioDir(d.Config)
	if err != nil {
		return nil, "", err
	}
	return speech.NewSpeaker(backend, dir, speech.WithPlayer(d.Config.AudioPlayer)), dir, nil
}

// newCoordinator builds a coordinator for one command run
func (d *Dependencies) newCoordinator(isComplex bool, opts ...chat.Option) (*chat.Coordinator, error) {
	backend, err := d.backend()
	if err != nil {
		return nil, err
	}
	tokens, err := d.tokens()
	if err != nil {
		return nil, err
	}

	opts = append([]chat.Option{chat.WithComplex(isComplex)}, opts...)
	return chat.NewCoordinator(backend, tokens, opts...), nil
}

func (d *Dependencies) copyText(text string) error {
	if d.CopyText == nil {
		return clipboard.WriteAll(text)
	}
	return d.CopyText(text)
}
