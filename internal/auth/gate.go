package auth

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/diogo/chatbridge/internal/config"
	apierrors "github.com/diogo/chatbridge/internal/errors"
	"github.com/diogo/chatbridge/internal/logging"
)

// DefaultExpirySkew renews ID tokens this long before they expire
const DefaultExpirySkew = 60 * time.Second

// Gate holds the signed-in user's credentials and hands out valid ID tokens.
// It implements TokenProvider.
type Gate struct {
	mu        sync.Mutex
	path      string
	creds     *config.Credentials
	refresher Refresher
	skew      time.Duration
	now       func() time.Time
	logger    *log.Logger
}

// GateOption configures a Gate
type GateOption func(*Gate)

// WithCredentialsPath overrides where credentials are stored
func WithCredentialsPath(path string) GateOption {
	return func(g *Gate) {
		g.path = path
	}
}

// WithGateClock overrides the clock used for expiry checks
func WithGateClock(now func() time.Time) GateOption {
	return func(g *Gate) {
		g.now = now
	}
}

// WithGateLogger sets the logger
func WithGateLogger(l *log.Logger) GateOption {
	return func(g *Gate) {
		g.logger = l
	}
}

// NewGate creates a gate and loads any stored credentials.
// refresher may be nil, in which case expired tokens cannot be renewed.
func NewGate(refresher Refresher, opts ...GateOption) (*Gate, error) {
	g := &Gate{
		refresher: refresher,
		skew:      DefaultExpirySkew,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.logger == nil {
		g.logger = logging.WithPrefix("auth")
	}

	if g.path == "" {
		path, err := config.GetCredentialsPath()
		if err != nil {
			return nil, err
		}
		g.path = path
	}

	creds, err := config.LoadCredentialsFrom(g.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		g.logger.Warn("ignoring unreadable credentials", "path", g.path, "error", err)
	default:
		g.creds = creds
	}

	return g, nil
}

// SignedIn reports whether credentials are present
func (g *Gate) SignedIn() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.creds != nil
}

// Identity returns the signed-in account, or empty strings
func (g *Gate) Identity() (uid, email, displayName string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.creds == nil {
		return "", "", ""
	}
	return g.creds.Identity()
}

// IDToken returns a valid ID token, refreshing it when it is about to expire
func (g *Gate) IDToken(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.creds == nil {
		return "", apierrors.NewAuthError(MsgNotSignedIn)
	}

	idToken, refreshToken, expiresAt := g.creds.Snapshot()
	if idToken != "" && g.now().Add(g.skew).Before(expiresAt) {
		return idToken, nil
	}

	if refreshToken == "" || g.refresher == nil {
		return "", apierrors.NewAuthErrorWithCode("TOKEN_EXPIRED", MsgSessionExpired)
	}

	g.logger.Debug("refreshing ID token", "expired_at", expiresAt)

	tok, err := g.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		return "", err
	}

	g.creds.SetTokens(tok.IDToken, tok.RefreshToken, tok.ExpiresAt)
	if err := config.SaveCredentialsTo(g.path, g.creds); err != nil {
		g.logger.Warn("failed to persist refreshed credentials", "error", err)
	}

	return tok.IDToken, nil
}

// Store persists a fresh sign-in
func (g *Gate) Store(tok *IdentityToken) error {
	creds := &config.Credentials{
		IDToken:      tok.IDToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.ExpiresAt,
		UID:          tok.UID,
		Email:        tok.Email,
		DisplayName:  tok.DisplayName,
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := config.SaveCredentialsTo(g.path, creds); err != nil {
		return err
	}
	g.creds = creds
	return nil
}

// Logout forgets the stored credentials
func (g *Gate) Logout() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.creds = nil
	return config.DeleteCredentialsAt(g.path)
}
