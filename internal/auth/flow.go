package auth

import (
	"context"

	apierrors "github.com/diogo/chatbridge/internal/errors"
	"github.com/diogo/chatbridge/internal/models"
)

// AccountBackend registers sign-ins with the chat backend
type AccountBackend interface {
	SignIn(ctx context.Context, idToken string) (*models.User, error)
	SignUp(ctx context.Context, idToken string) (*models.User, error)
}

// Authenticator runs the sign-in and sign-up flows
type Authenticator struct {
	identity IdentityService
	backend  AccountBackend
	gate     *Gate
}

// NewAuthenticator wires the identity provider, the backend and the gate
func NewAuthenticator(identity IdentityService, backend AccountBackend, gate *Gate) *Authenticator {
	return &Authenticator{
		identity: identity,
		backend:  backend,
		gate:     gate,
	}
}

// SignIn validates the form, signs in, requires a verified email,
// registers the sign-in with the backend and stores the credentials.
func (a *Authenticator) SignIn(ctx context.Context, form SignInForm) (*models.User, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}

	tok, err := a.identity.SignInWithPassword(ctx, form.Email, form.Password)
	if err != nil {
		return nil, err
	}

	account, err := a.identity.Lookup(ctx, tok.IDToken)
	if err != nil {
		return nil, err
	}
	if !account.EmailVerified {
		return nil, apierrors.NewAuthErrorWithCode("EMAIL_NOT_VERIFIED", MsgEmailNotVerified)
	}

	user, err := a.backend.SignIn(ctx, tok.IDToken)
	if err != nil {
		return nil, err
	}

	if tok.DisplayName == "" {
		tok.DisplayName = account.DisplayName
	}
	if err := a.gate.Store(tok); err != nil {
		return nil, err
	}

	return mergeUser(user, account), nil
}

// SignUp validates the form, creates the account, sets its display name
// and sends a verification email. The user must verify before signing in,
// so no credentials are stored. It returns the message to show.
func (a *Authenticator) SignUp(ctx context.Context, form SignUpForm) (string, error) {
	if err := form.Validate(); err != nil {
		return "", err
	}

	tok, err := a.identity.SignUp(ctx, form.Email, form.Password)
	if err != nil {
		return "", err
	}

	if err := a.identity.UpdateProfile(ctx, tok.IDToken, form.Name); err != nil {
		return "", err
	}

	if err := a.identity.SendVerificationEmail(ctx, tok.IDToken); err != nil {
		return "", err
	}

	return MsgAccountCreated, nil
}

// ResendVerification signs in with the form's credentials only to send
// another verification email.
func (a *Authenticator) ResendVerification(ctx context.Context, form SignInForm) (string, error) {
	if err := form.Validate(); err != nil {
		return "", err
	}

	tok, err := a.identity.SignInWithPassword(ctx, form.Email, form.Password)
	if err != nil {
		return "", err
	}

	if err := a.identity.SendVerificationEmail(ctx, tok.IDToken); err != nil {
		return "", err
	}
	return MsgVerificationSent, nil
}

// Logout forgets the stored credentials
func (a *Authenticator) Logout() error {
	return a.gate.Logout()
}

func mergeUser(user, account *models.User) *models.User {
	out := *account
	if user == nil {
		return &out
	}
	if user.UID != "" {
		out.UID = user.UID
	}
	if user.Email != "" {
		out.Email = user.Email
	}
	if user.DisplayName != "" {
		out.DisplayName = user.DisplayName
	}
	return &out
}
