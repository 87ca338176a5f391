package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	apierrors "github.com/diogo/chatbridge/internal/errors"
	"github.com/diogo/chatbridge/internal/models"
)

func validSignIn() SignInForm {
	return SignInForm{Email: "a@b.co", Password: "secret1"}
}

func validSignUp() SignUpForm {
	return SignUpForm{Name: "Ada", Email: "a@b.co", Password: "secret1", ConfirmPassword: "secret1"}
}

func TestAuthenticator_SignIn(t *testing.T) {
	identity := &fakeIdentity{
		signInTok:  &IdentityToken{IDToken: "id1", RefreshToken: "r1", ExpiresAt: fixedNow.Add(time.Hour), UID: "u1", Email: "a@b.co"},
		lookupUser: &models.User{UID: "u1", Email: "a@b.co", DisplayName: "Ada", EmailVerified: true},
	}
	backend := &fakeBackend{user: &models.User{UID: "db-1", Email: "a@b.co"}}
	gate, _ := newTestGate(t, identity, nil)

	a := NewAuthenticator(identity, backend, gate)
	user, err := a.SignIn(context.Background(), validSignIn())
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	if backend.gotToken != "id1" || backend.signIns != 1 {
		t.Errorf("backend sign-in token = %q (%d calls)", backend.gotToken, backend.signIns)
	}
	if user.UID != "db-1" || user.DisplayName != "Ada" || !user.EmailVerified {
		t.Errorf("user = %+v", user)
	}

	tok, err := gate.IDToken(context.Background())
	if err != nil || tok != "id1" {
		t.Errorf("gate token = %q, %v", tok, err)
	}
	if _, _, name := gate.Identity(); name != "Ada" {
		t.Errorf("stored display name = %q", name)
	}
}

func TestAuthenticator_SignInFailures(t *testing.T) {
	okToken := &IdentityToken{IDToken: "id1", RefreshToken: "r1", ExpiresAt: fixedNow.Add(time.Hour)}

	tests := []struct {
		name        string
		form        SignInForm
		identity    *fakeIdentity
		backend     *fakeBackend
		wantMsg     string
		wantBackend bool
	}{
		{
			name:     "invalid form",
			form:     SignInForm{Email: "nope"},
			identity: &fakeIdentity{},
			backend:  &fakeBackend{},
			wantMsg:  "Please enter a valid email address; Password is required",
		},
		{
			name:     "bad password",
			form:     validSignIn(),
			identity: &fakeIdentity{signInErr: apierrors.NewAuthErrorWithCode("INVALID_PASSWORD", "Incorrect password. Please try again.")},
			backend:  &fakeBackend{},
			wantMsg:  "Incorrect password. Please try again.",
		},
		{
			name:     "unverified email",
			form:     validSignIn(),
			identity: &fakeIdentity{signInTok: okToken, lookupUser: &models.User{EmailVerified: false}},
			backend:  &fakeBackend{},
			wantMsg:  MsgEmailNotVerified,
		},
		{
			name:        "backend rejects",
			form:        validSignIn(),
			identity:    &fakeIdentity{signInTok: okToken, lookupUser: &models.User{EmailVerified: true}},
			backend:     &fakeBackend{err: apierrors.NewAPIError(500, models.PathSignIn, "db down")},
			wantMsg:     "db down",
			wantBackend: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate, _ := newTestGate(t, tt.identity, nil)
			a := NewAuthenticator(tt.identity, tt.backend, gate)

			_, err := a.SignIn(context.Background(), tt.form)
			if err == nil {
				t.Fatal("expected error")
			}
			if FriendlyMessage(err) != tt.wantMsg {
				t.Errorf("FriendlyMessage() = %q, want %q", FriendlyMessage(err), tt.wantMsg)
			}
			if (tt.backend.signIns > 0) != tt.wantBackend {
				t.Errorf("backend called = %v, want %v", tt.backend.signIns > 0, tt.wantBackend)
			}
			if gate.SignedIn() {
				t.Error("credentials stored after failed sign-in")
			}
		})
	}
}

func TestAuthenticator_SignUp(t *testing.T) {
	identity := &fakeIdentity{signUpTok: &IdentityToken{IDToken: "new-id"}}
	gate, _ := newTestGate(t, identity, nil)
	a := NewAuthenticator(identity, &fakeBackend{}, gate)

	msg, err := a.SignUp(context.Background(), validSignUp())
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if msg != MsgAccountCreated {
		t.Errorf("message = %q", msg)
	}
	if identity.displayName != "Ada" {
		t.Errorf("display name = %q", identity.displayName)
	}
	if identity.verifySent != 1 {
		t.Errorf("verification emails = %d, want 1", identity.verifySent)
	}
	if gate.SignedIn() {
		t.Error("sign-up must not store a session before verification")
	}
}

func TestAuthenticator_SignUpFailures(t *testing.T) {
	tests := []struct {
		name     string
		form     SignUpForm
		identity *fakeIdentity
	}{
		{"mismatch", SignUpForm{Name: "Ada", Email: "a@b.co", Password: "secret1", ConfirmPassword: "other"}, &fakeIdentity{}},
		{"exists", validSignUp(), &fakeIdentity{signUpErr: apierrors.NewAuthErrorWithCode("EMAIL_EXISTS", "x")}},
		{"profile", validSignUp(), &fakeIdentity{signUpTok: &IdentityToken{IDToken: "i"}, updateErr: errors.New("boom")}},
		{"verify", validSignUp(), &fakeIdentity{signUpTok: &IdentityToken{IDToken: "i"}, verifyErr: errors.New("boom")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate, _ := newTestGate(t, tt.identity, nil)
			a := NewAuthenticator(tt.identity, &fakeBackend{}, gate)

			if _, err := a.SignUp(context.Background(), tt.form); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestAuthenticator_ResendVerification(t *testing.T) {
	identity := &fakeIdentity{signInTok: &IdentityToken{IDToken: "id"}}
	gate, _ := newTestGate(t, identity, nil)
	a := NewAuthenticator(identity, &fakeBackend{}, gate)

	msg, err := a.ResendVerification(context.Background(), validSignIn())
	if err != nil {
		t.Fatalf("ResendVerification() error = %v", err)
	}
	if msg != MsgVerificationSent || identity.verifySent != 1 {
		t.Errorf("message = %q, sent = %d", msg, identity.verifySent)
	}
}

func TestAuthenticator_Logout(t *testing.T) {
	identity := &fakeIdentity{}
	gate, _ := newTestGate(t, identity, nil)
	_ = gate.Store(&IdentityToken{IDToken: "id", ExpiresAt: fixedNow.Add(time.Hour)})

	a := NewAuthenticator(identity, &fakeBackend{}, gate)
	if err := a.Logout(); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if gate.SignedIn() {
		t.Error("still signed in after Logout")
	}
}
