package auth

import (
	"errors"
	"strings"

	apierrors "github.com/diogo/chatbridge/internal/errors"
)

const (
	MsgEmailNotVerified   = "Please verify your email before signing in."
	MsgAccountCreated     = "Account created! Please verify your email before logging in."
	MsgVerificationSent   = "Verification email sent successfully!"
	MsgLoginSuccessful    = "Login successful!"
	MsgNotSignedIn        = "User not authenticated"
	MsgSessionExpired     = "Your session has expired. Please log in again."
	msgNetworkUnavailable = "Network error. Please check your connection."
	msgUnexpected         = "An unexpected error occurred. Please try again."
)

// providerMessages maps identity provider error codes to user-facing text
var providerMessages = []struct {
	code string
	msg  string
}{
	{"EMAIL_EXISTS", "This email is already registered. Please try logging in instead."},
	{"INVALID_LOGIN_CREDENTIALS", "Incorrect email or password. Please try again."},
	{"INVALID_PASSWORD", "Incorrect password. Please try again."},
	{"EMAIL_NOT_FOUND", "No account found with this email. Please sign up first."},
	{"TOO_MANY_ATTEMPTS_TRY_LATER", "Too many failed attempts. Please try again later."},
	{"WEAK_PASSWORD", "Password is too weak. Please choose a stronger password."},
	{"INVALID_EMAIL", "Please enter a valid email address."},
	{"USER_DISABLED", "This account has been disabled. Please contact support."},
	{"CREDENTIAL_TOO_OLD_LOGIN_AGAIN", "Please log out and log back in to perform this action."},
	{"TOKEN_EXPIRED", MsgSessionExpired},
	{"INVALID_REFRESH_TOKEN", MsgSessionExpired},
	{"USER_NOT_FOUND", MsgSessionExpired},
	{"EMAIL_NOT_VERIFIED", MsgEmailNotVerified},
}

// codeOf strips the detail suffix the provider appends, e.g.
// "WEAK_PASSWORD : Password should be at least 6 characters".
func codeOf(raw string) string {
	code, _, _ := strings.Cut(raw, ":")
	return strings.TrimSpace(code)
}

// messageForCode returns the friendly message for a provider code, or ""
func messageForCode(code string) string {
	for _, m := range providerMessages {
		if strings.Contains(code, m.code) {
			return m.msg
		}
	}
	return ""
}

// FriendlyMessage turns any sign-in or sign-up failure into text for the user
func FriendlyMessage(err error) string {
	if err == nil {
		return ""
	}

	if apierrors.IsNetworkError(err) {
		return msgNetworkUnavailable
	}

	var authErr *apierrors.AuthError
	if errors.As(err, &authErr) && authErr.Code != "" {
		if msg := messageForCode(authErr.Code); msg != "" {
			return msg
		}
	}

	if msg := messageForCode(err.Error()); msg != "" {
		return msg
	}

	if err.Error() == "" {
		return msgUnexpected
	}
	return err.Error()
}
