// Package auth signs users in with the identity provider and supplies
// the bearer credential attached to backend requests.
package auth

import (
	"context"

	apierrors "github.com/diogo/chatbridge/internal/errors"
)

// TokenProvider supplies the current user's ID token
type TokenProvider interface {
	IDToken(ctx context.Context) (string, error)
}

// StaticToken is a fixed token, used for scripting and tests
type StaticToken string

// IDToken returns the token, or an AuthError when it is empty
func (s StaticToken) IDToken(context.Context) (string, error) {
	if s == "" {
		return "", apierrors.NewAuthError("User not authenticated")
	}
	return string(s), nil
}
