package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"

	apierrors "github.com/diogo/chatbridge/internal/errors"
	"github.com/diogo/chatbridge/internal/models"
)

type tokenRequest struct {
	Token string `json:"token"`
}

// SignIn registers a fresh sign-in with the backend and returns its user record
func (c *Client) SignIn(ctx context.Context, idToken string) (*models.User, error) {
	return c.account(ctx, "sign in", models.PathSignIn, idToken)
}

// SignUp registers a new account with the backend and returns its user record
func (c *Client) SignUp(ctx context.Context, idToken string) (*models.User, error) {
	return c.account(ctx, "sign up", models.PathSignUp, idToken)
}

func (c *Client) account(ctx context.Context, operation, path, idToken string) (*models.User, error) {
	if idToken == "" {
		return nil, apierrors.NewAuthError("User not authenticated")
	}

	payload, err := json.Marshal(tokenRequest{Token: idToken})
	if err != nil {
		return nil, fmt.Errorf("failed to build payload: %w", err)
	}

	req, err := c.newRequest(ctx, fhttp.MethodPost, path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	body, _, err := c.do(req, operation, path, "")
	if err != nil {
		return nil, err
	}

	return parseUser(body)
}

func parseUser(body []byte) (*models.User, error) {
	if !gjson.ValidBytes(body) {
		return nil, apierrors.NewParseError("account response is not valid JSON", "")
	}

	user := gjson.GetBytes(body, PathUser)
	if !user.Exists() || user.Type == gjson.Null {
		return &models.User{}, nil
	}

	return &models.User{
		UID:           firstString(user, "uid", "id"),
		Email:         user.Get("email").String(),
		DisplayName:   firstString(user, "displayName", "name"),
		EmailVerified: user.Get("emailVerified").Bool(),
	}, nil
}

func firstString(v gjson.Result, paths ...string) string {
	for _, p := range paths {
		if s := v.Get(p).String(); s != "" {
			return s
		}
	}
	return ""
}
