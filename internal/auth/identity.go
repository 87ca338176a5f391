package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/charmbracelet/log"
	"github.com/tidwall/gjson"

	"github.com/diogo/chatbridge/internal/api"
	apierrors "github.com/diogo/chatbridge/internal/errors"
	"github.com/diogo/chatbridge/internal/logging"
	"github.com/diogo/chatbridge/internal/models"
)

// Identity provider REST endpoints
const (
	DefaultIdentityURL = "https://identitytoolkit.googleapis.com/v1"
	DefaultTokenURL    = "https://securetoken.googleapis.com/v1/token"

	identityTimeout = 30 * time.Second
)

// IdentityToken is the result of a password sign-in, sign-up or refresh
type IdentityToken struct {
	IDToken      string
	RefreshToken string
	ExpiresAt    time.Time
	UID          string
	Email        string
	DisplayName  string
}

// IdentityService is the identity provider as used by the sign-in flows
type IdentityService interface {
	SignInWithPassword(ctx context.Context, email, password string) (*IdentityToken, error)
	SignUp(ctx context.Context, email, password string) (*IdentityToken, error)
	UpdateProfile(ctx context.Context, idToken, displayName string) error
	SendVerificationEmail(ctx context.Context, idToken string) error
	Lookup(ctx context.Context, idToken string) (*models.User, error)
	Refresher
}

// Refresher exchanges a refresh token for a new ID token
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*IdentityToken, error)
}

// IdentityClient talks to the identity provider's REST API
type IdentityClient struct {
	httpClient  api.HTTPDoer
	apiKey      string
	identityURL string
	tokenURL    string
	now         func() time.Time
	logger      *log.Logger
}

// IdentityOption configures an IdentityClient
type IdentityOption func(*IdentityClient)

// WithIdentityHTTPClient replaces the underlying HTTP client
func WithIdentityHTTPClient(httpClient api.HTTPDoer) IdentityOption {
	return func(c *IdentityClient) {
		c.httpClient = httpClient
	}
}

// WithEndpoints overrides the identity and token endpoints
func WithEndpoints(identityURL, tokenURL string) IdentityOption {
	return func(c *IdentityClient) {
		c.identityURL = strings.TrimRight(identityURL, "/")
		c.tokenURL = tokenURL
	}
}

// WithIdentityClock overrides the clock used to compute token expiry
func WithIdentityClock(now func() time.Time) IdentityOption {
	return func(c *IdentityClient) {
		c.now = now
	}
}

// WithIdentityLogger sets the logger
func WithIdentityLogger(l *log.Logger) IdentityOption {
	return func(c *IdentityClient) {
		c.logger = l
	}
}

// NewIdentityClient creates a client for the project identified by apiKey
func NewIdentityClient(apiKey string, opts ...IdentityOption) (*IdentityClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("identity API key is not configured (set identity_api_key or CHATBRIDGE_IDENTITY_API_KEY)")
	}

	c := &IdentityClient{
		apiKey:      apiKey,
		identityURL: DefaultIdentityURL,
		tokenURL:    DefaultTokenURL,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = logging.WithPrefix("auth")
	}

	if c.httpClient == nil {
		httpClient, err := api.NewHTTPClient(identityTimeout)
		if err != nil {
			return nil, err
		}
		c.httpClient = httpClient
	}

	return c, nil
}

// SignInWithPassword authenticates an existing account
func (c *IdentityClient) SignInWithPassword(ctx context.Context, email, password string) (*IdentityToken, error) {
	body, err := c.postJSON(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
	if err != nil {
		return nil, err
	}
	return c.parseToken(body, "idToken", "refreshToken", "expiresIn", "localId")
}

// SignUp creates a new account
func (c *IdentityClient) SignUp(ctx context.Context, email, password string) (*IdentityToken, error) {
	body, err := c.postJSON(ctx, "accounts:signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
	if err != nil {
		return nil, err
	}
	return c.parseToken(body, "idToken", "refreshToken", "expiresIn", "localId")
}

// UpdateProfile sets the account's display name
func (c *IdentityClient) UpdateProfile(ctx context.Context, idToken, displayName string) error {
	_, err := c.postJSON(ctx, "accounts:update", map[string]any{
		"idToken":           idToken,
		"displayName":       displayName,
		"returnSecureToken": false,
	})
	return err
}

// SendVerificationEmail asks the provider to email a verification link
func (c *IdentityClient) SendVerificationEmail(ctx context.Context, idToken string) error {
	_, err := c.postJSON(ctx, "accounts:sendOobCode", map[string]any{
		"requestType": "VERIFY_EMAIL",
		"idToken":     idToken,
	})
	return err
}

// Lookup returns the account record behind idToken
func (c *IdentityClient) Lookup(ctx context.Context, idToken string) (*models.User, error) {
	body, err := c.postJSON(ctx, "accounts:lookup", map[string]any{
		"idToken": idToken,
	})
	if err != nil {
		return nil, err
	}

	user := gjson.GetBytes(body, "users.0")
	if !user.Exists() {
		return nil, apierrors.NewAuthErrorWithCode("USER_NOT_FOUND", MsgSessionExpired)
	}

	return &models.User{
		UID:           user.Get("localId").String(),
		Email:         user.Get("email").String(),
		DisplayName:   user.Get("displayName").String(),
		EmailVerified: user.Get("emailVerified").Bool(),
	}, nil
}

// Refresh exchanges a refresh token for a fresh ID token
func (c *IdentityClient) Refresh(ctx context.Context, refreshToken string) (*IdentityToken, error) {
	if refreshToken == "" {
		return nil, apierrors.NewAuthErrorWithCode("INVALID_REFRESH_TOKEN", MsgSessionExpired)
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodPost, c.tokenURL+"?key="+url.QueryEscape(c.apiKey), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do(req, "refresh token")
	if err != nil {
		return nil, err
	}
	return c.parseToken(body, "id_token", "refresh_token", "expires_in", "user_id")
}

func (c *IdentityClient) postJSON(ctx context.Context, method string, payload map[string]any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to build payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s?key=%s", c.identityURL, method, url.QueryEscape(c.apiKey))
	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, method)
}

// do executes the request. Provider failures arrive as
// {"error":{"code":400,"message":"EMAIL_NOT_FOUND"}} and become AuthErrors.
func (c *IdentityClient) do(req *fhttp.Request, operation string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apierrors.NewNetworkError(operation, req.URL.Path, err)
	}
	defer func() {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apierrors.NewNetworkError(operation, req.URL.Path, err)
	}

	c.logger.Debug("identity request", "op", operation, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw := gjson.GetBytes(body, "error.message").String()
		if raw == "" {
			raw = gjson.GetBytes(body, "error").String()
		}
		if raw == "" {
			raw = fmt.Sprintf("Server error: %d", resp.StatusCode)
		}
		code := codeOf(raw)
		msg := messageForCode(code)
		if msg == "" {
			msg = raw
		}
		return nil, apierrors.NewAuthErrorWithCode(code, msg)
	}

	return body, nil
}

func (c *IdentityClient) parseToken(body []byte, idPath, refreshPath, expiresPath, uidPath string) (*IdentityToken, error) {
	if !gjson.ValidBytes(body) {
		return nil, apierrors.NewParseError("identity response is not valid JSON", "")
	}

	parsed := gjson.ParseBytes(body)
	tok := &IdentityToken{
		IDToken:      parsed.Get(idPath).String(),
		RefreshToken: parsed.Get(refreshPath).String(),
		UID:          parsed.Get(uidPath).String(),
		Email:        parsed.Get("email").String(),
		DisplayName:  parsed.Get("displayName").String(),
	}
	if tok.IDToken == "" {
		return nil, apierrors.NewParseError("identity response has no ID token", idPath)
	}

	// expiresIn is a decimal string of seconds
	seconds, err := strconv.Atoi(parsed.Get(expiresPath).String())
	if err != nil || seconds <= 0 {
		seconds = 3600
	}
	tok.ExpiresAt = c.now().Add(time.Duration(seconds) * time.Second)

	return tok, nil
}
