package auth

import (
	"context"
	"io"
	"strings"
	"sync"

	fhttp "github.com/bogdanfinn/fhttp"

	"github.com/diogo/chatbridge/internal/models"
)

// mockHTTPClient records requests and answers with doFunc
type mockHTTPClient struct {
	mu       sync.Mutex
	requests []*fhttp.Request
	bodies   []string
	doFunc   func(req *fhttp.Request) (*fhttp.Response, error)
}

func (m *mockHTTPClient) Do(req *fhttp.Request) (*fhttp.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	body := ""
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		body = string(data)
	}
	m.bodies = append(m.bodies, body)
	m.mu.Unlock()
	return m.doFunc(req)
}

func jsonResponse(status int, body string) *fhttp.Response {
	return &fhttp.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(fhttp.Header),
	}
}

// fakeIdentity implements IdentityService
type fakeIdentity struct {
	signInTok   *IdentityToken
	signInErr   error
	signUpTok   *IdentityToken
	signUpErr   error
	lookupUser  *models.User
	lookupErr   error
	updateErr   error
	verifyErr   error
	refreshTok  *IdentityToken
	refreshErr  error
	refreshes   int
	displayName string
	verifySent  int
}

func (f *fakeIdentity) SignInWithPassword(context.Context, string, string) (*IdentityToken, error) {
	return f.signInTok, f.signInErr
}

func (f *fakeIdentity) SignUp(context.Context, string, string) (*IdentityToken, error) {
	return f.signUpTok, f.signUpErr
}

func (f *fakeIdentity) UpdateProfile(_ context.Context, _ string, name string) error {
	f.displayName = name
	return f.updateErr
}

func (f *fakeIdentity) SendVerificationEmail(context.Context, string) error {
	f.verifySent++
	return f.verifyErr
}

func (f *fakeIdentity) Lookup(context.Context, string) (*models.User, error) {
	return f.lookupUser, f.lookupErr
}

func (f *fakeIdentity) Refresh(context.Context, string) (*IdentityToken, error) {
	f.refreshes++
	return f.refreshTok, f.refreshErr
}

// fakeBackend implements AccountBackend
type fakeBackend struct {
	user     *models.User
	err      error
	gotToken string
	signUps  int
	signIns  int
}

func (f *fakeBackend) SignIn(_ context.Context, idToken string) (*models.User, error) {
	f.signIns++
	f.gotToken = idToken
	return f.user, f.err
}

func (f *fakeBackend) SignUp(_ context.Context, idToken string) (*models.User, error) {
	f.signUps++
	f.gotToken = idToken
	return f.user, f.err
}
