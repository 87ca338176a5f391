package api

import (
	"io"
	"strings"
	"sync"

	fhttp "github.com/bogdanfinn/fhttp"

	"github.com/diogo/chatbridge/internal/logging"
)

// MockResponseBody is a ReadCloser that simulates reading response data
type MockResponseBody struct {
	data   []byte
	pos    int
	closed bool
}

// NewMockResponseBody creates a new MockResponseBody with the given data
func NewMockResponseBody(data []byte) *MockResponseBody {
	return &MockResponseBody{data: data, pos: 0}
}

// Read implements the io.Reader interface
func (m *MockResponseBody) Read(p []byte) (n int, err error) {
	if m.pos >= len(m.data) {
		return 0, io.EOF
	}
	n = copy(p, m.data[m.pos:])
	m.pos += n
	return n, nil
}

// Close implements the io.Closer interface
func (m *MockResponseBody) Close() error {
	m.closed = true
	return nil
}

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
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		m.bodies = append(m.bodies, string(data))
	} else {
		m.bodies = append(m.bodies, "")
	}
	m.mu.Unlock()

	return m.doFunc(req)
}

func (m *mockHTTPClient) lastRequest() (*fhttp.Request, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.requests)
	return m.requests[n-1], m.bodies[n-1]
}

// respondWith returns a doFunc answering every request with the given status and body
func respondWith(status int, body string, headers ...string) func(*fhttp.Request) (*fhttp.Response, error) {
	return func(*fhttp.Request) (*fhttp.Response, error) {
		h := make(fhttp.Header)
		for i := 0; i+1 < len(headers); i += 2 {
			h.Set(headers[i], headers[i+1])
		}
		return &fhttp.Response{
			StatusCode: status,
			Body:       NewMockResponseBody([]byte(body)),
			Header:     h,
		}, nil
	}
}

func failWith(err error) func(*fhttp.Request) (*fhttp.Response, error) {
	return func(*fhttp.Request) (*fhttp.Response, error) {
		return nil, err
	}
}

// newTestClient creates a client wired to a mock HTTP client
func newTestClient(doFunc func(*fhttp.Request) (*fhttp.Response, error)) (*Client, *mockHTTPClient) {
	mock := &mockHTTPClient{doFunc: doFunc}
	client, err := NewClient(
		WithBaseURL("http://backend.test/"),
		WithHTTPClient(mock),
		WithLogger(logging.Discard()),
	)
	if err != nil {
		panic(err)
	}
	return client, mock
}

func header(req *fhttp.Request, key string) string {
	return strings.TrimSpace(req.Header.Get(key))
}
