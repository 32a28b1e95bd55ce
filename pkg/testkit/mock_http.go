package testkit

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// ─── MockTransport ────────────────────────────────────────────────────────────

// MockTransport is an http.RoundTripper answering from registered stubs
// instead of the network. Every request is recorded.
//
//	mt := testkit.NewMockTransport()
//	mt.On(http.MethodPost, "https://payments.sandbox.braintree-api.com/").Reply(200, body)
//	client := pkghttp.NewClient(mt)
//	...
//	mt.AssertAllCalled(t)
type MockTransport struct {
	mu    sync.Mutex
	stubs []*Stub
	calls []Call
}

// Stub matches requests by method and URL prefix. Replies are consumed in
// order; the last one repeats.
type Stub struct {
	method  string
	prefix  string
	match   func(body []byte) bool
	replies []reply
	hits    int
}

type reply struct {
	status int
	body   []byte
	err    error
}

// Call is one recorded request.
type Call struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// On registers a stub for method (empty = any) and URL prefix.
func (mt *MockTransport) On(method, urlPrefix string) *Stub {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	s := &Stub{method: method, prefix: urlPrefix}
	mt.stubs = append(mt.stubs, s)
	return s
}

// When narrows the stub to request bodies containing substr.
func (s *Stub) When(substr string) *Stub {
	s.match = func(body []byte) bool { return bytes.Contains(body, []byte(substr)) }
	return s
}

// Reply queues a response.
func (s *Stub) Reply(status int, body string) *Stub {
	s.replies = append(s.replies, reply{status: status, body: []byte(body)})
	return s
}

// Fail queues a transport error.
func (s *Stub) Fail(err error) *Stub {
	s.replies = append(s.replies, reply{err: err})
	return s
}

// Hits is how many requests the stub answered.
func (s *Stub) Hits() int { return s.hits }

func (mt *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		req.Body.Close()
	}

	mt.mu.Lock()
	defer mt.mu.Unlock()

	mt.calls = append(mt.calls, Call{
		Method: req.Method,
		URL:    req.URL.String(),
		Header: req.Header.Clone(),
		Body:   body,
	})

	for _, s := range mt.stubs {
		if s.method != "" && s.method != req.Method {
			continue
		}
		if !strings.HasPrefix(req.URL.String(), s.prefix) {
			continue
		}
		if s.match != nil && !s.match(body) {
			continue
		}
		if len(s.replies) == 0 {
			continue
		}

		r := s.replies[min(s.hits, len(s.replies)-1)]
		s.hits++
		if r.err != nil {
			return nil, r.err
		}

		header := make(http.Header)
		header.Set("Content-Type", "application/json")
		return &http.Response{
			StatusCode: r.status,
			Status:     fmt.Sprintf("%d %s", r.status, http.StatusText(r.status)),
			Header:     header,
			Body:       io.NopCloser(bytes.NewReader(r.body)),
			Request:    req,
		}, nil
	}

	return nil, fmt.Errorf("testkit: unexpected outgoing HTTP call %s %s", req.Method, req.URL)
}

// Calls returns a copy of the recorded requests.
func (mt *MockTransport) Calls() []Call {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return append([]Call(nil), mt.calls...)
}

// AssertAllCalled fails t for every stub that never answered.
func (mt *MockTransport) AssertAllCalled(t *testing.T) {
	t.Helper()
	mt.mu.Lock()
	defer mt.mu.Unlock()

	for _, s := range mt.stubs {
		assert.NotZero(t, s.hits, "mock %s %s was never called", s.method, s.prefix)
	}
}
