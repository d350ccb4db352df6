package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock upstream endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockUpstream is a configurable mock upstream standing in for the slow or
// expensive service the request-cache middleware fronts. It can be driven
// either as a real HTTP server (URL/Close, for client-facing tests) or
// wrapped directly as an http.Handler (Handler, for middleware tests that
// exercise net/http's ResponseWriter chain without an extra network hop).
type MockUpstream struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	RequestCount int
}

// NewMockUpstream creates a new mock upstream server.
func NewMockUpstream() *MockUpstream {
	mock := &MockUpstream{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}
	mock.server = httptest.NewServer(mock.Handler())
	return mock
}

// Handler returns the mock's dispatch logic as an http.HandlerFunc, so a
// caller can wrap it with middleware directly instead of going through the
// mock's own server.
func (m *MockUpstream) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.RequestCount++
		m.mu.Unlock()

		m.mu.RLock()
		handler, exists := m.handlers[r.URL.Path]
		m.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}
		m.defaultHandler(w, r)
	}
}

// URL returns the mock server's base URL.
func (m *MockUpstream) URL() string { return m.server.URL }

// Close shuts down the mock server.
func (m *MockUpstream) Close() { m.server.Close() }

// Reset clears the request counter.
func (m *MockUpstream) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
}

// SetHandler installs a custom handler for path.
func (m *MockUpstream) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse installs a canned MockResponse for path.
func (m *MockUpstream) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of requests the upstream has served.
func (m *MockUpstream) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

func (m *MockUpstream) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
