// Package testutil provides testing utilities for the guild status pipeline.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"
)

// MockRaiderIO is a configurable mock Raider.IO server. Responses are keyed
// by the guild name query parameter; unknown guilds get a default healthy
// profile echoing the requested name and realm.
type MockRaiderIO struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	delay    time.Duration

	requestCount int64
	inFlight     int64
	maxInFlight  int64
}

// NewMockRaiderIO creates a started mock server.
func NewMockRaiderIO() *MockRaiderIO {
	mock := &MockRaiderIO{
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&mock.requestCount, 1)

		// Track peak concurrency for limiter assertions.
		current := atomic.AddInt64(&mock.inFlight, 1)
		for {
			peak := atomic.LoadInt64(&mock.maxInFlight)
			if current <= peak || atomic.CompareAndSwapInt64(&mock.maxInFlight, peak, current) {
				break
			}
		}
		defer atomic.AddInt64(&mock.inFlight, -1)

		mock.mu.RLock()
		delay := mock.delay
		handler, custom := mock.handlers[r.URL.Query().Get("name")]
		mock.mu.RUnlock()

		if delay > 0 {
			time.Sleep(delay)
		}

		if custom {
			handler(w, r)
			return
		}
		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockRaiderIO) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockRaiderIO) Close() {
	m.server.Close()
}

// SetDelay makes every response wait before answering.
func (m *MockRaiderIO) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// SetGuildHandler installs a custom handler for one guild name.
func (m *MockRaiderIO) SetGuildHandler(name string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[name] = handler
}

// SetGuildStatus makes one guild always answer with the given status code.
func (m *MockRaiderIO) SetGuildStatus(name string, status int) {
	m.SetGuildHandler(name, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
}

// RequestCount returns the number of requests served so far.
func (m *MockRaiderIO) RequestCount() int64 {
	return atomic.LoadInt64(&m.requestCount)
}

// MaxInFlight returns the peak number of simultaneously served requests.
func (m *MockRaiderIO) MaxInFlight() int64 {
	return atomic.LoadInt64(&m.maxInFlight)
}

// Reset clears counters and custom handlers.
func (m *MockRaiderIO) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = make(map[string]http.HandlerFunc)
	m.delay = 0
	atomic.StoreInt64(&m.requestCount, 0)
	atomic.StoreInt64(&m.inFlight, 0)
	atomic.StoreInt64(&m.maxInFlight, 0)
}

// defaultHandler answers with a healthy profile for the requested guild.
func (m *MockRaiderIO) defaultHandler(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	realm := r.URL.Query().Get("realm")

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, GuildProfileBody("manaforge-omega", name, realm, "5/8 M", 123))
}

// GuildProfileBody builds a guild profile JSON document the way the API
// shapes it.
func GuildProfileBody(raid, name, realm, progress string, worldRank int) string {
	return fmt.Sprintf(`{
	"name": %q,
	"realm": %q,
	"raid_progression": {%q: {"summary": %q}},
	"raid_rankings": {%q: {"mythic": {"world": %d}}}
}`, name, realm, raid, progress, raid, worldRank)
}
