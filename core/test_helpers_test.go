package core

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type logEntry struct {
	msg  string
	args []any
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) record(msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{msg: msg, args: append([]any(nil), args...)})
}

func (l *recordingLogger) Trace(msg string, args ...any) { l.record(msg, args) }
func (l *recordingLogger) Debug(msg string, args ...any) { l.record(msg, args) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.record(msg, args) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.record(msg, args) }
func (l *recordingLogger) Error(msg string, args ...any) { l.record(msg, args) }
func (l *recordingLogger) Fatal(msg string, args ...any) { l.record(msg, args) }
func (l *recordingLogger) WithContext(context.Context) Logger {
	return l
}

func (l *recordingLogger) last() (logEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return logEntry{}, false
	}
	return l.entries[len(l.entries)-1], true
}

func (l *recordingLogger) has(msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, entry := range l.entries {
		if entry.msg == msg {
			return true
		}
	}
	return false
}

type fakeTransport struct {
	mu       sync.Mutex
	requests []Request
	handler  func(req Request) (Response, error)
	closed   int
}

func (t *fakeTransport) Send(_ context.Context, req Request) (Response, error) {
	t.mu.Lock()
	t.requests = append(t.requests, req)
	handler := t.handler
	t.mu.Unlock()
	if handler == nil {
		return Response{StatusCode: http.StatusOK, Body: []byte(`[]`)}, nil
	}
	return handler(req)
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed++
	return nil
}

func (t *fakeTransport) calls() []Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Request(nil), t.requests...)
}

type fakeAppTokens struct {
	calls       atomic.Int64
	invalidated atomic.Int64
	err         error
	expiresAt   time.Time
}

func (f *fakeAppTokens) ApplicationToken(context.Context) (Credential, error) {
	f.calls.Add(1)
	if f.err != nil {
		return Credential{}, f.err
	}
	expiresAt := f.expiresAt
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(time.Hour)
	}
	return Credential{Token: "app-token", ExpiresAt: expiresAt}, nil
}

func (f *fakeAppTokens) Invalidate() {
	f.invalidated.Add(1)
}

type fakeIssuer struct {
	mu     sync.Mutex
	calls  int
	ttl    time.Duration
	now    func() time.Time
	err    error
	delay  time.Duration
	issued []Credential

	lifetimes []time.Duration
}

func (f *fakeIssuer) IssueUserToken(_ context.Context, userID string, minLifetime time.Duration) (Credential, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lifetimes = append(f.lifetimes, minLifetime)
	if f.err != nil {
		return Credential{}, f.err
	}
	ttl := f.ttl
	if ttl == 0 {
		ttl = time.Hour
	}
	now := time.Now()
	if f.now != nil {
		now = f.now()
	}
	credential := Credential{
		Token:     userID + "-token-" + strconv.Itoa(f.calls),
		ExpiresAt: now.Add(ttl),
	}
	f.issued = append(f.issued, credential)
	return credential, nil
}

func (f *fakeIssuer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testHarness struct {
	client    *Client
	transport *fakeTransport
	appTokens *fakeAppTokens
	issuer    *fakeIssuer
	clock     *fakeClock
}

func newTestHarness(t *testing.T, opts ...Option) *testHarness {
	t.Helper()
	h := &testHarness{
		transport: &fakeTransport{},
		appTokens: &fakeAppTokens{},
		clock:     newFakeClock(),
	}
	h.issuer = &fakeIssuer{now: h.clock.Now}
	base := []Option{
		WithLogger(stubLogger{}),
		WithTransport(h.transport),
		WithApplicationTokenSource(h.appTokens),
		WithUserTokenIssuer(h.issuer),
		WithClock(h.clock.Now),
	}
	client, err := NewClient(Config{ClientID: "client-1", ClientSecret: "secret-1"}, append(base, opts...)...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	h.client = client
	return h
}

func jsonResponse(t *testing.T, status int, payload any) Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return Response{StatusCode: status, Body: body}
}
