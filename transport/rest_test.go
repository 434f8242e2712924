package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-vezgo/core"
)

func testConfig(baseURL string) core.Config {
	cfg := core.DefaultConfig()
	cfg.ClientID = "client-1"
	cfg.ClientSecret = "secret-1"
	cfg.BaseURL = baseURL + "/v1"
	cfg.Timeout = time.Second
	return cfg
}

func TestRESTTransportSendsJSONWithHeaders(t *testing.T) {
	var (
		gotPath   string
		gotQuery  url.Values
		gotHeader http.Header
		gotBody   map[string]any
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotQuery = r.URL.Query()
		gotHeader = r.Header.Clone()
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"acc-1"}`))
	}))
	defer server.Close()

	transport := NewRESTTransport(testConfig(server.URL), WithHTTPClient(server.Client()))
	transport.RequestID = func() string { return "req-1" }

	res, err := transport.Send(context.Background(), core.Request{
		Method: http.MethodPost,
		Path:   "/accounts/acc%2F1/sync",
		Query:  url.Values{"types": []string{"trade,deposit"}},
		Body:   map[string]any{"provider": "bitcoin"},
		Token:  "user-token",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.StatusCode != http.StatusOK || string(res.Body) != `{"id":"acc-1"}` {
		t.Fatalf("unexpected response %d %s", res.StatusCode, res.Body)
	}
	if gotPath != "/v1/accounts/acc%2F1/sync" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotQuery.Get("types") != "trade,deposit" {
		t.Fatalf("unexpected query %v", gotQuery)
	}
	if gotHeader.Get("Authorization") != "Bearer user-token" {
		t.Fatalf("unexpected authorization %q", gotHeader.Get("Authorization"))
	}
	if gotHeader.Get("Content-Type") != "application/json" || gotHeader.Get("Accept") != "application/json" {
		t.Fatalf("unexpected content headers %v", gotHeader)
	}
	if gotHeader.Get("User-Agent") != core.DefaultUserAgent {
		t.Fatalf("unexpected user agent %q", gotHeader.Get("User-Agent"))
	}
	if gotHeader.Get(headerRequestID) != "req-1" {
		t.Fatalf("unexpected request id %q", gotHeader.Get(headerRequestID))
	}
	if gotBody["provider"] != "bitcoin" {
		t.Fatalf("unexpected body %#v", gotBody)
	}
}

func TestRESTTransportOmitsAuthorizationWithoutToken(t *testing.T) {
	var authorization, contentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authorization = r.Header.Get("Authorization")
		contentType = r.Header.Get("Content-Type")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	transport := NewRESTTransport(testConfig(server.URL), WithHTTPClient(server.Client()))
	if _, err := transport.Send(context.Background(), core.Request{Path: "/providers"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if authorization != "" || contentType != "" {
		t.Fatalf("expected no authorization or content type, got %q %q", authorization, contentType)
	}
}

func TestRESTTransportMapsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Account not found"}`))
	}))
	defer server.Close()

	transport := NewRESTTransport(testConfig(server.URL), WithHTTPClient(server.Client()))
	_, err := transport.Send(context.Background(), core.Request{Path: "/accounts/missing"})
	if !core.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.Message != "Account not found" {
		t.Fatalf("expected remote message, got %v", err)
	}
}

func TestRESTTransportTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	cfg := testConfig(server.URL)
	cfg.Timeout = 50 * time.Millisecond
	transport := NewRESTTransport(cfg, WithHTTPClient(server.Client()))
	_, err := transport.Send(context.Background(), core.Request{Path: "/providers"})
	if !core.IsTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if core.StatusCode(err) != 0 {
		t.Fatalf("expected no status code on timeout")
	}
}

func TestRESTTransportNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := server.URL
	server.Close()

	transport := NewRESTTransport(testConfig(baseURL))
	_, err := transport.Send(context.Background(), core.Request{Path: "/providers"})
	if !core.IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestRESTTransportResponseLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("12345"))
	}))
	defer server.Close()

	transport := NewRESTTransport(testConfig(server.URL), WithHTTPClient(server.Client()))
	transport.MaxResponseBodyBytes = 4
	_, err := transport.Send(context.Background(), core.Request{Path: "/providers"})
	if !core.IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestRESTTransportNoContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	transport := NewRESTTransport(testConfig(server.URL), WithHTTPClient(server.Client()))
	res, err := transport.Send(context.Background(), core.Request{Method: http.MethodDelete, Path: "/accounts/acc-1"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.StatusCode != http.StatusNoContent || res.Body != nil {
		t.Fatalf("unexpected response %#v", res)
	}
}

type recordingPolicy struct {
	mu     sync.Mutex
	before []core.RateLimitKey
	after  []core.ResponseMeta
	block  error
}

func (p *recordingPolicy) BeforeCall(_ context.Context, key core.RateLimitKey) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.before = append(p.before, key)
	return p.block
}

func (p *recordingPolicy) AfterCall(_ context.Context, _ core.RateLimitKey, res core.ResponseMeta) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.after = append(p.after, res)
	return nil
}

func TestRESTTransportConsultsRateLimitPolicy(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.Header().Set("X-RateLimit-Remaining", "3")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	policy := &recordingPolicy{}
	transport := NewRESTTransport(testConfig(server.URL), WithHTTPClient(server.Client()), WithRateLimitPolicy(policy))
	key := core.RateLimitKey{Scope: "user:u1", Bucket: "accounts"}
	if _, err := transport.Send(context.Background(), core.Request{Path: "/accounts", RateLimitKey: key}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(policy.before) != 1 || policy.before[0] != key {
		t.Fatalf("expected before call with key, got %#v", policy.before)
	}
	if len(policy.after) != 1 || policy.after[0].Headers["X-Ratelimit-Remaining"] != "3" {
		t.Fatalf("expected after call with headers, got %#v", policy.after)
	}

	policy.block = core.NewRateLimitError("throttled", time.Second, nil)
	_, err := transport.Send(context.Background(), core.Request{Path: "/accounts", RateLimitKey: key})
	if !core.IsRateLimited(err) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if hits != 1 {
		t.Fatalf("expected blocked call to skip the network, got %d hits", hits)
	}
}

type closeTrackingClient struct {
	HTTPDoer
	closed int
}

func (c *closeTrackingClient) CloseIdleConnections() {
	c.closed++
}

func TestRESTTransportCloseReleasesIdleConnections(t *testing.T) {
	client := &closeTrackingClient{HTTPDoer: http.DefaultClient}
	transport := NewRESTTransport(testConfig("https://api.vezgo.test"), WithHTTPClient(client))
	if err := transport.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if client.closed != 1 {
		t.Fatalf("expected idle connections closed")
	}
}
