package command

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	gocmd "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-vezgo/core"
)

type stubAccountService struct {
	addFn    func(ctx context.Context, userID string, req core.AddAccountRequest) (core.Record, error)
	syncFn   func(ctx context.Context, userID string, accountID string) (core.Record, error)
	removeFn func(ctx context.Context, userID string, accountID string, opts ...core.RemoveOption) error
}

func (s stubAccountService) AddAccount(ctx context.Context, userID string, req core.AddAccountRequest) (core.Record, error) {
	return s.addFn(ctx, userID, req)
}

func (s stubAccountService) SyncAccount(ctx context.Context, userID string, accountID string) (core.Record, error) {
	return s.syncFn(ctx, userID, accountID)
}

func (s stubAccountService) RemoveAccount(ctx context.Context, userID string, accountID string, opts ...core.RemoveOption) error {
	return s.removeFn(ctx, userID, accountID, opts...)
}

func TestAddAccountCommand_ExecuteDelegatesAndStoresResult(t *testing.T) {
	called := false
	svc := stubAccountService{
		addFn: func(_ context.Context, userID string, req core.AddAccountRequest) (core.Record, error) {
			called = true
			if userID != "u1" || req.Provider != "coinbase" {
				t.Fatalf("unexpected add payload: %q %#v", userID, req)
			}
			return core.Record{"id": "acc-1"}, nil
		},
	}

	cmd := NewAddAccountCommand(svc)
	collector := gocmd.NewResult[core.Record]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := cmd.Execute(ctx, AddAccountMessage{
		UserID: "u1",
		Request: core.AddAccountRequest{
			Provider:    "coinbase",
			Credentials: map[string]any{"apiKey": "k"},
		},
	})
	if err != nil {
		t.Fatalf("execute add: %v", err)
	}
	if !called {
		t.Fatalf("expected add invocation")
	}
	result, ok := collector.Load()
	if !ok || result.ID("") != "acc-1" {
		t.Fatalf("unexpected stored result: %#v", result)
	}
}

func TestAddAccountCommand_InvalidRequestSkipsService(t *testing.T) {
	svc := stubAccountService{
		addFn: func(context.Context, string, core.AddAccountRequest) (core.Record, error) {
			t.Fatalf("service must not be called for invalid input")
			return nil, nil
		},
	}
	err := NewAddAccountCommand(svc).Execute(context.Background(), AddAccountMessage{
		UserID:  "u1",
		Request: core.AddAccountRequest{Provider: "coinbase"},
	})
	if !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSyncAccountCommand_Delegates(t *testing.T) {
	svc := stubAccountService{
		syncFn: func(_ context.Context, userID string, accountID string) (core.Record, error) {
			if userID != "u1" || accountID != "acc-1" {
				t.Fatalf("unexpected sync payload: %q %q", userID, accountID)
			}
			return core.Record{"id": "acc-1", "status": "syncing"}, nil
		},
	}
	collector := gocmd.NewResult[core.Record]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	if err := NewSyncAccountCommand(svc).Execute(ctx, SyncAccountMessage{UserID: "u1", AccountID: "acc-1"}); err != nil {
		t.Fatalf("execute sync: %v", err)
	}
	result, _ := collector.Load()
	if result.String("status") != "syncing" {
		t.Fatalf("unexpected sync result: %#v", result)
	}
}

func TestRemoveAccountCommand_PassesRetryOption(t *testing.T) {
	var gotOpts int
	svc := stubAccountService{
		removeFn: func(_ context.Context, userID string, accountID string, opts ...core.RemoveOption) error {
			gotOpts = len(opts)
			return nil
		},
	}
	cmd := NewRemoveAccountCommand(svc)
	if err := cmd.Execute(context.Background(), RemoveAccountMessage{UserID: "u1", AccountID: "acc-1"}); err != nil {
		t.Fatalf("execute remove: %v", err)
	}
	if gotOpts != 0 {
		t.Fatalf("expected no retry option by default, got %d", gotOpts)
	}
	if err := cmd.Execute(context.Background(), RemoveAccountMessage{UserID: "u1", AccountID: "acc-1", Retries: 2}); err != nil {
		t.Fatalf("execute remove with retries: %v", err)
	}
	if gotOpts != 1 {
		t.Fatalf("expected retry option, got %d", gotOpts)
	}
}

func TestMessages_ValidateReturnsRichError(t *testing.T) {
	cases := map[string]error{
		"sync without user":      SyncAccountMessage{AccountID: "acc-1"}.Validate(),
		"sync without account":   SyncAccountMessage{UserID: "u1"}.Validate(),
		"remove negative retry":  RemoveAccountMessage{UserID: "u1", AccountID: "acc-1", Retries: -1}.Validate(),
		"add without user":       AddAccountMessage{}.Validate(),
		"add without provider":   AddAccountMessage{UserID: "u1"}.Validate(),
		"remove without account": RemoveAccountMessage{UserID: "u1"}.Validate(),
	}
	for name, err := range cases {
		var rich *goerrors.Error
		if !goerrors.As(err, &rich) {
			t.Fatalf("%s: expected go-errors envelope, got %T", name, err)
		}
		if rich.TextCode != core.ErrorValidation {
			t.Fatalf("%s: expected %q text code, got %q", name, core.ErrorValidation, rich.TextCode)
		}
	}
}

func TestCommands_NilServiceReturnsRichError(t *testing.T) {
	var cmd *RemoveAccountCommand
	err := cmd.Execute(context.Background(), RemoveAccountMessage{UserID: "u1", AccountID: "acc-1"})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
}

type recordingTransport struct {
	mu       sync.Mutex
	requests []core.Request
	handler  func(core.Request) (core.Response, error)
}

func (t *recordingTransport) Send(_ context.Context, req core.Request) (core.Response, error) {
	t.mu.Lock()
	t.requests = append(t.requests, req)
	t.mu.Unlock()
	return t.handler(req)
}

func (t *recordingTransport) Close() error { return nil }

type staticTokens struct{}

func (staticTokens) ApplicationToken(context.Context) (core.Credential, error) {
	return core.Credential{Token: "app-token", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (staticTokens) IssueUserToken(_ context.Context, userID string, _ time.Duration) (core.Credential, error) {
	return core.Credential{Token: userID + "-token", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func TestClientAccountService_RunsThroughUserSession(t *testing.T) {
	transport := &recordingTransport{handler: func(req core.Request) (core.Response, error) {
		switch {
		case req.Method == http.MethodPost && req.Path == "/accounts/acc-1/sync":
			return core.Response{StatusCode: http.StatusOK, Body: []byte(`{"id":"acc-1","status":"syncing"}`)}, nil
		case req.Method == http.MethodDelete && req.Path == "/accounts/acc-1":
			return core.Response{StatusCode: http.StatusNoContent}, nil
		}
		return core.Response{}, core.MapHTTPError(http.StatusNotFound, nil, nil)
	}}
	client, err := core.NewClient(core.Config{ClientID: "client-1", ClientSecret: "secret-1"},
		core.WithTransport(transport),
		core.WithApplicationTokenSource(staticTokens{}),
		core.WithUserTokenIssuer(staticTokens{}),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	service := NewClientAccountService(client)
	record, err := service.SyncAccount(context.Background(), "u1", "acc-1")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if record.String("status") != "syncing" {
		t.Fatalf("unexpected sync record: %#v", record)
	}
	if err := NewRemoveAccountCommand(service).Execute(context.Background(), RemoveAccountMessage{UserID: "u1", AccountID: "acc-1"}); err != nil {
		t.Fatalf("remove: %v", err)
	}

	transport.mu.Lock()
	defer transport.mu.Unlock()
	if len(transport.requests) != 2 {
		t.Fatalf("expected two requests, got %d", len(transport.requests))
	}
	for _, req := range transport.requests {
		if req.Token != "u1-token" {
			t.Fatalf("expected user token on %s %s, got %q", req.Method, req.Path, req.Token)
		}
	}
}

func TestClientAccountService_RejectsEmptyUser(t *testing.T) {
	transport := &recordingTransport{handler: func(core.Request) (core.Response, error) {
		t.Fatalf("no request expected")
		return core.Response{}, nil
	}}
	client, err := core.NewClient(core.Config{ClientID: "client-1", ClientSecret: "secret-1"},
		core.WithTransport(transport),
		core.WithApplicationTokenSource(staticTokens{}),
		core.WithUserTokenIssuer(staticTokens{}),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = NewClientAccountService(client).SyncAccount(context.Background(), " ", "acc-1")
	if !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
