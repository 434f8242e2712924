package core

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// Client owns the resolved configuration, the transport and the application
// credential. It is safe for concurrent use.
type Client struct {
	config      Config
	logger      Logger
	metrics     MetricsRecorder
	errorMapper ErrorMapper
	transport   Transport
	appTokens   ApplicationTokenSource
	userTokens  UserTokenIssuer
	now         func() time.Time

	providers    *ResourceClient
	accounts     *AccountsClient
	transactions *ResourceClient
	history      *ResourceClient
	orders       *ResourceClient

	closeOnce sync.Once
	closeErr  error
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	builder := defaultClientBuilder()
	for _, opt := range opts {
		if opt != nil {
			opt(&builder)
		}
	}
	builder.loggerProvider, builder.logger = resolveLogger(builder.loggerProvider, builder.logger)
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.now == nil {
		builder.now = func() time.Time { return time.Now().UTC() }
	}

	defaults := DefaultConfig()
	loaded := defaults
	if builder.configProvider != nil {
		var err error
		loaded, err = builder.configProvider.Load(context.Background(), defaults)
		if err != nil {
			return nil, err
		}
	}
	resolved := cfg
	if builder.optionsResolver != nil {
		var err error
		resolved, err = builder.optionsResolver.Resolve(defaults, loaded, cfg)
		if err != nil {
			return nil, err
		}
	}
	resolved = resolved.normalized()
	if err := resolved.Validate(); err != nil {
		return nil, err
	}

	deps := FactoryDependencies{
		Logger:          builder.logger,
		RateLimitPolicy: builder.rateLimitPolicy,
		Now:             builder.now,
	}
	transport := builder.transport
	if transport == nil {
		if builder.transportFactory == nil {
			return nil, NewValidationError("transport", "core: transport or transport factory is required")
		}
		var err error
		transport, err = builder.transportFactory(resolved, deps)
		if err != nil {
			return nil, err
		}
	}

	appTokens, userTokens := builder.appTokens, builder.userTokens
	if appTokens == nil || userTokens == nil {
		if builder.authFactory == nil {
			return nil, NewValidationError("auth", "core: token sources or an auth factory are required")
		}
		builtApp, builtUser, err := builder.authFactory(resolved, transport, deps)
		if err != nil {
			return nil, err
		}
		if appTokens == nil {
			appTokens = builtApp
		}
		if userTokens == nil {
			userTokens = builtUser
		}
	}

	client := &Client{
		config:      resolved,
		logger:      builder.logger,
		metrics:     builder.metricsRecorder,
		errorMapper: builder.errorMapper,
		transport:   transport,
		appTokens:   appTokens,
		userTokens:  userTokens,
		now:         builder.now,
	}
	client.providers = newResourceClient(ProvidersDescriptor, client, nil)
	client.accounts = &AccountsClient{ResourceClient: newResourceClient(AccountsDescriptor, client, nil)}
	client.transactions = newResourceClient(TransactionsDescriptor, client, nil)
	client.history = newResourceClient(HistoryDescriptor, client, nil)
	client.orders = newResourceClient(OrdersDescriptor, client, nil)
	return client, nil
}

// resolveLogger prefers an explicit logger, then the provider's "vezgo"
// logger, then the glog default.
func resolveLogger(provider LoggerProvider, logger Logger) (LoggerProvider, Logger) {
	resolvedProvider, resolved := glog.Resolve("vezgo", provider, logger)
	switch {
	case logger != nil:
		resolved = logger
	case provider != nil:
		if named := provider.GetLogger("vezgo"); named != nil {
			resolved = named
		}
	}
	return resolvedProvider, glog.Ensure(resolved)
}

func (c *Client) Config() Config {
	return c.config
}

func (c *Client) ConnectURL() string {
	return c.config.ConnectURL
}

func (c *Client) Providers() *ResourceClient {
	return c.providers
}

// Accounts, Transactions, History and Orders on the client itself are bound to
// the application scope and fail with a session required error.
func (c *Client) Accounts() *AccountsClient {
	return c.accounts
}

func (c *Client) Transactions() *ResourceClient {
	return c.transactions
}

func (c *Client) History() *ResourceClient {
	return c.history
}

func (c *Client) Orders() *ResourceClient {
	return c.orders
}

// ApplicationToken returns the cached application token, refreshing it first
// when it is absent or about to expire.
func (c *Client) ApplicationToken(ctx context.Context) (string, error) {
	credential, err := c.applicationCredential(ctx)
	if err != nil {
		return "", c.mapError(err)
	}
	return credential.Token, nil
}

// Team returns the team record for the configured client id.
func (c *Client) Team(ctx context.Context) (Record, error) {
	startedAt := c.now()
	record, err := c.team(ctx)
	err = c.mapError(err)
	c.observeOperation(ctx, startedAt, "team_get", err, map[string]any{
		"resource": "team",
		"scope":    AuthApplication.String(),
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (c *Client) team(ctx context.Context) (Record, error) {
	credential, err := c.applicationCredential(ctx)
	if err != nil {
		return nil, err
	}
	res, err := c.send(ctx, AuthApplication, Request{
		Method:       http.MethodGet,
		Path:         "/teams/info",
		Query:        url.Values{"client_id": []string{c.config.ClientID}},
		Token:        credential.Token,
		RateLimitKey: RateLimitKey{Scope: applicationScope, Bucket: "team"},
	})
	if err != nil {
		return nil, err
	}
	return decodeRecord(res.Body)
}

// Login opens a user session. No network call happens until the session
// needs its token.
func (c *Client) Login(userID string) (*Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, NewValidationError("user_id", "Please provide a valid Vezgo user id.")
	}
	return newSession(c, userID), nil
}

// Close releases pooled connections. It is safe to call more than once.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		if c.transport != nil {
			c.closeErr = c.transport.Close()
		}
	})
	return c.closeErr
}

func (c *Client) applicationCredential(ctx context.Context) (Credential, error) {
	if c.appTokens == nil {
		return Credential{}, NewAuthenticationError("vezgo: application token source is not configured", nil)
	}
	credential, err := c.appTokens.ApplicationToken(ctx)
	if err != nil {
		if IsServiceError(err) {
			return Credential{}, err
		}
		return Credential{}, NewAuthenticationError("vezgo: application authentication failed", err)
	}
	return credential, nil
}

func (c *Client) send(ctx context.Context, scope AuthScope, req Request) (Response, error) {
	res, err := c.transport.Send(ctx, req)
	if err != nil {
		if scope == AuthApplication && IsAuthentication(err) {
			if invalidator, ok := c.appTokens.(interface{ Invalidate() }); ok {
				invalidator.Invalidate()
			}
		}
		return Response{}, err
	}
	return res, nil
}

func (c *Client) mapError(err error) error {
	if err == nil {
		return nil
	}
	if c.errorMapper == nil {
		return err
	}
	if mapped := c.errorMapper(err); mapped != nil {
		return mapped
	}
	return err
}
