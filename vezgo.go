package vezgo

import (
	"github.com/goliatone/go-vezgo/auth"
	"github.com/goliatone/go-vezgo/core"
	"github.com/goliatone/go-vezgo/ratelimit"
	"github.com/goliatone/go-vezgo/transport"
)

type Config = core.Config

type Option = core.Option

type Client = core.Client
type Session = core.Session
type ResourceClient = core.ResourceClient
type AccountsClient = core.AccountsClient

type Record = core.Record
type Params = core.Params
type Credential = core.Credential
type Descriptor = core.Descriptor

type AddAccountRequest = core.AddAccountRequest
type RemoveOption = core.RemoveOption

type ErrorKind = core.ErrorKind

// NoMargin sets a token margin or minimum lifetime to an explicit zero.
const NoMargin = core.NoMargin

var (
	WithLogger                 = core.WithLogger
	WithLoggerProvider         = core.WithLoggerProvider
	WithMetricsRecorder        = core.WithMetricsRecorder
	WithErrorMapper            = core.WithErrorMapper
	WithConfigProvider         = core.WithConfigProvider
	WithOptionsResolver        = core.WithOptionsResolver
	WithTransport              = core.WithTransport
	WithTransportFactory       = core.WithTransportFactory
	WithAuthFactory            = core.WithAuthFactory
	WithApplicationTokenSource = core.WithApplicationTokenSource
	WithUserTokenIssuer        = core.WithUserTokenIssuer
	WithRateLimitPolicy        = core.WithRateLimitPolicy
	WithClock                  = core.WithClock

	WithRemoveRetries = core.WithRemoveRetries
	WithRemoveBackoff = core.WithRemoveBackoff
	Bool              = core.Bool

	IsValidation      = core.IsValidation
	IsAuthentication  = core.IsAuthentication
	IsSessionRequired = core.IsSessionRequired
	IsNotFound        = core.IsNotFound
	IsRateLimited     = core.IsRateLimited
	IsAPIError        = core.IsAPIError
	IsTimeout         = core.IsTimeout
	IsTransport       = core.IsTransport
	StatusCode        = core.StatusCode
	RetryAfter        = core.RetryAfter
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// New builds a client wired with the REST transport, the token exchange
// authenticator and an in-memory rate limit policy. Options passed by the
// caller override any of these.
func New(cfg Config, opts ...Option) (*Client, error) {
	defaults := []Option{
		core.WithTransportFactory(transport.Factory()),
		core.WithAuthFactory(auth.Factory()),
		core.WithRateLimitPolicy(ratelimit.NewAdaptivePolicy(ratelimit.NewMemoryStateStore())),
	}
	return core.NewClient(cfg, append(defaults, opts...)...)
}

// FromEnv builds a client from VEZGO_* environment variables. Values in cfg
// take precedence over the environment.
func FromEnv(cfg Config, opts ...Option) (*Client, error) {
	provider := core.WithConfigProvider(core.NewCfgxConfigProvider(core.NewEnvConfigLoader()))
	return New(cfg, append([]Option{provider}, opts...)...)
}
