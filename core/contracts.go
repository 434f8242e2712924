package core

import (
	"context"
	"net/url"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// Credential is a bearer token plus the instant it stops being usable.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// ValidFor reports whether the credential remains usable for at least margin
// after now.
func (c Credential) ValidFor(now time.Time, margin time.Duration) bool {
	if c.Token == "" || c.ExpiresAt.IsZero() {
		return false
	}
	return c.ExpiresAt.After(now.Add(margin))
}

type RateLimitKey struct {
	Scope  string
	Bucket string
}

type Request struct {
	Method       string
	Path         string
	Query        url.Values
	Body         any
	Token        string
	Headers      map[string]string
	RateLimitKey RateLimitKey
}

type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// Transport executes a request against the remote API. Implementations
// return errors already classified by MapHTTPError or MapTransportError.
type Transport interface {
	Send(ctx context.Context, req Request) (Response, error)
	Close() error
}

type ApplicationTokenSource interface {
	ApplicationToken(ctx context.Context) (Credential, error)
}

// UserTokenIssuer exchanges the application credential plus a user id for a
// user scoped token valid for at least minLifetime.
type UserTokenIssuer interface {
	IssueUserToken(ctx context.Context, userID string, minLifetime time.Duration) (Credential, error)
}

type RateLimitPolicy interface {
	BeforeCall(ctx context.Context, key RateLimitKey) error
	AfterCall(ctx context.Context, key RateLimitKey, res ResponseMeta) error
}

type ResponseMeta struct {
	StatusCode int
	Headers    map[string]string
	RetryAfter *time.Duration
	Metadata   map[string]any
}

// TransportFactory builds the transport once the configuration is resolved.
type TransportFactory func(cfg Config, deps FactoryDependencies) (Transport, error)

// AuthFactory builds the token sources on top of the resolved transport.
type AuthFactory func(cfg Config, transport Transport, deps FactoryDependencies) (ApplicationTokenSource, UserTokenIssuer, error)

type FactoryDependencies struct {
	Logger          Logger
	RateLimitPolicy RateLimitPolicy
	Now             func() time.Time
}
