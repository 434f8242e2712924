package auth

import (
	"context"
	"sync"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-vezgo/core"
	"golang.org/x/sync/singleflight"
)

type ApplicationAuthenticatorConfig struct {
	ClientID     string
	ClientSecret string
	// Margin is how long before expiry a cached token is considered stale.
	Margin      time.Duration
	FallbackTTL time.Duration
	Now         func() time.Time
	Logger      core.Logger
}

// ApplicationAuthenticator owns the application credential of one client.
// Concurrent callers that find it stale share a single exchange.
type ApplicationAuthenticator struct {
	transport core.Transport
	config    ApplicationAuthenticatorConfig

	mu         sync.RWMutex
	credential core.Credential
	refresh    singleflight.Group
}

func NewApplicationAuthenticator(transport core.Transport, cfg ApplicationAuthenticatorConfig) *ApplicationAuthenticator {
	if cfg.Margin < 0 {
		cfg.Margin = 0
	}
	if cfg.FallbackTTL <= 0 {
		cfg.FallbackTTL = core.DefaultTokenFallbackTTL
	}
	if cfg.Now == nil {
		cfg.Now = defaultNow
	}
	if cfg.Logger == nil {
		cfg.Logger = glog.Nop()
	}
	return &ApplicationAuthenticator{transport: transport, config: cfg}
}

func (a *ApplicationAuthenticator) ApplicationToken(ctx context.Context) (core.Credential, error) {
	if cached := a.cached(); cached.ValidFor(a.config.Now(), a.config.Margin) {
		return cached, nil
	}
	// The exchange is shared, so one caller's cancellation must not fail the
	// others; the transport timeout still bounds it.
	shared := context.WithoutCancel(ctx)
	value, err, _ := a.refresh.Do("application", func() (any, error) {
		if cached := a.cached(); cached.ValidFor(a.config.Now(), a.config.Margin) {
			return cached, nil
		}
		issued, err := a.exchange(shared)
		if err != nil {
			return nil, err
		}
		a.mu.Lock()
		a.credential = issued
		a.mu.Unlock()
		return issued, nil
	})
	if err != nil {
		return core.Credential{}, err
	}
	return value.(core.Credential), nil
}

// Invalidate drops the cached credential so the next call re-authenticates.
func (a *ApplicationAuthenticator) Invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.credential = core.Credential{}
}

func (a *ApplicationAuthenticator) cached() core.Credential {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.credential
}

func (a *ApplicationAuthenticator) exchange(ctx context.Context) (core.Credential, error) {
	if a.transport == nil {
		return core.Credential{}, core.NewAuthenticationError("vezgo: application authenticator has no transport", nil)
	}
	token, expiresIn, err := exchangeToken(ctx, a.transport, exchangeRequest{
		clientID:     a.config.ClientID,
		clientSecret: a.config.ClientSecret,
		scope:        "app",
	})
	if err != nil {
		a.config.Logger.Warn("vezgo application authentication failed", "error", err.Error())
		return core.Credential{}, core.NewAuthenticationError("vezgo: application authentication failed", err)
	}
	now := a.config.Now()
	credential := core.Credential{
		Token:     token,
		ExpiresAt: tokenExpiry(token, expiresIn, a.config.FallbackTTL, now),
	}
	if !credential.ExpiresAt.After(now) {
		return core.Credential{}, core.NewAuthenticationError("vezgo: application token is already expired", nil)
	}
	a.config.Logger.Debug("vezgo application token issued", "expires_at", credential.ExpiresAt)
	return credential, nil
}

var _ core.ApplicationTokenSource = (*ApplicationAuthenticator)(nil)
