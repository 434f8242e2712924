package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-vezgo/core"
	"golang.org/x/sync/singleflight"
)

type UserTokenIssuerConfig struct {
	ClientID     string
	ClientSecret string
	FallbackTTL  time.Duration
	Now          func() time.Time
	Logger       core.Logger
}

// UserTokenIssuer exchanges the application token for user scoped tokens.
// Issued tokens are memoized per user while they satisfy the requested
// lifetime; concurrent requests for the same user share one exchange whatever
// lifetime each of them asked for.
type UserTokenIssuer struct {
	transport   core.Transport
	application core.ApplicationTokenSource
	config      UserTokenIssuerConfig

	mu       sync.Mutex
	memo     map[string]core.Credential
	exchange singleflight.Group
}

func NewUserTokenIssuer(transport core.Transport, application core.ApplicationTokenSource, cfg UserTokenIssuerConfig) *UserTokenIssuer {
	if cfg.FallbackTTL <= 0 {
		cfg.FallbackTTL = core.DefaultTokenFallbackTTL
	}
	if cfg.Now == nil {
		cfg.Now = defaultNow
	}
	if cfg.Logger == nil {
		cfg.Logger = glog.Nop()
	}
	return &UserTokenIssuer{
		transport:   transport,
		application: application,
		config:      cfg,
		memo:        map[string]core.Credential{},
	}
}

func (i *UserTokenIssuer) IssueUserToken(ctx context.Context, userID string, minLifetime time.Duration) (core.Credential, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return core.Credential{}, core.NewValidationError("user_id", "Please provide a valid Vezgo user id.")
	}
	if memo, ok := i.lookup(userID, minLifetime); ok {
		return memo, nil
	}
	shared := context.WithoutCancel(ctx)
	for {
		value, err, _ := i.exchange.Do(userID, func() (any, error) {
			if memo, ok := i.lookup(userID, minLifetime); ok {
				return issueResult{credential: memo}, nil
			}
			issued, err := i.issue(shared, userID)
			if err != nil {
				return nil, err
			}
			i.store(userID, issued)
			return issueResult{credential: issued, fresh: true}, nil
		})
		if err != nil {
			return core.Credential{}, err
		}
		result := value.(issueResult)
		// A memoized token served to a caller with a shorter lifetime does not
		// count; fresh tokens are the best the server will issue.
		if result.fresh || result.credential.ValidFor(i.config.Now(), minLifetime) {
			return result.credential, nil
		}
	}
}

type issueResult struct {
	credential core.Credential
	fresh      bool
}

// Forget drops the memoized token for userID.
func (i *UserTokenIssuer) Forget(userID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.memo, strings.TrimSpace(userID))
}

func (i *UserTokenIssuer) issue(ctx context.Context, userID string) (core.Credential, error) {
	if i.transport == nil || i.application == nil {
		return core.Credential{}, core.NewAuthenticationError("vezgo: user token issuer is not configured", nil)
	}
	app, err := i.application.ApplicationToken(ctx)
	if err != nil {
		if core.IsServiceError(err) {
			return core.Credential{}, err
		}
		return core.Credential{}, core.NewAuthenticationError("vezgo: application authentication failed", err)
	}
	token, expiresIn, err := exchangeToken(ctx, i.transport, exchangeRequest{
		clientID:     i.config.ClientID,
		clientSecret: i.config.ClientSecret,
		bearer:       app.Token,
		headers:      map[string]string{headerLoginName: userID},
		scope:        "user:" + userID,
	})
	if err != nil {
		if core.IsAuthentication(err) {
			if invalidator, ok := i.application.(interface{ Invalidate() }); ok {
				invalidator.Invalidate()
			}
		}
		i.config.Logger.Warn("vezgo user token exchange failed", "user_id", userID, "error", err.Error())
		return core.Credential{}, core.NewAuthenticationError("vezgo: user token exchange failed", err)
	}
	now := i.config.Now()
	credential := core.Credential{
		Token:     token,
		ExpiresAt: tokenExpiry(token, expiresIn, i.config.FallbackTTL, now),
	}
	if !credential.ExpiresAt.After(now) {
		return core.Credential{}, core.NewAuthenticationError("vezgo: user token is already expired", nil)
	}
	i.config.Logger.Debug("vezgo user token issued", "user_id", userID, "expires_at", credential.ExpiresAt)
	return credential, nil
}

func (i *UserTokenIssuer) lookup(userID string, minLifetime time.Duration) (core.Credential, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	memo, ok := i.memo[userID]
	if !ok || !memo.ValidFor(i.config.Now(), minLifetime) {
		return core.Credential{}, false
	}
	return memo, true
}

func (i *UserTokenIssuer) store(userID string, credential core.Credential) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if current, ok := i.memo[userID]; ok && current.ExpiresAt.After(credential.ExpiresAt) {
		return
	}
	i.memo[userID] = credential
}

var _ core.UserTokenIssuer = (*UserTokenIssuer)(nil)
