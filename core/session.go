package core

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const applicationScope = "app"

// Session is a user scoped view of the client. Each Session owns its token;
// concurrent refreshes of the same Session share one exchange, issued for the
// largest lifetime any of them asked for.
type Session struct {
	client *Client
	userID string

	mu         sync.Mutex
	credential Credential
	wanted     time.Duration
	refresh    singleflight.Group

	accounts     *AccountsClient
	transactions *ResourceClient
	history      *ResourceClient
	orders       *ResourceClient
}

func newSession(client *Client, userID string) *Session {
	session := &Session{client: client, userID: userID}
	session.accounts = &AccountsClient{ResourceClient: newResourceClient(AccountsDescriptor, client, session)}
	session.transactions = newResourceClient(TransactionsDescriptor, client, session)
	session.history = newResourceClient(HistoryDescriptor, client, session)
	session.orders = newResourceClient(OrdersDescriptor, client, session)
	return session
}

func (s *Session) UserID() string {
	return s.userID
}

func (s *Session) Accounts() *AccountsClient {
	return s.accounts
}

func (s *Session) Transactions() *ResourceClient {
	return s.transactions
}

func (s *Session) History() *ResourceClient {
	return s.history
}

func (s *Session) Orders() *ResourceClient {
	return s.orders
}

// Token returns the user JWT, exchanging a new one once the cached token is
// within the configured minimum lifetime of its expiry.
func (s *Session) Token(ctx context.Context) (string, error) {
	credential, err := s.Credential(ctx, s.client.config.UserTokenMinLifetime)
	if err != nil {
		return "", err
	}
	return credential.Token, nil
}

// ConnectToken returns a token that stays valid long enough to open the
// Connect widget.
func (s *Session) ConnectToken(ctx context.Context) (string, error) {
	credential, err := s.Credential(ctx, s.client.config.ConnectTokenMinLifetime)
	if err != nil {
		return "", err
	}
	return credential.Token, nil
}

func (s *Session) Credential(ctx context.Context, minLifetime time.Duration) (Credential, error) {
	startedAt := s.client.now()
	credential, refreshed, err := s.credentialFor(ctx, minLifetime)
	err = s.client.mapError(err)
	if refreshed || err != nil {
		s.client.observeOperation(ctx, startedAt, "user_token", err, map[string]any{
			"scope":   AuthUser.String(),
			"user_id": s.userID,
		})
	}
	if err != nil {
		return Credential{}, err
	}
	return credential, nil
}

func (s *Session) credentialFor(ctx context.Context, minLifetime time.Duration) (Credential, bool, error) {
	for {
		if cached := s.cached(); cached.ValidFor(s.client.now(), minLifetime) {
			return cached, false, nil
		}
		s.requestLifetime(minLifetime)
		value, err, _ := s.refresh.Do("token", func() (any, error) {
			return s.refreshCredential(ctx)
		})
		if err != nil {
			return Credential{}, false, err
		}
		result := value.(refreshResult)
		// A flight started for a shorter lifetime is joined again with ours
		// registered; a token issued for our lifetime is returned as is.
		if result.lifetime >= minLifetime || result.credential.ValidFor(s.client.now(), minLifetime) {
			return result.credential, true, nil
		}
	}
}

type refreshResult struct {
	credential Credential
	lifetime   time.Duration
}

// refreshCredential issues one token for the largest lifetime requested since
// the previous refresh.
func (s *Session) refreshCredential(ctx context.Context) (any, error) {
	s.mu.Lock()
	lifetime := s.wanted
	s.wanted = 0
	s.mu.Unlock()

	if cached := s.cached(); cached.ValidFor(s.client.now(), lifetime) {
		return refreshResult{credential: cached, lifetime: lifetime}, nil
	}
	if s.client.userTokens == nil {
		return nil, NewAuthenticationError("vezgo: user token issuer is not configured", nil)
	}
	issued, err := s.client.userTokens.IssueUserToken(ctx, s.userID, lifetime)
	if err != nil {
		if IsServiceError(err) {
			return nil, err
		}
		return nil, NewAuthenticationError("vezgo: user token exchange failed", err)
	}
	s.mu.Lock()
	s.credential = issued
	s.mu.Unlock()
	return refreshResult{credential: issued, lifetime: lifetime}, nil
}

func (s *Session) requestLifetime(minLifetime time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if minLifetime > s.wanted {
		s.wanted = minLifetime
	}
}

func (s *Session) cached() Credential {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credential
}

// invalidate drops the cached token after the remote side rejected it.
func (s *Session) invalidate(token string) {
	s.mu.Lock()
	if s.credential.Token == token {
		s.credential = Credential{}
	}
	s.mu.Unlock()
	if forgetter, ok := s.client.userTokens.(interface{ Forget(userID string) }); ok {
		forgetter.Forget(s.userID)
	}
}

func (s *Session) rateLimitScope() string {
	return "user:" + s.userID
}
