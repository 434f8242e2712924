package command

import (
	"context"

	"github.com/goliatone/go-vezgo/core"
)

// SessionOpener is satisfied by *core.Client.
type SessionOpener interface {
	Login(userID string) (*core.Session, error)
}

// ClientAccountService runs account mutations through a user session opened
// on demand for each message.
type ClientAccountService struct {
	client SessionOpener
}

func NewClientAccountService(client SessionOpener) *ClientAccountService {
	return &ClientAccountService{client: client}
}

func (s *ClientAccountService) AddAccount(ctx context.Context, userID string, req core.AddAccountRequest) (core.Record, error) {
	accounts, err := s.accounts(userID)
	if err != nil {
		return nil, err
	}
	return accounts.Add(ctx, req)
}

func (s *ClientAccountService) SyncAccount(ctx context.Context, userID string, accountID string) (core.Record, error) {
	accounts, err := s.accounts(userID)
	if err != nil {
		return nil, err
	}
	return accounts.Sync(ctx, accountID)
}

func (s *ClientAccountService) RemoveAccount(ctx context.Context, userID string, accountID string, opts ...core.RemoveOption) error {
	accounts, err := s.accounts(userID)
	if err != nil {
		return err
	}
	return accounts.Remove(ctx, accountID, opts...)
}

func (s *ClientAccountService) accounts(userID string) (*core.AccountsClient, error) {
	if s == nil || s.client == nil {
		return nil, commandDependencyError("command: vezgo client is required")
	}
	session, err := s.client.Login(userID)
	if err != nil {
		return nil, err
	}
	return session.Accounts(), nil
}
