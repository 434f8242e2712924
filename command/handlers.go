package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-vezgo/core"
)

type AccountService interface {
	AddAccount(ctx context.Context, userID string, req core.AddAccountRequest) (core.Record, error)
	SyncAccount(ctx context.Context, userID string, accountID string) (core.Record, error)
	RemoveAccount(ctx context.Context, userID string, accountID string, opts ...core.RemoveOption) error
}

type AddAccountCommand struct {
	service AccountService
}

func NewAddAccountCommand(service AccountService) *AddAccountCommand {
	return &AddAccountCommand{service: service}
}

func (c *AddAccountCommand) Execute(ctx context.Context, msg AddAccountMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: account service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	out, err := c.service.AddAccount(ctx, msg.UserID, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type SyncAccountCommand struct {
	service AccountService
}

func NewSyncAccountCommand(service AccountService) *SyncAccountCommand {
	return &SyncAccountCommand{service: service}
}

func (c *SyncAccountCommand) Execute(ctx context.Context, msg SyncAccountMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: account service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	out, err := c.service.SyncAccount(ctx, msg.UserID, msg.AccountID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RemoveAccountCommand struct {
	service AccountService
}

func NewRemoveAccountCommand(service AccountService) *RemoveAccountCommand {
	return &RemoveAccountCommand{service: service}
}

func (c *RemoveAccountCommand) Execute(ctx context.Context, msg RemoveAccountMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: account service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	var opts []core.RemoveOption
	if msg.Retries > 0 {
		opts = append(opts, core.WithRemoveRetries(msg.Retries))
	}
	return c.service.RemoveAccount(ctx, msg.UserID, msg.AccountID, opts...)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
