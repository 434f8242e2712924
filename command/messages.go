package command

import (
	"strings"

	"github.com/goliatone/go-vezgo/core"
)

const (
	TypeAddAccount    = "vezgo.command.account.add"
	TypeSyncAccount   = "vezgo.command.account.sync"
	TypeRemoveAccount = "vezgo.command.account.remove"
)

type AddAccountMessage struct {
	UserID  string
	Request core.AddAccountRequest
}

func (AddAccountMessage) Type() string { return TypeAddAccount }

func (m AddAccountMessage) Validate() error {
	if err := validateUser(m.UserID); err != nil {
		return err
	}
	return commandWrapValidation(m.Request.Validate(), "command: invalid add account request")
}

type SyncAccountMessage struct {
	UserID    string
	AccountID string
}

func (SyncAccountMessage) Type() string { return TypeSyncAccount }

func (m SyncAccountMessage) Validate() error {
	if err := validateUser(m.UserID); err != nil {
		return err
	}
	return validateAccount(m.AccountID)
}

// RemoveAccountMessage removes a linked account. Retries only apply to
// outcome-unknown failures and are off unless Retries is positive.
type RemoveAccountMessage struct {
	UserID    string
	AccountID string
	Retries   int
}

func (RemoveAccountMessage) Type() string { return TypeRemoveAccount }

func (m RemoveAccountMessage) Validate() error {
	if err := validateUser(m.UserID); err != nil {
		return err
	}
	if err := validateAccount(m.AccountID); err != nil {
		return err
	}
	if m.Retries < 0 {
		return commandValidationError("retries", "retries must be >= 0")
	}
	return nil
}

func validateUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return commandValidationError("user_id", "user id is required")
	}
	return nil
}

func validateAccount(accountID string) error {
	if strings.TrimSpace(accountID) == "" {
		return commandValidationError("account_id", "account id is required")
	}
	return nil
}
