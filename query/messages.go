package query

import (
	"strings"

	"github.com/goliatone/go-vezgo/core"
)

const (
	TypeListProviders    = "vezgo.query.provider.list"
	TypeGetProvider      = "vezgo.query.provider.get"
	TypeTeam             = "vezgo.query.team.get"
	TypeListAccounts     = "vezgo.query.account.list"
	TypeGetAccount       = "vezgo.query.account.get"
	TypeListTransactions = "vezgo.query.transaction.list"
	TypeGetTransaction   = "vezgo.query.transaction.get"
	TypeListHistory      = "vezgo.query.history.list"
	TypeListOrders       = "vezgo.query.order.list"
	TypeGetOrder         = "vezgo.query.order.get"
)

type ListProvidersMessage struct {
	Params core.Params
}

func (ListProvidersMessage) Type() string { return TypeListProviders }

func (ListProvidersMessage) Validate() error { return nil }

type GetProviderMessage struct {
	ProviderID string
}

func (GetProviderMessage) Type() string { return TypeGetProvider }

func (m GetProviderMessage) Validate() error {
	return required("provider_id", m.ProviderID)
}

type TeamMessage struct{}

func (TeamMessage) Type() string { return TypeTeam }

func (TeamMessage) Validate() error { return nil }

type ListAccountsMessage struct {
	UserID string
	Params core.Params
}

func (ListAccountsMessage) Type() string { return TypeListAccounts }

func (m ListAccountsMessage) Validate() error {
	return required("user_id", m.UserID)
}

type GetAccountMessage struct {
	UserID    string
	AccountID string
	Params    core.Params
}

func (GetAccountMessage) Type() string { return TypeGetAccount }

func (m GetAccountMessage) Validate() error {
	if err := required("user_id", m.UserID); err != nil {
		return err
	}
	return required("account_id", m.AccountID)
}

// AccountScopedMessage addresses a collection nested under one account.
type AccountScopedMessage struct {
	UserID    string
	AccountID string
	Params    core.Params
}

func (m AccountScopedMessage) Validate() error {
	if err := required("user_id", m.UserID); err != nil {
		return err
	}
	return required("account_id", m.AccountID)
}

// params merges the account id into the caller filters as the path parameter.
func (m AccountScopedMessage) params() core.Params {
	out := make(core.Params, len(m.Params)+1)
	for key, value := range m.Params {
		out[key] = value
	}
	out["account_id"] = strings.TrimSpace(m.AccountID)
	return out
}

type ListTransactionsMessage struct {
	AccountScopedMessage
}

func (ListTransactionsMessage) Type() string { return TypeListTransactions }

type GetTransactionMessage struct {
	AccountScopedMessage
	TransactionID string
}

func (GetTransactionMessage) Type() string { return TypeGetTransaction }

func (m GetTransactionMessage) Validate() error {
	if err := m.AccountScopedMessage.Validate(); err != nil {
		return err
	}
	return required("transaction_id", m.TransactionID)
}

type ListHistoryMessage struct {
	AccountScopedMessage
}

func (ListHistoryMessage) Type() string { return TypeListHistory }

type ListOrdersMessage struct {
	AccountScopedMessage
}

func (ListOrdersMessage) Type() string { return TypeListOrders }

type GetOrderMessage struct {
	AccountScopedMessage
	OrderID string
}

func (GetOrderMessage) Type() string { return TypeGetOrder }

func (m GetOrderMessage) Validate() error {
	if err := m.AccountScopedMessage.Validate(); err != nil {
		return err
	}
	return required("order_id", m.OrderID)
}

func required(field string, value string) error {
	if strings.TrimSpace(value) == "" {
		return queryValidationError(field, strings.ReplaceAll(field, "_", " ")+" is required")
	}
	return nil
}
