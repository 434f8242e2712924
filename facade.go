package vezgo

import (
	"fmt"

	vezgocommand "github.com/goliatone/go-vezgo/command"
	"github.com/goliatone/go-vezgo/core"
	vezgoquery "github.com/goliatone/go-vezgo/query"
)

type Commands struct {
	AddAccount    *vezgocommand.AddAccountCommand
	SyncAccount   *vezgocommand.SyncAccountCommand
	RemoveAccount *vezgocommand.RemoveAccountCommand
}

type Queries struct {
	ListProviders    *vezgoquery.ListProvidersQuery
	GetProvider      *vezgoquery.GetProviderQuery
	Team             *vezgoquery.TeamQuery
	ListAccounts     *vezgoquery.ListAccountsQuery
	GetAccount       *vezgoquery.GetAccountQuery
	ListTransactions *vezgoquery.ListTransactionsQuery
	GetTransaction   *vezgoquery.GetTransactionQuery
	ListHistory      *vezgoquery.ListHistoryQuery
	ListOrders       *vezgoquery.ListOrdersQuery
	GetOrder         *vezgoquery.GetOrderQuery
}

// Facade exposes a client as go-command handlers for dispatcher registration.
type Facade struct {
	client   *core.Client
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	accounts vezgocommand.AccountService
	reader   vezgoquery.Reader
}

// WithAccountService replaces the session backed account mutations.
func WithAccountService(service vezgocommand.AccountService) FacadeOption {
	return func(options *facadeOptions) {
		options.accounts = service
	}
}

// WithReader replaces the client backed query reader.
func WithReader(reader vezgoquery.Reader) FacadeOption {
	return func(options *facadeOptions) {
		options.reader = reader
	}
}

func NewFacade(client *core.Client, opts ...FacadeOption) (*Facade, error) {
	if client == nil {
		return nil, fmt.Errorf("vezgo: client is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	accounts := cfg.accounts
	if accounts == nil {
		accounts = vezgocommand.NewClientAccountService(client)
	}
	reader := cfg.reader
	if reader == nil {
		reader = vezgoquery.NewClientReader(client)
	}

	facade := &Facade{client: client}
	facade.commands = Commands{
		AddAccount:    vezgocommand.NewAddAccountCommand(accounts),
		SyncAccount:   vezgocommand.NewSyncAccountCommand(accounts),
		RemoveAccount: vezgocommand.NewRemoveAccountCommand(accounts),
	}
	facade.queries = Queries{
		ListProviders:    vezgoquery.NewListProvidersQuery(reader),
		GetProvider:      vezgoquery.NewGetProviderQuery(reader),
		Team:             vezgoquery.NewTeamQuery(reader),
		ListAccounts:     vezgoquery.NewListAccountsQuery(reader),
		GetAccount:       vezgoquery.NewGetAccountQuery(reader),
		ListTransactions: vezgoquery.NewListTransactionsQuery(reader),
		GetTransaction:   vezgoquery.NewGetTransactionQuery(reader),
		ListHistory:      vezgoquery.NewListHistoryQuery(reader),
		ListOrders:       vezgoquery.NewListOrdersQuery(reader),
		GetOrder:         vezgoquery.NewGetOrderQuery(reader),
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Client() *core.Client {
	if f == nil {
		return nil
	}
	return f.client
}
