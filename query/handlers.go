package query

import (
	"context"

	"github.com/goliatone/go-vezgo/core"
)

// Reader is the read surface the queries need. ClientReader adapts a
// *core.Client to it.
type Reader interface {
	ListProviders(ctx context.Context, params core.Params) ([]core.Record, error)
	GetProvider(ctx context.Context, providerID string) (core.Record, error)
	Team(ctx context.Context) (core.Record, error)
	List(ctx context.Context, userID string, resource string, params core.Params) ([]core.Record, error)
	Get(ctx context.Context, userID string, resource string, id string, params core.Params) (core.Record, error)
}

type ListProvidersQuery struct {
	reader Reader
}

func NewListProvidersQuery(reader Reader) *ListProvidersQuery {
	return &ListProvidersQuery{reader: reader}
}

func (q *ListProvidersQuery) Query(ctx context.Context, msg ListProvidersMessage) ([]core.Record, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: provider reader is required")
	}
	return q.reader.ListProviders(ctx, msg.Params)
}

type GetProviderQuery struct {
	reader Reader
}

func NewGetProviderQuery(reader Reader) *GetProviderQuery {
	return &GetProviderQuery{reader: reader}
}

func (q *GetProviderQuery) Query(ctx context.Context, msg GetProviderMessage) (core.Record, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: provider reader is required")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return q.reader.GetProvider(ctx, msg.ProviderID)
}

type TeamQuery struct {
	reader Reader
}

func NewTeamQuery(reader Reader) *TeamQuery {
	return &TeamQuery{reader: reader}
}

func (q *TeamQuery) Query(ctx context.Context, _ TeamMessage) (core.Record, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: team reader is required")
	}
	return q.reader.Team(ctx)
}

type ListAccountsQuery struct {
	reader Reader
}

func NewListAccountsQuery(reader Reader) *ListAccountsQuery {
	return &ListAccountsQuery{reader: reader}
}

func (q *ListAccountsQuery) Query(ctx context.Context, msg ListAccountsMessage) ([]core.Record, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: account reader is required")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return q.reader.List(ctx, msg.UserID, core.AccountsDescriptor.Name, msg.Params)
}

type GetAccountQuery struct {
	reader Reader
}

func NewGetAccountQuery(reader Reader) *GetAccountQuery {
	return &GetAccountQuery{reader: reader}
}

func (q *GetAccountQuery) Query(ctx context.Context, msg GetAccountMessage) (core.Record, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: account reader is required")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return q.reader.Get(ctx, msg.UserID, core.AccountsDescriptor.Name, msg.AccountID, msg.Params)
}

type ListTransactionsQuery struct {
	reader Reader
}

func NewListTransactionsQuery(reader Reader) *ListTransactionsQuery {
	return &ListTransactionsQuery{reader: reader}
}

func (q *ListTransactionsQuery) Query(ctx context.Context, msg ListTransactionsMessage) ([]core.Record, error) {
	var reader Reader
	if q != nil {
		reader = q.reader
	}
	return listScoped(ctx, reader, core.TransactionsDescriptor.Name, msg.AccountScopedMessage)
}

type GetTransactionQuery struct {
	reader Reader
}

func NewGetTransactionQuery(reader Reader) *GetTransactionQuery {
	return &GetTransactionQuery{reader: reader}
}

func (q *GetTransactionQuery) Query(ctx context.Context, msg GetTransactionMessage) (core.Record, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: transaction reader is required")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return q.reader.Get(ctx, msg.UserID, core.TransactionsDescriptor.Name, msg.TransactionID, msg.params())
}

type ListHistoryQuery struct {
	reader Reader
}

func NewListHistoryQuery(reader Reader) *ListHistoryQuery {
	return &ListHistoryQuery{reader: reader}
}

func (q *ListHistoryQuery) Query(ctx context.Context, msg ListHistoryMessage) ([]core.Record, error) {
	var reader Reader
	if q != nil {
		reader = q.reader
	}
	return listScoped(ctx, reader, core.HistoryDescriptor.Name, msg.AccountScopedMessage)
}

type ListOrdersQuery struct {
	reader Reader
}

func NewListOrdersQuery(reader Reader) *ListOrdersQuery {
	return &ListOrdersQuery{reader: reader}
}

func (q *ListOrdersQuery) Query(ctx context.Context, msg ListOrdersMessage) ([]core.Record, error) {
	var reader Reader
	if q != nil {
		reader = q.reader
	}
	return listScoped(ctx, reader, core.OrdersDescriptor.Name, msg.AccountScopedMessage)
}

type GetOrderQuery struct {
	reader Reader
}

func NewGetOrderQuery(reader Reader) *GetOrderQuery {
	return &GetOrderQuery{reader: reader}
}

func (q *GetOrderQuery) Query(ctx context.Context, msg GetOrderMessage) (core.Record, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: order reader is required")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return q.reader.Get(ctx, msg.UserID, core.OrdersDescriptor.Name, msg.OrderID, msg.params())
}

func listScoped(ctx context.Context, reader Reader, resource string, msg AccountScopedMessage) ([]core.Record, error) {
	if reader == nil {
		return nil, queryDependencyError("query: " + resource + " reader is required")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return reader.List(ctx, msg.UserID, resource, msg.params())
}
