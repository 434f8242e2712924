package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-vezgo/core"
)

var (
	_ gocmd.Querier[ListProvidersMessage, []core.Record]    = (*ListProvidersQuery)(nil)
	_ gocmd.Querier[GetProviderMessage, core.Record]        = (*GetProviderQuery)(nil)
	_ gocmd.Querier[TeamMessage, core.Record]               = (*TeamQuery)(nil)
	_ gocmd.Querier[ListAccountsMessage, []core.Record]     = (*ListAccountsQuery)(nil)
	_ gocmd.Querier[GetAccountMessage, core.Record]         = (*GetAccountQuery)(nil)
	_ gocmd.Querier[ListTransactionsMessage, []core.Record] = (*ListTransactionsQuery)(nil)
	_ gocmd.Querier[GetTransactionMessage, core.Record]     = (*GetTransactionQuery)(nil)
	_ gocmd.Querier[ListHistoryMessage, []core.Record]      = (*ListHistoryQuery)(nil)
	_ gocmd.Querier[ListOrdersMessage, []core.Record]       = (*ListOrdersQuery)(nil)
	_ gocmd.Querier[GetOrderMessage, core.Record]           = (*GetOrderQuery)(nil)

	_ Reader = (*ClientReader)(nil)
)
