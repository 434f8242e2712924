package query

import (
	"context"

	"github.com/goliatone/go-vezgo/core"
)

// ClientReader serves queries from a *core.Client. User scoped resources are
// read through a session opened for the message's user id.
type ClientReader struct {
	client *core.Client
}

func NewClientReader(client *core.Client) *ClientReader {
	return &ClientReader{client: client}
}

func (r *ClientReader) ListProviders(ctx context.Context, params core.Params) ([]core.Record, error) {
	if r == nil || r.client == nil {
		return nil, queryDependencyError("query: vezgo client is required")
	}
	return r.client.Providers().List(ctx, params)
}

func (r *ClientReader) GetProvider(ctx context.Context, providerID string) (core.Record, error) {
	if r == nil || r.client == nil {
		return nil, queryDependencyError("query: vezgo client is required")
	}
	return r.client.Providers().Get(ctx, providerID, nil)
}

func (r *ClientReader) Team(ctx context.Context) (core.Record, error) {
	if r == nil || r.client == nil {
		return nil, queryDependencyError("query: vezgo client is required")
	}
	return r.client.Team(ctx)
}

func (r *ClientReader) List(ctx context.Context, userID string, resource string, params core.Params) ([]core.Record, error) {
	rc, err := r.resource(userID, resource)
	if err != nil {
		return nil, err
	}
	return rc.List(ctx, params)
}

func (r *ClientReader) Get(ctx context.Context, userID string, resource string, id string, params core.Params) (core.Record, error) {
	rc, err := r.resource(userID, resource)
	if err != nil {
		return nil, err
	}
	return rc.Get(ctx, id, params)
}

func (r *ClientReader) resource(userID string, resource string) (*core.ResourceClient, error) {
	if r == nil || r.client == nil {
		return nil, queryDependencyError("query: vezgo client is required")
	}
	session, err := r.client.Login(userID)
	if err != nil {
		return nil, err
	}
	switch resource {
	case core.AccountsDescriptor.Name:
		return session.Accounts().ResourceClient, nil
	case core.TransactionsDescriptor.Name:
		return session.Transactions(), nil
	case core.HistoryDescriptor.Name:
		return session.History(), nil
	case core.OrdersDescriptor.Name:
		return session.Orders(), nil
	}
	return nil, queryValidationError("resource", "unknown vezgo resource "+resource)
}
