package core

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ResourceClient is the single implementation behind every remote collection.
// The descriptor decides the path, the accepted parameters and the token scope.
type ResourceClient struct {
	descriptor Descriptor
	client     *Client
	session    *Session
}

func newResourceClient(descriptor Descriptor, client *Client, session *Session) *ResourceClient {
	return &ResourceClient{descriptor: descriptor, client: client, session: session}
}

func (r *ResourceClient) Descriptor() Descriptor {
	return r.descriptor
}

// List returns the decoded collection as sent by the remote service.
func (r *ResourceClient) List(ctx context.Context, params Params) ([]Record, error) {
	startedAt := r.client.now()
	records, err := r.list(ctx, params)
	err = r.client.mapError(err)
	r.client.observeOperation(ctx, startedAt, r.descriptor.Name+"_list", err, r.fields(nil))
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *ResourceClient) Get(ctx context.Context, id string, params Params) (Record, error) {
	startedAt := r.client.now()
	record, err := r.get(ctx, id, params)
	err = r.client.mapError(err)
	r.client.observeOperation(ctx, startedAt, r.descriptor.Name+"_get", err, r.fields(map[string]any{
		"id": strings.TrimSpace(id),
	}))
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *ResourceClient) list(ctx context.Context, params Params) ([]Record, error) {
	if err := r.precheck(OpList); err != nil {
		return nil, err
	}
	query, err := BuildQuery(r.descriptor, OpList, params)
	if err != nil {
		return nil, err
	}
	res, err := r.do(ctx, http.MethodGet, query.Path, query.Values, nil)
	if err != nil {
		return nil, err
	}
	return decodeRecords(res.Body)
}

func (r *ResourceClient) get(ctx context.Context, id string, params Params) (Record, error) {
	if err := r.precheck(OpGet); err != nil {
		return nil, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, NewValidationError("id", fmt.Sprintf("Please provide a valid Vezgo %s id.", singular(r.descriptor.Name)))
	}
	query, err := BuildQuery(r.descriptor, OpGet, params)
	if err != nil {
		return nil, err
	}
	res, err := r.do(ctx, http.MethodGet, query.Path+"/"+url.PathEscape(id), query.Values, nil)
	if err != nil {
		return nil, err
	}
	return decodeRecord(res.Body)
}

// precheck rejects unsupported operations and missing sessions before any
// parameter is encoded or any token is requested.
func (r *ResourceClient) precheck(op Operation) error {
	if err := r.requireSession(); err != nil {
		return err
	}
	if !r.descriptor.Supports(op) {
		return NewValidationError("operation", fmt.Sprintf("%s does not support %s", r.descriptor.Name, op))
	}
	return nil
}

func (r *ResourceClient) requireSession() error {
	if r.descriptor.Auth == AuthUser && r.session == nil {
		return NewSessionRequiredError(r.descriptor.Name)
	}
	return nil
}

func (r *ResourceClient) do(ctx context.Context, method string, path string, query url.Values, body any) (Response, error) {
	req := Request{
		Method: method,
		Path:   path,
		Query:  query,
		Body:   body,
		RateLimitKey: RateLimitKey{
			Scope:  applicationScope,
			Bucket: r.descriptor.Name,
		},
	}
	switch r.descriptor.Auth {
	case AuthUser:
		if r.session == nil {
			return Response{}, NewSessionRequiredError(r.descriptor.Name)
		}
		token, err := r.session.Token(ctx)
		if err != nil {
			return Response{}, err
		}
		req.Token = token
		req.RateLimitKey.Scope = r.session.rateLimitScope()
	case AuthApplication:
		credential, err := r.client.applicationCredential(ctx)
		if err != nil {
			return Response{}, err
		}
		req.Token = credential.Token
	}

	res, err := r.client.send(ctx, r.descriptor.Auth, req)
	if err != nil {
		if r.session != nil && IsAuthentication(err) {
			r.session.invalidate(req.Token)
		}
		return Response{}, err
	}
	return res, nil
}

func (r *ResourceClient) fields(extra map[string]any) map[string]any {
	fields := cloneFields(extra)
	fields["resource"] = r.descriptor.Name
	fields["scope"] = r.descriptor.Auth.String()
	if r.session != nil {
		fields["user_id"] = r.session.userID
	}
	return fields
}

func singular(name string) string {
	switch name {
	case "history":
		return "history entry"
	case "accounts", "transactions", "orders", "providers":
		return strings.TrimSuffix(name, "s")
	}
	return name
}
