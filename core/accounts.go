package core

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultRemoveInitialInterval = 250 * time.Millisecond
	DefaultRemoveMaxInterval     = 5 * time.Second
)

// AccountsClient extends the generic resource client with the account
// mutations.
type AccountsClient struct {
	*ResourceClient
}

// AddAccountRequest links a provider account directly. Nil flags take the
// documented defaults: sync_transactions true, sync_nfts and daily_sync false.
type AddAccountRequest struct {
	Provider         string
	Credentials      map[string]any
	Name             string
	SyncTransactions *bool
	SyncNFTs         *bool
	DailySync        *bool
}

func (r AddAccountRequest) Validate() error {
	if strings.TrimSpace(r.Provider) == "" {
		return NewValidationError("provider", "Please provide a valid provider name.")
	}
	if len(r.Credentials) == 0 {
		return NewValidationError("credentials", "Please provide valid credentials as a dictionary.")
	}
	return nil
}

func (r AddAccountRequest) body() map[string]any {
	body := map[string]any{
		"provider":          strings.TrimSpace(r.Provider),
		"credentials":       r.Credentials,
		"sync_transactions": boolOr(r.SyncTransactions, true),
		"sync_nfts":         boolOr(r.SyncNFTs, false),
		"daily_sync":        boolOr(r.DailySync, false),
	}
	if name := strings.TrimSpace(r.Name); name != "" {
		body["name"] = name
	}
	return body
}

func Bool(value bool) *bool {
	return &value
}

func boolOr(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}

// Sync asks the remote service to refresh the account. It returns once the
// request is acknowledged; poll Get to observe completion.
func (a *AccountsClient) Sync(ctx context.Context, id string) (Record, error) {
	startedAt := a.client.now()
	record, err := a.sync(ctx, id)
	err = a.client.mapError(err)
	a.client.observeOperation(ctx, startedAt, "accounts_sync", err, a.fields(map[string]any{
		"id": strings.TrimSpace(id),
	}))
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (a *AccountsClient) sync(ctx context.Context, id string) (Record, error) {
	if err := a.requireSession(); err != nil {
		return nil, err
	}
	path, err := accountPath(id)
	if err != nil {
		return nil, err
	}
	res, err := a.do(ctx, http.MethodPost, path+"/sync", nil, map[string]any{})
	if err != nil {
		return nil, err
	}
	return decodeRecord(res.Body)
}

func (a *AccountsClient) Add(ctx context.Context, req AddAccountRequest) (Record, error) {
	startedAt := a.client.now()
	record, err := a.add(ctx, req)
	err = a.client.mapError(err)
	a.client.observeOperation(ctx, startedAt, "accounts_add", err, a.fields(map[string]any{
		"provider": strings.TrimSpace(req.Provider),
	}))
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (a *AccountsClient) add(ctx context.Context, req AddAccountRequest) (Record, error) {
	if err := a.requireSession(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	res, err := a.do(ctx, http.MethodPost, a.descriptor.Path, nil, req.body())
	if err != nil {
		return nil, err
	}
	return decodeRecord(res.Body)
}

type RemoveOption func(*removeOptions)

type removeOptions struct {
	retries         uint64
	initialInterval time.Duration
	maxInterval     time.Duration
}

// WithRemoveRetries retries a delete whose outcome is unknown (timeout,
// transport failure, 5xx) up to n more times.
func WithRemoveRetries(n int) RemoveOption {
	return func(o *removeOptions) {
		if n > 0 {
			o.retries = uint64(n)
		}
	}
}

func WithRemoveBackoff(initial time.Duration, max time.Duration) RemoveOption {
	return func(o *removeOptions) {
		if initial > 0 {
			o.initialInterval = initial
		}
		if max > 0 {
			o.maxInterval = max
		}
	}
}

// Remove deletes the account. A 404 on the first attempt is returned; a 404
// on a retry means an earlier attempt already went through.
func (a *AccountsClient) Remove(ctx context.Context, id string, opts ...RemoveOption) error {
	startedAt := a.client.now()
	attempts, err := a.remove(ctx, id, opts...)
	err = a.client.mapError(err)
	a.client.observeOperation(ctx, startedAt, "accounts_remove", err, a.fields(map[string]any{
		"id":       strings.TrimSpace(id),
		"attempts": attempts,
	}))
	return err
}

func (a *AccountsClient) remove(ctx context.Context, id string, opts ...RemoveOption) (int, error) {
	if err := a.requireSession(); err != nil {
		return 0, err
	}
	path, err := accountPath(id)
	if err != nil {
		return 0, err
	}
	options := removeOptions{
		initialInterval: DefaultRemoveInitialInterval,
		maxInterval:     DefaultRemoveMaxInterval,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	if options.retries == 0 {
		_, err := a.do(ctx, http.MethodDelete, path, nil, nil)
		return 1, err
	}

	attempts := 0
	operation := func() error {
		attempts++
		_, err := a.do(ctx, http.MethodDelete, path, nil, nil)
		switch {
		case err == nil:
			return nil
		case attempts > 1 && IsNotFound(err):
			return nil
		case retryableRemove(err):
			return err
		default:
			return backoff.Permanent(err)
		}
	}
	policy := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(options.initialInterval),
		backoff.WithMaxInterval(options.maxInterval),
		backoff.WithMaxElapsedTime(0),
	)
	err = backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, options.retries), ctx))
	return attempts, err
}

func retryableRemove(err error) bool {
	switch KindOf(err) {
	case KindTimeout, KindTransport:
		return true
	case KindAPI:
		return StatusCode(err) >= http.StatusInternalServerError
	}
	return false
}

func accountPath(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", NewValidationError("id", "Please provide a valid Vezgo account ID.")
	}
	return AccountsDescriptor.Path + "/" + url.PathEscape(id), nil
}
