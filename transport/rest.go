package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-vezgo/core"
	"github.com/google/uuid"
)

const defaultResponseBodyLimit int64 = 10 << 20 // 10 MiB

const headerRequestID = "X-Request-ID"

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RESTTransport sends JSON requests to the Vezgo API. It holds no per call
// state; the only shared resource is the underlying HTTP client.
type RESTTransport struct {
	Client               HTTPDoer
	BaseURL              string
	Timeout              time.Duration
	UserAgent            string
	DefaultHeaders       map[string]string
	MaxResponseBodyBytes int64
	RateLimitPolicy      core.RateLimitPolicy
	Logger               core.Logger
	RequestID            func() string
	Now                  func() time.Time
}

type Option func(*RESTTransport)

func WithHTTPClient(client HTTPDoer) Option {
	return func(t *RESTTransport) {
		if client != nil {
			t.Client = client
		}
	}
}

func WithRateLimitPolicy(policy core.RateLimitPolicy) Option {
	return func(t *RESTTransport) {
		t.RateLimitPolicy = policy
	}
}

func WithLogger(logger core.Logger) Option {
	return func(t *RESTTransport) {
		if logger != nil {
			t.Logger = logger
		}
	}
}

func WithDefaultHeader(key string, value string) Option {
	return func(t *RESTTransport) {
		if strings.TrimSpace(key) != "" {
			t.DefaultHeaders[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
	}
}

func NewRESTTransport(cfg core.Config, opts ...Option) *RESTTransport {
	t := &RESTTransport{
		Client:               &http.Client{Timeout: cfg.Timeout},
		BaseURL:              strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		Timeout:              cfg.Timeout,
		UserAgent:            strings.TrimSpace(cfg.UserAgent),
		DefaultHeaders:       map[string]string{},
		MaxResponseBodyBytes: cfg.MaxResponseBytes,
		Logger:               glog.Nop(),
		RequestID:            func() string { return uuid.NewString() },
		Now:                  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// Factory adapts NewRESTTransport to core.TransportFactory. The client's
// logger, clock and rate limit policy are passed through unless an option
// overrides them.
func Factory(opts ...Option) core.TransportFactory {
	return func(cfg core.Config, deps core.FactoryDependencies) (core.Transport, error) {
		base := []Option{WithLogger(deps.Logger)}
		if deps.RateLimitPolicy != nil {
			base = append(base, WithRateLimitPolicy(deps.RateLimitPolicy))
		}
		t := NewRESTTransport(cfg, append(base, opts...)...)
		if deps.Now != nil {
			t.Now = deps.Now
		}
		return t, nil
	}
}

func (t *RESTTransport) Send(ctx context.Context, req core.Request) (core.Response, error) {
	if t == nil || t.Client == nil {
		return core.Response{}, transportError("transport: rest transport requires an http client", core.ErrorTransport, nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if t.RateLimitPolicy != nil {
		if err := t.RateLimitPolicy.BeforeCall(ctx, req.RateLimitKey); err != nil {
			return core.Response{}, err
		}
	}

	method := strings.TrimSpace(strings.ToUpper(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	target, err := t.resolveURL(req.Path, req.Query)
	if err != nil {
		return core.Response{}, core.NewValidationError("path", fmt.Sprintf("transport: invalid request path %q", req.Path))
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return core.Response{}, core.NewValidationError("body", fmt.Sprintf("transport: encode request body: %v", err))
		}
		body = bytes.NewReader(payload)
	}

	requestCtx := ctx
	cancel := func() {}
	if t.Timeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, t.Timeout)
	}
	defer cancel()

	httpReq, err := http.NewRequestWithContext(requestCtx, method, target, body)
	if err != nil {
		return core.Response{}, core.NewValidationError("path", fmt.Sprintf("transport: create http request: %v", err))
	}
	requestID := t.requestID()
	t.applyHeaders(httpReq, req, requestID, body != nil)

	startedAt := t.now()
	fields := map[string]any{
		"method":     method,
		"path":       req.Path,
		"request_id": requestID,
	}
	httpRes, err := t.Client.Do(httpReq)
	if err != nil {
		mapped := transportWrapError(requestCtx, err, "transport: execute http request", fields)
		t.log(ctx, "vezgo request failed", startedAt, fields, mapped)
		return core.Response{}, mapped
	}
	defer httpRes.Body.Close()

	limit := t.MaxResponseBodyBytes
	if limit <= 0 {
		limit = defaultResponseBodyLimit
	}
	raw, err := io.ReadAll(io.LimitReader(httpRes.Body, limit+1))
	if err != nil {
		fields["status_code"] = httpRes.StatusCode
		mapped := transportWrapError(requestCtx, err, "transport: read response body", fields)
		t.log(ctx, "vezgo request failed", startedAt, fields, mapped)
		return core.Response{}, mapped
	}
	if int64(len(raw)) > limit {
		fields["status_code"] = httpRes.StatusCode
		fields["response_limit_b"] = limit
		mapped := transportError(fmt.Sprintf("transport: response body exceeds limit of %d bytes", limit), core.ErrorTransport, fields)
		t.log(ctx, "vezgo request failed", startedAt, fields, mapped)
		return core.Response{}, mapped
	}

	headers := flattenHeaders(httpRes.Header)
	fields["status_code"] = httpRes.StatusCode
	if t.RateLimitPolicy != nil {
		if err := t.RateLimitPolicy.AfterCall(ctx, req.RateLimitKey, core.ResponseMeta{
			StatusCode: httpRes.StatusCode,
			Headers:    headers,
		}); err != nil {
			t.Logger.Warn("vezgo rate limit state update failed", "error", err.Error(), "path", req.Path)
		}
	}

	if httpRes.StatusCode < 200 || httpRes.StatusCode > 299 {
		mapped := core.MapHTTPError(httpRes.StatusCode, headers, raw)
		t.log(ctx, "vezgo request failed", startedAt, fields, mapped)
		return core.Response{}, mapped
	}
	t.log(ctx, "vezgo request", startedAt, fields, nil)

	res := core.Response{StatusCode: httpRes.StatusCode, Headers: headers, Body: raw}
	if httpRes.StatusCode == http.StatusNoContent {
		res.Body = nil
	}
	return res, nil
}

// Close releases idle pooled connections.
func (t *RESTTransport) Close() error {
	if t == nil || t.Client == nil {
		return nil
	}
	if closer, ok := t.Client.(interface{ CloseIdleConnections() }); ok {
		closer.CloseIdleConnections()
	}
	return nil
}

// resolveURL joins the already escaped path onto the base url.
func (t *RESTTransport) resolveURL(path string, query url.Values) (string, error) {
	path = strings.TrimSpace(path)
	if strings.Contains(path, "://") {
		return "", fmt.Errorf("absolute path %q", path)
	}
	target, err := url.Parse(strings.TrimRight(t.BaseURL, "/") + "/" + strings.TrimLeft(path, "/"))
	if err != nil {
		return "", err
	}
	values := target.Query()
	for key, items := range query {
		if strings.TrimSpace(key) == "" {
			continue
		}
		for _, item := range items {
			values.Add(strings.TrimSpace(key), item)
		}
	}
	target.RawQuery = values.Encode()
	return target.String(), nil
}

func (t *RESTTransport) applyHeaders(httpReq *http.Request, req core.Request, requestID string, hasBody bool) {
	httpReq.Header.Set("Accept", "application/json")
	if hasBody {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if t.UserAgent != "" {
		httpReq.Header.Set("User-Agent", t.UserAgent)
	}
	if requestID != "" {
		httpReq.Header.Set(headerRequestID, requestID)
	}
	for key, value := range t.DefaultHeaders {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	for key, value := range req.Headers {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	if token := strings.TrimSpace(req.Token); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
}

func (t *RESTTransport) log(ctx context.Context, message string, startedAt time.Time, fields map[string]any, err error) {
	if t.Logger == nil {
		return
	}
	args := []any{
		"method", fields["method"],
		"path", fields["path"],
		"request_id", fields["request_id"],
		"duration_ms", t.now().Sub(startedAt).Milliseconds(),
	}
	if status, ok := fields["status_code"]; ok {
		args = append(args, "status_code", status)
	}
	logger := t.Logger.WithContext(ctx)
	if err != nil {
		logger.Debug(message, append(args, "error", err.Error())...)
		return
	}
	logger.Debug(message, args...)
}

func (t *RESTTransport) requestID() string {
	if t.RequestID == nil {
		return ""
	}
	return t.RequestID()
}

func (t *RESTTransport) now() time.Time {
	if t.Now == nil {
		return time.Now().UTC()
	}
	return t.Now()
}

func flattenHeaders(headers http.Header) map[string]string {
	if len(headers) == 0 {
		return map[string]string{}
	}
	flat := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) == 0 {
			flat[key] = ""
			continue
		}
		flat[key] = strings.Join(values, ",")
	}
	return flat
}

var _ core.Transport = (*RESTTransport)(nil)
