package core

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	opts "github.com/goliatone/go-options"
)

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type clientBuilder struct {
	logger           Logger
	loggerProvider   LoggerProvider
	metricsRecorder  MetricsRecorder
	errorMapper      ErrorMapper
	configProvider   ConfigProvider
	optionsResolver  OptionsResolver
	transport        Transport
	transportFactory TransportFactory
	authFactory      AuthFactory
	appTokens        ApplicationTokenSource
	userTokens       UserTokenIssuer
	rateLimitPolicy  RateLimitPolicy
	now              func() time.Time
}

type Option func(*clientBuilder)

func WithLogger(logger Logger) Option {
	return func(b *clientBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *clientBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *clientBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *clientBuilder) {
		b.errorMapper = mapper
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *clientBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *clientBuilder) {
		b.optionsResolver = resolver
	}
}

// WithTransport installs a ready transport and bypasses the transport factory.
func WithTransport(transport Transport) Option {
	return func(b *clientBuilder) {
		b.transport = transport
	}
}

func WithTransportFactory(factory TransportFactory) Option {
	return func(b *clientBuilder) {
		b.transportFactory = factory
	}
}

func WithAuthFactory(factory AuthFactory) Option {
	return func(b *clientBuilder) {
		b.authFactory = factory
	}
}

func WithApplicationTokenSource(source ApplicationTokenSource) Option {
	return func(b *clientBuilder) {
		b.appTokens = source
	}
}

func WithUserTokenIssuer(issuer UserTokenIssuer) Option {
	return func(b *clientBuilder) {
		b.userTokens = issuer
	}
}

func WithRateLimitPolicy(policy RateLimitPolicy) Option {
	return func(b *clientBuilder) {
		b.rateLimitPolicy = policy
	}
}

// WithClock replaces the wall clock used for token expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(b *clientBuilder) {
		b.now = now
	}
}

func defaultClientBuilder() clientBuilder {
	// Logger and provider are resolved by NewClient once options are applied.
	return clientBuilder{
		metricsRecorder: NopMetricsRecorder{},
		errorMapper:     defaultErrorMapper,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
		now:             func() time.Time { return time.Now().UTC() },
	}
}

func defaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && IsServiceError(rich) {
		return rich
	}
	if goerrors.As(MapTransportError(err, nil), &rich) {
		return rich
	}
	return goerrors.Wrap(err, goerrors.CategoryExternal, "vezgo: request failed").WithTextCode(ErrorTransport)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

// NewStaticConfigLoader serves a fixed raw configuration map.
func NewStaticConfigLoader(values map[string]any) RawConfigLoader {
	return staticRawConfigLoader{Values: values}
}

// EnvConfigLoader reads VEZGO_* variables. Durations use time.ParseDuration
// syntax and are converted before they reach cfgx.
type EnvConfigLoader struct {
	Prefix string
	Lookup func(key string) (string, bool)
}

func NewEnvConfigLoader() *EnvConfigLoader {
	return &EnvConfigLoader{Prefix: "VEZGO_", Lookup: os.LookupEnv}
}

func (l *EnvConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	prefix := "VEZGO_"
	lookup := os.LookupEnv
	if l != nil && strings.TrimSpace(l.Prefix) != "" {
		prefix = strings.TrimSpace(l.Prefix)
	}
	if l != nil && l.Lookup != nil {
		lookup = l.Lookup
	}

	raw := map[string]any{}
	for _, key := range []string{"client_id", "client_secret", "base_url", "connect_url", "user_agent"} {
		if value, ok := lookup(prefix + strings.ToUpper(key)); ok && strings.TrimSpace(value) != "" {
			raw[key] = strings.TrimSpace(value)
		}
	}
	for _, key := range []string{"timeout", "token_margin", "user_token_min_lifetime", "connect_token_min_lifetime", "token_fallback_ttl"} {
		value, ok := lookup(prefix + strings.ToUpper(key))
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("core: invalid %s%s: %w", prefix, strings.ToUpper(key), err)
		}
		if parsed == 0 && marginKey(key) {
			parsed = NoMargin
		}
		raw[key] = parsed
	}
	if value, ok := lookup(prefix + "MAX_RESPONSE_BYTES"); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("core: invalid %sMAX_RESPONSE_BYTES: %w", prefix, err)
		}
		raw["max_response_bytes"] = parsed
	}
	return raw, nil
}

func marginKey(key string) bool {
	switch key {
	case "token_margin", "user_token_min_lifetime", "connect_token_min_lifetime":
		return true
	}
	return false
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

// Load builds the loaded layer only. Credentials usually arrive at runtime,
// so only the tunables are validated here.
func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).validateTunables),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).validateTunables),
	)
	if err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	setString := func(key string, value string) {
		if includeZero || strings.TrimSpace(value) != "" {
			layer[key] = strings.TrimSpace(value)
		}
	}
	setDuration := func(key string, value time.Duration) {
		if includeZero || value != 0 {
			layer[key] = value
		}
	}

	setString("client_id", cfg.ClientID)
	setString("client_secret", cfg.ClientSecret)
	setString("base_url", cfg.BaseURL)
	setString("connect_url", cfg.ConnectURL)
	setString("user_agent", cfg.UserAgent)
	setDuration("timeout", cfg.Timeout)
	setDuration("token_margin", cfg.TokenMargin)
	setDuration("user_token_min_lifetime", cfg.UserTokenMinLifetime)
	setDuration("connect_token_min_lifetime", cfg.ConnectTokenMinLifetime)
	setDuration("token_fallback_ttl", cfg.TokenFallbackTTL)
	if includeZero || cfg.MaxResponseBytes != 0 {
		layer["max_response_bytes"] = cfg.MaxResponseBytes
	}
	return layer
}
