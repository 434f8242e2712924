package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL    = "https://api.vezgo.com/v1"
	DefaultConnectURL = "https://connect.vezgo.com"

	DefaultTimeout                 = 30 * time.Second
	DefaultTokenMargin             = 30 * time.Second
	DefaultUserTokenMinLifetime    = 10 * time.Second
	DefaultConnectTokenMinLifetime = 10 * time.Minute
	DefaultTokenFallbackTTL        = 10 * time.Minute
	DefaultMaxResponseBytes        = int64(10 << 20)
	DefaultUserAgent               = "go-vezgo"
)

// NoMargin sets TokenMargin, UserTokenMinLifetime or ConnectTokenMinLifetime
// to an explicit zero. A plain zero value means "use the default".
const NoMargin time.Duration = -1

// Config holds the client settings. Zero values take the defaults from
// DefaultConfig; use NoMargin for a zero token margin or lifetime.
type Config struct {
	ClientID                string        `koanf:"client_id" mapstructure:"client_id"`
	ClientSecret            string        `koanf:"client_secret" mapstructure:"client_secret"`
	BaseURL                 string        `koanf:"base_url" mapstructure:"base_url"`
	ConnectURL              string        `koanf:"connect_url" mapstructure:"connect_url"`
	Timeout                 time.Duration `koanf:"timeout" mapstructure:"timeout"`
	TokenMargin             time.Duration `koanf:"token_margin" mapstructure:"token_margin"`
	UserTokenMinLifetime    time.Duration `koanf:"user_token_min_lifetime" mapstructure:"user_token_min_lifetime"`
	ConnectTokenMinLifetime time.Duration `koanf:"connect_token_min_lifetime" mapstructure:"connect_token_min_lifetime"`
	TokenFallbackTTL        time.Duration `koanf:"token_fallback_ttl" mapstructure:"token_fallback_ttl"`
	MaxResponseBytes        int64         `koanf:"max_response_bytes" mapstructure:"max_response_bytes"`
	UserAgent               string        `koanf:"user_agent" mapstructure:"user_agent"`
}

func DefaultConfig() Config {
	return Config{
		BaseURL:                 DefaultBaseURL,
		ConnectURL:              DefaultConnectURL,
		Timeout:                 DefaultTimeout,
		TokenMargin:             DefaultTokenMargin,
		UserTokenMinLifetime:    DefaultUserTokenMinLifetime,
		ConnectTokenMinLifetime: DefaultConnectTokenMinLifetime,
		TokenFallbackTTL:        DefaultTokenFallbackTTL,
		MaxResponseBytes:        DefaultMaxResponseBytes,
		UserAgent:               DefaultUserAgent,
	}
}

// Validate reports configuration problems. Credential problems are reported
// as validation errors so callers can branch on them like any other input error.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ClientID) == "" {
		return NewValidationError("client_id", "Please provide a valid Vezgo client_id.")
	}
	if strings.TrimSpace(c.ClientSecret) == "" {
		return NewValidationError("client_secret", "Please provide a valid Vezgo secret.")
	}
	for field, raw := range map[string]string{"base_url": c.BaseURL, "connect_url": c.ConnectURL} {
		parsed, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return NewValidationError(field, fmt.Sprintf("invalid %s %q", field, raw))
		}
	}
	if c.Timeout <= 0 {
		return NewValidationError("timeout", "timeout must be positive")
	}
	return c.validateTunables()
}

// validateTunables checks the fields a config file may carry on its own,
// leaving credentials to Validate.
func (c *Config) validateTunables() error {
	if c.Timeout < 0 {
		return NewValidationError("timeout", "timeout must not be negative")
	}
	for field, value := range map[string]time.Duration{
		"token_margin":               c.TokenMargin,
		"user_token_min_lifetime":    c.UserTokenMinLifetime,
		"connect_token_min_lifetime": c.ConnectTokenMinLifetime,
	} {
		if value < 0 && value != NoMargin {
			return NewValidationError(field, field+" must not be negative")
		}
	}
	if c.TokenFallbackTTL < 0 {
		return NewValidationError("token_fallback_ttl", "token_fallback_ttl must not be negative")
	}
	if c.MaxResponseBytes < 0 {
		return NewValidationError("max_response_bytes", "max_response_bytes must not be negative")
	}
	return nil
}

// normalized fills zero tunables with defaults so a partially built Config
// behaves like DefaultConfig for every field the caller left empty.
func (c Config) normalized() Config {
	defaults := DefaultConfig()
	c.ClientID = strings.TrimSpace(c.ClientID)
	c.ClientSecret = strings.TrimSpace(c.ClientSecret)
	c.BaseURL = strings.TrimRight(firstNonEmpty(c.BaseURL, defaults.BaseURL), "/")
	c.ConnectURL = strings.TrimRight(firstNonEmpty(c.ConnectURL, defaults.ConnectURL), "/")
	if c.Timeout <= 0 {
		c.Timeout = defaults.Timeout
	}
	c.TokenMargin = marginOr(c.TokenMargin, defaults.TokenMargin)
	c.UserTokenMinLifetime = marginOr(c.UserTokenMinLifetime, defaults.UserTokenMinLifetime)
	c.ConnectTokenMinLifetime = marginOr(c.ConnectTokenMinLifetime, defaults.ConnectTokenMinLifetime)
	if c.TokenFallbackTTL <= 0 {
		c.TokenFallbackTTL = defaults.TokenFallbackTTL
	}
	if c.MaxResponseBytes <= 0 {
		c.MaxResponseBytes = defaults.MaxResponseBytes
	}
	c.UserAgent = firstNonEmpty(c.UserAgent, defaults.UserAgent)
	return c
}

func marginOr(value time.Duration, fallback time.Duration) time.Duration {
	switch {
	case value == NoMargin:
		return 0
	case value == 0:
		return fallback
	}
	return value
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
