package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-vezgo/core"
)

const tokenPath = "/auth/token"

const (
	headerLoginName = "loginName"
	authBucket      = "auth"
)

type tokenRequestBody struct {
	ClientID string `json:"clientId"`
	Secret   string `json:"secret"`
}

type tokenResponseBody struct {
	Token     string          `json:"token"`
	ExpiresIn json.RawMessage `json:"expires_in,omitempty"`
}

type exchangeRequest struct {
	clientID     string
	clientSecret string
	bearer       string
	headers      map[string]string
	scope        string
}

// exchangeToken posts the client credentials to the token endpoint and
// returns the issued token plus the server supplied lifetime, if any.
func exchangeToken(ctx context.Context, transport core.Transport, req exchangeRequest) (string, time.Duration, error) {
	res, err := transport.Send(ctx, core.Request{
		Method: http.MethodPost,
		Path:   tokenPath,
		Body: tokenRequestBody{
			ClientID: req.clientID,
			Secret:   req.clientSecret,
		},
		Token:        req.bearer,
		Headers:      req.headers,
		RateLimitKey: core.RateLimitKey{Scope: req.scope, Bucket: authBucket},
	})
	if err != nil {
		return "", 0, err
	}
	var body tokenResponseBody
	if err := json.Unmarshal(res.Body, &body); err != nil {
		return "", 0, core.MapTransportError(err, map[string]any{"path": tokenPath})
	}
	token := strings.TrimSpace(body.Token)
	if token == "" {
		return "", 0, core.NewAuthenticationError("vezgo: token response did not include a token", nil)
	}
	return token, readSeconds(body.ExpiresIn), nil
}

func readSeconds(raw json.RawMessage) time.Duration {
	if len(raw) == 0 {
		return 0
	}
	var seconds float64
	if err := json.Unmarshal(raw, &seconds); err == nil && seconds > 0 {
		return time.Duration(seconds * float64(time.Second))
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if parsed, err := time.ParseDuration(strings.TrimSpace(text) + "s"); err == nil && parsed > 0 {
			return parsed
		}
	}
	return 0
}

func defaultNow() time.Time {
	return time.Now().UTC()
}
