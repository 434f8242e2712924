package core

import (
	"context"
	"testing"
	"time"
)

func TestRedactSensitiveMapKeepsIdentifiers(t *testing.T) {
	redacted := RedactSensitiveMap(map[string]any{
		"client_id":     "client-1",
		"user_id":       "u1",
		"client_secret": "secret-1",
		"token":         "jwt",
		"authorization": "Bearer jwt",
		"body": map[string]any{
			"provider":    "coinbase",
			"credentials": map[string]any{"apiKey": "k", "secret": "s"},
		},
		"wallets": []any{map[string]any{"seed_phrase": "words", "address": "bc1q"}},
	})

	if redacted["client_id"] != "client-1" || redacted["user_id"] != "u1" {
		t.Fatalf("expected identifiers to remain visible, got %#v", redacted)
	}
	for _, key := range []string{"client_secret", "token", "authorization"} {
		if redacted[key] != RedactedValue {
			t.Fatalf("expected %s to be redacted, got %#v", key, redacted[key])
		}
	}
	body, ok := redacted["body"].(map[string]any)
	if !ok {
		t.Fatalf("expected nested map")
	}
	if body["provider"] != "coinbase" || body["credentials"] != RedactedValue {
		t.Fatalf("unexpected nested redaction: %#v", body)
	}
	wallet := redacted["wallets"].([]any)[0].(map[string]any)
	if wallet["seed_phrase"] != RedactedValue || wallet["address"] != "bc1q" {
		t.Fatalf("unexpected slice redaction: %#v", wallet)
	}
}

func TestObserveOperationRedactsFields(t *testing.T) {
	logger := &recordingLogger{}
	now := func() time.Time { return time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC) }
	client := &Client{logger: logger, metrics: NopMetricsRecorder{}, now: now}

	client.observeOperation(context.Background(), now(), "accounts_add", nil, map[string]any{
		"resource":    "accounts",
		"credentials": map[string]any{"apiKey": "k"},
	})

	entry, ok := logger.last()
	if !ok {
		t.Fatalf("expected log entry")
	}
	seen := false
	for i := 0; i+1 < len(entry.args); i += 2 {
		if entry.args[i] == "credentials" {
			seen = true
			if entry.args[i+1] != RedactedValue {
				t.Fatalf("expected credentials to be redacted, got %#v", entry.args[i+1])
			}
		}
	}
	if !seen {
		t.Fatalf("expected credentials field in log args")
	}
}
