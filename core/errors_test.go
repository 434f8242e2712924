package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

func TestMapHTTPErrorClassifiesByStatus(t *testing.T) {
	cases := []struct {
		status int
		body   string
		kind   ErrorKind
		code   string
	}{
		{status: http.StatusBadRequest, body: `{"message":"bad ticker"}`, kind: KindValidation, code: ErrorValidation},
		{status: http.StatusUnauthorized, body: `{"error":"expired"}`, kind: KindAuthentication, code: ErrorAuthentication},
		{status: http.StatusNotFound, body: `{"message":"Account not found"}`, kind: KindNotFound, code: ErrorNotFound},
		{status: http.StatusTooManyRequests, body: `{}`, kind: KindRateLimit, code: ErrorRateLimited},
		{status: http.StatusInternalServerError, body: `boom`, kind: KindAPI, code: ErrorAPI},
		{status: http.StatusForbidden, body: `{"message":"nope"}`, kind: KindAPI, code: ErrorAPI},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprint(tc.status), func(t *testing.T) {
			err := MapHTTPError(tc.status, nil, []byte(tc.body))
			if KindOf(err) != tc.kind {
				t.Fatalf("expected kind %q, got %q", tc.kind, KindOf(err))
			}
			var rich *goerrors.Error
			if !goerrors.As(err, &rich) {
				t.Fatalf("expected go-errors value, got %T", err)
			}
			if rich.TextCode != tc.code {
				t.Fatalf("expected text code %q, got %q", tc.code, rich.TextCode)
			}
			if StatusCode(err) != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, StatusCode(err))
			}
			if !IsServiceError(err) {
				t.Fatalf("expected service error")
			}
		})
	}
}

func TestMapHTTPErrorMessageExtraction(t *testing.T) {
	if got := MapHTTPError(404, nil, []byte(`{"message":"Account not found"}`)).Error(); got == "" || !containsText(got, "Account not found") {
		t.Fatalf("expected message from body, got %q", got)
	}
	if got := MapHTTPError(500, nil, []byte(`{"error":"upstream down"}`)).Error(); !containsText(got, "upstream down") {
		t.Fatalf("expected error field, got %q", got)
	}
	if got := MapHTTPError(502, nil, []byte(`gateway`)).Error(); !containsText(got, "gateway") {
		t.Fatalf("expected raw text, got %q", got)
	}
	if got := MapHTTPError(503, nil, nil).Error(); !containsText(got, "503") {
		t.Fatalf("expected status fallback, got %q", got)
	}
}

func TestMapHTTPErrorUsesRemoteCodeForOtherStatuses(t *testing.T) {
	err := MapHTTPError(http.StatusForbidden, nil, []byte(`{"code":"token_expired","message":"expired"}`))
	if !IsAuthentication(err) {
		t.Fatalf("expected authentication kind from remote code, got %q", KindOf(err))
	}
	err = MapHTTPError(http.StatusConflict, nil, []byte(`{"error_code":"resource_not_found"}`))
	if !IsNotFound(err) {
		t.Fatalf("expected not found from error_code, got %q", KindOf(err))
	}
}

func TestMapHTTPErrorKeepsRawBodyAndRetryAfter(t *testing.T) {
	err := MapHTTPError(http.StatusTooManyRequests, map[string]string{"Retry-After": "7"}, []byte(`{"message":"slow down"}`))
	if RetryAfter(err) != 7*time.Second {
		t.Fatalf("expected retry after 7s, got %s", RetryAfter(err))
	}
	raw, ok := RawBody(err).(map[string]any)
	if !ok || raw["message"] != "slow down" {
		t.Fatalf("expected decoded raw body, got %#v", RawBody(err))
	}
}

func TestMapTransportErrorDistinguishesTimeout(t *testing.T) {
	timeout := MapTransportError(fmt.Errorf("send: %w", context.DeadlineExceeded), nil)
	if !IsTimeout(timeout) {
		t.Fatalf("expected timeout kind, got %q", KindOf(timeout))
	}
	transport := MapTransportError(errors.New("connection refused"), map[string]any{"path": "/accounts"})
	if !IsTransport(transport) {
		t.Fatalf("expected transport kind, got %q", KindOf(transport))
	}
	if StatusCode(transport) != 0 {
		t.Fatalf("expected no status code on transport failure")
	}
	already := MapHTTPError(http.StatusNotFound, nil, nil)
	if MapTransportError(already, nil) != already {
		t.Fatalf("expected classified errors to pass through")
	}
}

func TestAuthenticationErrorCarriesSourceStatus(t *testing.T) {
	source := MapHTTPError(http.StatusUnauthorized, nil, []byte(`{"message":"Invalid client"}`))
	err := NewAuthenticationError("vezgo: application authentication failed", source)
	if !IsAuthentication(err) {
		t.Fatalf("expected authentication kind")
	}
	if StatusCode(err) != http.StatusUnauthorized {
		t.Fatalf("expected status carried over, got %d", StatusCode(err))
	}
	if IsSessionRequired(err) {
		t.Fatalf("did not expect session required")
	}
	if !IsSessionRequired(NewSessionRequiredError("accounts")) {
		t.Fatalf("expected session required error")
	}
	if !IsAuthentication(NewSessionRequiredError("accounts")) {
		t.Fatalf("expected session required to be an authentication error")
	}
}

func TestDefaultErrorMapperNeverReturnsUntypedErrors(t *testing.T) {
	mapped := defaultErrorMapper(errors.New("plain"))
	if mapped == nil || !IsServiceError(mapped) {
		t.Fatalf("expected plain errors to be classified, got %#v", mapped)
	}
	rate := NewRateLimitError("slow", time.Second, nil)
	if got := defaultErrorMapper(rate); !IsRateLimited(got) {
		t.Fatalf("expected rate limit kind preserved")
	}
}

func containsText(haystack string, needle string) bool {
	return len(needle) == 0 || (len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0)
}

func indexOf(haystack string, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
