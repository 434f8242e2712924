package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// ErrorKind is the closed set of failure classes surfaced to callers.
type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindAuthentication ErrorKind = "authentication"
	KindNotFound       ErrorKind = "not_found"
	KindRateLimit      ErrorKind = "rate_limit"
	KindAPI            ErrorKind = "api"
	KindTimeout        ErrorKind = "timeout"
	KindTransport      ErrorKind = "transport"
)

const (
	ErrorValidation      = "VEZGO_VALIDATION"
	ErrorAuthentication  = "VEZGO_AUTHENTICATION"
	ErrorSessionRequired = "VEZGO_SESSION_REQUIRED"
	ErrorNotFound        = "VEZGO_NOT_FOUND"
	ErrorRateLimited     = "VEZGO_RATE_LIMITED"
	ErrorAPI             = "VEZGO_API_ERROR"
	ErrorTimeout         = "VEZGO_TIMEOUT"
	ErrorTransport       = "VEZGO_TRANSPORT"
)

const (
	metaStatusCode   = "status_code"
	metaRawBody      = "raw_body"
	metaRetryAfterMS = "retry_after_ms"
	metaRemoteCode   = "remote_code"
)

var textCodeKinds = map[string]ErrorKind{
	ErrorValidation:      KindValidation,
	ErrorAuthentication:  KindAuthentication,
	ErrorSessionRequired: KindAuthentication,
	ErrorNotFound:        KindNotFound,
	ErrorRateLimited:     KindRateLimit,
	ErrorAPI:             KindAPI,
	ErrorTimeout:         KindTimeout,
	ErrorTransport:       KindTransport,
}

var remoteCodeKinds = map[string]ErrorKind{
	"not_found":             KindNotFound,
	"resource_not_found":    KindNotFound,
	"rate_limited":          KindRateLimit,
	"rate_limit_exceeded":   KindRateLimit,
	"too_many_requests":     KindRateLimit,
	"unauthorized":          KindAuthentication,
	"unauthenticated":       KindAuthentication,
	"invalid_token":         KindAuthentication,
	"token_expired":         KindAuthentication,
	"authentication_failed": KindAuthentication,
	"validation_error":      KindValidation,
	"invalid_request":       KindValidation,
	"bad_request":           KindValidation,
}

func NewValidationError(field string, message string) error {
	return goerrors.NewValidation(message, goerrors.FieldError{
		Field:   field,
		Message: message,
	}).
		WithTextCode(ErrorValidation)
}

// NewAuthenticationError builds an authentication failure. When source is a
// classified error its status code and body are carried over.
func NewAuthenticationError(message string, source error) error {
	err := goerrors.New(message, goerrors.CategoryAuth).
		WithTextCode(ErrorAuthentication)
	if source != nil {
		err.Source = source
		metadata := map[string]any{"cause_kind": string(KindOf(source))}
		if status := StatusCode(source); status > 0 {
			err.WithCode(status)
			metadata[metaStatusCode] = status
		}
		if body := RawBody(source); body != nil {
			metadata[metaRawBody] = body
		}
		err.WithMetadata(metadata)
	}
	return err
}

func NewSessionRequiredError(resource string) error {
	return goerrors.New(
		fmt.Sprintf("%s requires a user session, call Login(userID) first", strings.TrimSpace(resource)),
		goerrors.CategoryAuth,
	).
		WithTextCode(ErrorSessionRequired).
		WithMetadata(map[string]any{"resource": strings.TrimSpace(resource)})
}

func NewRateLimitError(message string, retryAfter time.Duration, metadata map[string]any) error {
	err := goerrors.New(message, goerrors.CategoryRateLimit).
		WithCode(http.StatusTooManyRequests).
		WithTextCode(ErrorRateLimited)
	fields := cloneFields(metadata)
	if retryAfter > 0 {
		fields[metaRetryAfterMS] = retryAfter.Milliseconds()
	}
	if len(fields) > 0 {
		err.WithMetadata(fields)
	}
	return err
}

// MapHTTPError classifies a non-2xx response. Status takes precedence for the
// well known codes; otherwise a machine readable body code is consulted.
func MapHTTPError(status int, headers map[string]string, body []byte) error {
	rawBody, message, remoteCode := decodeErrorBody(status, body)

	kind := KindAPI
	switch status {
	case http.StatusBadRequest:
		kind = KindValidation
	case http.StatusUnauthorized:
		kind = KindAuthentication
	case http.StatusNotFound:
		kind = KindNotFound
	case http.StatusTooManyRequests:
		kind = KindRateLimit
	default:
		if mapped, ok := remoteCodeKinds[remoteCode]; ok {
			kind = mapped
		}
	}

	metadata := map[string]any{metaStatusCode: status}
	if rawBody != nil {
		metadata[metaRawBody] = rawBody
	}
	if remoteCode != "" {
		metadata[metaRemoteCode] = remoteCode
	}
	if kind == KindRateLimit {
		if retryAfter, ok := parseRetryAfterSeconds(headers); ok {
			metadata[metaRetryAfterMS] = retryAfter.Milliseconds()
		}
	}

	return goerrors.New(message, kindCategory(kind)).
		WithCode(status).
		WithTextCode(kindTextCode(kind)).
		WithMetadata(metadata)
}

// MapTransportError classifies failures where no response was received.
func MapTransportError(err error, metadata map[string]any) error {
	if err == nil {
		return nil
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && KindOf(rich) != "" {
		return err
	}

	textCode := ErrorTransport
	message := "vezgo: request failed"
	if isTimeout(err) {
		textCode = ErrorTimeout
		message = "vezgo: request timed out"
	}
	wrapped := goerrors.Wrap(err, goerrors.CategoryExternal, message).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		wrapped.WithMetadata(metadata)
	}
	return wrapped
}

func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return ""
	}
	return textCodeKinds[rich.TextCode]
}

// IsServiceError reports whether err belongs to the taxonomy.
func IsServiceError(err error) bool {
	return KindOf(err) != ""
}

func IsValidation(err error) bool     { return KindOf(err) == KindValidation }
func IsAuthentication(err error) bool { return KindOf(err) == KindAuthentication }
func IsNotFound(err error) bool       { return KindOf(err) == KindNotFound }
func IsRateLimited(err error) bool    { return KindOf(err) == KindRateLimit }
func IsAPIError(err error) bool       { return KindOf(err) == KindAPI }
func IsTimeout(err error) bool        { return KindOf(err) == KindTimeout }
func IsTransport(err error) bool      { return KindOf(err) == KindTransport }

func IsSessionRequired(err error) bool {
	var rich *goerrors.Error
	return goerrors.As(err, &rich) && rich.TextCode == ErrorSessionRequired
}

// StatusCode returns the remote HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return 0
	}
	if status, ok := rich.Metadata[metaStatusCode].(int); ok {
		return status
	}
	return 0
}

// RawBody returns the decoded error payload (JSON value or text), if any.
func RawBody(err error) any {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return nil
	}
	return rich.Metadata[metaRawBody]
}

// RetryAfter returns the server or policy supplied backoff hint for rate
// limit errors.
func RetryAfter(err error) time.Duration {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return 0
	}
	switch typed := rich.Metadata[metaRetryAfterMS].(type) {
	case int64:
		return time.Duration(typed) * time.Millisecond
	case int:
		return time.Duration(typed) * time.Millisecond
	}
	return 0
}

func kindCategory(kind ErrorKind) goerrors.Category {
	switch kind {
	case KindValidation:
		return goerrors.CategoryValidation
	case KindAuthentication:
		return goerrors.CategoryAuth
	case KindNotFound:
		return goerrors.CategoryNotFound
	case KindRateLimit:
		return goerrors.CategoryRateLimit
	default:
		return goerrors.CategoryExternal
	}
}

func kindTextCode(kind ErrorKind) string {
	switch kind {
	case KindValidation:
		return ErrorValidation
	case KindAuthentication:
		return ErrorAuthentication
	case KindNotFound:
		return ErrorNotFound
	case KindRateLimit:
		return ErrorRateLimited
	case KindTimeout:
		return ErrorTimeout
	case KindTransport:
		return ErrorTransport
	default:
		return ErrorAPI
	}
}

func decodeErrorBody(status int, body []byte) (raw any, message string, remoteCode string) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 {
		var decoded any
		if err := json.Unmarshal(trimmed, &decoded); err == nil {
			raw = decoded
			if object, ok := decoded.(map[string]any); ok {
				message = firstNonEmpty(stringField(object, "message"), stringField(object, "error"))
				remoteCode = strings.ToLower(firstNonEmpty(stringField(object, "code"), stringField(object, "error_code")))
			}
		} else {
			raw = string(trimmed)
		}
		if message == "" {
			message = string(trimmed)
		}
	}
	if message == "" {
		message = fmt.Sprintf("HTTP %d", status)
	}
	return raw, message, remoteCode
}

func stringField(object map[string]any, key string) string {
	value, ok := object[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

func parseRetryAfterSeconds(headers map[string]string) (time.Duration, bool) {
	for key, value := range headers {
		if !strings.EqualFold(strings.TrimSpace(key), "retry-after") {
			continue
		}
		seconds, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || seconds <= 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	return 0, false
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
