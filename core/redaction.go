package core

import "strings"

const RedactedValue = "[REDACTED]"

// RedactSensitiveMap copies fields with secret bearing keys replaced by
// RedactedValue. Nested maps and slices are walked.
func RedactSensitiveMap(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	return redactSensitiveMap(fields)
}

func redactSensitiveMap(source map[string]any) map[string]any {
	target := make(map[string]any, len(source))
	for key, value := range source {
		if shouldRedactKey(key) {
			target[key] = RedactedValue
			continue
		}
		target[key] = redactSensitiveValue(value)
	}
	return target
}

func redactSensitiveValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return redactSensitiveMap(typed)
	case Record:
		return Record(redactSensitiveMap(typed))
	case []any:
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = redactSensitiveValue(typed[i])
		}
		return out
	default:
		return value
	}
}

var sensitiveKeyParts = []string{
	"secret",
	"token",
	"authorization",
	"password",
	"credential",
	"api_key",
	"apikey",
	"private_key",
	"passphrase",
	"mnemonic",
	"seed",
}

func shouldRedactKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" || isTraceabilityKey(key) {
		return false
	}
	for _, part := range sensitiveKeyParts {
		if strings.Contains(key, part) {
			return true
		}
	}
	return false
}

func isTraceabilityKey(key string) bool {
	switch key {
	case "client_id",
		"user_id",
		"account_id",
		"request_id",
		"resource",
		"scope",
		"event_type":
		return true
	default:
		return false
	}
}
