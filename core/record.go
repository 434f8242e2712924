package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Record is a decoded remote object. Field level shape belongs to the remote
// service; accessors only interpret the fields the client itself reads.
type Record map[string]any

func (r Record) ID(field string) string {
	return r.String(firstNonEmpty(field, defaultIDField))
}

func (r Record) String(key string) string {
	switch typed := r[key].(type) {
	case string:
		return typed
	case json.Number:
		return typed.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(typed)
	}
}

func (r Record) Bool(key string) bool {
	switch typed := r[key].(type) {
	case bool:
		return typed
	case string:
		return strings.EqualFold(strings.TrimSpace(typed), "true")
	}
	return false
}

// Decimal reads monetary values that the API sends either as JSON numbers
// or as numeric strings.
func (r Record) Decimal(key string) (decimal.Decimal, error) {
	switch typed := r[key].(type) {
	case json.Number:
		return decimal.NewFromString(typed.String())
	case string:
		if strings.TrimSpace(typed) == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(strings.TrimSpace(typed))
	case float64:
		return decimal.NewFromFloat(typed), nil
	case int:
		return decimal.NewFromInt(int64(typed)), nil
	case int64:
		return decimal.NewFromInt(typed), nil
	case nil:
		return decimal.Zero, nil
	}
	return decimal.Zero, fmt.Errorf("core: field %q is %T, not a decimal", key, r[key])
}

func (r Record) Nested(key string) Record {
	if nested, ok := r[key].(map[string]any); ok {
		return Record(nested)
	}
	return nil
}

func (r Record) Records(key string) []Record {
	items, ok := r[key].([]any)
	if !ok {
		return nil
	}
	out := make([]Record, 0, len(items))
	for _, item := range items {
		if nested, ok := item.(map[string]any); ok {
			out = append(out, Record(nested))
		}
	}
	return out
}

func decodeRecord(body []byte) (Record, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return Record{}, nil
	}
	var out map[string]any
	if err := decodeJSON(body, &out); err != nil {
		return nil, err
	}
	if out == nil {
		return Record{}, nil
	}
	return Record(out), nil
}

func decodeRecords(body []byte) ([]Record, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return []Record{}, nil
	}
	var raw []map[string]any
	if err := decodeJSON(body, &raw); err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(raw))
	for _, item := range raw {
		out = append(out, Record(item))
	}
	return out, nil
}

func decodeJSON(body []byte, target any) error {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(target); err != nil {
		return MapTransportError(fmt.Errorf("decode response: %w", err), map[string]any{"body_bytes": len(body)})
	}
	return nil
}
