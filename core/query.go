package core

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Params carries caller supplied filters, keyed by the descriptor parameter
// name (for example "from_date", not the wire name "from").
type Params map[string]any

// Query is the validated, wire encoded form of Params.
type Query struct {
	Path   string
	Values url.Values
}

// BuildQuery validates params against the descriptor and encodes them. It
// never touches the network.
func BuildQuery(d Descriptor, op Operation, params Params) (Query, error) {
	specs := map[string]ParamSpec{}
	for _, spec := range d.params(op) {
		specs[normalizeParamName(spec.Name)] = spec
	}
	pathParams := map[string]struct{}{}
	for _, name := range d.PathParams() {
		pathParams[name] = struct{}{}
	}

	names := make([]string, 0, len(params))
	normalized := make(map[string]any, len(params))
	for name, value := range params {
		key := normalizeParamName(name)
		names = append(names, key)
		normalized[key] = value
	}
	sort.Strings(names)

	values := url.Values{}
	for _, name := range names {
		if _, ok := pathParams[name]; ok {
			continue
		}
		spec, ok := specs[name]
		if !ok {
			return Query{}, NewValidationError(name, fmt.Sprintf("%s: unknown %s parameter %q", d.Name, op, name))
		}
		encoded, present, err := encodeParam(spec, normalized[name])
		if err != nil {
			return Query{}, err
		}
		if present {
			values.Set(spec.wireName(), encoded)
		}
	}

	path := d.Path
	for name := range pathParams {
		raw, _ := normalized[name].(string)
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return Query{}, NewValidationError(name, fmt.Sprintf("Please provide a valid Vezgo %s.", strings.ReplaceAll(name, "_", " ")))
		}
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(raw))
	}
	return Query{Path: path, Values: values}, nil
}

func encodeParam(spec ParamSpec, value any) (string, bool, error) {
	if value == nil {
		return "", false, nil
	}
	switch spec.Type {
	case ParamEnum:
		raw, ok := stringValue(value)
		if !ok {
			return "", false, paramTypeError(spec, value)
		}
		raw = strings.ToLower(strings.TrimSpace(raw))
		if raw == "" {
			return "", false, nil
		}
		for _, allowed := range spec.Values {
			if raw == allowed {
				return raw, true, nil
			}
		}
		return "", false, NewValidationError(spec.Name, fmt.Sprintf("%s must be one of %s, got %q", spec.Name, strings.Join(spec.Values, ", "), raw))
	case ParamDate:
		return encodeDate(spec, value)
	case ParamInteger:
		return encodeInteger(spec, value)
	case ParamList:
		return encodeList(spec, value)
	default:
		raw, ok := stringValue(value)
		if !ok {
			return "", false, paramTypeError(spec, value)
		}
		raw = strings.TrimSpace(raw)
		if raw == "" && !spec.AllowEmpty {
			return "", false, nil
		}
		return raw, true, nil
	}
}

func encodeDate(spec ParamSpec, value any) (string, bool, error) {
	switch typed := value.(type) {
	case time.Time:
		if typed.IsZero() {
			return "", false, nil
		}
		return typed.Format(dateLayout), true, nil
	case *time.Time:
		if typed == nil || typed.IsZero() {
			return "", false, nil
		}
		return typed.Format(dateLayout), true, nil
	}
	raw, ok := stringValue(value)
	if !ok {
		return "", false, paramTypeError(spec, value)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, nil
	}
	parsed, err := time.Parse(dateLayout, raw)
	if err != nil {
		return "", false, NewValidationError(spec.Name, fmt.Sprintf("%s must be a YYYY-MM-DD date, got %q", spec.Name, raw))
	}
	return parsed.Format(dateLayout), true, nil
}

func encodeInteger(spec ParamSpec, value any) (string, bool, error) {
	var n int64
	switch typed := value.(type) {
	case int:
		n = int64(typed)
	case int8:
		n = int64(typed)
	case int16:
		n = int64(typed)
	case int32:
		n = int64(typed)
	case int64:
		n = typed
	case uint:
		return encodeInteger(spec, uint64(typed))
	case uint8:
		n = int64(typed)
	case uint16:
		n = int64(typed)
	case uint32:
		n = int64(typed)
	case uint64:
		if typed > math.MaxInt64 {
			return "", false, NewValidationError(spec.Name, fmt.Sprintf("%s is out of range, got %d", spec.Name, typed))
		}
		n = int64(typed)
	case float32:
		return encodeWholeFloat(spec, float64(typed))
	case float64:
		return encodeWholeFloat(spec, typed)
	case json.Number:
		if parsed, err := typed.Int64(); err == nil {
			return encodeInteger(spec, parsed)
		}
		if parsed, err := typed.Float64(); err == nil {
			return encodeWholeFloat(spec, parsed)
		}
		return "", false, NewValidationError(spec.Name, fmt.Sprintf("%s must be an integer, got %q", spec.Name, typed.String()))
	case string:
		trimmed := strings.TrimSpace(typed)
		if trimmed == "" {
			return "", false, nil
		}
		parsed, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return "", false, NewValidationError(spec.Name, fmt.Sprintf("%s must be an integer, got %q", spec.Name, typed))
		}
		n = parsed
	default:
		return "", false, paramTypeError(spec, value)
	}
	if n <= 0 {
		return "", false, NewValidationError(spec.Name, fmt.Sprintf("%s must be positive, got %d", spec.Name, n))
	}
	return strconv.FormatInt(n, 10), true, nil
}

// encodeWholeFloat accepts floats with no fractional part, which is how JSON
// decoded params carry integers.
func encodeWholeFloat(spec ParamSpec, value float64) (string, bool, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value != math.Trunc(value) || value >= math.MaxInt64 || value < math.MinInt64 {
		return "", false, NewValidationError(spec.Name, fmt.Sprintf("%s must be an integer, got %v", spec.Name, value))
	}
	return encodeInteger(spec, int64(value))
}

func encodeList(spec ParamSpec, value any) (string, bool, error) {
	var items []string
	switch typed := value.(type) {
	case string:
		items = strings.Split(typed, ",")
	case []string:
		items = typed
	case []any:
		for _, item := range typed {
			raw, ok := stringValue(item)
			if !ok {
				return "", false, paramTypeError(spec, value)
			}
			items = append(items, raw)
		}
	default:
		return "", false, paramTypeError(spec, value)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return "", false, nil
	}
	return strings.Join(out, ","), true, nil
}

func stringValue(value any) (string, bool) {
	switch typed := value.(type) {
	case string:
		return typed, true
	case fmt.Stringer:
		return typed.String(), true
	}
	return "", false
}

func paramTypeError(spec ParamSpec, value any) error {
	return NewValidationError(spec.Name, fmt.Sprintf("%s expects a %s value, got %T", spec.Name, spec.Type, value))
}
