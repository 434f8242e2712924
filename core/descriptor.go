package core

import (
	"regexp"
	"strings"
)

type AuthScope int

const (
	AuthNone AuthScope = iota
	AuthApplication
	AuthUser
)

func (s AuthScope) String() string {
	switch s {
	case AuthApplication:
		return "application"
	case AuthUser:
		return "user"
	default:
		return "none"
	}
}

type ParamType string

const (
	ParamString  ParamType = "string"
	ParamEnum    ParamType = "enum"
	ParamDate    ParamType = "date"
	ParamInteger ParamType = "integer"
	ParamList    ParamType = "list"
)

type Operation string

const (
	OpList Operation = "list"
	OpGet  Operation = "get"
)

// ParamSpec declares one recognized query parameter. Wire defaults to Name.
type ParamSpec struct {
	Name       string
	Wire       string
	Type       ParamType
	Values     []string
	AllowEmpty bool
}

func (p ParamSpec) wireName() string {
	return firstNonEmpty(p.Wire, p.Name)
}

// Descriptor is the static contract for one remote collection. Path may hold
// {placeholders}; each one becomes a required parameter.
type Descriptor struct {
	Name       string
	Path       string
	IDField    string
	Auth       AuthScope
	Operations []Operation
	ListParams []ParamSpec
	GetParams  []ParamSpec
}

var pathPlaceholder = regexp.MustCompile(`\{([a-z_]+)\}`)

func (d Descriptor) Supports(op Operation) bool {
	for _, candidate := range d.Operations {
		if candidate == op {
			return true
		}
	}
	return false
}

func (d Descriptor) PathParams() []string {
	matches := pathPlaceholder.FindAllStringSubmatch(d.Path, -1)
	out := make([]string, 0, len(matches))
	for _, match := range matches {
		out = append(out, match[1])
	}
	return out
}

func (d Descriptor) params(op Operation) []ParamSpec {
	if op == OpGet {
		return d.GetParams
	}
	return d.ListParams
}

var (
	sortParam      = ParamSpec{Name: "sort", Type: ParamEnum, Values: []string{"asc", "desc"}}
	fromDateParam  = ParamSpec{Name: "from_date", Wire: "from", Type: ParamDate}
	toDateParam    = ParamSpec{Name: "to_date", Wire: "to", Type: ParamDate}
	walletParam    = ParamSpec{Name: "wallet", Type: ParamString}
	tickerParam    = ParamSpec{Name: "ticker", Type: ParamString}
	lastParam      = ParamSpec{Name: "last", Type: ParamString, AllowEmpty: true}
	limitParam     = ParamSpec{Name: "limit", Type: ParamInteger}
	typesParam     = ParamSpec{Name: "types", Type: ParamList}
	excludeParam   = ParamSpec{Name: "exclude_fields", Type: ParamList}
	categoryParam  = ParamSpec{Name: "category", Type: ParamString}
	defaultIDField = "id"
)

var ProvidersDescriptor = Descriptor{
	Name:       "providers",
	Path:       "/providers",
	IDField:    "name",
	Auth:       AuthNone,
	Operations: []Operation{OpList, OpGet},
	ListParams: []ParamSpec{categoryParam},
}

var AccountsDescriptor = Descriptor{
	Name:       "accounts",
	Path:       "/accounts",
	IDField:    defaultIDField,
	Auth:       AuthUser,
	Operations: []Operation{OpList, OpGet},
	ListParams: []ParamSpec{walletParam, tickerParam, fromDateParam, toDateParam, sortParam},
	GetParams:  []ParamSpec{walletParam},
}

var TransactionsDescriptor = Descriptor{
	Name:       "transactions",
	Path:       "/accounts/{account_id}/transactions",
	IDField:    defaultIDField,
	Auth:       AuthUser,
	Operations: []Operation{OpList, OpGet},
	ListParams: []ParamSpec{
		tickerParam, fromDateParam, toDateParam, walletParam,
		lastParam, limitParam, sortParam, typesParam, excludeParam,
	},
}

var HistoryDescriptor = Descriptor{
	Name:       "history",
	Path:       "/accounts/{account_id}/history",
	IDField:    "date",
	Auth:       AuthUser,
	Operations: []Operation{OpList},
	ListParams: []ParamSpec{fromDateParam, toDateParam, walletParam},
}

var OrdersDescriptor = Descriptor{
	Name:       "orders",
	Path:       "/accounts/{account_id}/orders",
	IDField:    defaultIDField,
	Auth:       AuthUser,
	Operations: []Operation{OpList, OpGet},
	ListParams: []ParamSpec{fromDateParam, toDateParam, lastParam, limitParam, sortParam},
}

func normalizeParamName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
