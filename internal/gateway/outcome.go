package gateway

import (
	"fmt"
	"net/http"

	"vaultflow/pkg/vault"
)

// Category is the user-facing class of a failed gateway request.
type Category string

const (
	CategoryConnectionError       Category = "connection_error"
	CategoryIncorrectlyConfigured Category = "incorrectly_configured"
	CategoryForbidden             Category = "forbidden"
	CategoryInvalidRequest        Category = "invalid_request"
)

// Message is the only text about a failure the HTTP caller ever sees.
func (c Category) Message() string {
	switch c {
	case CategoryConnectionError:
		return "Unreachable server"
	case CategoryIncorrectlyConfigured:
		return "Incorrectly configured server"
	case CategoryForbidden:
		return "Authenticated Google account is not authorized to use the selected role"
	case CategoryInvalidRequest:
		return "Invalid login request"
	default:
		return "Unexpected error"
	}
}

// HTTPStatus is the response status for c.
func (c Category) HTTPStatus() int {
	switch c {
	case CategoryConnectionError:
		return http.StatusBadGateway
	case CategoryForbidden:
		return http.StatusForbidden
	case CategoryInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Operation names one of the three brokered backend calls.
type Operation string

const (
	OpAuthorizationURL Operation = "authorization_url"
	OpListRoles        Operation = "list_roles"
	OpExchange         Operation = "exchange"
)

// Outcome is a classified failure. Code is stable per fault site so
// operators can correlate a user report with backend logs.
type Outcome struct {
	Operation Operation
	Category  Category
	Code      string
	Fault     vault.FaultKind // zero for locally rejected input
	Cause     error
}

func (o *Outcome) Error() string {
	return fmt.Sprintf("%s: %s [%s]", o.Operation, o.Category, o.Code)
}

// Unwrap returns the underlying cause for errors.As/Is support.
func (o *Outcome) Unwrap() error {
	return o.Cause
}

type site struct {
	category Category
	code     string
}

// faultSites is the total mapping from (operation, fault kind) to outcome.
// A forbidden read/list means the service token is under-provisioned; a
// forbidden login means the end user's identity is refused for the role.
var faultSites = map[Operation]map[vault.FaultKind]site{
	OpAuthorizationURL: {
		vault.FaultConnection:     {CategoryConnectionError, "A001"},
		vault.FaultInvalidRequest: {CategoryIncorrectlyConfigured, "A002"}, // mount enabled, config never written
		vault.FaultLookup:         {CategoryIncorrectlyConfigured, "A003"}, // mount not enabled
		vault.FaultForbidden:      {CategoryIncorrectlyConfigured, "A004"},
	},
	OpListRoles: {
		vault.FaultConnection:     {CategoryConnectionError, "R001"},
		vault.FaultLookup:         {CategoryIncorrectlyConfigured, "R002"}, // no roles written yet
		vault.FaultForbidden:      {CategoryIncorrectlyConfigured, "R003"},
		vault.FaultInvalidRequest: {CategoryIncorrectlyConfigured, "R004"},
	},
	OpExchange: {
		vault.FaultConnection:     {CategoryConnectionError, "L001"},
		vault.FaultForbidden:      {CategoryForbidden, "L002"},
		vault.FaultInvalidRequest: {CategoryInvalidRequest, "L003"},
		vault.FaultLookup:         {CategoryIncorrectlyConfigured, "L004"},
	},
}

// CodeMissingLoginInput is used when /login arrives without code or role.
const CodeMissingLoginInput = "L000"

// classify converts a backend error into an Outcome. Errors that are not
// vault faults are treated as connection faults: no response was classified.
func classify(op Operation, err error) *Outcome {
	f, ok := vault.AsFault(err)
	if !ok {
		f = vault.Classify(string(op), "", err)
	}
	s, ok := faultSites[op][f.Kind]
	if !ok {
		s = site{CategoryIncorrectlyConfigured, "X000"}
	}
	return &Outcome{Operation: op, Category: s.category, Code: s.code, Fault: f.Kind, Cause: err}
}
