package vault

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hashicorp/vault/api"
)

// FaultKind tags a backend failure with the category callers route on.
type FaultKind int

const (
	// FaultConnection: the backend could not be reached or is not serving
	// (transport errors, deadlines, 5xx such as a sealed node's 503).
	FaultConnection FaultKind = iota + 1
	// FaultForbidden: the backend answered 403.
	FaultForbidden
	// FaultInvalidRequest: the backend rejected the request (4xx other than 403/404).
	FaultInvalidRequest
	// FaultLookup: the path does not exist or the response lacks an expected field.
	FaultLookup
)

func (k FaultKind) String() string {
	switch k {
	case FaultConnection:
		return "connection"
	case FaultForbidden:
		return "forbidden"
	case FaultInvalidRequest:
		return "invalid_request"
	case FaultLookup:
		return "lookup"
	default:
		return "unknown"
	}
}

// Fault is the only error type returned by Session operations. Cause keeps
// the raw backend error for logging; it must not be shown to end users.
type Fault struct {
	Kind   FaultKind
	Op     string // read, list, write
	Path   string
	Status int // HTTP status when the backend answered, else 0
	Cause  error
}

func (f *Fault) Error() string {
	if f.Status != 0 {
		return fmt.Sprintf("vault %s %s: %s fault (status %d): %v", f.Op, f.Path, f.Kind, f.Status, f.Cause)
	}
	return fmt.Sprintf("vault %s %s: %s fault: %v", f.Op, f.Path, f.Kind, f.Cause)
}

// Unwrap returns the underlying cause for errors.As/Is support.
func (f *Fault) Unwrap() error {
	return f.Cause
}

// AsFault extracts a *Fault from err.
func AsFault(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// IsKind returns true if err carries a Fault of the given kind.
func IsKind(err error, kind FaultKind) bool {
	f, ok := AsFault(err)
	return ok && f.Kind == kind
}

// Classify maps a transport/client error onto the fault taxonomy.
func Classify(op, path string, err error) *Fault {
	f := &Fault{Op: op, Path: path, Cause: err}

	var respErr *api.ResponseError
	if errors.As(err, &respErr) {
		f.Status = respErr.StatusCode
		f.Kind = kindForStatus(respErr.StatusCode)
		return f
	}
	// No response at all: refused/reset connections, DNS failures and
	// context deadlines all mean the backend is unreachable from here.
	f.Kind = FaultConnection
	return f
}

func kindForStatus(status int) FaultKind {
	switch {
	case status == http.StatusForbidden:
		return FaultForbidden
	case status == http.StatusNotFound:
		return FaultLookup
	case status >= http.StatusInternalServerError:
		return FaultConnection
	default:
		return FaultInvalidRequest
	}
}

func lookupFault(op, path, format string, args ...any) *Fault {
	return &Fault{Kind: FaultLookup, Op: op, Path: path, Cause: fmt.Errorf(format, args...)}
}
