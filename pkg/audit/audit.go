// Package audit records the terminal outcome of every gateway request.
// Events never carry the issued token or the authorization code.
package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Event struct {
	ID        string
	Operation string
	Role      string // empty unless the operation was a login exchange
	Outcome   string // "success" or a failure category
	Code      string // short stable code, empty on success
	RequestID string
	At        time.Time
}

// Recorder persists audit events.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(operation, outcome, code string) Event {
	return Event{
		ID:        uuid.NewString(),
		Operation: operation,
		Outcome:   outcome,
		Code:      code,
		At:        time.Now().UTC(),
	}
}

// Nop discards events.
type Nop struct{}

func (Nop) Record(context.Context, Event) error { return nil }

type multi []Recorder

// Multi fans an event out to every recorder and joins their errors.
func Multi(recs ...Recorder) Recorder {
	var out multi
	for _, r := range recs {
		if r != nil {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return Nop{}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

func (m multi) Record(ctx context.Context, ev Event) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
