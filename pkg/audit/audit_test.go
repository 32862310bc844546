package audit

import (
	"context"
	"errors"
	"testing"
)

type captureRecorder struct {
	events []Event
	err    error
}

func (c *captureRecorder) Record(_ context.Context, ev Event) error {
	c.events = append(c.events, ev)
	return c.err
}

func TestNewEvent(t *testing.T) {
	ev := NewEvent("exchange", "forbidden", "L002")
	if ev.ID == "" {
		t.Error("NewEvent() left ID empty")
	}
	if ev.At.IsZero() || ev.At.Location().String() != "UTC" {
		t.Errorf("NewEvent() At = %v, want non-zero UTC time", ev.At)
	}
	if ev.Operation != "exchange" || ev.Outcome != "forbidden" || ev.Code != "L002" {
		t.Errorf("NewEvent() = %+v", ev)
	}
	if other := NewEvent("exchange", "forbidden", "L002"); other.ID == ev.ID {
		t.Error("NewEvent() reused an ID")
	}
}

func TestMulti(t *testing.T) {
	t.Run("no recorders is a nop", func(t *testing.T) {
		if _, ok := Multi().(Nop); !ok {
			t.Error("Multi() without recorders should return Nop")
		}
		if _, ok := Multi(nil, nil).(Nop); !ok {
			t.Error("Multi(nil, nil) should return Nop")
		}
	})

	t.Run("single recorder is returned as is", func(t *testing.T) {
		c := &captureRecorder{}
		if got := Multi(nil, c); got != Recorder(c) {
			t.Errorf("Multi(nil, c) = %T, want the recorder itself", got)
		}
	})

	t.Run("fans out and joins errors", func(t *testing.T) {
		errSink := errors.New("sink down")
		a := &captureRecorder{}
		b := &captureRecorder{err: errSink}
		rec := Multi(a, b)

		err := rec.Record(context.Background(), NewEvent("list_roles", "success", ""))
		if !errors.Is(err, errSink) {
			t.Errorf("Record() error = %v, want %v", err, errSink)
		}
		if len(a.events) != 1 || len(b.events) != 1 {
			t.Errorf("events delivered: a=%d b=%d, want 1 each", len(a.events), len(b.events))
		}
	})
}
