// Package bootstrap turns a freshly provisioned, sealed backend into an
// unsealed one: init, parse the shares and root token, unseal with the
// quorum, log in, and disclose the generated secrets once.
//
// The sequence is strictly linear. Any failure aborts the remaining steps;
// nothing already applied (init, partial unseal) is undone.
package bootstrap

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// Coordinator runs the bootstrap sequence over a Runner.
type Coordinator struct {
	runner     Runner
	parser     InitParser
	progress   io.Writer
	disclosure io.Writer
	format     Format
	log        *zap.SugaredLogger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithParser selects how init output is read (default TextParser).
func WithParser(p InitParser) Option { return func(c *Coordinator) { c.parser = p } }

// WithProgress sets where progress lines go (default io.Discard).
func WithProgress(w io.Writer) Option { return func(c *Coordinator) { c.progress = w } }

// WithDisclosure sets where the one-time secrets block is written and in
// which format (default io.Discard, text).
func WithDisclosure(w io.Writer, f Format) Option {
	return func(c *Coordinator) { c.disclosure, c.format = w, f }
}

// WithLogger attaches a logger for step-level debug output.
func WithLogger(log *zap.SugaredLogger) Option { return func(c *Coordinator) { c.log = log } }

// New constructs a Coordinator.
func New(runner Runner, opts ...Option) *Coordinator {
	c := &Coordinator{
		runner:     runner,
		parser:     TextParser{},
		progress:   io.Discard,
		disclosure: io.Discard,
		format:     FormatText,
		log:        zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Bootstrap runs init → parse → unseal(quorum) → login → disclose.
func (c *Coordinator) Bootstrap(ctx context.Context) (*InitResult, error) {
	c.step("")
	c.step("started")

	out, err := run(ctx, c.runner, c.parser.Command()...)
	if err != nil {
		return nil, err
	}
	c.step("vault initialized")

	res, err := c.parser.Parse(out)
	if err != nil {
		return nil, err
	}
	c.step("got unseal keys")
	c.step("got initial root key")

	// No seal-status checks between shares: the backend itself decides
	// when the threshold is met.
	for i, share := range res.Quorum() {
		if _, err := run(ctx, c.runner, "operator", "unseal", string(share)); err != nil {
			return nil, fmt.Errorf("unseal with key %d: %w", i+1, err)
		}
		c.log.Debugw("unseal key applied", "index", i+1)
	}
	c.step("vault unsealed")

	if _, err := run(ctx, c.runner, "login", string(res.RootToken)); err != nil {
		return nil, fmt.Errorf("login with root token: %w", err)
	}
	c.step("logged successfully")

	if err := Disclose(c.disclosure, c.format, res); err != nil {
		return res, fmt.Errorf("write disclosure: %w", err)
	}

	c.step("")
	c.step("done")
	return res, nil
}

func (c *Coordinator) step(msg string) {
	if msg == "" {
		fmt.Fprintln(c.progress)
		return
	}
	fmt.Fprintf(c.progress, " > %s\n", msg)
}
