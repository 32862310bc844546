// Package gateway brokers Google-account logins against the backend's auth
// mount. Each request issues exactly one backend call; failures are
// classified into a small set of categories and the raw backend error is
// only ever logged.
package gateway

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"vaultflow/pkg/audit"
	"vaultflow/pkg/logger"
	"vaultflow/pkg/metrics"
	"vaultflow/pkg/middleware"
)

// Backend is the slice of the auth mount the gateway needs. Errors are
// expected to be *vault.Fault values; *vault.Session implements it.
type Backend interface {
	CodeURL(ctx context.Context) (string, error)
	Roles(ctx context.Context) ([]string, error)
	Login(ctx context.Context, code, role string) (string, error)
}

// LoginExchange is the per-request (code, role) pair submitted by a user.
type LoginExchange struct {
	Code string
	Role string
}

// Gateway holds no per-request state and is safe for concurrent use.
type Gateway struct {
	backend Backend
	log     *zap.SugaredLogger
	audit   audit.Recorder
}

// New constructs a Gateway. A nil recorder disables auditing.
func New(backend Backend, log *zap.SugaredLogger, rec audit.Recorder) *Gateway {
	if rec == nil {
		rec = audit.Nop{}
	}
	return &Gateway{backend: backend, log: log, audit: rec}
}

// AuthorizationURL returns the Google consent URL to redirect the user to.
func (g *Gateway) AuthorizationURL(ctx context.Context) (string, error) {
	started := time.Now()
	url, err := g.backend.CodeURL(ctx)
	metrics.ObserveBackend(string(OpAuthorizationURL), started)
	if err != nil {
		return "", g.fail(ctx, OpAuthorizationURL, "", err)
	}
	g.succeed(ctx, OpAuthorizationURL, "")
	return url, nil
}

// ListRoles returns the role names registered under the mount. Roles are
// fetched per request and never cached.
func (g *Gateway) ListRoles(ctx context.Context) ([]string, error) {
	started := time.Now()
	roles, err := g.backend.Roles(ctx)
	metrics.ObserveBackend(string(OpListRoles), started)
	if err != nil {
		return nil, g.fail(ctx, OpListRoles, "", err)
	}
	g.succeed(ctx, OpListRoles, "")
	return roles, nil
}

// Exchange trades the authorization code for a backend token bound to the
// selected role. Empty input is rejected without calling the backend.
func (g *Gateway) Exchange(ctx context.Context, in LoginExchange) (string, error) {
	code, role := strings.TrimSpace(in.Code), strings.TrimSpace(in.Role)
	if code == "" || role == "" {
		out := &Outcome{
			Operation: OpExchange,
			Category:  CategoryInvalidRequest,
			Code:      CodeMissingLoginInput,
			Cause:     errors.New("login form requires both code and role"),
		}
		g.report(ctx, out, role)
		return "", out
	}

	started := time.Now()
	token, err := g.backend.Login(ctx, code, role)
	metrics.ObserveBackend(string(OpExchange), started)
	if err != nil {
		return "", g.fail(ctx, OpExchange, role, err)
	}
	g.succeed(ctx, OpExchange, role)
	return token, nil
}

func (g *Gateway) fail(ctx context.Context, op Operation, role string, err error) *Outcome {
	out := classify(op, err)
	g.report(ctx, out, role)
	return out
}

func (g *Gateway) report(ctx context.Context, out *Outcome, role string) {
	fault := "none"
	if out.Fault != 0 {
		fault = out.Fault.String()
	}
	g.log.Warnw("gateway request failed",
		logger.KeyOperation, out.Operation,
		logger.KeyCode, out.Code,
		logger.KeyCategory, out.Category,
		logger.KeyFault, fault,
		logger.KeyRequestID, middleware.RequestIDFrom(ctx),
		logger.KeyErr, out.Cause,
	)
	metrics.RecordOutcome(string(out.Operation), string(out.Category))
	g.record(ctx, out.Operation, role, string(out.Category), out.Code)
}

func (g *Gateway) succeed(ctx context.Context, op Operation, role string) {
	metrics.RecordOutcome(string(op), metrics.OutcomeSuccess)
	g.record(ctx, op, role, metrics.OutcomeSuccess, "")
}

func (g *Gateway) record(ctx context.Context, op Operation, role, outcome, code string) {
	ev := audit.NewEvent(string(op), outcome, code)
	ev.Role = role
	ev.RequestID = middleware.RequestIDFrom(ctx)
	if err := g.audit.Record(ctx, ev); err != nil {
		metrics.AuditFailuresTotal.Inc()
		g.log.Warnw("audit record failed", logger.KeyOperation, op, logger.KeyErr, err)
	}
}
