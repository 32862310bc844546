package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"vaultflow/pkg/audit"
	"vaultflow/pkg/middleware"
	"vaultflow/pkg/vault"
)

// fakeBackend returns canned values or faults and counts calls.
type fakeBackend struct {
	mu sync.Mutex

	url   string
	roles []string
	token string
	err   error

	codeURLCalls int
	rolesCalls   int
	loginCalls   int
	lastCode     string
	lastRole     string
}

func (f *fakeBackend) CodeURL(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codeURLCalls++
	return f.url, f.err
}

func (f *fakeBackend) Roles(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rolesCalls++
	return f.roles, f.err
}

func (f *fakeBackend) Login(_ context.Context, code, role string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls++
	f.lastCode, f.lastRole = code, role
	return f.token, f.err
}

func (f *fakeBackend) loginCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginCalls
}

type memRecorder struct {
	mu     sync.Mutex
	events []audit.Event
}

func (m *memRecorder) Record(_ context.Context, ev audit.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func fault(kind vault.FaultKind) error {
	return &vault.Fault{Kind: kind, Op: "test", Path: "auth/googleacc/x", Cause: errors.New("raw backend detail")}
}

func newTestGateway(b Backend) (*Gateway, *observer.ObservedLogs, *memRecorder) {
	core, logs := observer.New(zapcore.DebugLevel)
	rec := &memRecorder{}
	return New(b, zap.New(core).Sugar(), rec), logs, rec
}

func TestClassify_FaultSites(t *testing.T) {
	tests := []struct {
		op       Operation
		kind     vault.FaultKind
		category Category
		code     string
	}{
		{OpAuthorizationURL, vault.FaultConnection, CategoryConnectionError, "A001"},
		{OpAuthorizationURL, vault.FaultInvalidRequest, CategoryIncorrectlyConfigured, "A002"},
		{OpAuthorizationURL, vault.FaultLookup, CategoryIncorrectlyConfigured, "A003"},
		{OpAuthorizationURL, vault.FaultForbidden, CategoryIncorrectlyConfigured, "A004"},
		{OpListRoles, vault.FaultConnection, CategoryConnectionError, "R001"},
		{OpListRoles, vault.FaultLookup, CategoryIncorrectlyConfigured, "R002"},
		{OpListRoles, vault.FaultForbidden, CategoryIncorrectlyConfigured, "R003"},
		{OpListRoles, vault.FaultInvalidRequest, CategoryIncorrectlyConfigured, "R004"},
		{OpExchange, vault.FaultConnection, CategoryConnectionError, "L001"},
		{OpExchange, vault.FaultForbidden, CategoryForbidden, "L002"},
		{OpExchange, vault.FaultInvalidRequest, CategoryInvalidRequest, "L003"},
		{OpExchange, vault.FaultLookup, CategoryIncorrectlyConfigured, "L004"},
	}

	seen := map[string]bool{}
	for _, tt := range tests {
		t.Run(string(tt.op)+"/"+tt.kind.String(), func(t *testing.T) {
			out := classify(tt.op, fault(tt.kind))
			if out.Category != tt.category || out.Code != tt.code {
				t.Errorf("classify() = %s/%s, want %s/%s", out.Category, out.Code, tt.category, tt.code)
			}
			if out.Fault != tt.kind {
				t.Errorf("Fault = %s, want %s", out.Fault, tt.kind)
			}
		})
		if seen[tt.code] {
			t.Errorf("code %s assigned to more than one fault site", tt.code)
		}
		seen[tt.code] = true
	}
}

func TestClassify_PlainErrorIsConnection(t *testing.T) {
	out := classify(OpListRoles, errors.New("dial tcp: connection refused"))
	if out.Category != CategoryConnectionError || out.Code != "R001" {
		t.Errorf("classify() = %s/%s, want connection_error/R001", out.Category, out.Code)
	}
}

func TestExchange_Success(t *testing.T) {
	b := &fakeBackend{token: "hvs.issued"}
	g, _, rec := newTestGateway(b)

	token, err := g.Exchange(context.Background(), LoginExchange{Code: " 4/abc ", Role: "dev"})
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if token != "hvs.issued" {
		t.Errorf("Exchange() = %q", token)
	}
	if b.lastCode != "4/abc" || b.lastRole != "dev" {
		t.Errorf("backend got code=%q role=%q", b.lastCode, b.lastRole)
	}
	if len(rec.events) != 1 || rec.events[0].Outcome != "success" || rec.events[0].Role != "dev" {
		t.Errorf("audit events = %+v", rec.events)
	}
}

func TestExchange_ForbiddenIsDeterministic(t *testing.T) {
	b := &fakeBackend{err: fault(vault.FaultForbidden)}
	g, _, _ := newTestGateway(b)

	for i := 0; i < 3; i++ {
		_, err := g.Exchange(context.Background(), LoginExchange{Code: "c", Role: "admin"})
		var out *Outcome
		if !errors.As(err, &out) {
			t.Fatalf("call %d: error %v is not an *Outcome", i, err)
		}
		if out.Category != CategoryForbidden || out.Code != "L002" {
			t.Errorf("call %d: got %s/%s, want forbidden/L002", i, out.Category, out.Code)
		}
	}
}

func TestExchange_ConnectionErrorNoRetry(t *testing.T) {
	b := &fakeBackend{err: fault(vault.FaultConnection)}
	g, _, _ := newTestGateway(b)

	_, err := g.Exchange(context.Background(), LoginExchange{Code: "c", Role: "dev"})
	var out *Outcome
	if !errors.As(err, &out) || out.Category != CategoryConnectionError {
		t.Fatalf("Exchange() error = %v, want connection_error", err)
	}
	if b.loginCalls != 1 {
		t.Errorf("backend login calls = %d, want 1", b.loginCalls)
	}
}

func TestExchange_InvalidRequest(t *testing.T) {
	b := &fakeBackend{err: fault(vault.FaultInvalidRequest)}
	g, _, _ := newTestGateway(b)

	_, err := g.Exchange(context.Background(), LoginExchange{Code: "c", Role: "dev"})
	var out *Outcome
	if !errors.As(err, &out) || out.Category != CategoryInvalidRequest || out.Code != "L003" {
		t.Fatalf("Exchange() error = %v, want invalid_request/L003", err)
	}
}

func TestExchange_MissingInputSkipsBackend(t *testing.T) {
	for name, in := range map[string]LoginExchange{
		"no code":     {Role: "dev"},
		"no role":     {Code: "c"},
		"blank both":  {Code: "  ", Role: "\t"},
		"empty input": {},
	} {
		t.Run(name, func(t *testing.T) {
			b := &fakeBackend{token: "unused"}
			g, _, _ := newTestGateway(b)

			_, err := g.Exchange(context.Background(), in)
			var out *Outcome
			if !errors.As(err, &out) || out.Code != CodeMissingLoginInput || out.Category != CategoryInvalidRequest {
				t.Fatalf("Exchange() error = %v, want invalid_request/%s", err, CodeMissingLoginInput)
			}
			if b.loginCalls != 0 {
				t.Errorf("backend called %d times, want 0", b.loginCalls)
			}
		})
	}
}

func TestListRoles_NotFoundAndForbiddenLogDistinctCauses(t *testing.T) {
	tests := []struct {
		name      string
		kind      vault.FaultKind
		wantCode  string
		wantFault string
	}{
		{name: "no roles configured", kind: vault.FaultLookup, wantCode: "R002", wantFault: "lookup"},
		{name: "token lacks list", kind: vault.FaultForbidden, wantCode: "R003", wantFault: "forbidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBackend{err: fault(tt.kind)}
			g, logs, _ := newTestGateway(b)
			ctx := middleware.WithRequestID(context.Background(), "req-1")

			_, err := g.ListRoles(ctx)
			var out *Outcome
			if !errors.As(err, &out) {
				t.Fatalf("ListRoles() error = %v", err)
			}
			if out.Category != CategoryIncorrectlyConfigured || out.Code != tt.wantCode {
				t.Errorf("got %s/%s, want incorrectly_configured/%s", out.Category, out.Code, tt.wantCode)
			}

			warns := logs.FilterLevelExact(zapcore.WarnLevel).All()
			if len(warns) != 1 {
				t.Fatalf("warn entries = %d, want 1", len(warns))
			}
			fields := warns[0].ContextMap()
			if fields["fault"] != tt.wantFault {
				t.Errorf("logged fault = %v, want %s", fields["fault"], tt.wantFault)
			}
			if fields["request_id"] != "req-1" {
				t.Errorf("logged request_id = %v", fields["request_id"])
			}
		})
	}
}

func TestAuthorizationURL(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		g, _, _ := newTestGateway(&fakeBackend{url: "https://accounts.google.com/o/oauth2/auth"})
		url, err := g.AuthorizationURL(context.Background())
		if err != nil || url != "https://accounts.google.com/o/oauth2/auth" {
			t.Errorf("AuthorizationURL() = %q, %v", url, err)
		}
	})

	t.Run("mount not enabled", func(t *testing.T) {
		g, _, rec := newTestGateway(&fakeBackend{err: fault(vault.FaultLookup)})
		_, err := g.AuthorizationURL(context.Background())
		var out *Outcome
		if !errors.As(err, &out) || out.Code != "A003" {
			t.Fatalf("AuthorizationURL() error = %v, want A003", err)
		}
		if len(rec.events) != 1 || rec.events[0].Code != "A003" || rec.events[0].Outcome != string(CategoryIncorrectlyConfigured) {
			t.Errorf("audit events = %+v", rec.events)
		}
	})
}

func TestOutcome_ErrorHidesCause(t *testing.T) {
	out := classify(OpExchange, fault(vault.FaultForbidden))
	if got := out.Error(); got != "exchange: forbidden [L002]" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(out, out.Cause) {
		t.Error("Outcome should unwrap to its cause")
	}
}
