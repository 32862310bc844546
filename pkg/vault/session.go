package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
	jmes "github.com/jmespath/go-jmespath"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Paths under auth/<mount>/ served by the Google account auth plugin.
const (
	PathCodeURL = "code_url"
	PathRole    = "role"
	PathLogin   = "login"
)

// Response fields the gateway depends on.
const (
	exprCodeURL     = "data.url"
	exprRoleKeys    = "data.keys"
	exprClientToken = "auth.client_token"
)

// DefaultTimeout bounds a single backend call when Config.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// ErrIncompleteSession is returned by NewSession when a required value is empty.
var ErrIncompleteSession = errors.New("vault session requires mount path, address and token")

// Config holds everything needed to build a Session.
type Config struct {
	MountPath  string
	Address    string
	Token      string
	Timeout    time.Duration
	SkipVerify bool
}

// Session is the long-lived, read-only service session against one auth
// mount. The wrapped *api.Client is safe for concurrent use, so a single
// Session serves every request.
type Session struct {
	client  *api.Client
	mount   string
	timeout time.Duration
}

// NewSession validates cfg and creates the backend client. Retries inside
// the client are disabled: transient faults are surfaced to the caller.
func NewSession(cfg Config) (*Session, error) {
	mount := strings.Trim(strings.TrimSpace(cfg.MountPath), "/")
	var missing []string
	if mount == "" {
		missing = append(missing, "mount path")
	}
	if strings.TrimSpace(cfg.Address) == "" {
		missing = append(missing, "address")
	}
	if strings.TrimSpace(cfg.Token) == "" {
		missing = append(missing, "token")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrIncompleteSession, strings.Join(missing, ", "))
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	config := api.DefaultConfig()
	if config.Error != nil {
		return nil, fmt.Errorf("failed to build vault config: %w", config.Error)
	}
	config.Address = cfg.Address
	config.Timeout = timeout
	config.MaxRetries = 0

	if cfg.SkipVerify {
		if err := config.ConfigureTLS(&api.TLSConfig{Insecure: true}); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}
	// ConfigureTLS needs the bare *http.Transport, so instrument afterwards.
	config.HttpClient.Transport = otelhttp.NewTransport(config.HttpClient.Transport)

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	return &Session{client: client, mount: mount, timeout: timeout}, nil
}

// MountPath returns the auth mount this session talks to.
func (s *Session) MountPath() string {
	return s.mount
}

func (s *Session) authPath(sub string) string {
	return "auth/" + s.mount + "/" + sub
}

// CodeURL reads the Google consent URL configured on the mount.
func (s *Session) CodeURL(ctx context.Context) (string, error) {
	path := s.authPath(PathCodeURL)
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	secret, err := s.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return "", Classify("read", path, err)
	}
	return stringField("read", path, secret, exprCodeURL)
}

// Roles lists the role names registered under the mount.
func (s *Session) Roles(ctx context.Context) ([]string, error) {
	path := s.authPath(PathRole)
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	secret, err := s.client.Logical().ListWithContext(ctx, path)
	if err != nil {
		return nil, Classify("list", path, err)
	}
	v, err := field("list", path, secret, exprRoleKeys)
	if err != nil {
		return nil, err
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, lookupFault("list", path, "%s is %T, want list", exprRoleKeys, v)
	}
	roles := make([]string, 0, len(raw))
	for _, r := range raw {
		if name, ok := r.(string); ok && name != "" {
			roles = append(roles, name)
		}
	}
	return roles, nil
}

// Login exchanges a Google authorization code for a backend token bound to role.
func (s *Session) Login(ctx context.Context, code, role string) (string, error) {
	path := s.authPath(PathLogin)
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	secret, err := s.client.Logical().WriteWithContext(ctx, path, map[string]any{
		"code": code,
		"role": role,
	})
	if err != nil {
		return "", Classify("write", path, err)
	}
	return stringField("write", path, secret, exprClientToken)
}

// Ready reports whether the backend is initialized and unsealed.
func (s *Session) Ready(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	health, err := s.client.Sys().HealthWithContext(ctx)
	if err != nil {
		return false, Classify("read", "sys/health", err)
	}
	return health.Initialized && !health.Sealed, nil
}

func stringField(op, path string, secret *api.Secret, expr string) (string, error) {
	v, err := field(op, path, secret, expr)
	if err != nil {
		return "", err
	}
	str, ok := v.(string)
	if !ok || str == "" {
		return "", lookupFault(op, path, "%s is empty", expr)
	}
	return str, nil
}

// field evaluates a JMESPath expression over the JSON form of secret. A nil
// secret (404 from the client) or an absent field is a lookup fault.
func field(op, path string, secret *api.Secret, expr string) (any, error) {
	if secret == nil {
		return nil, lookupFault(op, path, "no response data")
	}
	raw, err := json.Marshal(secret)
	if err != nil {
		return nil, lookupFault(op, path, "encode response: %v", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, lookupFault(op, path, "decode response: %v", err)
	}
	v, err := jmes.Search(expr, doc)
	if err != nil {
		return nil, lookupFault(op, path, "evaluate %s: %v", expr, err)
	}
	if v == nil {
		return nil, lookupFault(op, path, "%s missing from response", expr)
	}
	return v, nil
}
