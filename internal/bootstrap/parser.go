package bootstrap

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Fixed shape of `vault operator init` with default settings.
const (
	ShareCount      = 5
	UnsealThreshold = 3
	ShareLength     = 44
	RootTokenLength = 26
	RootTokenLabel  = "Initial Root Token:"
)

var (
	ErrMalformedOutput    = errors.New(`malformed output from "operator init"`)
	ErrShareCount         = errors.New("five (5) unseal keys expected")
	ErrMalformedRootToken = errors.New("malformed initial root token")
)

// Share is one unseal key share. Shares are never persisted.
type Share string

// RootToken is the initial root credential, disclosed once.
type RootToken string

// InitResult holds the secrets produced by one initialization, in the
// order the backend printed them.
type InitResult struct {
	Shares    []Share
	RootToken RootToken
}

// Quorum returns the shares applied during unseal: the first
// UnsealThreshold shares in parse order.
func (r *InitResult) Quorum() []Share {
	if len(r.Shares) < UnsealThreshold {
		return r.Shares
	}
	return r.Shares[:UnsealThreshold]
}

// InitParser couples the init command with the parser for its output, so
// the output mode can change without touching the unseal/login sequence.
type InitParser interface {
	Command() []string
	Parse(output string) (*InitResult, error)
}

// TextParser reads the default human-readable init output: five
// "Unseal Key N: <share>" lines followed (after optional blank lines) by
// "Initial Root Token: <token>".
type TextParser struct{}

func (TextParser) Command() []string { return []string{"operator", "init"} }

func (TextParser) Parse(output string) (*InitResult, error) {
	lines := strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n")
	if len(lines) < ShareCount {
		return nil, fmt.Errorf("%w: got %d lines", ErrShareCount, len(lines))
	}

	shares := make([]Share, 0, ShareCount)
	for i, line := range lines[:ShareCount] {
		share, err := parseShareLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		shares = append(shares, share)
	}
	if err := checkShares(shares); err != nil {
		return nil, err
	}

	root, err := parseRootLine(lines[ShareCount:])
	if err != nil {
		return nil, err
	}
	return &InitResult{Shares: shares, RootToken: root}, nil
}

func parseShareLine(line string) (Share, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: empty unseal key line", ErrMalformedOutput)
	}
	key := strings.TrimSpace(fields[len(fields)-1])
	if len(key) != ShareLength {
		return "", fmt.Errorf("%w: unseal key with %d characters expected, got %d", ErrMalformedOutput, ShareLength, len(key))
	}
	return Share(key), nil
}

// parseRootLine takes the first non-blank line after the shares.
func parseRootLine(rest []string) (RootToken, error) {
	for _, line := range rest {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		return checkRoot(strings.TrimSpace(strings.TrimPrefix(line, RootTokenLabel)))
	}
	return "", fmt.Errorf("%w: root token line not found", ErrMalformedRootToken)
}

func checkRoot(token string) (RootToken, error) {
	if len(token) != RootTokenLength {
		return "", fmt.Errorf("%w: %d characters expected, got %d", ErrMalformedRootToken, RootTokenLength, len(token))
	}
	return RootToken(token), nil
}

func checkShares(shares []Share) error {
	if len(shares) != ShareCount {
		return fmt.Errorf("%w: got %d", ErrShareCount, len(shares))
	}
	seen := make(map[Share]struct{}, len(shares))
	for i, s := range shares {
		if len(s) != ShareLength {
			return fmt.Errorf("%w: unseal key %d has %d characters", ErrMalformedOutput, i+1, len(s))
		}
		if _, dup := seen[s]; dup {
			return fmt.Errorf("%w: unseal key %d is a duplicate", ErrMalformedOutput, i+1)
		}
		seen[s] = struct{}{}
	}
	return nil
}

// JSONParser reads `vault operator init -format=json`.
type JSONParser struct{}

func (JSONParser) Command() []string { return []string{"operator", "init", "-format=json"} }

func (JSONParser) Parse(output string) (*InitResult, error) {
	var doc struct {
		UnsealKeysB64 []string `json:"unseal_keys_b64"`
		RootToken     string   `json:"root_token"`
	}
	if err := json.Unmarshal([]byte(output), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if len(doc.UnsealKeysB64) < ShareCount {
		return nil, fmt.Errorf("%w: got %d", ErrShareCount, len(doc.UnsealKeysB64))
	}
	shares := make([]Share, 0, ShareCount)
	for _, k := range doc.UnsealKeysB64[:ShareCount] {
		shares = append(shares, Share(strings.TrimSpace(k)))
	}
	if err := checkShares(shares); err != nil {
		return nil, err
	}
	root, err := checkRoot(strings.TrimSpace(doc.RootToken))
	if err != nil {
		return nil, err
	}
	return &InitResult{Shares: shares, RootToken: root}, nil
}

// ParserFor resolves the --init-format flag.
func ParserFor(format string) (InitParser, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return TextParser{}, nil
	case "json":
		return JSONParser{}, nil
	default:
		return nil, fmt.Errorf("unknown init output format %q (want text or json)", format)
	}
}
