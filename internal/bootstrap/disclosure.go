package bootstrap

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects how the one-time disclosure block is rendered.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat resolves the --format flag.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown disclosure format %q (want text, json or yaml)", s)
	}
}

type disclosure struct {
	RootToken  string   `json:"root_token" yaml:"root_token"`
	UnsealKeys []string `json:"unseal_keys" yaml:"unseal_keys"`
	Threshold  int      `json:"unseal_threshold" yaml:"unseal_threshold"`
}

// Disclose writes the root token and every share, numbered 1..N in parse
// order. There is no way to display them again.
func Disclose(w io.Writer, f Format, res *InitResult) error {
	d := disclosure{RootToken: string(res.RootToken), Threshold: UnsealThreshold}
	for _, s := range res.Shares {
		d.UnsealKeys = append(d.UnsealKeys, string(s))
	}

	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return err
		}
		return enc.Close()
	default:
		var b strings.Builder
		b.WriteString("\n")
		fmt.Fprintf(&b, " ! initial root token: %s\n", d.RootToken)
		b.WriteString(" ! unseal keys:\n")
		for i, k := range d.UnsealKeys {
			fmt.Fprintf(&b, "   %d. %s\n", i+1, k)
		}
		_, err := io.WriteString(w, b.String())
		return err
	}
}
