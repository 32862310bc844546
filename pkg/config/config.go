// pkg/config/config.go
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is read once from the environment (and .env, when present).
type Config struct {
	Env      string
	HTTPAddr string // gateway-service

	// Vault auth mount the gateway brokers logins for. All three are required.
	VaultAuthPath string
	VaultAddress  string
	VaultToken    string
	VaultTimeout  time.Duration
	// TLS verification toggle for self-signed dev backends
	VaultSkipVerify bool

	// Audit sinks (both optional)
	RedisURL    string
	DatabaseURL string
}

// ErrMissingConfig is wrapped by Validate for every absent required value.
var ErrMissingConfig = errors.New("missing required configuration")

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Env:             env("VAULTFLOW_ENV", "dev"),
		HTTPAddr:        env("VAULTFLOW_HTTP_ADDR", ":29747"),
		VaultAuthPath:   strings.Trim(env("VAULT_AUTH_PATH", ""), "/"),
		VaultAddress:    env("VAULT_SERVER_ENDPOINT", ""),
		VaultToken:      env("VAULT_AUTH_TOKEN", ""),
		VaultTimeout:    envDur("VAULT_TIMEOUT_SEC", 10) * time.Second,
		VaultSkipVerify: envBool("VAULT_TLS_SKIP_VERIFY", false),
		RedisURL:        env("REDIS_URL", ""),
		DatabaseURL:     env("DATABASE_URL", ""),
	}
	return cfg
}

// Validate reports every missing value the gateway cannot start without.
func (c Config) Validate() error {
	var missing []string
	if c.VaultAuthPath == "" {
		missing = append(missing, "VAULT_AUTH_PATH")
	}
	if c.VaultAddress == "" {
		missing = append(missing, "VAULT_SERVER_ENDPOINT")
	}
	if c.VaultToken == "" {
		missing = append(missing, "VAULT_AUTH_TOKEN")
	}
	if len(missing) > 0 {
		return errors.Join(ErrMissingConfig, errors.New(strings.Join(missing, ", ")))
	}
	return nil
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
func envBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		b, _ := strconv.ParseBool(v)
		return b
	}
	return def
}
func envDur(k string, def int) time.Duration {
	if v := os.Getenv(k); v != "" {
		i, _ := strconv.Atoi(v)
		return time.Duration(i)
	}
	return time.Duration(def)
}
