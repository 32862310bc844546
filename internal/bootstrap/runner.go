package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Runner is the command channel to the backend's admin CLI. Args are the
// CLI arguments after the binary name ("operator", "init", ...). A non-zero
// exit is reported through exitCode, not err; err is for failures to run
// the command at all.
type Runner interface {
	Exec(ctx context.Context, args ...string) (exitCode int, output string, err error)
}

// CommandError reports a failed CLI invocation with everything the operator
// needs to diagnose it.
type CommandError struct {
	Command  string
	ExitCode int
	Output   string
	Cause    error
}

func (e *CommandError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("command %q failed: %v", e.Command, e.Cause)
	}
	return fmt.Sprintf("command %q failed with code %d; got:\n\n%s", e.Command, e.ExitCode, e.Output)
}

// Unwrap returns the underlying cause for errors.As/Is support.
func (e *CommandError) Unwrap() error {
	return e.Cause
}

// IsCommandError returns true if err is a *CommandError.
func IsCommandError(err error) bool {
	var cmdErr *CommandError
	return errors.As(err, &cmdErr)
}

// DockerRunner runs the vault CLI inside a container with `docker exec`.
type DockerRunner struct {
	Container string
	Binary    string // defaults to "vault"
}

func (d DockerRunner) Exec(ctx context.Context, args ...string) (int, string, error) {
	if d.Container == "" {
		return 0, "", errors.New("docker runner: container name is required")
	}
	bin := d.Binary
	if bin == "" {
		bin = "vault"
	}
	full := append([]string{"exec", d.Container, bin}, args...)
	return combined(exec.CommandContext(ctx, "docker", full...))
}

// LocalRunner runs the vault CLI found on PATH (or Binary).
type LocalRunner struct {
	Binary string // defaults to "vault"
}

func (l LocalRunner) Exec(ctx context.Context, args ...string) (int, string, error) {
	bin := l.Binary
	if bin == "" {
		bin = "vault"
	}
	return combined(exec.CommandContext(ctx, bin, args...))
}

func combined(cmd *exec.Cmd) (int, string, error) {
	out, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), string(out), nil
		}
		return -1, string(out), err
	}
	return 0, string(out), nil
}

// run executes args and turns any failure into a *CommandError.
func run(ctx context.Context, r Runner, args ...string) (string, error) {
	code, out, err := r.Exec(ctx, args...)
	if err != nil {
		return out, &CommandError{Command: commandLine(args), ExitCode: code, Output: out, Cause: err}
	}
	if code != 0 {
		return out, &CommandError{Command: commandLine(args), ExitCode: code, Output: out}
	}
	return out, nil
}

func commandLine(args []string) string {
	return "vault " + strings.Join(args, " ")
}
