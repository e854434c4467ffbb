package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"unicode/utf8"
)

// CommandError describes a command that could not be started or exited non-zero.
type CommandError struct {
	Name     string
	Args     []string
	ExitCode int
	Stderr   string
	NotFound bool
	Err      error
}

func (e *CommandError) Error() string {
	if e.NotFound {
		return fmt.Sprintf("command '%s' not found in PATH", e.Name)
	}
	if e.Stderr != "" {
		return fmt.Sprintf("command '%s' failed (exit %d): %v\nstderr: %s", e.Name, e.ExitCode, e.Err, e.Stderr)
	}
	return fmt.Sprintf("command '%s' failed (exit %d): %v", e.Name, e.ExitCode, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

type implExecutor struct{}

// New creates a new Executor instance
func New() Executor {
	return &implExecutor{}
}

// Execute runs an external command with the given arguments
func (e *implExecutor) Execute(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		cmdErr := &CommandError{
			Name:     name,
			Args:     args,
			ExitCode: -1,
			Stderr:   tail(strings.TrimSpace(stderr.String()), 2000),
			NotFound: errors.Is(err, exec.ErrNotFound),
			Err:      err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			cmdErr.ExitCode = exitErr.ExitCode()
		}
		if ctx.Err() != nil {
			cmdErr.Err = ctx.Err()
		}
		return "", cmdErr
	}

	return stdout.String(), nil
}

// LookPath resolves name against PATH
func (e *implExecutor) LookPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", &CommandError{Name: name, ExitCode: -1, NotFound: true, Err: err}
	}
	return path, nil
}

// tail keeps at most the last n bytes of s without splitting a rune;
// ffmpeg prints the useful part of its diagnostics at the end.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := len(s) - n
	for cut < len(s) && !utf8.RuneStart(s[cut]) {
		cut++
	}
	return "..." + s[cut:]
}
