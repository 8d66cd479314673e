// Package procexec runs shell commands for quality gates and reports their
// exit status and output without treating a non-zero exit as an error.
package procexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// DefaultTimeout bounds a single command when no timeout is configured.
const DefaultTimeout = 5 * time.Minute

// Result is the outcome of a finished command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Passed reports whether the command exited zero.
func (r Result) Passed() bool { return r.ExitCode == 0 }

// Output returns stdout followed by stderr, trimmed.
func (r Result) Output() string {
	return strings.TrimSpace(r.Stdout + r.Stderr)
}

// Runner executes commands. A missing binary must be detectable through
// LookPath without running anything.
type Runner interface {
	Run(ctx context.Context, dir, command string) (Result, error)
	LookPath(name string) bool
}

// Shell runs commands through the platform shell (sh -c, or cmd /C on Windows).
type Shell struct {
	// Timeout bounds each command; zero means DefaultTimeout.
	Timeout time.Duration

	// Env is appended to the inherited environment.
	Env []string

	lookPath func(string) (string, error)
}

// NewShell creates a shell runner with the given per-command timeout.
func NewShell(timeout time.Duration) *Shell {
	return &Shell{Timeout: timeout, lookPath: exec.LookPath}
}

// LookPath reports whether name resolves to an executable on PATH.
func (s *Shell) LookPath(name string) bool {
	lp := s.lookPath
	if lp == nil {
		lp = exec.LookPath
	}
	_, err := lp(name)
	return err == nil
}

// Run executes command in dir. A non-zero exit is reported in Result, not as
// an error; errors mean the command could not be run or timed out.
func (s *Shell) Run(ctx context.Context, dir, command string) (Result, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	name, args := shellCommand(command)
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if len(s.Env) > 0 {
		cmd.Env = append(cmd.Environ(), s.Env...)
	}
	// Grandchildren holding the pipes open must not outlive the timeout.
	cmd.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if ctx.Err() == context.DeadlineExceeded {
		res.ExitCode = -1
		return res, fmt.Errorf("%w after %s: %s", ErrCommandTimeout, timeout, command)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, fmt.Errorf("run %q: %w", command, err)
	}
	return res, nil
}

func shellCommand(command string) (string, []string) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C", command}
	}
	return "sh", []string{"-c", command}
}
