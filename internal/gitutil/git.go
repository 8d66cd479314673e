// Package gitutil reads repository facts used as cache keys and checkpoint
// metadata. Every helper degrades to a sentinel value outside a repository.
package gitutil

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// NoVersion is the content version reported outside a git repository.
const NoVersion = "no-git"

// gitTimeout bounds each git invocation.
const gitTimeout = 5 * time.Second

// CommandError describes a failed git invocation.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	if e.Stderr != "" {
		msg += ": " + strings.TrimSpace(e.Stderr)
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	base := []string{"-C", dir, "-c", "maintenance.auto=0", "-c", "gc.auto=0"}
	cmd := exec.CommandContext(ctx, "git", append(base, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.String(), &CommandError{Args: args, Stderr: stderr.String(), Err: err}
	}
	return stdout.String(), nil
}

// HeadSHA returns the commit id of HEAD.
func HeadSHA(ctx context.Context, dir string) (string, error) {
	out, err := runGit(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Branch returns the current branch name ("HEAD" when detached).
func Branch(ctx context.Context, dir string) (string, error) {
	out, err := runGit(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// UncommittedFiles returns the paths reported by git status --porcelain.
func UncommittedFiles(ctx context.Context, dir string) ([]string, error) {
	out, err := runGit(ctx, dir, "status", "--porcelain")
	if err != nil {
		return nil, err
	}
	return parsePorcelain(out), nil
}

func parsePorcelain(out string) []string {
	var files []string
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 4 {
			continue
		}
		path := strings.TrimSpace(line[3:])
		if i := strings.Index(path, " -> "); i >= 0 {
			path = path[i+4:]
		}
		files = append(files, path)
	}
	return files
}

// Versioner provides content versions for gate caching from git.
type Versioner struct {
	Dir string
}

// ContentVersion returns the HEAD commit or NoVersion when unavailable.
func (v Versioner) ContentVersion(ctx context.Context) string {
	sha, err := HeadSHA(ctx, v.Dir)
	if err != nil || sha == "" {
		return NoVersion
	}
	return sha
}

// Info is the repository snapshot stored in checkpoints.
type Info struct {
	Branch      string `json:"branch"`
	SHA         string `json:"sha"`
	Uncommitted int    `json:"uncommittedCount"`
}

// Snapshot collects branch, HEAD and uncommitted count. Fields that cannot be
// read are left empty.
func Snapshot(ctx context.Context, dir string) Info {
	var info Info
	if b, err := Branch(ctx, dir); err == nil {
		info.Branch = b
	}
	if sha, err := HeadSHA(ctx, dir); err == nil {
		info.SHA = sha
	}
	if files, err := UncommittedFiles(ctx, dir); err == nil {
		info.Uncommitted = len(files)
	}
	return info
}
