// Package hooks implements the agent-runtime hook surfaces: session start,
// pre- and post-tool-use, and subagent stop. Every hook reads one JSON
// payload, writes one JSON document, and never fails the host process.
package hooks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/threadwork-cc/threadwork/internal/gitutil"
	"github.com/threadwork-cc/threadwork/internal/project"
	"github.com/threadwork-cc/threadwork/internal/ralph"
)

// Event names a hook surface.
type Event string

const (
	SessionStart Event = "session-start"
	PreToolUse   Event = "pre-tool-use"
	PostToolUse  Event = "post-tool-use"
	SubagentStop Event = "subagent-stop"
)

// Events lists the supported events in registration order.
var Events = []Event{SessionStart, PreToolUse, PostToolUse, SubagentStop}

// ParseEvent resolves an event name.
func ParseEvent(s string) (Event, error) {
	e := Event(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Events {
		if e == known {
			return e, nil
		}
	}
	return "", fmt.Errorf("%w %q (valid: session-start|pre-tool-use|post-tool-use|subagent-stop)", ErrUnknownEvent, s)
}

// Runner dispatches hook events for one project.
type Runner struct {
	proj     *project.Context
	gates    ralph.GateRunner
	snapshot func(ctx context.Context, dir string) gitutil.Info
	newID    func() string
	stderr   io.Writer
	minimal  bool
	logger   *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithGates overrides the gate runner used by subagent-stop.
func WithGates(g ralph.GateRunner) Option {
	return func(r *Runner) { r.gates = g }
}

// WithSnapshot overrides how checkpoint git info is collected.
func WithSnapshot(fn func(ctx context.Context, dir string) gitutil.Info) Option {
	return func(r *Runner) { r.snapshot = fn }
}

// WithIDs overrides the usage record ID generator.
func WithIDs(fn func() string) Option {
	return func(r *Runner) { r.newID = fn }
}

// WithStderr sets where user-facing warnings go.
func WithStderr(w io.Writer) Option {
	return func(r *Runner) { r.stderr = w }
}

// WithMinimal makes session-start emit only project and task.
func WithMinimal(on bool) Option {
	return func(r *Runner) { r.minimal = on }
}

// NewRunner creates a hook runner for proj.
func NewRunner(proj *project.Context, opts ...Option) *Runner {
	r := &Runner{
		proj:     proj,
		snapshot: gitutil.Snapshot,
		newID:    func() string { return ulid.Make().String() },
		stderr:   os.Stderr,
		logger:   proj.Log("hooks"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.gates == nil {
		r.gates = proj.Gates(nil)
	}
	return r
}

// Run handles one event. It always writes a response appropriate for the
// event and never returns an error; faults are logged to the hook log.
func (r *Runner) Run(ctx context.Context, event Event, in io.Reader, out io.Writer) {
	p := readPayload(in)
	log := r.logger.With("hook", string(event))

	var resp any
	switch event {
	case SessionStart:
		resp = ralph.Guard(log, string(event), any(nil), func() any { return r.sessionStart(p) })
	case PreToolUse:
		resp = ralph.Guard(log, string(event), any(p), func() any { return r.preToolUse(p) })
	case PostToolUse:
		// The payload is echoed before bookkeeping so the tool result is
		// never held up by it.
		r.write(log, out, p)
		ralph.Guard(log, string(event), struct{}{}, func() struct{} {
			r.postToolUse(ctx, p)
			return struct{}{}
		})
		return
	case SubagentStop:
		resp = ralph.Guard(log, string(event), any(StopResponseFor(ralph.Decision{Action: ralph.ActionAllow})),
			func() any { return r.subagentStop(ctx, p) })
	default:
		log.Error("unknown hook event", "event", string(event))
		resp = p
	}
	if resp != nil {
		r.write(log, out, resp)
	}
}

func (r *Runner) write(log *slog.Logger, out io.Writer, v any) {
	if err := encode(out, v); err != nil {
		log.Error("hook response not written", "error", err)
	}
}

func (r *Runner) warn(msg string) {
	fmt.Fprintf(r.stderr, "\n%s\n", msg) //nolint:errcheck // best-effort terminal notice
}
