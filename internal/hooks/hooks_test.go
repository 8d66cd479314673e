package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/threadwork-cc/threadwork/internal/config"
	"github.com/threadwork-cc/threadwork/internal/gate"
	"github.com/threadwork-cc/threadwork/internal/gitutil"
	"github.com/threadwork-cc/threadwork/internal/project"
	"github.com/threadwork-cc/threadwork/internal/storage"
	"github.com/threadwork-cc/threadwork/internal/tier"
)

type stubGates struct {
	result *gate.RunResult
	panics bool
	calls  int
}

func (s *stubGates) Run(context.Context, gate.Options) (*gate.RunResult, error) {
	s.calls++
	if s.panics {
		panic("gates crashed")
	}
	return s.result, nil
}

func failingRun() *gate.RunResult {
	return &gate.RunResult{Passed: false, Results: []gate.Outcome{
		{Gate: gate.Lint, Blocking: true, Diagnostics: []string{"a.ts:1:1 error no-undef"}},
	}}
}

type fixture struct {
	proj   *project.Context
	gates  *stubGates
	stderr *bytes.Buffer
	runner *Runner
}

func clock() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }

// newFixture builds an initialized project; rec nil leaves it uninitialized.
func newFixture(t *testing.T, rec *project.Record, opts ...Option) *fixture {
	t.Helper()
	root := t.TempDir()
	proj := project.New(root, config.Default(), project.WithClock(clock))
	t.Cleanup(func() { _ = proj.Close() }) //nolint:errcheck // test cleanup
	if rec != nil {
		if err := proj.Store.Write(storage.ProjectFile, rec); err != nil {
			t.Fatal(err)
		}
	}
	f := &fixture{proj: proj, gates: &stubGates{result: &gate.RunResult{Passed: true}}, stderr: &bytes.Buffer{}}
	base := []Option{
		WithGates(f.gates),
		WithStderr(f.stderr),
		WithIDs(func() string { return "01TEST" }),
		WithSnapshot(func(context.Context, string) gitutil.Info {
			return gitutil.Info{Branch: "main", SHA: "abc123", Uncommitted: 2}
		}),
	}
	f.runner = NewRunner(proj, append(base, opts...)...)
	return f
}

func (f *fixture) run(t *testing.T, e Event, payload string) map[string]any {
	t.Helper()
	var out bytes.Buffer
	f.runner.Run(context.Background(), e, strings.NewReader(payload), &out)
	if out.Len() == 0 {
		return nil
	}
	var got map[string]any
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("hook output is not JSON: %v\n%s", err, out.String())
	}
	return got
}

func TestParseEvent(t *testing.T) {
	for _, e := range Events {
		got, err := ParseEvent(" " + strings.ToUpper(string(e)) + " ")
		if err != nil || got != e {
			t.Errorf("ParseEvent(%q) = %q, %v", e, got, err)
		}
	}
	if _, err := ParseEvent("stop"); !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("ParseEvent(stop) error = %v, want ErrUnknownEvent", err)
	}
}

func TestPreToolUse_PassThrough(t *testing.T) {
	f := newFixture(t, &project.Record{ProjectName: "demo"})

	got := f.run(t, PreToolUse, `{"tool_name":"Read","tool_input":{"file_path":"a.go"},"extra":1}`)
	in, _ := got["tool_input"].(map[string]any)
	if got["tool_name"] != "Read" || in["file_path"] != "a.go" || got["extra"] != float64(1) {
		t.Errorf("pass-through altered payload: %v", got)
	}
}

func TestPreToolUse_MalformedInput(t *testing.T) {
	f := newFixture(t, nil)
	got := f.run(t, PreToolUse, `{not json`)
	if len(got) != 0 {
		t.Errorf("malformed payload should echo {}, got %v", got)
	}
}

func TestPreToolUse_TaskPrompt(t *testing.T) {
	f := newFixture(t, &project.Record{SkillTier: tier.Ninja})

	got := f.run(t, PreToolUse, `{"tool_name":"Task","tool_input":{"prompt":"implement login","description":"login"}}`)
	in := got["tool_input"].(map[string]any)
	prompt := in["prompt"].(string)

	if !strings.HasPrefix(prompt, "<!-- Threadwork Context Injection -->\n## Output Style: Ninja Mode") {
		t.Errorf("prompt prefix = %q", prompt[:min(len(prompt), 80)])
	}
	if !strings.HasSuffix(prompt, "\n\n---\n\nimplement login") {
		t.Errorf("original prompt not preserved at the end: %q", prompt)
	}
	if !strings.Contains(prompt, "[TOKEN: 0K/800K used | 0% consumed | 800K remaining]") {
		t.Errorf("dashboard missing from prompt: %q", prompt)
	}
	if in["description"] != "login" {
		t.Errorf("description changed to %v; only the prompt should be injected", in["description"])
	}
}

func TestPreToolUse_TaskDescriptionFallback(t *testing.T) {
	f := newFixture(t, &project.Record{})
	got := f.run(t, PreToolUse, `{"tool_name":"Task","tool_input":{"description":"write tests"}}`)
	desc := got["tool_input"].(map[string]any)["description"].(string)
	if !strings.HasSuffix(desc, "\n\n---\n\nwrite tests") || !strings.Contains(desc, "Advanced Mode") {
		t.Errorf("description = %q", desc)
	}
}

func TestPreToolUse_TeamCreate(t *testing.T) {
	f := newFixture(t, &project.Record{})
	if _, err := f.proj.Tracker().RecordUsage("t1", 760_000, 760_000); err != nil {
		t.Fatal(err)
	}

	got := f.run(t, PreToolUse, `{"tool_name":"TeamCreate","tool_input":{"description":"frontend team"}}`)
	desc := got["tool_input"].(map[string]any)["description"].(string)

	if !strings.HasPrefix(desc, "frontend team\n\n<!-- Threadwork Team Context -->") {
		t.Errorf("team context not appended: %q", desc)
	}
	if !strings.Contains(desc, "🚨 Token budget >90%. Finish current task and run /tw:done immediately.") {
		t.Errorf("critical warning missing: %q", desc)
	}
}

func TestPostToolUse_RecordsUsage(t *testing.T) {
	f := newFixture(t, &project.Record{CurrentPhase: 2, ActiveTask: "T-7"})
	payload := `{"tool_name":"Bash","tool_input":{"command":"ls"},"tool_response":{"stdout":"a\nb"}}`

	got := f.run(t, PostToolUse, payload)
	if got["tool_name"] != "Bash" {
		t.Errorf("payload not echoed: %v", got)
	}

	ledger := f.proj.Tracker().Load()
	if len(ledger.Records) != 1 {
		t.Fatalf("records = %d, want 1", len(ledger.Records))
	}
	rec := ledger.Records[0]
	if rec.ID != "tool-Bash-01TEST" {
		t.Errorf("record ID = %q", rec.ID)
	}
	in, _ := json.Marshal(map[string]any{"command": "ls"})
	out, _ := json.Marshal(map[string]any{"stdout": "a\nb"})
	want := (len(in) + len(out) + 3) / 4
	if rec.Actual != want || rec.Estimated != want {
		t.Errorf("tokens = %d/%d, want %d", rec.Estimated, rec.Actual, want)
	}

	cp := f.proj.ReadCheckpoint()
	if !cp.Active() || cp.Phase != 2 || cp.ActiveTask != "T-7" || cp.Git.SHA != "abc123" || cp.Git.Uncommitted != 2 {
		t.Errorf("checkpoint = %+v", cp)
	}
	if f.stderr.Len() != 0 {
		t.Errorf("unexpected stderr: %q", f.stderr.String())
	}
}

func TestPostToolUse_ThresholdWarning(t *testing.T) {
	f := newFixture(t, &project.Record{})
	if _, err := f.proj.Tracker().RecordUsage("bulk", 650_000, 650_000); err != nil {
		t.Fatal(err)
	}

	f.run(t, PostToolUse, `{"tool_name":"Read","tool_input":{}}`)
	if !strings.Contains(f.stderr.String(), "Token budget at 80%+: 650K used") {
		t.Errorf("stderr = %q, want warning", f.stderr.String())
	}
}

func TestPostToolUse_Uninitialized(t *testing.T) {
	f := newFixture(t, nil)

	got := f.run(t, PostToolUse, `{"tool_name":"Bash"}`)
	if got["tool_name"] != "Bash" {
		t.Errorf("payload not echoed: %v", got)
	}
	if _, err := os.Stat(f.proj.StateDir); !os.IsNotExist(err) {
		t.Error("post-tool-use created state in an uninitialized project")
	}
}

func TestSubagentStop(t *testing.T) {
	t.Run("pass", func(t *testing.T) {
		f := newFixture(t, &project.Record{})
		got := f.run(t, SubagentStop, `{"agent_type":"tw-executor"}`)
		if len(got) != 1 || got["action"] != "allow" {
			t.Errorf("response = %v, want {action: allow}", got)
		}
	})

	t.Run("block", func(t *testing.T) {
		f := newFixture(t, &project.Record{})
		f.gates.result = failingRun()
		got := f.run(t, SubagentStop, `{"agent_type":"tw-executor","agent_id":"a1"}`)
		if got["action"] != "block" || got["retry"] != true {
			t.Fatalf("response = %v", got)
		}
		if got["retryCount"] != float64(1) || got["maxRetries"] != float64(5) {
			t.Errorf("retry %v/%v", got["retryCount"], got["maxRetries"])
		}
		if !strings.Contains(got["message"].(string), "**lint**: a.ts:1:1 error no-undef") {
			t.Errorf("message = %q", got["message"])
		}
	})

	t.Run("coordination", func(t *testing.T) {
		f := newFixture(t, &project.Record{})
		f.gates.result = failingRun()
		got := f.run(t, SubagentStop, `{"subagent_type":"tw-planner"}`)
		if got["action"] != "allow" || f.gates.calls != 0 {
			t.Errorf("response = %v, gate calls = %d", got, f.gates.calls)
		}
	})

	t.Run("escalate", func(t *testing.T) {
		f := newFixture(t, &project.Record{})
		f.gates.result = failingRun()
		var got map[string]any
		for i := 0; i < 6; i++ {
			got = f.run(t, SubagentStop, `{"agent_id":"a1"}`)
		}
		if got["action"] != "allow" || got["escalation"] == nil {
			t.Fatalf("sixth response = %v, want allow with escalation", got)
		}
		if !strings.Contains(f.stderr.String(), "Manual intervention required.") {
			t.Errorf("escalation not printed to stderr: %q", f.stderr.String())
		}
	})

	t.Run("fault", func(t *testing.T) {
		f := newFixture(t, &project.Record{})
		f.gates.panics = true
		got := f.run(t, SubagentStop, `{}`)
		if got["action"] != "allow" {
			t.Errorf("response = %v, want allow", got)
		}
	})

	t.Run("uninitialized", func(t *testing.T) {
		f := newFixture(t, nil)
		f.gates.result = failingRun()
		got := f.run(t, SubagentStop, `{}`)
		if got["action"] != "allow" || f.gates.calls != 0 {
			t.Errorf("response = %v, gate calls = %d", got, f.gates.calls)
		}
	})
}

func TestSessionStart(t *testing.T) {
	rec := &project.Record{ProjectName: "shop", SkillTier: tier.Beginner, CurrentPhase: 3, CurrentMilestone: 1, ActiveTask: "T-3"}

	t.Run("full", func(t *testing.T) {
		f := newFixture(t, rec)
		if _, err := f.proj.Tracker().RecordUsage("old", 5000, 5000); err != nil {
			t.Fatal(err)
		}
		if err := f.proj.WriteCheckpoint(project.Checkpoint{Phase: 3}); err != nil {
			t.Fatal(err)
		}

		got := f.run(t, SessionStart, ``)
		if got["type"] != "system" {
			t.Fatalf("response = %v", got)
		}
		content := got["content"].(string)
		for _, want := range []string{
			"**Project**: shop | **Phase**: 3 | **Milestone**: 1",
			"**Active task**: T-3",
			"[TOKEN: 0K/800K used",
			"> ⚠️ Recovery checkpoint found from 2026-03-01.",
			"## Output Style: Beginner Mode",
		} {
			if !strings.Contains(content, want) {
				t.Errorf("content missing %q:\n%s", want, content)
			}
		}
		ledger := f.proj.Tracker().Load()
		if ledger.Used() != 0 || ledger.SessionID == "" {
			t.Errorf("ledger not reset: used=%d session=%q", ledger.Used(), ledger.SessionID)
		}
	})

	t.Run("minimal flag", func(t *testing.T) {
		f := newFixture(t, rec, WithMinimal(true))
		got := f.run(t, SessionStart, `{}`)
		want := "## Threadwork Context\n**Project**: shop | **Task**: T-3\n"
		if got["content"] != want {
			t.Errorf("content = %q, want %q", got["content"], want)
		}
	})

	t.Run("minimal payload", func(t *testing.T) {
		f := newFixture(t, nil)
		got := f.run(t, SessionStart, `{"minimal":true}`)
		want := "## Threadwork Context\n**Project**: Unknown Project | **Task**: None\n"
		if got["content"] != want {
			t.Errorf("content = %q, want %q", got["content"], want)
		}
	})
}

func TestRun_NoHTMLEscaping(t *testing.T) {
	f := newFixture(t, &project.Record{})
	var out bytes.Buffer
	f.runner.Run(context.Background(), PreToolUse,
		strings.NewReader(`{"tool_name":"Task","tool_input":{"prompt":"x"}}`), &out)
	if !strings.Contains(out.String(), "<!-- Threadwork Context Injection -->") {
		t.Errorf("output escaped markup: %s", out.String())
	}
}

func TestRegistration(t *testing.T) {
	cfg := Registration("/usr/local/bin/threadwork")

	if got := cfg.SubagentStop[0].Hooks[0].Command; got != "/usr/local/bin/threadwork hook subagent-stop" {
		t.Errorf("SubagentStop command = %q", got)
	}
	if got := cfg.PreToolUse[0].Matcher; got != "Task|TeamCreate" {
		t.Errorf("PreToolUse matcher = %q", got)
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"SessionStart"`, `"PostToolUse"`} {
		if !bytes.Contains(data, []byte(key)) {
			t.Errorf("registration JSON missing %s", key)
		}
	}
}
