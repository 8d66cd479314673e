package main

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/threadwork-cc/threadwork/internal/budget"
	"github.com/threadwork-cc/threadwork/internal/formatter"
	"github.com/threadwork-cc/threadwork/internal/gate"
	"github.com/threadwork-cc/threadwork/internal/project"
	"github.com/threadwork-cc/threadwork/internal/storage"
	"github.com/threadwork-cc/threadwork/internal/tier"
)

func TestVersion(t *testing.T) {
	out := mustRun(t, "version")
	if !strings.HasPrefix(out, "threadwork version dev\n") {
		t.Errorf("version output = %q", out)
	}
	if !strings.Contains(out, "Platform: ") {
		t.Errorf("version output missing platform:\n%s", out)
	}
}

func TestVersionStructured(t *testing.T) {
	var info buildInfo
	if err := json.Unmarshal([]byte(mustRun(t, "version", "-o", "json")), &info); err != nil {
		t.Fatalf("version -o json is not JSON: %v", err)
	}
	if info.Version != "dev" || info.Platform == "" || info.GoVersion == "" || info.StateSchema != storage.SchemaVersion {
		t.Errorf("unexpected build info %+v", info)
	}

	if out := mustRun(t, "version", "-o", "yaml"); !strings.Contains(out, "version: dev\n") {
		t.Errorf("yaml output = %q", out)
	}

	_, _, err := executeCommand(t, "", "version", "-o", "xml")
	if !errors.Is(err, formatter.ErrUnknownFormat) {
		t.Errorf("version -o xml error = %v, want ErrUnknownFormat", err)
	}
}

func TestStatusUninitialized(t *testing.T) {
	newProjectDir(t)

	_, stderr, err := executeCommand(t, "", "status")
	if !errors.Is(err, project.ErrNotInitialized) {
		t.Fatalf("status error = %v, want ErrNotInitialized", err)
	}
	if !strings.Contains(stderr, "threadwork init") {
		t.Errorf("stderr should point at init, got %q", stderr)
	}
}

func TestStatus(t *testing.T) {
	newProjectDir(t)
	mustRun(t, "init", "--name", "api", "--budget", "100000")
	mustRun(t, "budget", "record", "T-1", "--actual", "85000")

	var got statusOutput
	if err := json.Unmarshal([]byte(mustRun(t, "status", "-o", "json")), &got); err != nil {
		t.Fatal(err)
	}
	if got.Project != "api" || got.Tier != tier.Advanced {
		t.Errorf("status = %+v", got)
	}
	if got.Budget.Used != 85000 || got.Budget.Percent != 85 || got.Budget.Signal != budget.SignalWarning {
		t.Errorf("budget = %+v", got.Budget)
	}
	if got.LastGate != nil {
		t.Errorf("LastGate = %+v before any run", got.LastGate)
	}

	table := mustRun(t, "status")
	for _, want := range []string{"Threadwork Status", "Project:      api", "Token budget: 85K / 100K", "never run"} {
		if !strings.Contains(table, want) {
			t.Errorf("status table missing %q:\n%s", want, table)
		}
	}
}

func TestBudgetCommands(t *testing.T) {
	newProjectDir(t)
	mustRun(t, "init", "--budget", "100000")

	out := mustRun(t, "budget", "record", "T-1", "--estimated", "1000", "--actual", "1200")
	if !strings.Contains(out, "Recorded 1200 tokens for T-1 (+20%, Good)") {
		t.Errorf("record output:\n%s", out)
	}

	var report budget.Report
	if err := json.Unmarshal([]byte(mustRun(t, "budget", "report", "-o", "json")), &report); err != nil {
		t.Fatal(err)
	}
	if report.Session.Used != 1200 || len(report.Tasks) != 1 || report.Tasks[0].ID != "T-1" {
		t.Errorf("report = %+v", report)
	}
	if report.PhaseTotal.Variance != "+20%" {
		t.Errorf("phase variance = %q, want +20%%", report.PhaseTotal.Variance)
	}

	dash := mustRun(t, "budget", "dashboard")
	if !strings.HasPrefix(dash, "[TOKEN: 1K/100K used | 1% consumed") {
		t.Errorf("dashboard = %q", dash)
	}

	out = mustRun(t, "budget", "set", "200000")
	if !strings.Contains(out, "200K") {
		t.Errorf("set output = %q", out)
	}

	out = mustRun(t, "budget", "reset")
	if !strings.HasPrefix(out, "New session ") {
		t.Errorf("reset output = %q", out)
	}
	if err := json.Unmarshal([]byte(mustRun(t, "budget", "report", "-o", "json")), &report); err != nil {
		t.Fatal(err)
	}
	if report.Session.Used != 0 || len(report.Tasks) != 0 || report.Session.Budget != 200000 {
		t.Errorf("after reset report = %+v", report.Session)
	}
}

func TestBudgetSetFailsClosed(t *testing.T) {
	newProjectDir(t)
	mustRun(t, "init", "--budget", "100000")

	for _, arg := range []string{"0", "-10", "lots"} {
		_, _, err := executeCommand(t, "", "budget", "set", "--", arg)
		if !errors.Is(err, budget.ErrInvalidBudget) {
			t.Errorf("budget set %s error = %v, want ErrInvalidBudget", arg, err)
		}
	}

	var report budget.Report
	if err := json.Unmarshal([]byte(mustRun(t, "budget", "report", "-o", "json")), &report); err != nil {
		t.Fatal(err)
	}
	if report.Session.Budget != 100000 {
		t.Errorf("budget changed to %d after rejected sets", report.Session.Budget)
	}
}

func TestBudgetRecordRequiresInit(t *testing.T) {
	newProjectDir(t)
	_, _, err := executeCommand(t, "", "budget", "record", "T-1", "--actual", "10")
	if !errors.Is(err, project.ErrNotInitialized) {
		t.Errorf("error = %v, want ErrNotInitialized", err)
	}
}

func TestBudgetEstimate(t *testing.T) {
	newProjectDir(t)

	var est budget.TaskEstimate
	out := mustRun(t, "budget", "estimate", "refactor", "the", "database", "schema", "-o", "json")
	if err := json.Unmarshal([]byte(out), &est); err != nil {
		t.Fatal(err)
	}
	want := budget.EstimateTaskBudget("refactor the database schema", 2)
	if est != want {
		t.Errorf("estimate = %+v, want %+v", est, want)
	}
}

func TestTierCommands(t *testing.T) {
	newProjectDir(t)
	mustRun(t, "init")

	if out := mustRun(t, "tier", "get"); strings.TrimSpace(out) != "advanced" {
		t.Errorf("tier get = %q, want advanced", out)
	}

	mustRun(t, "tier", "set", "NINJA")

	var got tierOutput
	if err := json.Unmarshal([]byte(mustRun(t, "tier", "get", "--instructions", "-o", "json")), &got); err != nil {
		t.Fatal(err)
	}
	if got.Tier != tier.Ninja {
		t.Errorf("tier = %q, want ninja", got.Tier)
	}
	if got.Instructions != tier.Instructions(tier.Ninja) {
		t.Errorf("instructions = %q", got.Instructions)
	}

	_, _, err := executeCommand(t, "", "tier", "set", "wizard")
	if !errors.Is(err, tier.ErrInvalidTier) {
		t.Errorf("tier set wizard error = %v, want ErrInvalidTier", err)
	}
	if out := mustRun(t, "tier", "get"); strings.TrimSpace(out) != "ninja" {
		t.Errorf("rejected set changed tier to %q", out)
	}
}

func TestTierSetRequiresInit(t *testing.T) {
	newProjectDir(t)
	_, _, err := executeCommand(t, "", "tier", "set", "ninja")
	if !errors.Is(err, project.ErrNotInitialized) {
		t.Errorf("error = %v, want ErrNotInitialized", err)
	}
}

func TestGateConfig(t *testing.T) {
	newProjectDir(t)
	mustRun(t, "init")

	var cfg gate.Config
	if err := json.Unmarshal([]byte(mustRun(t, "gate", "config", "-o", "json")), &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg != gate.DefaultConfig() {
		t.Errorf("gate config = %+v, want defaults", cfg)
	}

	table := mustRun(t, "gate", "config")
	if !strings.Contains(table, "security") || !strings.Contains(table, "MIN COVERAGE") {
		t.Errorf("gate config table:\n%s", table)
	}
}

func TestGateRunEmptyProject(t *testing.T) {
	newProjectDir(t)
	mustRun(t, "init")

	var res gate.RunResult
	if err := json.Unmarshal([]byte(mustRun(t, "gate", "run", "--skip-cache", "-o", "json")), &res); err != nil {
		t.Fatal(err)
	}
	if !res.Passed || len(res.Results) != len(gate.Kinds) {
		t.Errorf("run = %+v", res)
	}
	if o, ok := res.Outcome(gate.Typecheck); !ok || !o.Skipped {
		t.Errorf("typecheck outcome = %+v, want skipped", o)
	}
}

func TestHooksShow(t *testing.T) {
	out := mustRun(t, "hooks", "show", "--binary", "tw")

	var got struct {
		Hooks struct {
			SubagentStop []struct {
				Hooks []struct {
					Command string `json:"command"`
				} `json:"hooks"`
			} `json:"SubagentStop"`
		} `json:"hooks"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("hooks show is not JSON: %v\n%s", err, out)
	}
	if len(got.Hooks.SubagentStop) != 1 || got.Hooks.SubagentStop[0].Hooks[0].Command != "tw hook subagent-stop" {
		t.Errorf("SubagentStop = %+v", got.Hooks.SubagentStop)
	}
}

func TestHookSessionStartMinimal(t *testing.T) {
	newProjectDir(t)
	mustRun(t, "init", "--name", "api")

	out, _, err := executeCommand(t, `{"session_id":"s1"}`, "hook", "session-start", "--minimal")
	if err != nil {
		t.Fatal(err)
	}
	var msg struct {
		Type    string `json:"type"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(out), &msg); err != nil {
		t.Fatalf("hook output is not JSON: %v\n%s", err, out)
	}
	if msg.Type != "system" || !strings.Contains(msg.Content, "**Project**: api") {
		t.Errorf("session-start = %+v", msg)
	}
}

func TestHookNeverFails(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		stdin string
	}{
		{"unknown event", []string{"hook", "teardown"}, `{"a":1}`},
		{"malformed payload", []string{"hook", "pre-tool-use"}, `{not json`},
		{"uninitialized post-tool-use", []string{"hook", "post-tool-use"}, `{"tool_name":"Read"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			newProjectDir(t)
			out, _, err := executeCommand(t, tt.stdin, tt.args...)
			if err != nil {
				t.Fatalf("hook returned error %v", err)
			}
			if !json.Valid([]byte(out)) {
				t.Errorf("hook output is not JSON: %q", out)
			}
		})
	}
}

func TestHookBadConfigFallsBack(t *testing.T) {
	newProjectDir(t)
	t.Setenv("THREADWORK_OUTPUT", "xml")

	out, stderr, err := executeCommand(t, `{"tool_name":"Read"}`, "hook", "pre-tool-use")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stderr, "using defaults") {
		t.Errorf("stderr = %q", stderr)
	}
	if !strings.Contains(out, `"tool_name":"Read"`) {
		t.Errorf("payload not passed through: %q", out)
	}
}

func TestConfigShow(t *testing.T) {
	newProjectDir(t)
	t.Setenv("THREADWORK_MAX_RETRIES", "3")

	out := mustRun(t, "config", "--show", "-o", "json")
	var got map[string]struct {
		Value  any    `json:"value"`
		Source string `json:"source"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("config --show is not JSON: %v\n%s", err, out)
	}
	if r := got["ralph.max_retries"]; r.Value != float64(3) || r.Source != "environment" {
		t.Errorf("ralph.max_retries = %+v", r)
	}
	if r := got["output"]; r.Value != "json" || r.Source != "flag" {
		t.Errorf("output = %+v", r)
	}
	if r := got["budget.session_budget"]; r.Source != "default" {
		t.Errorf("budget.session_budget = %+v", r)
	}

	table := mustRun(t, "config", "--show")
	if !strings.Contains(table, "THREADWORK_MAX_RETRIES=3") {
		t.Errorf("config table missing env var:\n%s", table)
	}
}

func TestOutputFromEnvironment(t *testing.T) {
	newProjectDir(t)
	mustRun(t, "init")
	t.Setenv("THREADWORK_OUTPUT", "json")

	out := mustRun(t, "tier", "get")
	if !json.Valid([]byte(out)) {
		t.Errorf("THREADWORK_OUTPUT=json ignored: %q", out)
	}
}
