package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/threadwork-cc/threadwork/internal/budget"
	"github.com/threadwork-cc/threadwork/internal/tier"
)

func readJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("%s: %v", path, err)
	}
}

func TestInitCreatesRecords(t *testing.T) {
	dir := newProjectDir(t)

	out := mustRun(t, "init", "--tier", "ninja", "--budget", "400000")
	if !strings.Contains(out, "Threadwork initialized") {
		t.Errorf("unexpected output:\n%s", out)
	}

	state := filepath.Join(dir, ".threadwork", "state")
	var rec struct {
		ProjectName string `json:"projectName"`
		SkillTier   string `json:"skillTier"`
	}
	readJSON(t, filepath.Join(state, "project.json"), &rec)
	if rec.ProjectName != filepath.Base(dir) {
		t.Errorf("projectName = %q, want directory name %q", rec.ProjectName, filepath.Base(dir))
	}
	if rec.SkillTier != "ninja" {
		t.Errorf("skillTier = %q, want ninja", rec.SkillTier)
	}

	var ledger budget.Ledger
	readJSON(t, filepath.Join(state, "token-log.json"), &ledger)
	if ledger.BudgetTotal != 400000 || ledger.UsedTotal != 0 {
		t.Errorf("ledger = %+v", ledger)
	}

	if _, err := os.Stat(filepath.Join(state, "quality-config.json")); err != nil {
		t.Errorf("quality-config.json not written: %v", err)
	}
}

func TestInitRefusesToOverwrite(t *testing.T) {
	newProjectDir(t)
	mustRun(t, "init", "--name", "first")

	_, _, err := executeCommand(t, "", "init", "--name", "second")
	if !errors.Is(err, errAlreadyInitialized) {
		t.Fatalf("second init error = %v, want errAlreadyInitialized", err)
	}

	mustRun(t, "init", "--name", "second", "--force")
	out := mustRun(t, "status", "-o", "json")
	if !strings.Contains(out, `"project": "second"`) {
		t.Errorf("--force did not replace the project record:\n%s", out)
	}
}

func TestInitKeepsQualityConfig(t *testing.T) {
	dir := newProjectDir(t)
	state := filepath.Join(dir, ".threadwork", "state")
	if err := os.MkdirAll(state, 0700); err != nil {
		t.Fatal(err)
	}
	custom := `{"lint": {"enabled": false, "blocking": false}}`
	if err := os.WriteFile(filepath.Join(state, "quality-config.json"), []byte(custom), 0600); err != nil {
		t.Fatal(err)
	}

	mustRun(t, "init")

	data, err := os.ReadFile(filepath.Join(state, "quality-config.json"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != custom {
		t.Errorf("existing quality config was rewritten:\n%s", data)
	}
}

func TestInitFailsClosed(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want error
	}{
		{"bad tier", []string{"init", "--tier", "expert"}, tier.ErrInvalidTier},
		{"negative budget", []string{"init", "--budget", "-5"}, budget.ErrInvalidBudget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := newProjectDir(t)
			_, _, err := executeCommand(t, "", tt.args...)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if _, err := os.Stat(filepath.Join(dir, ".threadwork")); !os.IsNotExist(err) {
				t.Error("state directory created despite invalid input")
			}
		})
	}
}

func TestInitDryRun(t *testing.T) {
	dir := newProjectDir(t)

	out := mustRun(t, "init", "--dry-run")
	if !strings.Contains(out, "[dry-run] Would write project.json") {
		t.Errorf("unexpected dry-run output:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(dir, ".threadwork")); !os.IsNotExist(err) {
		t.Error("dry run created the state directory")
	}
}
