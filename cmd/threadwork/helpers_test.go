package main

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

// cliEnv lists the environment variables that would leak a developer's
// configuration into command tests.
var cliEnv = []string{
	"THREADWORK_CONFIG",
	"THREADWORK_OUTPUT",
	"THREADWORK_STATE_DIR",
	"THREADWORK_VERBOSE",
	"THREADWORK_SESSION_BUDGET",
	"THREADWORK_MAX_RETRIES",
	"THREADWORK_GATES_PARALLEL",
	"THREADWORK_GATES_TIMEOUT",
	"THREADWORK_GATES_MAX_DIAGNOSTICS",
}

// newProjectDir isolates HOME and the THREADWORK_* environment and changes
// into a fresh project directory.
func newProjectDir(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, k := range cliEnv {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

// resetFlags restores every flag-bound global to its default; cobra keeps
// them between Execute calls on the shared rootCmd.
func resetFlags() {
	dryRun, verbose, output, cfgFile = false, false, "", ""
	initName, initTier, initBudget, initForce = "", "advanced", 0, false
	gateSkipCache, gateBuild = false, false
	budgetActual, budgetEstimated, budgetPhase = 0, 0, 2
	tierInstructions = false
	hookMinimal = false
	hooksBinary = ""
	configShow = false
}

// executeCommand runs the CLI with args and returns stdout and stderr.
func executeCommand(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)

	var stdout, stderr bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	var in io.Reader = strings.NewReader(stdin)
	rootCmd.SetIn(in)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
	})

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// mustRun fails the test when the command errors.
func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, stderr, err := executeCommand(t, "", args...)
	if err != nil {
		t.Fatalf("threadwork %s: %v\nstderr: %s", strings.Join(args, " "), err, stderr)
	}
	return out
}
