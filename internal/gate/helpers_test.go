package gate

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/threadwork-cc/threadwork/internal/procexec"
	"github.com/threadwork-cc/threadwork/internal/storage"
)

// fakeExec answers commands from a table and records what ran.
type fakeExec struct {
	mu      sync.Mutex
	tools   map[string]bool
	results map[string]procexec.Result
	errs    map[string]error
	calls   []string
}

func newFakeExec(tools ...string) *fakeExec {
	f := &fakeExec{
		tools:   map[string]bool{},
		results: map[string]procexec.Result{},
		errs:    map[string]error{},
	}
	for _, t := range tools {
		f.tools[t] = true
	}
	return f
}

func (f *fakeExec) Run(_ context.Context, _ string, command string) (procexec.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, command)
	if err, ok := f.errs[command]; ok {
		return procexec.Result{ExitCode: -1}, err
	}
	return f.results[command], nil
}

func (f *fakeExec) LookPath(name string) bool {
	return f.tools[name]
}

func (f *fakeExec) ran(command string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == command {
			return true
		}
	}
	return false
}

func (f *fakeExec) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fixedVersion string

func (v fixedVersion) ContentVersion(context.Context) string { return string(v) }

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
	}
}

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// newTestRunner builds a runner over a temp project with state under
// .threadwork/state.
func newTestRunner(t *testing.T, fx *fakeExec, opts ...RunnerOption) (*Runner, string, *storage.FileStore) {
	t.Helper()
	dir := t.TempDir()
	store := storage.NewFileStore(storage.WithDir(filepath.Join(dir, ".threadwork", "state")))
	base := []RunnerOption{
		WithExec(fx),
		WithVersion(fixedVersion("abc123")),
		WithClock(func() time.Time { return testNow }),
	}
	return NewRunner(dir, store, append(base, opts...)...), dir, store
}

func newTestEnv(t *testing.T, fx *fakeExec, files map[string]string) *env {
	t.Helper()
	dir := t.TempDir()
	writeFiles(t, dir, files)
	return &env{dir: dir, fsys: os.DirFS(dir), exec: fx, maxDiagnostics: DefaultMaxDiagnostics}
}
