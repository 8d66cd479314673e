package budget

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/threadwork-cc/threadwork/internal/storage"
)

func newTestTracker(t *testing.T, opts ...TrackerOption) (*Tracker, *storage.FileStore) {
	t.Helper()
	store := storage.NewFileStore(storage.WithDir(t.TempDir()))
	base := []TrackerOption{
		WithClock(func() time.Time { return at }),
		WithSessionIDs(func() string { return "session-test" }),
	}
	return NewTracker(store, append(base, opts...)...), store
}

func TestTracker_LoadMissing(t *testing.T) {
	tr, _ := newTestTracker(t, WithDefaultBudget(500_000))
	l := tr.Load()
	if l.Budget() != 500_000 || l.Used() != 0 {
		t.Errorf("expected fresh ledger with budget 500000, got %+v", l)
	}
}

func TestTracker_RecordPersists(t *testing.T) {
	tr, store := newTestTracker(t)

	if _, err := tr.RecordUsage("t1", 1_000, 1_200); err != nil {
		t.Fatalf("RecordUsage() error = %v", err)
	}
	rec, err := tr.RecordEstimate("t2", 300)
	if err != nil {
		t.Fatalf("RecordEstimate() error = %v", err)
	}
	if rec.Actual != 300 {
		t.Errorf("estimate-only record actual = %d, want 300", rec.Actual)
	}

	reloaded := NewTracker(store).Load()
	if reloaded.Used() != 1_500 || len(reloaded.Records) != 2 {
		t.Errorf("reloaded ledger used=%d records=%d", reloaded.Used(), len(reloaded.Records))
	}
	if reloaded.SchemaVersion != storage.SchemaVersion {
		t.Errorf("schema version not stamped: %q", reloaded.SchemaVersion)
	}
	if !reloaded.Records[0].RecordedAt.Equal(at) {
		t.Errorf("RecordedAt = %v, want %v", reloaded.Records[0].RecordedAt, at)
	}
}

func TestTracker_ResetSession(t *testing.T) {
	tr, _ := newTestTracker(t)
	if _, err := tr.SetBudget(200_000); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.RecordUsage("t1", 10, 10); err != nil {
		t.Fatal(err)
	}

	l, err := tr.ResetSession()
	if err != nil {
		t.Fatalf("ResetSession() error = %v", err)
	}
	if l.Used() != 0 || len(l.Records) != 0 {
		t.Errorf("reset ledger used=%d records=%d", l.Used(), len(l.Records))
	}
	if l.SessionID != "session-test" {
		t.Errorf("session id = %q", l.SessionID)
	}
	if tr.Load().Budget() != 200_000 {
		t.Errorf("reset lost budget: %d", tr.Load().Budget())
	}
}

func TestTracker_SetBudgetRejectsNonPositive(t *testing.T) {
	tr, store := newTestTracker(t)
	for _, n := range []int{0, -1} {
		if _, err := tr.SetBudget(n); !errors.Is(err, ErrInvalidBudget) {
			t.Errorf("SetBudget(%d) error = %v, want ErrInvalidBudget", n, err)
		}
	}
	if store.Exists(storage.TokenLogFile) {
		t.Error("rejected SetBudget must not write the ledger")
	}
}

func TestTracker_CorruptLedgerFallsBackToDefaults(t *testing.T) {
	tr, store := newTestTracker(t)
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(store.Path(storage.TokenLogFile), []byte("{oops"), 0600); err != nil {
		t.Fatal(err)
	}

	l := tr.Load()
	if l.Budget() != DefaultSessionBudget || l.Used() != 0 {
		t.Errorf("expected default ledger, got %+v", l)
	}

	if _, err := tr.RecordUsage("t1", 5, 5); err != nil {
		t.Fatalf("RecordUsage() over corrupt ledger error = %v", err)
	}
	if tr.Load().Used() != 5 {
		t.Errorf("expected ledger rewritten with used=5, got %d", tr.Load().Used())
	}
}

func TestTracker_EndToEndThresholds(t *testing.T) {
	tr, _ := newTestTracker(t)
	if _, err := tr.RecordEstimate("phase-1", 640_000); err != nil {
		t.Fatal(err)
	}
	l := tr.Load()
	if !l.Thresholds().Warning || l.Thresholds().Critical {
		t.Errorf("at 80%% expected warning only, got %+v", l.Thresholds())
	}

	if _, err := tr.RecordEstimate("phase-2", 80_000); err != nil {
		t.Fatal(err)
	}
	l = tr.Load()
	if !l.IsOverBudget() {
		t.Error("expected IsOverBudget() at 90%")
	}
}
