package budget

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/threadwork-cc/threadwork/internal/storage"
)

// Tracker persists the session ledger in the project state store. Every
// mutation is a read-modify-write of the whole record; only one writer per
// project is assumed.
type Tracker struct {
	store         *storage.FileStore
	logger        *slog.Logger
	now           func() time.Time
	defaultBudget int
	newSessionID  func() string

	mu sync.Mutex
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithLogger sets the logger used to report unreadable ledgers.
func WithLogger(l *slog.Logger) TrackerOption {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithClock overrides the clock used to timestamp records.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithDefaultBudget sets the budget used when no ledger exists yet.
func WithDefaultBudget(n int) TrackerOption {
	return func(t *Tracker) {
		if n > 0 {
			t.defaultBudget = n
		}
	}
}

// WithSessionIDs overrides session id generation.
func WithSessionIDs(gen func() string) TrackerOption {
	return func(t *Tracker) {
		t.newSessionID = gen
	}
}

// NewTracker returns a tracker backed by store.
func NewTracker(store *storage.FileStore, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		store:         store,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:           time.Now,
		defaultBudget: DefaultSessionBudget,
		newSessionID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Load returns the persisted ledger. A missing ledger yields a fresh one; a
// corrupt ledger is logged and replaced by defaults rather than failing.
func (t *Tracker) Load() *Ledger {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.load()
}

func (t *Tracker) load() *Ledger {
	l := NewLedger(t.defaultBudget)
	found, err := t.store.Read(storage.TokenLogFile, l)
	if err != nil {
		t.logger.Error("token ledger unreadable, using defaults", "error", err)
		return NewLedger(t.defaultBudget)
	}
	if !found {
		return l
	}
	if l.Records == nil {
		l.Records = []Record{}
	}
	return l
}

// Update applies fn to the current ledger and persists the result.
func (t *Tracker) Update(fn func(*Ledger)) (*Ledger, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	l := t.load()
	fn(l)
	if err := t.store.Write(storage.TokenLogFile, l); err != nil {
		return l, fmt.Errorf("save token ledger: %w", err)
	}
	return l, nil
}

// RecordUsage appends a usage record with an explicit actual value.
func (t *Tracker) RecordUsage(id string, estimated, actual int) (Record, error) {
	var rec Record
	_, err := t.Update(func(l *Ledger) {
		rec = l.Record(id, estimated, actual, t.now())
	})
	return rec, err
}

// RecordEstimate appends a usage record whose actual equals the estimate.
func (t *Tracker) RecordEstimate(id string, estimated int) (Record, error) {
	return t.RecordUsage(id, estimated, estimated)
}

// ResetSession zeroes usage, clears records and starts a new session id.
// Callers invoke it once per session start.
func (t *Tracker) ResetSession() (*Ledger, error) {
	return t.Update(func(l *Ledger) {
		l.Reset(t.newSessionID())
	})
}

// SetBudget changes the session allotment. It fails closed on n <= 0.
func (t *Tracker) SetBudget(n int) (*Ledger, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBudget, n)
	}
	return t.Update(func(l *Ledger) {
		l.BudgetTotal = n
	})
}
