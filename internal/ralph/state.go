package ralph

import (
	"time"

	"github.com/threadwork-cc/threadwork/internal/storage"
)

// State is the persisted retry counter for the unit of work currently
// failing its gates. A zero Retries value is the idle state.
type State struct {
	storage.Meta
	Retries        int       `json:"retries"`
	LastWorkUnitID string    `json:"lastWorkUnitId"`
	LastUpdated    time.Time `json:"lastUpdated,omitzero"`
}

// Idle reports whether no failure is being tracked.
func (s State) Idle() bool { return s.Retries == 0 }

// loadState reads the retry state; a missing or corrupt record is idle.
func (l *Loop) loadState() State {
	var s State
	if _, err := l.store.Read(storage.RetryStateFile, &s); err != nil {
		l.logger.Error("retry state unreadable, treating as idle", "error", err)
		return State{}
	}
	if s.Retries < 0 {
		s.Retries = 0
	}
	return s
}

func (l *Loop) saveState(s State) error {
	return l.store.Write(storage.RetryStateFile, &s)
}

// clearState returns the loop to idle. Failures are logged and ignored.
func (l *Loop) clearState() {
	if err := l.saveState(State{LastUpdated: l.now().UTC()}); err != nil {
		l.logger.Error("retry state not cleared", "error", err)
	}
}
