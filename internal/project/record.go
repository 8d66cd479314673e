package project

import (
	"fmt"
	"time"

	"github.com/threadwork-cc/threadwork/internal/gitutil"
	"github.com/threadwork-cc/threadwork/internal/storage"
	"github.com/threadwork-cc/threadwork/internal/tier"
)

// Record is the persisted project state (project.json).
type Record struct {
	storage.Meta
	ProjectName      string    `json:"projectName" yaml:"project_name"`
	SkillTier        tier.Tier `json:"skillTier" yaml:"skill_tier"`
	CurrentPhase     int       `json:"currentPhase" yaml:"current_phase"`
	CurrentMilestone int       `json:"currentMilestone" yaml:"current_milestone"`
	ActiveTask       string    `json:"activeTask,omitempty" yaml:"active_task,omitempty"`
}

// Record reads the project record. A missing record yields zero values and
// no error.
func (c *Context) Record() (*Record, error) {
	var r Record
	if _, err := c.Store.Read(storage.ProjectFile, &r); err != nil {
		return &Record{}, err
	}
	return &r, nil
}

// UpdateRecord applies fn to the project record and persists it.
func (c *Context) UpdateRecord(fn func(*Record)) (*Record, error) {
	r, err := c.Record()
	if err != nil {
		return nil, fmt.Errorf("update project record: %w", err)
	}
	fn(r)
	if err := c.Store.Write(storage.ProjectFile, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Checkpoint is the recovery snapshot written after tool calls.
type Checkpoint struct {
	storage.Meta
	Phase      int          `json:"phase"`
	Milestone  int          `json:"milestone"`
	ActiveTask string       `json:"activeTask,omitempty"`
	Git        gitutil.Info `json:"git"`
	Cleared    bool         `json:"cleared,omitempty"`
	WrittenAt  time.Time    `json:"writtenAt"`
}

// Active reports whether the checkpoint needs attention on the next session.
func (cp *Checkpoint) Active() bool {
	return cp != nil && !cp.Cleared
}

// ReadCheckpoint returns the checkpoint, or nil when none exists or it
// cannot be decoded.
func (c *Context) ReadCheckpoint() *Checkpoint {
	var cp Checkpoint
	found, err := c.Store.Read(storage.CheckpointFile, &cp)
	if err != nil {
		c.Log("project").Warn("checkpoint unreadable", "error", err)
		return nil
	}
	if !found {
		return nil
	}
	return &cp
}

// WriteCheckpoint persists cp, stamping its write time.
func (c *Context) WriteCheckpoint(cp Checkpoint) error {
	cp.WrittenAt = c.now().UTC()
	return c.Store.Write(storage.CheckpointFile, &cp)
}

// ClearCheckpoint marks the checkpoint as resolved.
func (c *Context) ClearCheckpoint() error {
	return c.Store.Write(storage.CheckpointFile, &Checkpoint{Cleared: true, WrittenAt: c.now().UTC()})
}
