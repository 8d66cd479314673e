package hooks

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/threadwork-cc/threadwork/internal/tier"
)

// SystemMessage is the session-start response injected into the system prompt.
type SystemMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func (r *Runner) sessionStart(p Payload) any {
	log := r.logger.With("hook", string(SessionStart))
	initialized := r.proj.Initialized()

	if initialized {
		if l, err := r.proj.Tracker().ResetSession(); err != nil {
			log.Error("session usage not reset", "error", err)
		} else {
			log.Info("session started", "session_id", l.SessionID)
		}
	}

	projectName, phase, milestone, task := "Unknown Project", "unknown", "unknown", "None"
	t := tier.Default
	if initialized {
		if rec, err := r.proj.Record(); err == nil {
			if rec.ProjectName != "" {
				projectName = rec.ProjectName
			}
			phase = strconv.Itoa(rec.CurrentPhase)
			milestone = strconv.Itoa(rec.CurrentMilestone)
			if rec.ActiveTask != "" {
				task = rec.ActiveTask
			}
			t = rec.SkillTier.Normalize()
		} else {
			log.Warn("project record unreadable", "error", err)
		}
	}

	if r.minimal || p.flag("minimal") {
		block := fmt.Sprintf("## Threadwork Context\n**Project**: %s | **Task**: %s\n", projectName, task)
		log.Info("minimal context injected", "bytes", len(block))
		return SystemMessage{Type: "system", Content: block}
	}

	parts := []string{
		"## Threadwork — Session Context",
		fmt.Sprintf("**Project**: %s | **Phase**: %s | **Milestone**: %s", projectName, phase, milestone),
		fmt.Sprintf("**Active task**: %s", task),
		"",
		r.proj.Tracker().Load().DashboardLine(),
		"",
	}

	cp := r.proj.ReadCheckpoint()
	if cp.Active() {
		from := "previous session"
		if !cp.WrittenAt.IsZero() {
			from = cp.WrittenAt.Format("2006-01-02")
		}
		parts = append(parts,
			fmt.Sprintf("> ⚠️ Recovery checkpoint found from %s.", from),
			"> Run `/tw:resume` to restore context, or `/tw:recover` if session was interrupted.",
			"",
		)
	}

	parts = append(parts, tier.Instructions(t))
	content := strings.Join(parts, "\n")

	log.Info("session context injected", "bytes", len(content), "tier", string(t), "checkpoint", cp.Active())
	return SystemMessage{Type: "system", Content: content}
}
