package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/threadwork-cc/threadwork/internal/budget"
	"github.com/threadwork-cc/threadwork/internal/project"
	"github.com/threadwork-cc/threadwork/internal/tier"
)

// Tool names whose prompts receive injected context.
const (
	toolTask       = "Task"
	toolTeamCreate = "TeamCreate"
)

// budgetWarning renders the threshold warning for a ledger, or "".
func budgetWarning(l *budget.Ledger, t tier.Tier) string {
	switch l.Thresholds().Signal() {
	case budget.SignalCritical:
		return tier.FormatWarning(tier.Critical,
			"Token budget >90%. Finish current task and run /tw:done immediately.", t)
	case budget.SignalWarning:
		return tier.FormatWarning(tier.Warning,
			"Token budget >80%. Wrap up after this task or start a new session.", t)
	}
	return ""
}

func (r *Runner) preToolUse(p Payload) any {
	name := p.ToolName()
	isTask := name == toolTask || name == "task"
	if !isTask && name != toolTeamCreate {
		return p
	}
	log := r.logger.With("hook", string(PreToolUse))

	input, ok := p.object("tool_input", "input")
	if !ok {
		return p
	}

	t := r.proj.Tier()
	ledger := r.proj.Tracker().Load()
	warning := budgetWarning(ledger, t)
	if warning != "" {
		warning = "\n" + warning
	}

	if !isTask {
		desc, ok := input["description"].(string)
		if !ok {
			return p
		}
		team := strings.Join(nonEmpty(
			"<!-- Threadwork Team Context -->",
			tier.Instructions(t),
			ledger.DashboardLine(),
			warning,
		), "\n")
		input["description"] = desc + "\n\n" + team
		log.Info("team context injected", "tier", string(t))
		return p
	}

	prefix := strings.Join(nonEmpty(
		"<!-- Threadwork Context Injection -->",
		tier.Instructions(t),
		ledger.DashboardLine(),
		warning,
	), "\n")
	for _, key := range []string{"prompt", "description"} {
		if s, ok := input[key].(string); ok {
			input[key] = prefix + "\n\n---\n\n" + s
			log.Info("task context injected", "field", key, "tier", string(t), "bytes", len(prefix))
			break
		}
	}
	return p
}

func (r *Runner) postToolUse(ctx context.Context, p Payload) {
	log := r.logger.With("hook", string(PostToolUse))
	if !r.proj.Initialized() {
		log.Debug("project not initialized, skipping usage tracking")
		return
	}

	name := p.ToolName()
	input, _ := p.object("tool_input", "input")
	var output any
	for _, k := range []string{"tool_response", "tool_result", "result"} {
		if v, ok := p[k]; ok {
			output = v
			break
		}
	}
	var in any
	if input != nil {
		in = input
	}
	tokens := (jsonSize(in) + jsonSize(output) + 3) / 4

	id := fmt.Sprintf("tool-%s-%s", name, r.newID())
	if _, err := r.proj.Tracker().RecordUsage(id, tokens, tokens); err != nil {
		log.Error("usage not recorded", "error", err, "tool", name)
	} else {
		r.notifyThreshold(log)
	}

	r.writeCheckpoint(ctx, log)
	log.Info("tool call tracked", "tool", name, "tokens", tokens)
}

func (r *Runner) notifyThreshold(log *slog.Logger) {
	ledger := r.proj.Tracker().Load()
	usedK := (ledger.Used() + 500) / 1000
	switch ledger.Thresholds().Signal() {
	case budget.SignalCritical:
		r.warn(fmt.Sprintf("🚨 [THREADWORK] Token budget CRITICAL: %dK used. Run /tw:done NOW to generate handoff before context is lost.", usedK))
		log.Error("token budget critical", "used", ledger.Used(), "budget", ledger.Budget())
	case budget.SignalWarning:
		r.warn(fmt.Sprintf("⚠️ [THREADWORK] Token budget at 80%%+: %dK used. Consider wrapping up after the current task.", usedK))
		log.Warn("token budget warning", "used", ledger.Used(), "budget", ledger.Budget())
	}
}

func (r *Runner) writeCheckpoint(ctx context.Context, log *slog.Logger) {
	cp := project.Checkpoint{Git: r.snapshot(ctx, r.proj.Root)}
	if rec, err := r.proj.Record(); err == nil {
		cp.Phase = rec.CurrentPhase
		cp.Milestone = rec.CurrentMilestone
		cp.ActiveTask = rec.ActiveTask
	}
	if err := r.proj.WriteCheckpoint(cp); err != nil {
		log.Error("checkpoint not written", "error", err)
	}
}
