package hooks

import (
	"context"

	"github.com/threadwork-cc/threadwork/internal/ralph"
)

// StopResponse is the subagent-stop verdict returned to the runtime.
type StopResponse struct {
	Action     string `json:"action"`
	Retry      bool   `json:"retry,omitempty"`
	Message    string `json:"message,omitempty"`
	RetryCount int    `json:"retryCount,omitempty"`
	MaxRetries int    `json:"maxRetries,omitempty"`
	Escalation string `json:"escalation,omitempty"`
}

// StopResponseFor maps a decision onto the hook protocol. Escalation is
// reported as an allow carrying the escalation text.
func StopResponseFor(d ralph.Decision) StopResponse {
	switch d.Action {
	case ralph.ActionBlock:
		return StopResponse{
			Action:     string(ralph.ActionBlock),
			Retry:      true,
			Message:    d.Message,
			RetryCount: d.RetryCount,
			MaxRetries: d.MaxRetries,
		}
	case ralph.ActionEscalate:
		return StopResponse{Action: string(ralph.ActionAllow), Escalation: d.Escalation}
	default:
		return StopResponse{Action: string(ralph.ActionAllow)}
	}
}

// workUnit extracts the work unit identity from a subagent-stop payload.
func workUnit(p Payload) ralph.WorkUnit {
	return ralph.WorkUnit{
		ID:        p.str("agent_id", "task_id"),
		AgentType: p.str("agent_type", "subagent_type"),
		AgentName: p.str("agent_name"),
	}
}

func (r *Runner) subagentStop(ctx context.Context, p Payload) any {
	log := r.logger.With("hook", string(SubagentStop))
	if !r.proj.Initialized() {
		log.Debug("project not initialized, allowing completion")
		return StopResponseFor(ralph.Decision{Action: ralph.ActionAllow})
	}

	d := r.proj.Loop(r.gates).Evaluate(ctx, workUnit(p))
	if d.Action == ralph.ActionEscalate {
		r.warn(d.Escalation)
	}
	return StopResponseFor(d)
}
