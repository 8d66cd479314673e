package hooks

import "fmt"

// HookEntry represents a single hook command (e.g., {"type": "command", "command": "..."}).
type HookEntry struct {
	Type    string `json:"type"`
	Command string `json:"command"`
	Timeout int    `json:"timeout,omitempty"`
}

// HookGroup represents a hook group with optional matcher and a hooks array.
type HookGroup struct {
	Matcher string      `json:"matcher,omitempty"`
	Hooks   []HookEntry `json:"hooks"`
}

// HooksConfig is the hooks section threadwork contributes to Claude Code settings.
type HooksConfig struct {
	SessionStart []HookGroup `json:"SessionStart,omitempty"`
	PreToolUse   []HookGroup `json:"PreToolUse,omitempty"`
	PostToolUse  []HookGroup `json:"PostToolUse,omitempty"`
	SubagentStop []HookGroup `json:"SubagentStop,omitempty"`
}

// Timeouts in seconds. Subagent-stop runs the full gate suite.
const (
	fastHookTimeout = 10
	stopHookTimeout = 600
)

// Registration returns the hook block wiring every event to binary.
func Registration(binary string) *HooksConfig {
	cmd := func(e Event) string { return fmt.Sprintf("%s hook %s", binary, e) }
	return &HooksConfig{
		SessionStart: []HookGroup{{
			Hooks: []HookEntry{{Type: "command", Command: cmd(SessionStart), Timeout: fastHookTimeout}},
		}},
		PreToolUse: []HookGroup{{
			Matcher: toolTask + "|" + toolTeamCreate,
			Hooks:   []HookEntry{{Type: "command", Command: cmd(PreToolUse), Timeout: fastHookTimeout}},
		}},
		PostToolUse: []HookGroup{{
			Hooks: []HookEntry{{Type: "command", Command: cmd(PostToolUse), Timeout: fastHookTimeout}},
		}},
		SubagentStop: []HookGroup{{
			Hooks: []HookEntry{{Type: "command", Command: cmd(SubagentStop), Timeout: stopHookTimeout}},
		}},
	}
}
