package hooks

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
)

// Payload is the JSON object a hook receives on stdin. Unknown fields are
// preserved so pass-through hooks can echo it unchanged.
type Payload map[string]any

// readPayload decodes stdin. Empty or malformed input yields an empty payload.
func readPayload(r io.Reader) Payload {
	if r == nil {
		return Payload{}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Payload{}
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Payload{}
	}
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil || p == nil {
		return Payload{}
	}
	return p
}

// str returns the first non-empty string value among keys.
func (p Payload) str(keys ...string) string {
	for _, k := range keys {
		if s, ok := p[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// object returns the first object value among keys.
func (p Payload) object(keys ...string) (map[string]any, bool) {
	for _, k := range keys {
		if m, ok := p[k].(map[string]any); ok {
			return m, true
		}
	}
	return nil, false
}

// flag reports whether key holds boolean true.
func (p Payload) flag(key string) bool {
	b, ok := p[key].(bool)
	return ok && b
}

// ToolName returns the tool a pre/post-tool-use payload refers to.
func (p Payload) ToolName() string {
	return p.str("tool_name", "toolName")
}

// encode writes v as one JSON document without HTML escaping, so injected
// markdown and comments reach the agent verbatim.
func encode(w io.Writer, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	_, err := w.Write(bytes.TrimRight(buf.Bytes(), "\n"))
	return err
}

// jsonSize is the encoded length of v, or of {} when v is absent.
func jsonSize(v any) int {
	if v == nil {
		return len("{}")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return len(data)
}

// nonEmpty drops blank entries.
func nonEmpty(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}
