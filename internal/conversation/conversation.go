// Package conversation holds the ordered message list that is sent to the
// language model on every round of a single chat request.
package conversation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// MaxHistory is the number of trailing history entries kept when seeding.
const MaxHistory = 10

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolInvocation is a tool call requested by the model. Arguments is the raw
// JSON text the model produced and is untrusted.
type ToolInvocation struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Args decodes Arguments into a mapping. Empty text decodes to an empty map.
func (t ToolInvocation) Args() (map[string]interface{}, error) {
	raw := strings.TrimSpace(string(t.Arguments))
	if raw == "" || raw == "null" {
		return map[string]interface{}{}, nil
	}
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("arguments are not a JSON object: %w", err)
	}
	if args == nil {
		args = map[string]interface{}{}
	}
	return args, nil
}

type Message struct {
	Role       Role             `json:"role"`
	Content    string           `json:"content"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolInvocation `json:"tool_calls,omitempty"`
	// ToolFailed marks a tool message whose result is an error payload.
	ToolFailed bool `json:"-"`
}

// HistoryEntry is a prior turn supplied by the client.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UnmarshalJSON never fails: entries that are not objects, and fields that
// are not strings, decode as empty so Seed drops them.
func (h *HistoryEntry) UnmarshalJSON(data []byte) error {
	*h = HistoryEntry{}
	entry := gjson.ParseBytes(data)
	if !entry.IsObject() {
		return nil
	}
	if role := entry.Get("role"); role.Type == gjson.String {
		h.Role = role.Str
	}
	if content := entry.Get("content"); content.Type == gjson.String {
		h.Content = content.Str
	}
	return nil
}

// Conversation is request-local and not safe for concurrent use.
type Conversation struct {
	messages []Message
}

// Seed builds the initial context window: system prompt, the last MaxHistory
// history entries minus those without a usable role or content, then the
// user message.
func Seed(systemPrompt string, history []HistoryEntry, userMessage string) *Conversation {
	c := &Conversation{messages: make([]Message, 0, MaxHistory+2)}
	if systemPrompt != "" {
		c.messages = append(c.messages, Message{Role: RoleSystem, Content: systemPrompt})
	}

	if len(history) > MaxHistory {
		history = history[len(history)-MaxHistory:]
	}
	for _, h := range history {
		role, ok := historyRole(h.Role)
		if !ok || strings.TrimSpace(h.Content) == "" {
			continue
		}
		c.messages = append(c.messages, Message{Role: role, Content: h.Content})
	}

	c.messages = append(c.messages, Message{Role: RoleUser, Content: userMessage})
	return c
}

func historyRole(r string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(r))) {
	case RoleUser:
		return RoleUser, true
	case RoleAssistant:
		return RoleAssistant, true
	case RoleSystem:
		return RoleSystem, true
	}
	return "", false
}

// AppendAssistant records a model reply, including any tool calls it requested.
func (c *Conversation) AppendAssistant(content string, calls []ToolInvocation) {
	msg := Message{Role: RoleAssistant, Content: content}
	if len(calls) > 0 {
		msg.ToolCalls = append([]ToolInvocation(nil), calls...)
	}
	c.messages = append(c.messages, msg)
}

// AppendToolResult records the JSON-encoded payload of one tool call.
func (c *Conversation) AppendToolResult(toolCallID string, payload interface{}, ok bool) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode tool result %s: %w", toolCallID, err)
	}
	c.messages = append(c.messages, Message{
		Role:       RoleTool,
		Content:    string(b),
		ToolCallID: toolCallID,
		ToolFailed: !ok,
	})
	return nil
}

// Unanswered returns the ids of tool calls that have no tool message yet.
func (c *Conversation) Unanswered() []string {
	answered := make(map[string]bool)
	for _, m := range c.messages {
		if m.Role == RoleTool {
			answered[m.ToolCallID] = true
		}
	}
	var pending []string
	for _, m := range c.messages {
		for _, call := range m.ToolCalls {
			if !answered[call.ID] {
				pending = append(pending, call.ID)
			}
		}
	}
	return pending
}

// Messages returns a copy of the current context window.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) Len() int {
	return len(c.messages)
}
