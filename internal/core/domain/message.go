package domain

import "encoding/json"

// Role identifies the author of a message in the agent conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a tool invocation requested by the model. Arguments is the raw
// JSON object exactly as the model produced it; it is decoded at execution time.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ArgumentsMap decodes the call arguments into a map. A malformed or empty
// payload yields an empty map, never an error — argument problems surface as
// tool-execution errors, not protocol faults.
func (tc ToolCall) ArgumentsMap() map[string]interface{} {
	args := map[string]interface{}{}
	if len(tc.Arguments) > 0 {
		_ = json.Unmarshal(tc.Arguments, &args)
	}
	return args
}

// ToolResult is the outcome of one tool call, paired to its request by ID.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error"`
}

// Message is one entry in the agent's conversation history. Assistant
// messages may carry tool calls; tool messages carry exactly one result.
// The model providers require the assistant-request → tool-result causal
// chain to be intact, so messages are only ever appended.
type Message struct {
	Role        Role         `json:"role"`
	Content     string       `json:"content"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

// HasToolCalls reports whether the message requests any tool invocations.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// NewSystemMessage builds a system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage builds a user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewToolResultMessage builds a tool message carrying one result.
func NewToolResultMessage(result ToolResult) Message {
	return Message{Role: RoleTool, ToolResults: []ToolResult{result}}
}
