package domain

// ChatMessage is the provider-agnostic chat message shape exchanged
// with the reasoning engine. Tool fields follow the Chat Completions
// wire format and stay empty for plain text turns.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a single function invocation requested by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the tool name and its raw JSON arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolSpec declares a callable tool offered to the reasoning engine.
// Parameters is a raw JSON Schema object.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  []byte
}

// InboundMessage is the normalized webhook event the router consumes.
// Only Sender and Text drive routing; the rest passes through for
// logging.
type InboundMessage struct {
	Sender  string
	Text    string
	IsGroup bool
	Event   string
}
