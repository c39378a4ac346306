// Package anthropic implements the fissio.Client interface on the Anthropic
// messages API, including SSE streaming and tool use. Unlike OpenAI-compatible
// backends, Anthropic carries tool results as content blocks inside user
// turns, so the running tool-loop conversation is rebuilt on every request.
package anthropic

import "encoding/json"

// --- Request types ---

// ChatRequest is the Anthropic messages request body.
type ChatRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []Message `json:"messages"`
	Tools     []ToolDef `json:"tools,omitempty"`
	Stream    bool      `json:"stream,omitempty"`
}

// Message is a single conversation turn. Content is either a plain string or
// a []ContentBlock for tool conversations.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// ContentBlock is a typed block within a message. The same shape serves
// requests (text, tool_use, tool_result) and responses (text, tool_use).
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	// tool_use fields.
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
	// tool_result fields.
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

// ToolDef is a tool definition in the Anthropic format.
type ToolDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// --- Response types ---

// MessagesResponse is the non-streaming Anthropic messages response.
type MessagesResponse struct {
	Content    []ContentBlock `json:"content"`
	Usage      Usage          `json:"usage"`
	StopReason string         `json:"stop_reason,omitempty"`
}

// Usage contains token usage statistics.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// StreamEvent is one SSE event of a streaming response. Type selects which
// of the optional fields is populated.
type StreamEvent struct {
	Type    string        `json:"type"`
	Delta   *EventDelta   `json:"delta,omitempty"`
	Usage   *Usage        `json:"usage,omitempty"`
	Message *EventMessage `json:"message,omitempty"`
}

// EventDelta carries the text fragment of a content_block_delta event.
type EventDelta struct {
	Text string `json:"text,omitempty"`
}

// EventMessage carries the message envelope of a message_start event.
type EventMessage struct {
	Usage *Usage `json:"usage,omitempty"`
}
