package fissio

import (
	"encoding/json"
	"time"
)

// --- Conversation types ---

// Message is a single conversation turn. History is an ordered slice of
// these; alternation is not enforced.
type Message struct {
	Role       string `json:"role"` // "system", "user", "assistant", "tool"
	Content    string `json:"content"`
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ModelConfig describes one entry of the model catalog. A non-empty APIBase
// marks a locally served model (OpenAI-compatible shim at that base).
type ModelConfig struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Model   string `json:"model"`
	APIBase string `json:"api_base,omitempty"`
}

// --- LLM protocol types ---

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type ToolCall struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

// ToolSchema is the shape of a tool as passed to LLM backends; it is the
// only form the engine itself observes from a tool.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"` // JSON Schema
}

// ChatResult is the outcome of a tool-aware chat call. A non-empty ToolCalls
// slice means the model requested tool executions; otherwise Content is the
// terminal reply.
type ChatResult struct {
	Content   string        `json:"content"`
	ToolCalls []ToolCall    `json:"tool_calls,omitempty"`
	Usage     Usage         `json:"usage"`
	Elapsed   time.Duration `json:"-"`
}

// --- Message constructors ---

func UserMessage(text string) Message {
	return Message{Role: "user", Content: text}
}

func SystemMessage(text string) Message {
	return Message{Role: "system", Content: text}
}

func AssistantMessage(text string) Message {
	return Message{Role: "assistant", Content: text}
}

func ToolResultMessage(callID, content string) Message {
	return Message{Role: "tool", Content: content, ToolCallID: callID}
}
