package fissio

import "context"

// Client abstracts an LLM backend. Implementations are stateless value
// types: construction is cheap, and a client may be created per node
// execution or cached with equivalent semantics.
type Client interface {
	// Chat sends a single-turn request and returns the complete reply text.
	Chat(ctx context.Context, system, message string) (string, error)
	// ChatStream streams content chunks into ch followed by a usage chunk,
	// then closes ch. It returns only after the stream has drained.
	ChatStream(ctx context.Context, system string, history []Message, message string, ch chan<- Chunk) error
	// ChatWithTools sends the running tool-loop conversation with tool
	// schemas attached. pending carries the previous iteration's outstanding
	// tool calls; only backends that must reconstruct an assistant tool-use
	// turn (Anthropic) read it, the rest ignore it.
	ChatWithTools(ctx context.Context, system string, messages []Message, tools []ToolSchema, pending []ToolCall) (ChatResult, error)
	// Name returns the backend name (e.g. "openai", "anthropic", "ollama").
	Name() string
}

// ClientFactory builds a Client for a resolved model. The engine calls it
// once per LLM-bearing node execution.
type ClientFactory func(model ModelConfig) Client
