package openaicompat

import (
	"encoding/json"

	"github.com/fissio/fissio"
)

// BuildBody converts a system prompt and fissio messages into an OpenAI-format
// ChatRequest. The system prompt, when non-empty, leads the messages array as
// role:"system". Options configure generation parameters (temperature, top_p,
// response format).
func BuildBody(system string, messages []fissio.Message, tools []fissio.ToolSchema, model string, opts ...Option) ChatRequest {
	msgs := make([]Message, 0, len(messages)+1)

	if system != "" {
		msgs = append(msgs, Message{
			Role:    "system",
			Content: system,
		})
	}

	for _, m := range messages {
		switch m.Role {
		case "tool":
			// Tool result message.
			msgs = append(msgs, Message{
				Role:       "tool",
				Content:    m.Content,
				ToolCallID: m.ToolCallID,
			})

		default:
			// Regular system, user, or assistant message.
			msgs = append(msgs, Message{
				Role:    m.Role,
				Content: m.Content,
			})
		}
	}

	req := ChatRequest{
		Model:    model,
		Messages: msgs,
	}

	if len(tools) > 0 {
		req.Tools = BuildToolDefs(tools)
	}

	for _, opt := range opts {
		opt(&req)
	}

	return req
}

// BuildToolDefs converts fissio ToolSchemas to OpenAI tool format.
func BuildToolDefs(tools []fissio.ToolSchema) []Tool {
	out := make([]Tool, 0, len(tools))
	for _, t := range tools {
		params := t.Parameters
		if len(params) == 0 {
			params = json.RawMessage(`{}`)
		}
		out = append(out, Tool{
			Type: "function",
			Function: Function{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		})
	}
	return out
}
