package openaicompat

import (
	"encoding/json"

	"github.com/fissio/fissio"
)

// ParseResponse converts an OpenAI-format ChatResponse to a fissio ChatResult.
// It extracts content, tool calls, and usage from choices[0]. A response with
// no choices yields the zero value; callers decide whether that is an error.
func ParseResponse(resp ChatResponse) fissio.ChatResult {
	var out fissio.ChatResult

	if len(resp.Choices) == 0 {
		return out
	}

	choice := resp.Choices[0]
	if choice.Message != nil {
		out.Content = choice.Message.Content
		out.ToolCalls = ParseToolCalls(choice.Message.ToolCalls)
	}

	if resp.Usage != nil {
		out.Usage = fissio.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		}
	}

	return out
}

// ParseToolCalls converts OpenAI tool call requests to fissio ToolCalls.
// OpenAI returns function.arguments as a JSON string; we parse it into json.RawMessage.
func ParseToolCalls(tcs []ToolCallRequest) []fissio.ToolCall {
	if len(tcs) == 0 {
		return nil
	}

	out := make([]fissio.ToolCall, 0, len(tcs))
	for _, tc := range tcs {
		args := json.RawMessage(tc.Function.Arguments)
		// Arguments that are not valid JSON are replaced with an empty object.
		if !json.Valid(args) {
			args = json.RawMessage(`{}`)
		}
		out = append(out, fissio.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: args,
		})
	}
	return out
}
