package anthropic

import "github.com/fissio/fissio"

// BuildMessages converts the running tool-loop conversation to Anthropic
// format. The API requires tool results to appear as tool_result blocks in a
// user turn that directly follows an assistant turn carrying the matching
// tool_use blocks. Consecutive tool results are batched into one user turn,
// and the assistant turn is reconstructed from pending.
func BuildMessages(messages []fissio.Message, pending []fissio.ToolCall) []Message {
	var out []Message
	var results []ContentBlock

	flush := func() {
		if len(results) == 0 {
			return
		}
		if len(pending) > 0 {
			out = append(out, Message{Role: "assistant", Content: toolUseBlocks(pending)})
		}
		out = append(out, Message{Role: "user", Content: results})
		results = nil
	}

	for _, m := range messages {
		switch m.Role {
		case "user":
			flush()
			out = append(out, Message{
				Role:    "user",
				Content: []ContentBlock{{Type: "text", Text: m.Content}},
			})
		case "tool":
			results = append(results, ContentBlock{
				Type:      "tool_result",
				ToolUseID: m.ToolCallID,
				Content:   m.Content,
			})
		}
		// The system prompt travels in its own request field; other roles
		// do not occur in tool-loop conversations.
	}
	flush()

	return out
}

// BuildToolDefs converts fissio ToolSchemas to the Anthropic tool format.
func BuildToolDefs(tools []fissio.ToolSchema) []ToolDef {
	out := make([]ToolDef, 0, len(tools))
	for _, t := range tools {
		out = append(out, ToolDef{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Parameters,
		})
	}
	return out
}

func toolUseBlocks(calls []fissio.ToolCall) []ContentBlock {
	blocks := make([]ContentBlock, 0, len(calls))
	for _, tc := range calls {
		blocks = append(blocks, ContentBlock{
			Type:  "tool_use",
			ID:    tc.ID,
			Name:  tc.Name,
			Input: tc.Args,
		})
	}
	return blocks
}
