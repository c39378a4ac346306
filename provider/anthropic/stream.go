package anthropic

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/fissio/fissio"
)

// StreamSSE reads an Anthropic messages SSE stream from body, sends a content
// chunk per text delta followed by a single usage chunk, and closes ch.
//
// Anthropic splits token counts across events: message_start reports input
// tokens, message_delta reports output tokens at the end of the turn. Both
// are folded into one terminal usage chunk.
func StreamSSE(ctx context.Context, body io.Reader, ch chan<- fissio.Chunk) error {
	defer close(ch)

	scanner := bufio.NewScanner(body)
	// Increase buffer for large SSE payloads.
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	var usage fissio.Usage
	sawUsage := false

	for scanner.Scan() {
		line := scanner.Text()

		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		var event StreamEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			// Skip malformed events.
			continue
		}

		switch event.Type {
		case "content_block_delta":
			if event.Delta == nil || event.Delta.Text == "" {
				continue
			}
			select {
			case ch <- fissio.ContentChunk(event.Delta.Text):
			case <-ctx.Done():
				return ctx.Err()
			}

		case "message_start":
			if event.Message != nil && event.Message.Usage != nil {
				usage.InputTokens = event.Message.Usage.InputTokens
				sawUsage = true
			}

		case "message_delta":
			if event.Usage != nil {
				if event.Usage.InputTokens > 0 {
					usage.InputTokens = event.Usage.InputTokens
				}
				usage.OutputTokens = event.Usage.OutputTokens
				sawUsage = true
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	if sawUsage {
		select {
		case ch <- fissio.UsageChunk(usage.InputTokens, usage.OutputTokens):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}
