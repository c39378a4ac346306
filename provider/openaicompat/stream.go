package openaicompat

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/fissio/fissio"
)

// StreamSSE reads an SSE stream from body, sends a content chunk to ch for
// every text delta, then a single usage chunk when the stream reported token
// counts, and closes ch. Callers should read from ch in a separate goroutine.
// The context cancels channel sends when the consumer is no longer interested.
//
// SSE format expected:
//
//	data: {"id":"...","choices":[...]}\n
//	data: [DONE]\n
func StreamSSE(ctx context.Context, body io.Reader, ch chan<- fissio.Chunk) error {
	defer close(ch)

	scanner := bufio.NewScanner(body)
	// Increase buffer for large SSE payloads.
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	var usage fissio.Usage
	sawUsage := false

	for scanner.Scan() {
		line := scanner.Text()

		// SSE lines that carry data start with "data: ".
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")

		// End-of-stream sentinel.
		if data == "[DONE]" {
			break
		}

		var chunk ChatResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Skip malformed chunks.
			continue
		}

		// Some providers send usage in a trailing chunk with no choices,
		// others attach it to the final delta.
		if chunk.Usage != nil {
			usage.InputTokens = chunk.Usage.PromptTokens
			usage.OutputTokens = chunk.Usage.CompletionTokens
			sawUsage = true
		}

		if len(chunk.Choices) == 0 {
			continue
		}

		delta := chunk.Choices[0].Delta
		if delta == nil || delta.Content == "" {
			continue
		}

		select {
		case ch <- fissio.ContentChunk(delta.Content):
		case <-ctx.Done():
			return ctx.Err()
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
