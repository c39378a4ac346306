package anthropic

import (
	"context"
	"strings"
	"testing"

	"github.com/fissio/fissio"
)

// buildSSE constructs a mock Anthropic SSE stream, pairing each data line
// with its event: line the way the live API does.
func buildSSE(events ...[2]string) string {
	var sb strings.Builder
	for _, ev := range events {
		sb.WriteString("event: ")
		sb.WriteString(ev[0])
		sb.WriteString("\ndata: ")
		sb.WriteString(ev[1])
		sb.WriteString("\n\n")
	}
	return sb.String()
}

func TestStreamSSE_TextAndUsage(t *testing.T) {
	sse := buildSSE(
		[2]string{"message_start", `{"type":"message_start","message":{"id":"msg_1","usage":{"input_tokens":12,"output_tokens":1}}}`},
		[2]string{"content_block_start", `{"type":"content_block_start","index":0}`},
		[2]string{"content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hel"}}`},
		[2]string{"content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"lo"}}`},
		[2]string{"content_block_stop", `{"type":"content_block_stop","index":0}`},
		[2]string{"message_delta", `{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":4}}`},
		[2]string{"message_stop", `{"type":"message_stop"}`},
	)

	ch := make(chan fissio.Chunk, 10)
	if err := StreamSSE(context.Background(), strings.NewReader(sse), ch); err != nil {
		t.Fatalf("StreamSSE returned error: %v", err)
	}

	var chunks []fissio.Chunk
	for c := range ch {
		chunks = append(chunks, c)
	}

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %v", len(chunks), chunks)
	}
	if chunks[0].Content != "Hel" || chunks[1].Content != "lo" {
		t.Errorf("unexpected content chunks: %v", chunks[:2])
	}

	last := chunks[2]
	if last.Type != fissio.ChunkUsage {
		t.Fatalf("expected terminal usage chunk, got %q", last.Type)
	}
	// Input tokens come from message_start, output tokens from message_delta.
	if last.Usage.InputTokens != 12 {
		t.Errorf("expected 12 input tokens, got %d", last.Usage.InputTokens)
	}
	if last.Usage.OutputTokens != 4 {
		t.Errorf("expected 4 output tokens, got %d", last.Usage.OutputTokens)
	}
}

func TestStreamSSE_NoUsageEvents(t *testing.T) {
	sse := buildSSE(
		[2]string{"content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hi"}}`},
		[2]string{"message_stop", `{"type":"message_stop"}`},
	)

	ch := make(chan fissio.Chunk, 10)
	if err := StreamSSE(context.Background(), strings.NewReader(sse), ch); err != nil {
		t.Fatalf("StreamSSE returned error: %v", err)
	}

	var chunks []fissio.Chunk
	for c := range ch {
		chunks = append(chunks, c)
	}

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Type != fissio.ChunkContent || chunks[0].Content != "Hi" {
		t.Errorf("unexpected chunk: %+v", chunks[0])
	}
}

func TestStreamSSE_SkipsMalformedEvents(t *testing.T) {
	raw := "data: {\"type\":\"content_block_delta\",\"delta\":{\"text\":\"Good\"}}\n\n" +
		"data: not json at all\n\n" +
		"data: {\"type\":\"content_block_delta\",\"delta\":{\"text\":\" day\"}}\n\n"

	ch := make(chan fissio.Chunk, 10)
	if err := StreamSSE(context.Background(), strings.NewReader(raw), ch); err != nil {
		t.Fatalf("StreamSSE returned error: %v", err)
	}

	var content strings.Builder
	for c := range ch {
		content.WriteString(c.Content)
	}

	if content.String() != "Good day" {
		t.Errorf("expected content 'Good day', got %q", content.String())
	}
}

func TestStreamSSE_CanceledContext(t *testing.T) {
	sse := buildSSE(
		[2]string{"content_block_delta", `{"type":"content_block_delta","delta":{"text":"Hello"}}`},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch := make(chan fissio.Chunk)
	err := StreamSSE(ctx, strings.NewReader(sse), ch)
	if err == nil {
		t.Fatal("expected error after cancel")
	}

	if _, open := <-ch; open {
		t.Error("expected channel to be closed after cancel")
	}
}
