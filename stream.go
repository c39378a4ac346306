package fissio

// ChunkType identifies the kind of streamed item.
type ChunkType string

const (
	// ChunkContent carries an incremental text delta from the LLM.
	ChunkContent ChunkType = "content"
	// ChunkUsage carries token counts; emitted at most once per stream,
	// typically as the terminal item.
	ChunkUsage ChunkType = "usage"
)

// Chunk is one item of a model response stream. Streams are plain channels
// of Chunk: the producer closes the channel when the stream ends and selects
// on ctx.Done for every send, so a caller that stops reading aborts the
// producer at its next send.
type Chunk struct {
	Type    ChunkType `json:"type"`
	Content string    `json:"content,omitempty"`
	Usage   Usage     `json:"usage"`
}

// ContentChunk builds a text-delta chunk.
func ContentChunk(text string) Chunk {
	return Chunk{Type: ChunkContent, Content: text}
}

// UsageChunk builds a token-usage chunk.
func UsageChunk(input, output int) Chunk {
	return Chunk{Type: ChunkUsage, Usage: Usage{InputTokens: input, OutputTokens: output}}
}
