package fissio

import (
	"encoding/json"
	"testing"
)

func TestContentChunk(t *testing.T) {
	c := ContentChunk("hello")
	if c.Type != ChunkContent {
		t.Errorf("Type = %q, want %q", c.Type, ChunkContent)
	}
	if c.Content != "hello" {
		t.Errorf("Content = %q, want %q", c.Content, "hello")
	}
	if c.Usage != (Usage{}) {
		t.Errorf("Usage = %+v, want zero", c.Usage)
	}
}

func TestUsageChunk(t *testing.T) {
	c := UsageChunk(12, 40)
	if c.Type != ChunkUsage {
		t.Errorf("Type = %q, want %q", c.Type, ChunkUsage)
	}
	if c.Usage.InputTokens != 12 || c.Usage.OutputTokens != 40 {
		t.Errorf("Usage = %+v, want {12 40}", c.Usage)
	}
	if c.Content != "" {
		t.Errorf("Content = %q, want empty", c.Content)
	}
}

func TestChunkJSONOmitsEmptyContent(t *testing.T) {
	data, err := json.Marshal(UsageChunk(1, 2))
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if _, ok := m["content"]; ok {
		t.Errorf("usage chunk JSON includes content key: %s", data)
	}
	if string(m["type"]) != `"usage"` {
		t.Errorf("type = %s, want \"usage\"", m["type"])
	}
}
