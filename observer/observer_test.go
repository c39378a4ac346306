package observer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/fissio/fissio"
)

// ---------------------------------------------------------------------------
// Mock implementations
// ---------------------------------------------------------------------------

// mockClient for observer tests.
type mockClient struct {
	name    string
	content string
	result  fissio.ChatResult
	err     error
}

func (m *mockClient) Name() string { return m.name }
func (m *mockClient) Chat(_ context.Context, _, _ string) (string, error) {
	return m.content, m.err
}
func (m *mockClient) ChatWithTools(_ context.Context, _ string, _ []fissio.Message, _ []fissio.ToolSchema, _ []fissio.ToolCall) (fissio.ChatResult, error) {
	return m.result, m.err
}
func (m *mockClient) ChatStream(_ context.Context, _ string, _ []fissio.Message, _ string, ch chan<- fissio.Chunk) error {
	ch <- fissio.ContentChunk("hello")
	ch <- fissio.ContentChunk(" world")
	ch <- fissio.UsageChunk(8, 2)
	close(ch)
	return m.err
}

// mockTool for observer tests.
type mockTool struct {
	schema fissio.ToolSchema
	result string
	err    error
}

func (m *mockTool) Schema() fissio.ToolSchema { return m.schema }
func (m *mockTool) Execute(_ context.Context, _ json.RawMessage) (string, error) {
	return m.result, m.err
}

// testInstruments creates a no-op Instruments using the global OTEL providers
// (which are no-ops by default). This is safe for testing delegation behavior
// without any real OTEL backend.
func testInstruments(t *testing.T) *Instruments {
	t.Helper()
	inst, err := newInstruments(nil)
	if err != nil {
		t.Fatalf("newInstruments: %v", err)
	}
	return inst
}

// ---------------------------------------------------------------------------
// ObservedClient tests
// ---------------------------------------------------------------------------

func TestObservedClientName(t *testing.T) {
	inner := &mockClient{name: "test-client"}
	oc := WrapClient(inner, "test-model", testInstruments(t))

	got := oc.Name()
	if got != "test-client" {
		t.Errorf("Name() = %q, want %q", got, "test-client")
	}
}

func TestObservedClientChat(t *testing.T) {
	inner := &mockClient{name: "c", content: "hello from LLM"}
	oc := WrapClient(inner, "m", testInstruments(t))

	got, err := oc.Chat(context.Background(), "system", "hi")
	if err != nil {
		t.Fatalf("Chat returned unexpected error: %v", err)
	}
	if got != "hello from LLM" {
		t.Errorf("Chat = %q, want %q", got, "hello from LLM")
	}
}

func TestObservedClientChatError(t *testing.T) {
	wantErr := errors.New("client unavailable")
	inner := &mockClient{name: "c", err: wantErr}
	oc := WrapClient(inner, "m", testInstruments(t))

	_, err := oc.Chat(context.Background(), "system", "hi")
	if !errors.Is(err, wantErr) {
		t.Errorf("Chat error = %v, want %v", err, wantErr)
	}
}

func TestObservedClientChatWithTools(t *testing.T) {
	want := fissio.ChatResult{
		Content: "tool response",
		ToolCalls: []fissio.ToolCall{
			{ID: "call-1", Name: "search", Args: json.RawMessage(`{"q":"go"}`)},
		},
		Usage: fissio.Usage{InputTokens: 20, OutputTokens: 15},
	}
	inner := &mockClient{name: "c", result: want}
	oc := WrapClient(inner, "m", testInstruments(t))

	tools := []fissio.ToolSchema{{Name: "search", Description: "search things"}}
	got, err := oc.ChatWithTools(context.Background(), "system", nil, tools, nil)
	if err != nil {
		t.Fatalf("ChatWithTools returned unexpected error: %v", err)
	}
	if got.Content != want.Content {
		t.Errorf("Content = %q, want %q", got.Content, want.Content)
	}
	if len(got.ToolCalls) != 1 {
		t.Fatalf("ToolCalls length = %d, want 1", len(got.ToolCalls))
	}
	if got.ToolCalls[0].Name != "search" {
		t.Errorf("ToolCalls[0].Name = %q, want %q", got.ToolCalls[0].Name, "search")
	}
	if got.Usage != want.Usage {
		t.Errorf("Usage = %+v, want %+v", got.Usage, want.Usage)
	}
}

func TestObservedClientChatStream(t *testing.T) {
	inner := &mockClient{name: "c"}
	oc := WrapClient(inner, "m", testInstruments(t))

	ch := make(chan fissio.Chunk, 10)
	err := oc.ChatStream(context.Background(), "system", nil, "hi", ch)
	if err != nil {
		t.Fatalf("ChatStream returned unexpected error: %v", err)
	}

	// The wrapper's goroutine forwards chunks from the inner wrappedCh to our
	// ch and closes our ch when done. Collect everything.
	var content string
	var usage fissio.Usage
	chunks := 0
	for ck := range ch {
		switch ck.Type {
		case fissio.ChunkContent:
			content += ck.Content
			chunks++
		case fissio.ChunkUsage:
			usage = ck.Usage
		}
	}

	if chunks != 2 {
		t.Fatalf("received %d content chunks, want 2", chunks)
	}
	if content != "hello world" {
		t.Errorf("content = %q, want %q", content, "hello world")
	}
	if usage.InputTokens != 8 || usage.OutputTokens != 2 {
		t.Errorf("usage = %+v, want {8 2}", usage)
	}
}

// ---------------------------------------------------------------------------
// ObservedTool tests
// ---------------------------------------------------------------------------

func TestObservedToolSchema(t *testing.T) {
	schema := fissio.ToolSchema{Name: "search", Description: "web search"}
	inner := &mockTool{schema: schema}
	ot := WrapTool(inner, testInstruments(t))

	got := ot.Schema()
	if got.Name != schema.Name {
		t.Errorf("Schema().Name = %q, want %q", got.Name, schema.Name)
	}
	if got.Description != schema.Description {
		t.Errorf("Schema().Description = %q, want %q", got.Description, schema.Description)
	}
}

func TestObservedToolExecute(t *testing.T) {
	inner := &mockTool{
		schema: fissio.ToolSchema{Name: "search"},
		result: "result data",
	}
	ot := WrapTool(inner, testInstruments(t))

	got, err := ot.Execute(context.Background(), json.RawMessage(`{"q":"test"}`))
	if err != nil {
		t.Fatalf("Execute returned unexpected error: %v", err)
	}
	if got != "result data" {
		t.Errorf("Execute = %q, want %q", got, "result data")
	}
}

func TestObservedToolExecuteError(t *testing.T) {
	wantErr := errors.New("tool broken")
	inner := &mockTool{
		schema: fissio.ToolSchema{Name: "search"},
		err:    wantErr,
	}
	ot := WrapTool(inner, testInstruments(t))

	_, err := ot.Execute(context.Background(), json.RawMessage(`{}`))
	if !errors.Is(err, wantErr) {
		t.Errorf("Execute error = %v, want %v", err, wantErr)
	}
}

func TestWrapRegistry(t *testing.T) {
	reg := fissio.NewToolRegistry()
	reg.Register(&mockTool{schema: fissio.ToolSchema{Name: "alpha"}, result: "a"})
	reg.Register(&mockTool{schema: fissio.ToolSchema{Name: "beta"}, result: "b"})

	wrapped := WrapRegistry(reg, testInstruments(t))

	names := wrapped.Names()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "beta" {
		t.Fatalf("Names = %v, want [alpha beta]", names)
	}

	tool, ok := wrapped.Get("alpha")
	if !ok {
		t.Fatal("Get(alpha) returned no tool")
	}
	if _, isObserved := tool.(*ObservedTool); !isObserved {
		t.Errorf("Get(alpha) = %T, want *ObservedTool", tool)
	}
	got, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Execute returned unexpected error: %v", err)
	}
	if got != "a" {
		t.Errorf("Execute = %q, want %q", got, "a")
	}
}
