package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fissio/fissio"
)

var testModels = []fissio.ModelConfig{
	{ID: "cloud-default", Name: "Cloud Default", Model: "cloud-model"},
	{ID: "local-llama", Name: "Local Llama", Model: "llama3.2:3b", APIBase: "http://127.0.0.1:1/v1"},
}

// memStore is an in-memory fissio.PipelineStore for handler tests.
type memStore struct {
	recs    []fissio.PipelineRecord
	listErr error
	saveErr error
}

var _ fissio.PipelineStore = (*memStore)(nil)

func (m *memStore) List(context.Context) ([]fissio.PipelineRecord, error) {
	return m.recs, m.listErr
}

func (m *memStore) Get(_ context.Context, id string) (fissio.PipelineRecord, error) {
	for _, rec := range m.recs {
		if rec.ID == id {
			return rec, nil
		}
	}
	return fissio.PipelineRecord{}, &fissio.ErrNotFound{Kind: "pipeline", ID: id}
}

func (m *memStore) Save(_ context.Context, rec fissio.PipelineRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	for i := range m.recs {
		if m.recs[i].ID == rec.ID {
			m.recs[i] = rec
			return nil
		}
	}
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	for i := range m.recs {
		if m.recs[i].ID == id {
			m.recs = append(m.recs[:i], m.recs[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memStore) Init(context.Context) error { return nil }
func (m *memStore) Close() error               { return nil }

// streamClient satisfies fissio.Client with canned replies. ChatStream sends
// the chunks one rune group at a time followed by a usage chunk; Chat serves
// engine-driven nodes.
type streamClient struct {
	reply     string
	usage     fissio.Usage
	streamErr error
	chatErr   error
}

var _ fissio.Client = (*streamClient)(nil)

func (c *streamClient) Chat(_ context.Context, _, _ string) (string, error) {
	if c.chatErr != nil {
		return "", c.chatErr
	}
	return c.reply, nil
}

func (c *streamClient) ChatStream(_ context.Context, _ string, _ []fissio.Message, _ string, ch chan<- fissio.Chunk) error {
	defer close(ch)
	if c.streamErr != nil {
		return c.streamErr
	}
	for _, word := range strings.SplitAfter(c.reply, " ") {
		if word != "" {
			ch <- fissio.ContentChunk(word)
		}
	}
	ch <- fissio.UsageChunk(c.usage.InputTokens, c.usage.OutputTokens)
	return nil
}

func (c *streamClient) ChatWithTools(_ context.Context, _ string, _ []fissio.Message, _ []fissio.ToolSchema, _ []fissio.ToolCall) (fissio.ChatResult, error) {
	if c.chatErr != nil {
		return fissio.ChatResult{}, c.chatErr
	}
	return fissio.ChatResult{Content: c.reply, Usage: c.usage}, nil
}

func (c *streamClient) Name() string { return "stream-test" }

func clientFactory(c *streamClient) fissio.ClientFactory {
	return func(fissio.ModelConfig) fissio.Client { return c }
}

// blockAllGuard rejects every message with a canned response.
type blockAllGuard struct{ response string }

func (g blockAllGuard) CheckInput(context.Context, string, []fissio.Message) error {
	return &fissio.ErrBlocked{Response: g.response}
}

// stubTool is a registrable tool that does nothing.
type stubTool struct {
	name string
	desc string
}

func (t stubTool) Schema() fissio.ToolSchema {
	return fissio.ToolSchema{
		Name:        t.name,
		Description: t.desc,
		Parameters:  json.RawMessage(`{"type":"object","properties":{}}`),
	}
}

func (t stubTool) Execute(context.Context, json.RawMessage) (string, error) {
	return "", nil
}

func testPresets(t *testing.T) *fissio.PresetRegistry {
	t.Helper()
	reg := fissio.NewPresetRegistry()
	prompt := "Answer concisely."
	cfg := fissio.PipelineConfig{
		ID:          "simple-chain",
		Name:        "Simple Chain",
		Description: "One llm node",
		Nodes: []fissio.NodeConfig{
			{ID: "llm1", Type: fissio.NodeLLM, Prompt: &prompt},
		},
		Edges: []fissio.EdgeConfig{
			{From: fissio.Single("input"), To: fissio.Single("llm1"), Type: fissio.EdgeDirect},
			{From: fissio.Single("llm1"), To: fissio.Single("output"), Type: fissio.EdgeDirect},
		},
	}
	reg.Add(cfg)
	return reg
}

// newTestServer wires a server around an in-memory store and a scripted
// client. Extra options are applied after the defaults.
func newTestServer(t *testing.T, client *streamClient, opts ...Option) (*Server, *memStore) {
	t.Helper()
	store := &memStore{}
	base := []Option{
		WithClients(clientFactory(client)),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	srv := New(testModels, testPresets(t), store, fissio.NewToolRegistry(), append(base, opts...)...)
	return srv, store
}

// sseEvent is one parsed server-sent event.
type sseEvent struct {
	name string
	data string
}

// parseSSE splits an event-stream body into its events.
func parseSSE(t *testing.T, body string) []sseEvent {
	t.Helper()
	var events []sseEvent
	var cur sseEvent
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			cur.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			cur.data = strings.TrimPrefix(line, "data: ")
		case line == "":
			if cur.name != "" || cur.data != "" {
				events = append(events, cur)
				cur = sseEvent{}
			}
		}
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan SSE body: %v", err)
	}
	return events
}

// postJSON runs a JSON POST through the full handler stack.
func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(payload)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// postJSONRaw posts a raw body without marshaling, for malformed payloads.
func postJSONRaw(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func getJSON(t *testing.T, h http.Handler, path string, out any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if out != nil && w.Code == http.StatusOK {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("unmarshal %s response: %v", path, err)
		}
	}
	return w
}

var errBoom = errors.New("boom")
