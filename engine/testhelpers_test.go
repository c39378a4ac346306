package engine

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/fissio/fissio"
)

// scriptClient satisfies fissio.Client with canned behavior. Tests assign
// only the functions their scenario needs; anything else errors loudly.
type scriptClient struct {
	chatFn  func(system, message string) (string, error)
	toolsFn func(system string, messages []fissio.Message, tools []fissio.ToolSchema, pending []fissio.ToolCall) (fissio.ChatResult, error)
}

var _ fissio.Client = (*scriptClient)(nil)

func (c *scriptClient) Chat(_ context.Context, system, message string) (string, error) {
	if c.chatFn == nil {
		return "", errors.New("unexpected Chat call")
	}
	return c.chatFn(system, message)
}

func (c *scriptClient) ChatStream(_ context.Context, _ string, _ []fissio.Message, _ string, ch chan<- fissio.Chunk) error {
	close(ch)
	return errors.New("unexpected ChatStream call")
}

func (c *scriptClient) ChatWithTools(_ context.Context, system string, messages []fissio.Message, tools []fissio.ToolSchema, pending []fissio.ToolCall) (fissio.ChatResult, error) {
	if c.toolsFn == nil {
		return fissio.ChatResult{}, errors.New("unexpected ChatWithTools call")
	}
	return c.toolsFn(system, messages, tools, pending)
}

func (c *scriptClient) Name() string { return "script" }

// scriptFactory hands the same scripted client to every node.
func scriptFactory(c *scriptClient) fissio.ClientFactory {
	return func(fissio.ModelConfig) fissio.Client { return c }
}

// echoChat answers "<system>(<message>)" so call shapes show up in the
// pipeline output.
func echoChat(system, message string) (string, error) {
	return system + "(" + message + ")", nil
}

var testModels = []fissio.ModelConfig{
	{ID: "m-default", Name: "Default", Model: "default-model"},
	{ID: "m-alt", Name: "Alt", Model: "alt-model"},
}

// newTestEngine builds an engine with a scripted client, an empty tool
// registry, and no tracer. Later opts override the defaults.
func newTestEngine(cfg fissio.PipelineConfig, overrides map[string]string, client *scriptClient, opts ...Option) *Engine {
	base := []Option{
		WithClients(scriptFactory(client)),
		WithTools(fissio.NewToolRegistry()),
	}
	return New(cfg, testModels, testModels[0], overrides, append(base, opts...)...)
}

// --- Tool mocks ---

// echoTool records its invocations and returns its raw arguments.
type echoTool struct {
	calls []json.RawMessage
}

func (t *echoTool) Schema() fissio.ToolSchema {
	return fissio.ToolSchema{
		Name:        "echo",
		Description: "Echoes its arguments",
		Parameters:  json.RawMessage(`{"type":"object"}`),
	}
}

func (t *echoTool) Execute(_ context.Context, args json.RawMessage) (string, error) {
	t.calls = append(t.calls, args)
	return "echo:" + string(args), nil
}

// failTool always errors.
type failTool struct{}

func (failTool) Schema() fissio.ToolSchema {
	return fissio.ToolSchema{Name: "fail", Description: "Always fails", Parameters: json.RawMessage(`{"type":"object"}`)}
}

func (failTool) Execute(context.Context, json.RawMessage) (string, error) {
	return "", errors.New("tool broken")
}
