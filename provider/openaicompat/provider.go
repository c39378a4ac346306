package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/fissio/fissio"
)

// DefaultBaseURL is the hosted OpenAI API base used when no base URL is given.
const DefaultBaseURL = "https://api.openai.com/v1"

// Provider implements fissio.Client for any OpenAI-compatible API.
// It uses the shared helpers in this package (BuildBody, StreamSSE,
// ParseResponse) to handle body building, streaming, and response parsing.
//
// Works with OpenAI, Ollama (via its /v1 shim), vLLM, LM Studio, and any
// other server that implements the OpenAI chat completions API.
type Provider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	name    string
	opts    []Option
}

// NewProvider creates an OpenAI-compatible chat client.
//
// baseURL is the API base (e.g. "https://api.openai.com/v1",
// "http://localhost:11434/v1"); an empty baseURL selects the hosted OpenAI
// API. The /chat/completions path is appended automatically.
//
// Provider-level options (WithOptions, WithName, etc.) are applied to every
// request made through this client.
func NewProvider(apiKey, model, baseURL string, opts ...ProviderOption) *Provider {
	p := &Provider{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{},
		name:    "openai",
	}
	if p.baseURL == "" {
		p.baseURL = DefaultBaseURL
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider name (default "openai", configurable via WithName).
func (p *Provider) Name() string { return p.name }

// Chat sends a non-streaming single-turn request and returns the reply text.
func (p *Provider) Chat(ctx context.Context, system, message string) (string, error) {
	body := BuildBody(system, []fissio.Message{fissio.UserMessage(message)}, nil, p.model, p.opts...)

	resp, err := p.doRequest(ctx, body)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil || resp.Choices[0].Message.Content == "" {
		return "", &fissio.ErrLLM{Provider: p.name, Message: "No response content"}
	}
	return resp.Choices[0].Message.Content, nil
}

// ChatStream streams content chunks into ch followed by a usage chunk, then
// closes ch. History entries other than user and assistant turns are skipped.
func (p *Provider) ChatStream(ctx context.Context, system string, history []fissio.Message, message string, ch chan<- fissio.Chunk) error {
	msgs := make([]fissio.Message, 0, len(history)+1)
	for _, m := range history {
		if m.Role == "user" || m.Role == "assistant" {
			msgs = append(msgs, m)
		}
	}
	msgs = append(msgs, fissio.UserMessage(message))

	body := BuildBody(system, msgs, nil, p.model, p.opts...)
	body.Stream = true
	body.StreamOptions = &StreamOptions{IncludeUsage: true}

	resp, err := p.sendHTTP(ctx, body)
	if err != nil {
		close(ch)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		close(ch)
		return p.httpErr(resp)
	}

	// StreamSSE closes ch when done.
	return StreamSSE(ctx, resp.Body, ch)
}

// ChatWithTools sends the running tool-loop conversation with tool schemas
// attached. pending is ignored: OpenAI-compatible APIs accept tool results as
// plain role:"tool" messages without reconstructing the assistant turn.
func (p *Provider) ChatWithTools(ctx context.Context, system string, messages []fissio.Message, tools []fissio.ToolSchema, _ []fissio.ToolCall) (fissio.ChatResult, error) {
	body := BuildBody(system, messages, tools, p.model, p.opts...)

	resp, err := p.doRequest(ctx, body)
	if err != nil {
		return fissio.ChatResult{}, err
	}
	if len(resp.Choices) == 0 {
		return fissio.ChatResult{}, &fissio.ErrLLM{Provider: p.name, Message: "No response choices"}
	}
	return ParseResponse(resp), nil
}

// doRequest sends a non-streaming request and decodes the wire response.
func (p *Provider) doRequest(ctx context.Context, body ChatRequest) (ChatResponse, error) {
	resp, err := p.sendHTTP(ctx, body)
	if err != nil {
		return ChatResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ChatResponse{}, p.httpErr(resp)
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return ChatResponse{}, &fissio.ErrLLM{Provider: p.name, Message: fmt.Sprintf("decode response: %v", err)}
	}

	return chatResp, nil
}

// sendHTTP marshals the request body and sends it to the chat completions endpoint.
func (p *Provider) sendHTTP(ctx context.Context, body ChatRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &fissio.ErrLLM{Provider: p.name, Message: fmt.Sprintf("marshal request: %v", err)}
	}

	url := p.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &fissio.ErrLLM{Provider: p.name, Message: fmt.Sprintf("create request: %v", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	return p.client.Do(httpReq)
}

// httpErr reads the response body and returns an ErrHTTP.
func (p *Provider) httpErr(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	return &fissio.ErrHTTP{
		Status:     resp.StatusCode,
		Body:       string(body),
		RetryAfter: fissio.ParseRetryAfter(resp.Header.Get("Retry-After")),
	}
}

// Compile-time interface check.
var _ fissio.Client = (*Provider)(nil)
