package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fissio/fissio"
)

// DefaultBaseURL is the hosted Anthropic API base.
const DefaultBaseURL = "https://api.anthropic.com/v1"

// apiVersion is the anthropic-version header value sent with every request.
const apiVersion = "2023-06-01"

// defaultMaxTokens caps the response length when WithMaxTokens is not set.
// The messages API requires an explicit max_tokens on every request.
const defaultMaxTokens = 8192

// Provider implements fissio.Client for the Anthropic messages API.
type Provider struct {
	apiKey    string
	model     string
	baseURL   string
	maxTokens int
	client    *http.Client
}

// ProviderOption configures a Provider instance.
type ProviderOption func(*Provider)

// WithBaseURL overrides the API base (e.g. for a proxy or test server).
// The /messages path is appended automatically.
func WithBaseURL(url string) ProviderOption {
	return func(p *Provider) { p.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client (e.g. for timeouts or proxies).
func WithHTTPClient(c *http.Client) ProviderOption {
	return func(p *Provider) { p.client = c }
}

// WithMaxTokens sets the maximum number of output tokens per request.
func WithMaxTokens(n int) ProviderOption {
	return func(p *Provider) { p.maxTokens = n }
}

// NewProvider creates an Anthropic chat client for the given model
// (e.g. "claude-sonnet-4-5-20250929").
func NewProvider(apiKey, model string, opts ...ProviderOption) *Provider {
	p := &Provider{
		apiKey:    apiKey,
		model:     model,
		baseURL:   DefaultBaseURL,
		maxTokens: defaultMaxTokens,
		client:    &http.Client{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns "anthropic".
func (p *Provider) Name() string { return "anthropic" }

// Chat sends a non-streaming single-turn request and returns the reply text.
func (p *Provider) Chat(ctx context.Context, system, message string) (string, error) {
	body := ChatRequest{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		System:    system,
		Messages:  []Message{{Role: "user", Content: message}},
	}

	resp, err := p.doRequest(ctx, body)
	if err != nil {
		return "", err
	}
	return joinText(resp.Content), nil
}

// ChatStream streams content chunks into ch followed by a usage chunk, then
// closes ch. History entries other than user and assistant turns are skipped.
func (p *Provider) ChatStream(ctx context.Context, system string, history []fissio.Message, message string, ch chan<- fissio.Chunk) error {
	msgs := make([]Message, 0, len(history)+1)
	for _, m := range history {
		if m.Role == "user" || m.Role == "assistant" {
			msgs = append(msgs, Message{Role: m.Role, Content: m.Content})
		}
	}
	msgs = append(msgs, Message{Role: "user", Content: message})

	body := ChatRequest{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		System:    system,
		Messages:  msgs,
		Stream:    true,
	}

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
// attached. pending is used to rebuild the assistant tool_use turn that must
// precede the batched tool results.
func (p *Provider) ChatWithTools(ctx context.Context, system string, messages []fissio.Message, tools []fissio.ToolSchema, pending []fissio.ToolCall) (fissio.ChatResult, error) {
	body := ChatRequest{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		System:    system,
		Messages:  BuildMessages(messages, pending),
		Tools:     BuildToolDefs(tools),
	}

	resp, err := p.doRequest(ctx, body)
	if err != nil {
		return fissio.ChatResult{}, err
	}

	result := fissio.ChatResult{
		Usage: fissio.Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}

	for _, block := range resp.Content {
		if block.Type == "tool_use" {
			result.ToolCalls = append(result.ToolCalls, fissio.ToolCall{
				ID:   block.ID,
				Name: block.Name,
				Args: block.Input,
			})
		}
	}
	if len(result.ToolCalls) == 0 {
		result.Content = joinText(resp.Content)
	}

	return result, nil
}

// joinText concatenates the text blocks of a response.
func joinText(blocks []ContentBlock) string {
	var sb strings.Builder
	for _, block := range blocks {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}

// doRequest sends a non-streaming request and decodes the wire response.
func (p *Provider) doRequest(ctx context.Context, body ChatRequest) (MessagesResponse, error) {
	resp, err := p.sendHTTP(ctx, body)
	if err != nil {
		return MessagesResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return MessagesResponse{}, p.httpErr(resp)
	}

	var msgResp MessagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&msgResp); err != nil {
		return MessagesResponse{}, &fissio.ErrLLM{Provider: "anthropic", Message: fmt.Sprintf("decode response: %v", err)}
	}

	return msgResp, nil
}

// sendHTTP marshals the request body and sends it to the messages endpoint.
func (p *Provider) sendHTTP(ctx context.Context, body ChatRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &fissio.ErrLLM{Provider: "anthropic", Message: fmt.Sprintf("marshal request: %v", err)}
	}

	url := p.baseURL + "/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &fissio.ErrLLM{Provider: "anthropic", Message: fmt.Sprintf("create request: %v", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

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
