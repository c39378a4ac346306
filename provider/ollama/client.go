// Package ollama talks to Ollama's native API. The OpenAI-compatible shim
// (host + "/v1") used for routine chat hides the runner's timing report, so
// verbose streaming goes through /api/chat directly. The package also covers
// host management: listing served models and evicting them from memory.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/fissio/fissio"
)

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	Stream    bool          `json:"stream"`
	KeepAlive *int          `json:"keep_alive,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatFrame is one NDJSON line of a native chat stream. The counters are
// only present on the final frame, where done is true.
type chatFrame struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done               bool  `json:"done"`
	TotalDuration      int64 `json:"total_duration"`
	LoadDuration       int64 `json:"load_duration"`
	PromptEvalCount    int   `json:"prompt_eval_count"`
	PromptEvalDuration int64 `json:"prompt_eval_duration"`
	EvalCount          int   `json:"eval_count"`
	EvalDuration       int64 `json:"eval_duration"`
}

// Client streams chat completions from one Ollama host over the native API.
type Client struct {
	model  string
	host   string
	client *http.Client
}

// NewClient creates a native client for model. apiBase may be the
// OpenAI-compatible base straight from a catalog entry; the "/v1" suffix is
// trimmed to reach the host root.
func NewClient(model, apiBase string) *Client {
	host := strings.TrimRight(apiBase, "/")
	host = strings.TrimSuffix(host, "/v1")
	return &Client{
		model:  model,
		host:   host,
		client: &http.Client{},
	}
}

// ChatStream streams a native chat request, sending content chunks into ch
// followed by a usage chunk built from the eval counters, then closes ch.
// It returns the timing report from the final frame, so callers that want
// the metrics must wait for it to return, not just for ch to close.
func (c *Client) ChatStream(ctx context.Context, system string, history []fissio.Message, message string, ch chan<- fissio.Chunk) (Metrics, error) {
	defer close(ch)

	msgs := make([]chatMessage, 0, len(history)+2)
	if system != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: system})
	}
	for _, m := range history {
		if m.Role == "user" || m.Role == "assistant" {
			msgs = append(msgs, chatMessage{Role: m.Role, Content: m.Content})
		}
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: message})

	body := chatRequest{Model: c.model, Messages: msgs, Stream: true}
	payload, err := json.Marshal(body)
	if err != nil {
		return Metrics{}, &fissio.ErrLLM{Provider: "ollama", Message: "marshal request: " + err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return Metrics{}, &fissio.ErrLLM{Provider: "ollama", Message: "create request: " + err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Metrics{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return Metrics{}, &fissio.ErrHTTP{Status: resp.StatusCode, Body: string(data)}
	}

	var metrics Metrics
	var done bool

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var frame chatFrame
		if err := json.Unmarshal(line, &frame); err != nil {
			continue
		}

		if frame.Message.Content != "" {
			select {
			case ch <- fissio.ContentChunk(frame.Message.Content):
			case <-ctx.Done():
				return Metrics{}, ctx.Err()
			}
		}

		if frame.Done {
			metrics = Metrics{
				TotalDuration:      frame.TotalDuration,
				LoadDuration:       frame.LoadDuration,
				PromptEvalCount:    frame.PromptEvalCount,
				PromptEvalDuration: frame.PromptEvalDuration,
				EvalCount:          frame.EvalCount,
				EvalDuration:       frame.EvalDuration,
			}
			done = true
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return Metrics{}, err
	}

	if done {
		select {
		case ch <- fissio.UsageChunk(metrics.PromptEvalCount, metrics.EvalCount):
		case <-ctx.Done():
			return Metrics{}, ctx.Err()
		}
	}
	return metrics, nil
}
