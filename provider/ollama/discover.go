package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/fissio/fissio"
)

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Discover lists the models served by an Ollama host, shaped as catalog
// entries. IDs get an "ollama-" prefix and the API base points at the host's
// OpenAI-compatible shim, so the entries plug into the same client path as
// hosted models.
func Discover(ctx context.Context, host string) ([]fissio.ModelConfig, error) {
	host = strings.TrimRight(host, "/")
	client := &http.Client{Timeout: 5 * time.Second}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, host+"/api/tags", nil)
	if err != nil {
		return nil, &fissio.ErrExternalAPI{Op: "discover models", Err: err}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &fissio.ErrExternalAPI{Op: "discover models", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &fissio.ErrExternalAPI{Op: "discover models", Err: fmt.Errorf("http %d", resp.StatusCode)}
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, &fissio.ErrExternalAPI{Op: "discover models", Err: err}
	}

	models := make([]fissio.ModelConfig, 0, len(tags.Models))
	for _, m := range tags.Models {
		models = append(models, fissio.ModelConfig{
			ID:      "ollama-" + slugify(m.Name),
			Name:    displayName(m.Name),
			Model:   m.Name,
			APIBase: host + "/v1",
		})
	}
	return models, nil
}

// Unload asks an Ollama host to evict a model from memory. The native API
// has no dedicated endpoint for this; an empty chat with keep_alive zero is
// the documented way.
func Unload(ctx context.Context, host, model string) error {
	host = strings.TrimRight(host, "/")
	keepAlive := 0
	body := chatRequest{Model: model, Messages: []chatMessage{}, KeepAlive: &keepAlive}
	payload, err := json.Marshal(body)
	if err != nil {
		return &fissio.ErrExternalAPI{Op: "unload model", Err: err}
	}

	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, host+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return &fissio.ErrExternalAPI{Op: "unload model", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return &fissio.ErrExternalAPI{Op: "unload model", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return &fissio.ErrExternalAPI{Op: "unload model", Err: fmt.Errorf("http %d: %s", resp.StatusCode, data)}
	}
	return nil
}

// slugify turns a model name like "qwen2.5-coder:7b" into a URL-safe ID
// segment: lowercase, with slashes, colons, and dots collapsed to hyphens.
func slugify(name string) string {
	s := strings.ToLower(name)
	s = strings.NewReplacer("/", "-", ":", "-", ".", "-").Replace(s)
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return strings.Trim(s, "-")
}

// displayName renders a model name for the catalog, e.g. "llama3:8b"
// becomes "Llama3:8b (Local)".
func displayName(name string) string {
	last := name
	if i := strings.LastIndex(last, "/"); i >= 0 {
		last = last[i+1:]
	}
	base, tag, hasTag := strings.Cut(last, ":")

	display := base
	if r, size := utf8.DecodeRuneInString(base); size > 0 {
		display = string(unicode.ToUpper(r)) + base[size:]
	}
	if hasTag {
		display += ":" + tag
	}
	return display + " (Local)"
}
