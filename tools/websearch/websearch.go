// Package websearch implements the web_search tool over the Tavily API.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fissio/fissio"
)

const (
	defaultSearchURL  = "https://api.tavily.com/search"
	defaultMaxResults = 5
)

// Tool performs web searches via the Tavily API.
type Tool struct {
	apiKey    string
	searchURL string
	client    *http.Client
}

var _ fissio.Tool = (*Tool)(nil)

// New creates a search tool with the given Tavily API key.
func New(apiKey string) *Tool {
	return &Tool{
		apiKey:    apiKey,
		searchURL: defaultSearchURL,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (t *Tool) Schema() fissio.ToolSchema {
	return fissio.ToolSchema{
		Name:        "web_search",
		Description: "Search the web for information. Returns relevant results with titles, URLs, and content snippets.",
		Parameters:  json.RawMessage(`{"type":"object","properties":{"query":{"type":"string","description":"The search query"},"max_results":{"type":"integer","description":"Maximum number of results to return (default: 5)","default":5}},"required":["query"]}`),
	}
}

type searchRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type searchResponse struct {
	Answer  string         `json:"answer"`
	Results []searchResult `json:"results"`
}

type searchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

func (t *Tool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var params struct {
		Query      string `json:"query"`
		MaxResults int    `json:"max_results"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return "", fmt.Errorf("invalid args: %w", err)
	}
	if params.Query == "" {
		return "", fmt.Errorf("missing 'query' parameter")
	}
	if params.MaxResults <= 0 {
		params.MaxResults = defaultMaxResults
	}

	payload, err := json.Marshal(searchRequest{
		APIKey:      t.apiKey,
		Query:       params.Query,
		MaxResults:  params.MaxResults,
		SearchDepth: "basic",
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.searchURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("search error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Tavily API error: %d - %s", resp.StatusCode, body)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("parse search response: %w", err)
	}
	return formatResults(sr), nil
}

// formatResults renders the answer and result list as markdown for the model.
func formatResults(resp searchResponse) string {
	var out strings.Builder
	if resp.Answer != "" {
		fmt.Fprintf(&out, "**Summary:** %s\n\n", resp.Answer)
	}
	out.WriteString("**Search Results:**\n\n")
	for i, r := range resp.Results {
		fmt.Fprintf(&out, "%d. **%s**\n   URL: %s\n   %s\n\n", i+1, r.Title, r.URL, r.Content)
	}
	return out.String()
}
