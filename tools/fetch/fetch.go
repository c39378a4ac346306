// Package fetch implements the fetch_url tool. It downloads a page and
// returns structured, readable content: readability extraction for HTML,
// text extraction for PDF, passthrough for everything else.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"github.com/ledongthuc/pdf"

	"github.com/fissio/fissio"
)

const defaultMaxLength = 8000

// Tool fetches URLs and extracts readable content.
type Tool struct {
	client *http.Client
}

var _ fissio.Tool = (*Tool)(nil)

// New creates a fetch tool with a 30-second timeout.
func New() *Tool {
	return &Tool{client: &http.Client{Timeout: 30 * time.Second}}
}

func (t *Tool) Schema() fissio.ToolSchema {
	return fissio.ToolSchema{
		Name:        "fetch_url",
		Description: "Fetch and parse content from a URL. Returns structured data with title, description, and main text content.",
		Parameters:  json.RawMessage(`{"type":"object","properties":{"url":{"type":"string","description":"The URL to fetch content from"},"max_length":{"type":"integer","description":"Maximum characters for content (default: 8000)","default":8000}},"required":["url"]}`),
	}
}

// pageContent is the JSON payload handed back to the model.
type pageContent struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Content     string `json:"content"`
	ContentType string `json:"content_type"`
	Truncated   bool   `json:"truncated"`
}

func (t *Tool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var params struct {
		URL       string `json:"url"`
		MaxLength int    `json:"max_length"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return "", fmt.Errorf("invalid args: %w", err)
	}
	if params.URL == "" {
		return "", fmt.Errorf("missing 'url' parameter")
	}
	if params.MaxLength <= 0 {
		params.MaxLength = defaultMaxLength
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, params.URL, nil)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; FissioBot/1.0)")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("HTTP %d from %s", resp.StatusCode, params.URL)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20)) // 4MB cap
	if err != nil {
		return "", fmt.Errorf("read error: %w", err)
	}

	page := pageContent{URL: params.URL, ContentType: contentType}
	switch {
	case strings.Contains(contentType, "text/html"):
		page.Title, page.Description, page.Content = extractHTML(params.URL, body)
	case strings.Contains(contentType, "application/pdf"):
		text, err := extractPDF(body)
		if err != nil {
			return "", fmt.Errorf("parse pdf: %w", err)
		}
		page.Content = text
	default:
		page.Content = string(body)
	}

	if len(page.Content) > params.MaxLength {
		page.Content = page.Content[:params.MaxLength]
		page.Truncated = true
	}

	out, err := json.MarshalIndent(page, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialize response: %w", err)
	}
	return string(out), nil
}

// extractHTML runs readability over the document, falling back to the raw
// body when extraction yields nothing usable.
func extractHTML(rawURL string, body []byte) (title, description, content string) {
	parsed, _ := url.Parse(rawURL)
	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err != nil || article.TextContent == "" {
		return "", "", string(body)
	}
	return article.Title, article.Excerpt, strings.TrimSpace(article.TextContent)
}

// extractPDF concatenates the plain text of every readable page.
func extractPDF(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}
	var text strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}
		if text.Len() > 0 {
			text.WriteString("\n\n")
		}
		text.WriteString(pageText)
	}
	return strings.TrimSpace(text.String()), nil
}
