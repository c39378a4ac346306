package fissio

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrLLMError(t *testing.T) {
	tests := []struct {
		provider string
		message  string
		want     string
	}{
		{"anthropic", "rate limited", "anthropic: rate limited"},
		{"openai", "context length exceeded", "openai: context length exceeded"},
		{"engine", "Max tool iterations (10) exceeded", "engine: Max tool iterations (10) exceeded"},
	}
	for _, tt := range tests {
		e := &ErrLLM{Provider: tt.provider, Message: tt.message}
		if got := e.Error(); got != tt.want {
			t.Errorf("ErrLLM{%q, %q}.Error() = %q, want %q", tt.provider, tt.message, got, tt.want)
		}
	}
}

func TestErrHTTPError(t *testing.T) {
	tests := []struct {
		status int
		body   string
		want   string
	}{
		{429, "too many requests", "http 429: too many requests"},
		{500, "internal server error", "http 500: internal server error"},
		{0, "", "http 0: "},
	}
	for _, tt := range tests {
		e := &ErrHTTP{Status: tt.status, Body: tt.body}
		if got := e.Error(); got != tt.want {
			t.Errorf("ErrHTTP{%d, %q}.Error() = %q, want %q", tt.status, tt.body, got, tt.want)
		}
	}
}

func TestErrParseError(t *testing.T) {
	e := &ErrParse{Op: "router decision", Detail: "empty reply"}
	want := "parse router decision: empty reply"
	if got := e.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrExternalAPIUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	e := &ErrExternalAPI{Op: "ollama discovery", Err: cause}

	if got, want := e.Error(), "ollama discovery: connection refused"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(e, cause) {
		t.Error("errors.Is(e, cause) = false, want true")
	}

	wrapped := fmt.Errorf("startup: %w", e)
	var extracted *ErrExternalAPI
	if !errors.As(wrapped, &extracted) {
		t.Fatal("errors.As failed to find ErrExternalAPI in wrapped chain")
	}
	if extracted.Op != "ollama discovery" {
		t.Errorf("extracted.Op = %q, want %q", extracted.Op, "ollama discovery")
	}
}

func TestErrNotFoundError(t *testing.T) {
	tests := []struct {
		kind string
		id   string
		want string
	}{
		{"pipeline", "my-flow", `pipeline "my-flow" not found`},
		{"preset", "triage", `preset "triage" not found`},
	}
	for _, tt := range tests {
		e := &ErrNotFound{Kind: tt.kind, ID: tt.id}
		if got := e.Error(); got != tt.want {
			t.Errorf("ErrNotFound{%q, %q}.Error() = %q, want %q", tt.kind, tt.id, got, tt.want)
		}
	}
}

func TestErrBlockedAs(t *testing.T) {
	var err error = &ErrBlocked{Response: "I can't process that request."}

	var blocked *ErrBlocked
	if !errors.As(err, &blocked) {
		t.Fatal("errors.As failed to find ErrBlocked")
	}
	if blocked.Response != "I can't process that request." {
		t.Errorf("Response = %q", blocked.Response)
	}
	if got, want := err.Error(), "blocked: I can't process that request."; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
