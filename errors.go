package fissio

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ErrLLM is any failure from a provider call: transport, auth, protocol,
// malformed response, tool-loop cap exceeded, or a missing tool inside the
// agentic loop.
type ErrLLM struct {
	Provider string
	Message  string
}

func (e *ErrLLM) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// ErrHTTP is a non-2xx response from a provider endpoint. RetryAfter
// carries the server's Retry-After hint when one was sent, so retry
// wrappers can honor it instead of guessing a backoff.
type ErrHTTP struct {
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// ParseRetryAfter interprets a Retry-After header value, which is either
// delta-seconds ("30") or an HTTP-date. Returns 0 when the header is
// absent, malformed, or already in the past.
func ParseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// ErrParse is a failure to parse a structured LLM response.
type ErrParse struct {
	Op     string
	Detail string
}

func (e *ErrParse) Error() string {
	return fmt.Sprintf("parse %s: %s", e.Op, e.Detail)
}

// ErrExternalAPI is a non-LLM outbound failure (model discovery, unload,
// or a tool's own network calls).
type ErrExternalAPI struct {
	Op  string
	Err error
}

func (e *ErrExternalAPI) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ErrExternalAPI) Unwrap() error { return e.Err }

// ErrNotFound reports an unknown preset, model, or stored pipeline ID.
type ErrNotFound struct {
	Kind string
	ID   string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// ErrBlocked is returned by a Guard when input is rejected before reaching
// a model. Response is the canned reply to stream back to the caller in
// place of model output.
type ErrBlocked struct {
	Response string
}

func (e *ErrBlocked) Error() string {
	return fmt.Sprintf("blocked: %s", e.Response)
}
