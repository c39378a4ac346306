package fissio

import (
	"context"
	"sync"
	"time"
)

// rateLimitClient wraps a Client with proactive rate limiting.
// Requests are blocked until the rate budget allows them to proceed.
type rateLimitClient struct {
	inner Client
	mu    sync.Mutex

	// RPM state: sliding window of request timestamps.
	rpm       int
	rpmWindow []time.Time

	// TPM state: sliding window of (timestamp, tokenCount) pairs.
	tpm       int
	tpmWindow []tpmEntry
}

type tpmEntry struct {
	at     time.Time
	tokens int
}

// RateLimitOption configures a rateLimitClient.
type RateLimitOption func(*rateLimitClient)

// RPM sets the maximum requests per minute.
func RPM(n int) RateLimitOption {
	return func(r *rateLimitClient) { r.rpm = n }
}

// TPM sets the maximum tokens per minute (input + output combined).
// Token counts are recorded from ChatWithTools results and from the usage
// chunk of each stream; plain Chat calls count against RPM only.
// This is a soft limit — the request that exceeds the budget completes,
// but subsequent requests block until the window slides.
func TPM(n int) RateLimitOption {
	return func(r *rateLimitClient) { r.tpm = n }
}

// WithRateLimit wraps c with proactive rate limiting. Compose with other wrappers:
//
//	client = fissio.WithRateLimit(client, fissio.RPM(60))
//	client = fissio.WithRateLimit(client, fissio.RPM(60), fissio.TPM(100000))
//	client = fissio.WithRateLimit(fissio.WithRetry(client), fissio.RPM(60))
//
// The returned Client carries the sliding windows, so it must be shared by
// every request that should count against the same budget.
func WithRateLimit(c Client, opts ...RateLimitOption) Client {
	r := &rateLimitClient{inner: c}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *rateLimitClient) Name() string { return r.inner.Name() }

func (r *rateLimitClient) Chat(ctx context.Context, system, message string) (string, error) {
	if err := r.waitForBudget(ctx); err != nil {
		return "", err
	}
	return r.inner.Chat(ctx, system, message)
}

func (r *rateLimitClient) ChatWithTools(ctx context.Context, system string, messages []Message, tools []ToolSchema, pending []ToolCall) (ChatResult, error) {
	if err := r.waitForBudget(ctx); err != nil {
		return ChatResult{}, err
	}
	resp, err := r.inner.ChatWithTools(ctx, system, messages, tools, pending)
	if err == nil {
		r.recordUsage(resp.Usage)
	}
	return resp, err
}

// ChatStream forwards the inner stream to ch and records the usage chunk,
// when one arrives, against the TPM window. ch is always closed before returning.
func (r *rateLimitClient) ChatStream(ctx context.Context, system string, history []Message, message string, ch chan<- Chunk) error {
	if err := r.waitForBudget(ctx); err != nil {
		close(ch)
		return err
	}

	mid := make(chan Chunk, 64)
	var streamErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		streamErr = r.inner.ChatStream(ctx, system, history, message, mid)
	}()

	var usage Usage
	for chunk := range mid {
		if chunk.Type == ChunkUsage {
			usage = chunk.Usage
		}
		ch <- chunk
	}
	<-done
	close(ch)

	if streamErr == nil {
		r.recordUsage(usage)
	}
	return streamErr
}

// waitForBudget blocks until both RPM and TPM budgets allow a request.
// Returns ctx.Err() if the context is cancelled while waiting.
func (r *rateLimitClient) waitForBudget(ctx context.Context) error {
	for {
		r.mu.Lock()
		now := time.Now()
		cutoff := now.Add(-time.Minute)

		// Prune expired RPM entries.
		r.rpmWindow = pruneTime(r.rpmWindow, cutoff)

		// Prune expired TPM entries.
		r.tpmWindow = pruneTpm(r.tpmWindow, cutoff)

		// Check RPM.
		rpmOK := r.rpm <= 0 || len(r.rpmWindow) < r.rpm

		// Check TPM.
		tpmOK := true
		if r.tpm > 0 {
			var total int
			for _, e := range r.tpmWindow {
				total += e.tokens
			}
			tpmOK = total < r.tpm
		}

		if rpmOK && tpmOK {
			// Record this request in RPM window.
			if r.rpm > 0 {
				r.rpmWindow = append(r.rpmWindow, now)
			}
			r.mu.Unlock()
			return nil
		}

		// Calculate wait time: time until the oldest entry in the blocking window expires.
		var wait time.Duration
		if !rpmOK && len(r.rpmWindow) > 0 {
			wait = r.rpmWindow[0].Add(time.Minute).Sub(now)
		}
		if !tpmOK && len(r.tpmWindow) > 0 {
			w := r.tpmWindow[0].at.Add(time.Minute).Sub(now)
			if wait == 0 || w < wait {
				wait = w
			}
		}
		if wait <= 0 {
			wait = 10 * time.Millisecond
		}
		r.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// recordUsage adds token counts to the TPM sliding window.
func (r *rateLimitClient) recordUsage(u Usage) {
	if r.tpm <= 0 {
		return
	}
	total := u.InputTokens + u.OutputTokens
	if total <= 0 {
		return
	}
	r.mu.Lock()
	r.tpmWindow = append(r.tpmWindow, tpmEntry{at: time.Now(), tokens: total})
	r.mu.Unlock()
}

// pruneTime removes entries older than cutoff from a sorted time slice.
func pruneTime(s []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(s) && s[i].Before(cutoff) {
		i++
	}
	return s[i:]
}

// pruneTpm removes entries older than cutoff from a sorted tpmEntry slice.
func pruneTpm(s []tpmEntry, cutoff time.Time) []tpmEntry {
	i := 0
	for i < len(s) && s[i].at.Before(cutoff) {
		i++
	}
	return s[i:]
}

// compile-time check
var _ Client = (*rateLimitClient)(nil)
