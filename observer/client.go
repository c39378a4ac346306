package observer

import (
	"context"
	"time"

	"github.com/fissio/fissio"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	fissiolog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ObservedClient wraps a fissio.Client with OTEL instrumentation.
type ObservedClient struct {
	inner fissio.Client
	inst  *Instruments
	model string
}

// WrapClient returns an instrumented client that emits traces, metrics, and logs.
func WrapClient(inner fissio.Client, model string, inst *Instruments) *ObservedClient {
	return &ObservedClient{inner: inner, inst: inst, model: model}
}

func (o *ObservedClient) Name() string { return o.inner.Name() }

func (o *ObservedClient) Chat(ctx context.Context, system, message string) (string, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "llm.chat", trace.WithAttributes(
		AttrLLMModel.String(o.model),
		AttrLLMProvider.String(o.inner.Name()),
	))
	defer span.End()
	start := time.Now()

	content, err := o.inner.Chat(ctx, system, message)

	durationMs := float64(time.Since(start).Milliseconds())
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	// Chat returns no token counts, so usage stays zero here.
	o.record(ctx, span, "chat", status, durationMs, fissio.Usage{})
	return content, err
}

func (o *ObservedClient) ChatStream(ctx context.Context, system string, history []fissio.Message, message string, ch chan<- fissio.Chunk) error {
	ctx, span := o.inst.Tracer.Start(ctx, "llm.chat_stream", trace.WithAttributes(
		AttrLLMModel.String(o.model),
		AttrLLMProvider.String(o.inner.Name()),
	))
	defer span.End()
	start := time.Now()

	// Wrap channel to count content chunks and capture the usage chunk.
	// The goroutine forwards chunks from wrappedCh to the caller's ch.
	// We use select with ctx.Done to avoid hanging if the context is cancelled.
	// Buffer wrappedCh generously so the inner client never blocks on send,
	// preventing a deadlock where the goroutine can't drain wrappedCh because
	// ch is full and nobody reads ch until ChatStream returns.
	bufSize := max(cap(ch), 64)
	wrappedCh := make(chan fissio.Chunk, bufSize)
	chunks := 0
	var usage fissio.Usage
	done := make(chan struct{})
	go func() {
		defer close(ch)
		defer close(done)
		for ck := range wrappedCh {
			switch ck.Type {
			case fissio.ChunkContent:
				chunks++
			case fissio.ChunkUsage:
				usage = ck.Usage
			}
			select {
			case ch <- ck:
			case <-ctx.Done():
				return
			}
		}
	}()

	err := o.inner.ChatStream(ctx, system, history, message, wrappedCh)
	<-done // wait for goroutine to finish before reading chunks and usage

	durationMs := float64(time.Since(start).Milliseconds())
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	span.SetAttributes(AttrStreamChunks.Int(chunks))
	o.record(ctx, span, "chat_stream", status, durationMs, usage)
	return err
}

func (o *ObservedClient) ChatWithTools(ctx context.Context, system string, messages []fissio.Message, tools []fissio.ToolSchema, pending []fissio.ToolCall) (fissio.ChatResult, error) {
	spanAttrs := []trace.SpanStartOption{
		trace.WithAttributes(
			AttrLLMModel.String(o.model),
			AttrLLMProvider.String(o.inner.Name()),
		),
	}
	if len(tools) > 0 {
		toolNames := make([]string, len(tools))
		for i, t := range tools {
			toolNames[i] = t.Name
		}
		spanAttrs = append(spanAttrs, trace.WithAttributes(
			AttrToolCount.Int(len(tools)),
			AttrToolNames.StringSlice(toolNames),
		))
	}

	ctx, span := o.inst.Tracer.Start(ctx, "llm.chat_with_tools", spanAttrs...)
	defer span.End()
	start := time.Now()

	result, err := o.inner.ChatWithTools(ctx, system, messages, tools, pending)

	durationMs := float64(time.Since(start).Milliseconds())
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	o.record(ctx, span, "chat_with_tools", status, durationMs, result.Usage)
	return result, err
}

func (o *ObservedClient) record(ctx context.Context, span trace.Span, method, status string, durationMs float64, usage fissio.Usage) {
	cost := o.inst.Cost.Calculate(o.model, usage.InputTokens, usage.OutputTokens)

	attrs := metric.WithAttributes(
		AttrLLMModel.String(o.model),
		AttrLLMProvider.String(o.inner.Name()),
		AttrLLMMethod.String(method),
	)

	span.SetAttributes(
		AttrTokensInput.Int(usage.InputTokens),
		AttrTokensOutput.Int(usage.OutputTokens),
		AttrCostUSD.Float64(cost),
	)

	o.inst.TokenUsage.Add(ctx, int64(usage.InputTokens), metric.WithAttributes(
		AttrLLMModel.String(o.model),
		AttrLLMProvider.String(o.inner.Name()),
		attribute.String("direction", "input"),
	))
	o.inst.TokenUsage.Add(ctx, int64(usage.OutputTokens), metric.WithAttributes(
		AttrLLMModel.String(o.model),
		AttrLLMProvider.String(o.inner.Name()),
		attribute.String("direction", "output"),
	))
	o.inst.CostTotal.Add(ctx, cost, attrs)
	o.inst.LLMRequests.Add(ctx, 1, metric.WithAttributes(
		AttrLLMModel.String(o.model),
		AttrLLMProvider.String(o.inner.Name()),
		AttrLLMMethod.String(method),
		attribute.String("status", status),
	))
	o.inst.LLMDuration.Record(ctx, durationMs, attrs)

	// Structured log
	var rec fissiolog.Record
	rec.SetSeverity(fissiolog.SeverityInfo)
	rec.SetBody(fissiolog.StringValue("llm call completed"))
	rec.AddAttributes(
		fissiolog.String("llm.model", o.model),
		fissiolog.String("llm.provider", o.inner.Name()),
		fissiolog.String("llm.method", method),
		fissiolog.Int("llm.tokens.input", usage.InputTokens),
		fissiolog.Int("llm.tokens.output", usage.OutputTokens),
		fissiolog.Float64("llm.cost_usd", cost),
		fissiolog.Float64("llm.duration_ms", durationMs),
		fissiolog.String("status", status),
	)
	o.inst.Logger.Emit(ctx, rec)
}
