package observer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fissio/fissio"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	fissiolog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ObservedTool wraps a fissio.Tool with OTEL instrumentation.
type ObservedTool struct {
	inner fissio.Tool
	inst  *Instruments
	name  string
}

// WrapTool returns an instrumented tool.
func WrapTool(inner fissio.Tool, inst *Instruments) *ObservedTool {
	return &ObservedTool{inner: inner, inst: inst, name: inner.Schema().Name}
}

func (o *ObservedTool) Schema() fissio.ToolSchema {
	return o.inner.Schema()
}

func (o *ObservedTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "tool.execute", trace.WithAttributes(
		AttrToolName.String(o.name),
	))
	defer span.End()
	start := time.Now()

	result, err := o.inner.Execute(ctx, args)

	durationMs := float64(time.Since(start).Milliseconds())
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	span.SetAttributes(
		AttrToolStatus.String(status),
		AttrToolResultLength.Int(len(result)),
	)

	o.inst.ToolExecutions.Add(ctx, 1, metric.WithAttributes(
		AttrToolName.String(o.name),
		attribute.String("status", status),
	))
	o.inst.ToolDuration.Record(ctx, durationMs, metric.WithAttributes(
		AttrToolName.String(o.name),
	))

	// Structured log
	var rec fissiolog.Record
	rec.SetSeverity(fissiolog.SeverityInfo)
	rec.SetBody(fissiolog.StringValue("tool executed"))
	rec.AddAttributes(
		fissiolog.String("tool.name", o.name),
		fissiolog.String("tool.status", status),
		fissiolog.Int("tool.result_length", len(result)),
		fissiolog.Float64("tool.duration_ms", durationMs),
	)
	o.inst.Logger.Emit(ctx, rec)

	return result, err
}

// WrapRegistry returns a new registry where every tool from reg is wrapped
// with instrumentation. The original registry is left untouched.
func WrapRegistry(reg *fissio.ToolRegistry, inst *Instruments) *fissio.ToolRegistry {
	wrapped := fissio.NewToolRegistry()
	for _, name := range reg.Names() {
		if t, ok := reg.Get(name); ok {
			wrapped.Register(WrapTool(t, inst))
		}
	}
	return wrapped
}
