package observer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	fissiolog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
)

// RecordPipelineRun records metrics and a structured log entry for one
// pipeline execution. Spans come from the engine itself through the
// fissio.Tracer installed with engine.WithTracer; this covers the counters
// and logs that spans alone do not provide.
func (i *Instruments) RecordPipelineRun(ctx context.Context, name string, duration time.Duration, err error) {
	durationMs := float64(duration.Milliseconds())
	status := "ok"
	if ctx.Err() != nil && err != nil {
		status = "cancelled"
	} else if err != nil {
		status = "error"
	}

	i.PipelineRuns.Add(ctx, 1, metric.WithAttributes(
		AttrPipelineName.String(name),
		attribute.String("status", status),
	))
	i.PipelineDuration.Record(ctx, durationMs, metric.WithAttributes(
		AttrPipelineName.String(name),
	))

	// Structured log
	var rec fissiolog.Record
	rec.SetSeverity(fissiolog.SeverityInfo)
	rec.SetBody(fissiolog.StringValue("pipeline run completed"))
	rec.AddAttributes(
		fissiolog.String("pipeline.name", name),
		fissiolog.String("pipeline.status", status),
		fissiolog.Float64("duration_ms", durationMs),
	)
	i.Logger.Emit(ctx, rec)
}
