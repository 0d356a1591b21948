// Package telemetry records OpenTelemetry metrics for the agent: thread
// mutations by message kind, backend calls and tool calls.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metric names.
const (
	MetricThreadMessages = "dreamer.thread.messages"
	MetricModelCalls     = "dreamer.model.calls"
	MetricModelDuration  = "dreamer.model.duration"
	MetricToolCalls      = "dreamer.tool.calls"
)

const meterName = "github.com/hupe1980/dreamer"

// Recorder wraps the agent's instruments. A nil *Recorder records nothing.
type Recorder struct {
	messages      metric.Int64Counter
	modelCalls    metric.Int64Counter
	modelDuration metric.Float64Histogram
	toolCalls     metric.Int64Counter
}

// NewRecorder creates the instruments on mp, or on the global provider when
// mp is nil.
func NewRecorder(mp metric.MeterProvider) (*Recorder, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	messages, err := meter.Int64Counter(
		MetricThreadMessages,
		metric.WithDescription("Messages appended to the agent thread by kind"),
	)
	if err != nil {
		return nil, err
	}

	modelCalls, err := meter.Int64Counter(
		MetricModelCalls,
		metric.WithDescription("Backend calls by model and outcome"),
	)
	if err != nil {
		return nil, err
	}

	modelDuration, err := meter.Float64Histogram(
		MetricModelDuration,
		metric.WithDescription("Backend call latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	toolCalls, err := meter.Int64Counter(
		MetricToolCalls,
		metric.WithDescription("Tool executions by tool and outcome"),
	)
	if err != nil {
		return nil, err
	}

	return &Recorder{
		messages:      messages,
		modelCalls:    modelCalls,
		modelDuration: modelDuration,
		toolCalls:     toolCalls,
	}, nil
}

// RecordMessage counts a thread mutation. kind is the message kind name.
func (r *Recorder) RecordMessage(ctx context.Context, kind string) {
	if r == nil {
		return
	}
	r.messages.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordModelCall counts a backend call and records its latency.
func (r *Recorder) RecordModelCall(ctx context.Context, model string, dur time.Duration, err error) {
	if r == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("model", model),
		attribute.Bool("success", err == nil),
	)
	r.modelCalls.Add(ctx, 1, attrs)
	r.modelDuration.Record(ctx, float64(dur)/float64(time.Millisecond), attrs)
}

// RecordToolCall counts a tool execution.
func (r *Recorder) RecordToolCall(ctx context.Context, tool string, err error) {
	if r == nil {
		return
	}
	r.toolCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.Bool("success", err == nil),
	))
}

// ShutdownFunc flushes and releases telemetry resources.
type ShutdownFunc func(context.Context) error

// InitStdout installs a global meter provider that periodically writes
// metrics as JSON to w.
func InitStdout(w io.Writer, interval time.Duration) (*sdkmetric.MeterProvider, ShutdownFunc, error) {
	if interval <= 0 {
		interval = time.Minute
	}

	exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(mp)

	return mp, mp.Shutdown, nil
}
