// Package observe provides the OpenTelemetry metrics recorded by the frame
// loop. A Prometheus exporter bridge is installed by [InitProvider] so the
// instruments can be scraped from /metrics. Tests should build [Metrics]
// with [NewMetrics] over their own [metric.MeterProvider].
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/sweeney/mask-gate/internal/logic"
)

// meterName is the instrumentation scope name used for all mask-gate metrics.
const meterName = "github.com/sweeney/mask-gate"

// Metrics holds the metric instruments for the daemon.
// All fields are safe for concurrent use.
type Metrics struct {
	// Frames counts frames read from the source.
	Frames metric.Int64Counter

	// Classifications counts per-frame classifications. Use with attribute:
	//   attribute.String("kind", ...)
	Classifications metric.Int64Counter

	// Transitions counts confirmed state changes. Use with attribute:
	//   attribute.String("state", ...)
	Transitions metric.Int64Counter

	// ActuationErrors counts failed indicator or audio actuations.
	ActuationErrors metric.Int64Counter

	// DetectErrors counts frames where the detector failed.
	DetectErrors metric.Int64Counter

	// DetectDuration tracks detector inference latency.
	DetectDuration metric.Float64Histogram

	// LoopFPS is the most recent per-iteration frame rate.
	LoopFPS metric.Float64Gauge
}

// latencyBuckets (seconds) span a fast accelerator to a slow CPU-only model.
var latencyBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Frames, err = m.Int64Counter("maskgate.frames",
		metric.WithDescription("Frames read from the video source."),
	); err != nil {
		return nil, err
	}
	if met.Classifications, err = m.Int64Counter("maskgate.classifications",
		metric.WithDescription("Per-frame classifications by kind."),
	); err != nil {
		return nil, err
	}
	if met.Transitions, err = m.Int64Counter("maskgate.transitions",
		metric.WithDescription("Confirmed state transitions by target state."),
	); err != nil {
		return nil, err
	}
	if met.ActuationErrors, err = m.Int64Counter("maskgate.actuation.errors",
		metric.WithDescription("Failed indicator or audio actuations."),
	); err != nil {
		return nil, err
	}
	if met.DetectErrors, err = m.Int64Counter("maskgate.detect.errors",
		metric.WithDescription("Frames where inference failed."),
	); err != nil {
		return nil, err
	}
	if met.DetectDuration, err = m.Float64Histogram("maskgate.detect.duration",
		metric.WithDescription("Latency of detector inference."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LoopFPS, err = m.Float64Gauge("maskgate.loop.fps",
		metric.WithDescription("Frame loop rate measured over the last iteration."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// RecordFrame counts one frame and its classification kind.
func (m *Metrics) RecordFrame(ctx context.Context, kind logic.Kind) {
	m.Frames.Add(ctx, 1)
	m.Classifications.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(kind))))
}

// RecordTransition counts a confirmed transition into state.
func (m *Metrics) RecordTransition(ctx context.Context, state logic.State) {
	m.Transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("state", string(state))))
}

// RecordDetect records one inference call.
func (m *Metrics) RecordDetect(ctx context.Context, d time.Duration, err error) {
	m.DetectDuration.Record(ctx, d.Seconds())
	if err != nil {
		m.DetectErrors.Add(ctx, 1)
	}
}
