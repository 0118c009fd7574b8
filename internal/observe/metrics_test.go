package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/sweeney/mask-gate/internal/logic"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumFor returns the counter value for the data point whose attribute key
// has value, or -1 if absent.
func sumFor(t *testing.T, rm metricdata.ResourceMetrics, name, key, value string) int64 {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not a sum", name)
	}
	for _, dp := range sum.DataPoints {
		if key == "" {
			return dp.Value
		}
		for _, kv := range dp.Attributes.ToSlice() {
			if string(kv.Key) == key && kv.Value.AsString() == value {
				return dp.Value
			}
		}
	}
	return -1
}

func TestRecordFrame(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordFrame(ctx, logic.KindNone)
	m.RecordFrame(ctx, logic.KindPositive)
	m.RecordFrame(ctx, logic.KindPositive)

	rm := collect(t, reader)
	if got := sumFor(t, rm, "maskgate.frames", "", ""); got != 3 {
		t.Errorf("frames = %d, want 3", got)
	}
	if got := sumFor(t, rm, "maskgate.classifications", "kind", "POSITIVE"); got != 2 {
		t.Errorf("positive classifications = %d, want 2", got)
	}
	if got := sumFor(t, rm, "maskgate.classifications", "kind", "NONE"); got != 1 {
		t.Errorf("none classifications = %d, want 1", got)
	}
}

func TestRecordTransition(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordTransition(ctx, logic.StateNegative)

	rm := collect(t, reader)
	if got := sumFor(t, rm, "maskgate.transitions", "state", "NEGATIVE"); got != 1 {
		t.Errorf("negative transitions = %d, want 1", got)
	}
}

func TestRecordDetect(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordDetect(ctx, 40*time.Millisecond, nil)
	m.RecordDetect(ctx, 60*time.Millisecond, errors.New("inference failed"))

	rm := collect(t, reader)
	met := findMetric(rm, "maskgate.detect.duration")
	if met == nil {
		t.Fatal("histogram not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("metric is not a histogram")
	}
	if len(hist.DataPoints) == 0 || hist.DataPoints[0].Count != 2 {
		t.Errorf("expected 2 samples, got %+v", hist.DataPoints)
	}
	if got := sumFor(t, rm, "maskgate.detect.errors", "", ""); got != 1 {
		t.Errorf("detect errors = %d, want 1", got)
	}
}

func TestLoopFPSGauge(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.LoopFPS.Record(ctx, 10)
	m.LoopFPS.Record(ctx, 14.5)

	rm := collect(t, reader)
	met := findMetric(rm, "maskgate.loop.fps")
	if met == nil {
		t.Fatal("gauge not found")
	}
	g, ok := met.Data.(metricdata.Gauge[float64])
	if !ok {
		t.Fatal("metric is not a gauge")
	}
	if len(g.DataPoints) != 1 || g.DataPoints[0].Value != 14.5 {
		t.Errorf("expected last value 14.5, got %+v", g.DataPoints)
	}
}
