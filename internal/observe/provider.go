package observe

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// InitProvider sets up a [sdkmetric.MeterProvider] backed by the Prometheus
// exporter, registers it globally, and returns it with its shutdown function.
// The exporter registers with the default Prometheus registry, so
// promhttp.Handler serves the instruments.
func InitProvider(ctx context.Context) (*sdkmetric.MeterProvider, func(context.Context) error, error) {
	promExp, err := promexporter.New()
	if err != nil {
		return nil, nil, fmt.Errorf("observe: prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(promExp))
	otel.SetMeterProvider(mp)

	return mp, mp.Shutdown, nil
}
