package observability

import (
	"context"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability records lookup outcomes through OpenTelemetry, exported in
// Prometheus format.
type Observability struct {
	meterProvider  *metric.MeterProvider
	lookupCounter  otelmetric.Int64Counter
	lookupDuration otelmetric.Float64Histogram
}

// New registers on the default Prometheus registry and installs the global
// meter provider. A registration failure yields a no-op recorder.
func New(serviceName string) (*Observability, error) {
	o, err := NewWithRegisterer(serviceName, promclient.DefaultRegisterer)
	if err != nil {
		return &Observability{}, err
	}
	otel.SetMeterProvider(o.meterProvider)
	return o, nil
}

// NewWithRegisterer registers on reg without touching global state.
func NewWithRegisterer(serviceName string, reg promclient.Registerer) (*Observability, error) {
	exporter, err := prometheus.New(prometheus.WithRegisterer(reg))
	if err != nil {
		return nil, err
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	meter := provider.Meter(serviceName)

	lookupCounter, err := meter.Int64Counter(
		"lookups.processed",
		otelmetric.WithDescription("Number of transmission lookups processed"),
	)
	if err != nil {
		return nil, err
	}

	lookupDuration, err := meter.Float64Histogram(
		"lookups.duration",
		otelmetric.WithDescription("Transmission lookup duration"),
		otelmetric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &Observability{
		meterProvider:  provider,
		lookupCounter:  lookupCounter,
		lookupDuration: lookupDuration,
	}, nil
}

// RecordLookup counts one lookup and its duration under the outcome label.
func (o *Observability) RecordLookup(ctx context.Context, outcome string, duration time.Duration) {
	attrs := otelmetric.WithAttributes(attribute.String("outcome", outcome))
	if o.lookupCounter != nil {
		o.lookupCounter.Add(ctx, 1, attrs)
	}
	if o.lookupDuration != nil {
		o.lookupDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o.meterProvider == nil {
		return nil
	}
	return o.meterProvider.Shutdown(ctx)
}
