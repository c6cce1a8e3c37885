// Package telemetry mirrors the in-process counters to OpenTelemetry.
//
// When enabled, counters are exported over OTLP/HTTP. The exporter endpoint
// and headers come from the standard OTEL_EXPORTER_OTLP_* environment
// variables. When disabled, a noop meter provider is used so callers never
// need to branch on the feature flag.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"portfolioos/internal/metrics"
)

const meterName = "portfolioos"

// instrument names, keyed by the registry counter they mirror
var instrumentNames = map[metrics.Counter]string{
	metrics.Requests:         "portfolio.requests",
	metrics.Errors:           "portfolio.errors",
	metrics.ContactMessages:  "portfolio.contact.messages",
	metrics.ContactDelivered: "portfolio.contact.delivered",
	metrics.ContactSkipped:   "portfolio.contact.skipped",
	metrics.ContactFailures:  "portfolio.contact.delivery_failures",
	metrics.RateLimited:      "portfolio.rate_limited",
}

// Options configures Setup.
type Options struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
}

// Provider owns the meter provider and the mirrored instruments.
// It implements metrics.Sink.
type Provider struct {
	enabled  bool
	provider metric.MeterProvider
	counters map[metrics.Counter]metric.Int64Counter
	shutdown func(context.Context) error
}

// Setup builds a Provider. With Enabled false it returns a noop provider
// and never fails.
func Setup(ctx context.Context, opts Options) (*Provider, error) {
	if !opts.Enabled {
		return newProvider(false, noop.NewMeterProvider(), nil)
	}

	exporter, err := otlpmetrichttp.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	return NewWithReader(sdkmetric.NewPeriodicReader(exporter), opts)
}

// NewWithReader builds an enabled Provider on top of an SDK meter provider
// fed by reader. Tests pass a manual reader.
func NewWithReader(reader sdkmetric.Reader, opts Options) (*Provider, error) {
	name := opts.ServiceName
	if name == "" {
		name = meterName
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", name),
		attribute.String("service.version", opts.ServiceVersion),
	)

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	)

	if err := runtime.Start(runtime.WithMeterProvider(mp)); err != nil {
		_ = mp.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to start runtime instrumentation: %w", err)
	}

	return newProvider(true, mp, mp.Shutdown)
}

func newProvider(enabled bool, mp metric.MeterProvider, shutdown func(context.Context) error) (*Provider, error) {
	meter := mp.Meter(meterName)

	p := &Provider{
		enabled:  enabled,
		provider: mp,
		counters: make(map[metrics.Counter]metric.Int64Counter, len(instrumentNames)),
		shutdown: shutdown,
	}

	for c, name := range instrumentNames {
		counter, err := meter.Int64Counter(name)
		if err != nil {
			return nil, fmt.Errorf("failed to create counter %s: %w", name, err)
		}
		p.counters[c] = counter
	}

	return p, nil
}

// Enabled reports whether counters are exported.
func (p *Provider) Enabled() bool {
	return p.enabled
}

// MeterProvider exposes the underlying provider.
func (p *Provider) MeterProvider() metric.MeterProvider {
	return p.provider
}

// Add implements metrics.Sink.
func (p *Provider) Add(ctx context.Context, c metrics.Counter, route string) {
	counter, ok := p.counters[c]
	if !ok {
		return
	}

	if route != "" {
		counter.Add(ctx, 1, metric.WithAttributes(attribute.String("route", route)))
		return
	}
	counter.Add(ctx, 1)
}

// Shutdown flushes pending exports. Safe to call on a disabled provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.shutdown == nil {
		return nil
	}
	if err := p.shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to shut down meter provider: %w", err)
	}
	return nil
}
