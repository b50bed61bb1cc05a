// Package instrumentation wires OpenTelemetry metrics to a Prometheus
// registry and exposes the recorders used by the dashboard and HTTP layer.
package instrumentation

import (
	"context"
	"fmt"
	"net/http"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
)

// ServiceName is the instrumentation scope for every meter.
const ServiceName = "agendash"

// Provider owns the meter provider and the registry scraped at /metrics.
type Provider struct {
	meterProvider *metric.MeterProvider
	registry      *promclient.Registry
	metrics       *Metrics
	enabled       bool
}

// NewProvider creates a provider. When disabled, Metrics records nothing and
// Handler is nil.
func NewProvider(enabled bool) (*Provider, error) {
	if !enabled {
		return &Provider{metrics: &Metrics{}}, nil
	}

	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(mp)

	m, err := NewMetrics(mp.Meter(ServiceName))
	if err != nil {
		_ = mp.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to create metrics recorder: %w", err)
	}

	return &Provider{
		meterProvider: mp,
		registry:      registry,
		metrics:       m,
		enabled:       true,
	}, nil
}

func (p *Provider) Metrics() *Metrics { return p.metrics }

func (p *Provider) Enabled() bool { return p.enabled }

// Handler serves the Prometheus exposition format, or nil when disabled.
func (p *Provider) Handler() http.Handler {
	if p.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.meterProvider == nil {
		return nil
	}
	if err := p.meterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	return nil
}
