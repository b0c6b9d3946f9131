// Package metrics exposes proxy telemetry through the OpenTelemetry metric
// API with a Prometheus exporter. Counters and histograms are lock-free,
// keeping the request hot path free of contention.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

type Metrics struct {
	RPCRequests    metric.Int64Counter
	RPCDuration    metric.Float64Histogram
	UpstreamErrors metric.Int64Counter
}

// Setup wires the Prometheus exporter and returns the metrics set plus the
// handler to serve on the scrape endpoint.
func Setup(serviceName string) (*Metrics, http.Handler, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	m := &Metrics{}

	m.RPCRequests, err = meter.Int64Counter(
		"gm_rpc_requests_total",
		metric.WithDescription("Total number of JSON-RPC requests by method and outcome"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.RPCDuration, err = meter.Float64Histogram(
		"gm_rpc_duration_seconds",
		metric.WithDescription("JSON-RPC request duration in seconds"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.UpstreamErrors, err = meter.Int64Counter(
		"gm_upstream_errors_total",
		metric.WithDescription("Total number of failed upstream forwards"),
	)
	if err != nil {
		return nil, nil, err
	}

	return m, promhttp.Handler(), nil
}

// RecordRPC counts one dispatched request and its duration. The outcome
// label distinguishes sync overrides, deferred replies, forwards, and the
// error paths.
func (m *Metrics) RecordRPC(ctx context.Context, method, outcome string, duration time.Duration) {
	labels := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("outcome", outcome),
	)

	m.RPCRequests.Add(ctx, 1, labels)
	m.RPCDuration.Record(ctx, duration.Seconds(), labels)
}

func (m *Metrics) RecordForwardError(ctx context.Context, method string) {
	m.UpstreamErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
}
