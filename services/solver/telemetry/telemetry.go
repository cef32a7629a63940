// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry wires OpenTelemetry tracing and metrics for programs
// embedding the circuit solver.
//
// The eval package only uses the otel API (otel.Tracer / otel.Meter); without
// Init those calls are no-ops. Embedding programs call Init once at startup
// to install real providers, hold on to the returned Telemetry handle, and
// call its Shutdown on exit. When the Prometheus exporter is selected, the
// handle also carries the /metrics HTTP handler.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrNilContext is returned when a nil context is provided.
	ErrNilContext = errors.New("context must not be nil")

	// ErrInvalidConfig is returned when a telemetry configuration is invalid.
	ErrInvalidConfig = errors.New("invalid telemetry configuration")

	// ErrUnknownExporter is returned for an unrecognized exporter name.
	ErrUnknownExporter = errors.New("unknown exporter")
)

// -----------------------------------------------------------------------------
// Exporter selection
// -----------------------------------------------------------------------------

// Exporter names a telemetry export backend.
type Exporter string

const (
	// ExporterNone disables the signal entirely.
	ExporterNone Exporter = "none"

	// ExporterStdout pretty-prints to stdout, for development.
	ExporterStdout Exporter = "stdout"

	// ExporterOTLP ships traces to an OTLP/gRPC collector. Traces only.
	ExporterOTLP Exporter = "otlp"

	// ExporterPrometheus exposes metrics for Prometheus scraping via
	// Telemetry.MetricsHandler. Metrics only.
	ExporterPrometheus Exporter = "prometheus"
)

// traceExporters and metricExporters are the selections each signal accepts.
var (
	traceExporters  = map[Exporter]bool{ExporterNone: true, ExporterStdout: true, ExporterOTLP: true}
	metricExporters = map[Exporter]bool{ExporterNone: true, ExporterStdout: true, ExporterPrometheus: true}
)

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// Config controls telemetry behavior.
//
// The zero value is valid after ApplyDefaults; Init calls Validate and
// ApplyDefaults itself, so callers normally just fill in what they need.
type Config struct {
	// ServiceName identifies this service in traces and metrics.
	// Default: "circuits".
	ServiceName string `json:"service_name" yaml:"service_name"`

	// ServiceVersion is the version string for this service.
	// Default: "1.0.0".
	ServiceVersion string `json:"service_version" yaml:"service_version"`

	// Environment identifies the deployment environment.
	// Default: $CIRCUITS_ENV, or "development".
	Environment string `json:"environment" yaml:"environment"`

	// TraceExporter selects the trace backend: none, stdout, or otlp.
	// Default: $OTEL_TRACES_EXPORTER, or none.
	TraceExporter Exporter `json:"trace_exporter" yaml:"trace_exporter"`

	// MetricExporter selects the metric backend: none, stdout, or prometheus.
	// Default: $OTEL_METRICS_EXPORTER, or none.
	MetricExporter Exporter `json:"metric_exporter" yaml:"metric_exporter"`

	// OTLPEndpoint is the OTLP/gRPC receiver endpoint for traces.
	// Default: $OTEL_EXPORTER_OTLP_ENDPOINT, or "localhost:4317".
	OTLPEndpoint string `json:"otlp_endpoint" yaml:"otlp_endpoint"`

	// OTLPInsecure disables TLS for the OTLP connection. Default: false;
	// ApplyDefaults does not change it, so TLS is used unless it is set.
	OTLPInsecure bool `json:"otlp_insecure" yaml:"otlp_insecure"`
}

// Validate checks if the configuration is valid.
//
// Empty exporter selections are allowed; ApplyDefaults resolves them.
func (c *Config) Validate() error {
	if c.TraceExporter != "" && !traceExporters[c.TraceExporter] {
		return fmt.Errorf("%w: trace exporter %q", ErrUnknownExporter, c.TraceExporter)
	}
	if c.MetricExporter != "" && !metricExporters[c.MetricExporter] {
		return fmt.Errorf("%w: metric exporter %q", ErrUnknownExporter, c.MetricExporter)
	}
	return nil
}

// ApplyDefaults fills in zero values, consulting the standard OTEL
// environment variables before falling back to built-in defaults.
func (c *Config) ApplyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "circuits"
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "1.0.0"
	}
	if c.Environment == "" {
		c.Environment = envOr("CIRCUITS_ENV", "development")
	}
	if c.TraceExporter == "" {
		c.TraceExporter = Exporter(envOr("OTEL_TRACES_EXPORTER", string(ExporterNone)))
	}
	if c.MetricExporter == "" {
		c.MetricExporter = Exporter(envOr("OTEL_METRICS_EXPORTER", string(ExporterNone)))
	}
	if c.OTLPEndpoint == "" {
		c.OTLPEndpoint = envOr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	}
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Telemetry is the handle for an initialized telemetry stack.
//
// Thread Safety: Safe for concurrent use after Init returns.
type Telemetry struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	metricsHandler http.Handler
}

// Init initializes the telemetry stack with the given configuration.
//
// Description:
//
//	Validates and defaults the configuration, then installs a TracerProvider
//	and MeterProvider as the otel globals according to the selected
//	exporters. After Init returns, the solver's otel.Tracer() spans and
//	otel.Meter() instruments start recording.
//
// Inputs:
//
//	ctx - Context for initialization (used for exporter connections).
//	cfg - Telemetry configuration. A zero Config selects the no-op backends.
//
// Outputs:
//
//	*Telemetry - Handle for shutdown and the metrics endpoint. Never nil on
//	             success.
//	error - Non-nil if the configuration is invalid or an exporter fails to
//	        initialize.
//
// Thread Safety: Call once at application startup.
func Init(ctx context.Context, cfg Config) (*Telemetry, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg.ApplyDefaults()

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
		attribute.String("deployment.environment", cfg.Environment),
	)

	t := &Telemetry{}

	if cfg.TraceExporter != ExporterNone {
		exporter, err := newSpanExporter(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("init tracer: %w", err)
		}
		t.tracerProvider = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
		)
		otel.SetTracerProvider(t.tracerProvider)
	}

	if cfg.MetricExporter != ExporterNone {
		reader, handler, err := newMetricReader(cfg)
		if err != nil {
			return nil, fmt.Errorf("init meter: %w", err)
		}
		t.meterProvider = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(reader),
		)
		t.metricsHandler = handler
		otel.SetMeterProvider(t.meterProvider)
	}

	return t, nil
}

// Shutdown flushes and stops both providers.
//
// Safe to call on a handle whose signals were disabled; each provider is
// shut down at most once.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.tracerProvider != nil {
		if err := t.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
		t.tracerProvider = nil
	}
	if t.meterProvider != nil {
		if err := t.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
		t.meterProvider = nil
	}
	return errors.Join(errs...)
}

// MetricsHandler returns the HTTP handler for the /metrics endpoint, or nil
// unless the Prometheus exporter was selected.
func (t *Telemetry) MetricsHandler() http.Handler {
	return t.metricsHandler
}

// newSpanExporter builds the span exporter for the configured backend.
func newSpanExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.TraceExporter {
	case ExporterOTLP:
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)

	case ExporterStdout:
		return stdouttrace.New(stdouttrace.WithPrettyPrint())

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.TraceExporter)
	}
}

// newMetricReader builds the metric reader for the configured backend. For
// Prometheus it also returns the scrape handler.
func newMetricReader(cfg Config) (sdkmetric.Reader, http.Handler, error) {
	switch cfg.MetricExporter {
	case ExporterPrometheus:
		// The otel prometheus exporter registers with the default prometheus
		// registry, so promhttp.Handler() includes the solver instruments.
		exporter, err := promexporter.New()
		if err != nil {
			return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
		}
		return exporter, promhttp.Handler(), nil

	case ExporterStdout:
		exporter, err := stdoutmetric.New(stdoutmetric.WithPrettyPrint())
		if err != nil {
			return nil, nil, fmt.Errorf("create stdout metric exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exporter), nil, nil

	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.MetricExporter)
	}
}

// envOr returns the environment variable value or the fallback.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
