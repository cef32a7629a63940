// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.ServiceName != "circuits" {
		t.Errorf("ServiceName = %q, want circuits", cfg.ServiceName)
	}
	if cfg.TraceExporter == "" || cfg.MetricExporter == "" {
		t.Error("exporters must default to a non-empty selection")
	}
	if cfg.OTLPEndpoint == "" {
		t.Error("OTLPEndpoint must have a default")
	}

	// Explicit values survive defaulting.
	cfg2 := Config{ServiceName: "demo", TraceExporter: ExporterStdout}
	cfg2.ApplyDefaults()
	if cfg2.ServiceName != "demo" || cfg2.TraceExporter != ExporterStdout {
		t.Error("ApplyDefaults overwrote explicit values")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"zero config", Config{}, false},
		{"stdout both", Config{TraceExporter: ExporterStdout, MetricExporter: ExporterStdout}, false},
		{"otlp traces", Config{TraceExporter: ExporterOTLP}, false},
		{"prometheus metrics", Config{MetricExporter: ExporterPrometheus}, false},
		{"prometheus traces", Config{TraceExporter: ExporterPrometheus}, true},
		{"otlp metrics", Config{MetricExporter: ExporterOTLP}, true},
		{"garbage", Config{TraceExporter: "carrier-pigeon"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrUnknownExporter) {
				t.Errorf("Validate() = %v, want ErrUnknownExporter", err)
			}
		})
	}
}

func TestInit_NoneExporters(t *testing.T) {
	tel, err := Init(context.Background(), Config{
		TraceExporter:  ExporterNone,
		MetricExporter: ExporterNone,
	})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if tel.MetricsHandler() != nil {
		t.Error("MetricsHandler should be nil without the prometheus exporter")
	}
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestInit_StdoutExporters(t *testing.T) {
	tel, err := Init(context.Background(), Config{
		TraceExporter:  ExporterStdout,
		MetricExporter: ExporterStdout,
	})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	// Shutdown is idempotent: providers are released exactly once.
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown failed: %v", err)
	}
}

func TestInit_InvalidConfig(t *testing.T) {
	_, err := Init(context.Background(), Config{TraceExporter: "carrier-pigeon"})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Init error = %v, want ErrInvalidConfig", err)
	}
}

func TestInit_NilContext(t *testing.T) {
	//nolint:staticcheck // Deliberately passing nil to exercise the guard.
	_, err := Init(nil, Config{})
	if !errors.Is(err, ErrNilContext) {
		t.Errorf("Init error = %v, want ErrNilContext", err)
	}
}

func TestSpanHelpers_NilSafe(t *testing.T) {
	// All helpers must tolerate nil spans and nil errors.
	RecordError(nil, errors.New("boom"))
	SetSpanOK(nil)
	AddSpanEvent(nil, "event")

	_, span := noop.NewTracerProvider().Tracer("test").Start(context.Background(), "op")
	RecordError(span, nil)
	RecordError(span, errors.New("boom"), attribute.String("phase", "test"))
	SetSpanOK(span)
	AddSpanEvent(span, "event", attribute.Int("n", 1))
	span.End()
}
