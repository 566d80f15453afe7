// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package diagnostics

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// -----------------------------------------------------------------------------
// NoOpTracer Tests
// -----------------------------------------------------------------------------

func TestNoOpTracer_StartSpan(t *testing.T) {
	tracer := NewNoOpTracer()
	ctx := context.Background()

	spanCtx, finish := tracer.StartSpan(ctx, SpanDispatch, map[string]string{"command": "ps"})
	finish(errors.New("ignored"))

	if spanCtx != ctx {
		t.Error("expected the parent context to be returned unchanged")
	}
	if id := tracer.GetTraceID(spanCtx); id != "" {
		t.Errorf("expected empty trace ID, got %q", id)
	}
	if err := tracer.Shutdown(ctx); err != nil {
		t.Errorf("expected nil shutdown error, got %v", err)
	}
}

// -----------------------------------------------------------------------------
// OTelTracer Tests
// -----------------------------------------------------------------------------

func newInMemoryTracer(t *testing.T) (*OTelTracer, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tracer, err := NewOTelTracer(context.Background(), OTelConfig{SpanExporter: exporter})
	if err != nil {
		t.Fatalf("NewOTelTracer: %v", err)
	}
	return tracer, exporter
}

func TestOTelTracer_SpanHierarchy(t *testing.T) {
	tracer, exporter := newInMemoryTracer(t)
	ctx := context.Background()

	rootCtx, finishRoot := tracer.StartSpan(ctx, SpanDispatch, map[string]string{
		"command":       "restart-scheduler",
		"invocation_id": "inv-1",
	})
	callCtx, finishCall := tracer.StartSpan(rootCtx, SpanRuntimeCall, map[string]string{"verb": "restart-subset"})
	tracer.SetAttributes(callCtx, map[string]string{"exit_code": "0"})
	finishCall(nil)
	finishRoot(nil)

	if tracer.GetTraceID(rootCtx) == "" {
		t.Error("expected a valid trace ID on the root context")
	}
	if err := tracer.provider.ForceFlush(ctx); err != nil {
		t.Fatalf("ForceFlush: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}

	// Children end first.
	call, root := spans[0], spans[1]
	if call.Name != SpanRuntimeCall || root.Name != SpanDispatch {
		t.Fatalf("unexpected span names %q, %q", call.Name, root.Name)
	}
	if call.Parent.SpanID() != root.SpanContext.SpanID() {
		t.Error("runtime call span should be a child of the dispatch span")
	}

	attrs := map[string]string{}
	for _, kv := range call.Attributes {
		attrs[string(kv.Key)] = kv.Value.AsString()
	}
	if attrs["verb"] != "restart-subset" || attrs["exit_code"] != "0" {
		t.Errorf("unexpected call attributes %v", attrs)
	}
}

func TestOTelTracer_FinishWithError(t *testing.T) {
	tracer, exporter := newInMemoryTracer(t)
	ctx := context.Background()

	_, finish := tracer.StartSpan(ctx, SpanRuntimeCall, nil)
	finish(errors.New("exit 1"))

	if err := tracer.provider.ForceFlush(ctx); err != nil {
		t.Fatalf("ForceFlush: %v", err)
	}
	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("expected error status, got %v", spans[0].Status.Code)
	}
	if len(spans[0].Events) == 0 {
		t.Error("expected the error to be recorded as an event")
	}
}

func TestOTelTracer_StdoutExporter(t *testing.T) {
	var buf bytes.Buffer
	tracer, err := NewOTelTracer(context.Background(), OTelConfig{
		Exporter: ExporterStdout,
		Writer:   &buf,
	})
	if err != nil {
		t.Fatalf("NewOTelTracer: %v", err)
	}

	_, finish := tracer.StartSpan(context.Background(), SpanDispatch, map[string]string{"command": "ps"})
	finish(nil)

	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte(SpanDispatch)) {
		t.Errorf("expected exported span in output, got %q", buf.String())
	}
}

func TestNewOTelTracer_UnknownExporter(t *testing.T) {
	_, err := NewOTelTracer(context.Background(), OTelConfig{Exporter: "zipkin"})
	if err == nil {
		t.Fatal("expected error for unknown exporter")
	}
}

// -----------------------------------------------------------------------------
// Factory Tests
// -----------------------------------------------------------------------------

func TestNewTracer(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		env      map[string]string
		wantNoOp bool
		wantErr  bool
	}{
		{name: "default is noop", settings: Settings{}, wantNoOp: true},
		{name: "explicit none", settings: Settings{Exporter: "none"}, wantNoOp: true},
		{name: "stdout", settings: Settings{Exporter: "stdout", Writer: &bytes.Buffer{}}},
		{
			name:     "env endpoint upgrades none",
			settings: Settings{Exporter: "none"},
			env:      map[string]string{"OTEL_EXPORTER_OTLP_ENDPOINT": "http://localhost:4317"},
		},
		{
			name:     "otlp over tls",
			settings: Settings{Exporter: "otlp", Endpoint: "collector.example:4317"},
		},
		{
			name:     "https env endpoint with insecure default",
			settings: Settings{Exporter: "none", Insecure: true},
			env:      map[string]string{"OTEL_EXPORTER_OTLP_ENDPOINT": "https://collector.example:4317"},
		},
		{name: "unknown exporter", settings: Settings{Exporter: "jaeger"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			getenv := func(k string) string { return tt.env[k] }
			tracer, err := NewTracer(context.Background(), tt.settings, getenv)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = tracer.Shutdown(ctx)
			}()

			_, isNoOp := tracer.(*NoOpTracer)
			if isNoOp != tt.wantNoOp {
				t.Errorf("noop = %v, want %v", isNoOp, tt.wantNoOp)
			}
		})
	}
}

func TestOtlpTarget(t *testing.T) {
	tests := []struct {
		name          string
		endpoint      string
		insecure      bool
		wantTarget    string
		wantPlaintext bool
	}{
		{"http forces plaintext", "http://collector:4317", false, "collector:4317", true},
		{"https forces tls", "https://collector:4317", true, "collector:4317", false},
		{"bare follows flag secure", "collector:4317", false, "collector:4317", false},
		{"bare follows flag insecure", "collector:4317", true, "collector:4317", true},
		{"trailing slash", "https://collector:4317/", false, "collector:4317", false},
		{"empty uses default", "", true, "localhost:4317", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, plaintext := otlpTarget(tt.endpoint, tt.insecure)
			if target != tt.wantTarget || plaintext != tt.wantPlaintext {
				t.Errorf("otlpTarget(%q, %v) = (%q, %v), want (%q, %v)",
					tt.endpoint, tt.insecure, target, plaintext, tt.wantTarget, tt.wantPlaintext)
			}
		})
	}
}

func TestTransportCredentials(t *testing.T) {
	if got := transportCredentials(false).Info().SecurityProtocol; got != "tls" {
		t.Errorf("secure credentials protocol = %q, want tls", got)
	}
	if got := transportCredentials(true).Info().SecurityProtocol; got != "insecure" {
		t.Errorf("plaintext credentials protocol = %q, want insecure", got)
	}
}

// -----------------------------------------------------------------------------
// MockTracer Tests
// -----------------------------------------------------------------------------

func TestMockTracer_RecordsSpans(t *testing.T) {
	mock := NewMockTracer()
	ctx, finish := mock.StartSpan(context.Background(), SpanRuntimeCall, map[string]string{"verb": "stop"})
	mock.SetAttributes(ctx, map[string]string{"exit_code": "3"})
	finish(errors.New("boom"))

	spans := mock.SpansNamed(SpanRuntimeCall)
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if !spans[0].Ended || spans[0].Err == nil {
		t.Error("expected span ended with error")
	}
	if spans[0].Attrs["exit_code"] != "3" {
		t.Errorf("expected exit_code 3, got %q", spans[0].Attrs["exit_code"])
	}
}
