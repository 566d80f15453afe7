// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package diagnostics provides OpenTelemetry tracing for stackctl invocations.

# Span Layout

Every invocation produces one root span and one child per runtime call:

	stackctl.dispatch        command, invocation_id
	└── stackctl.runtime_call  verb, scope, exit_code

# Exporters

  - none (NoOpTracer): spans are never recorded; the default
  - stdout (OTelTracer + stdouttrace): spans printed as JSON to a writer
  - otlp (OTelTracer + otlptracegrpc): spans exported to a collector over gRPC

Setting OTEL_EXPORTER_OTLP_ENDPOINT upgrades "none" to "otlp".
*/
package diagnostics

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// Span names emitted by stackctl.
const (
	SpanDispatch    = "stackctl.dispatch"
	SpanRuntimeCall = "stackctl.runtime_call"
)

// DefaultServiceName is the service.name resource attribute.
const DefaultServiceName = "stackctl"

// Exporter names accepted by NewTracer.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// -----------------------------------------------------------------------------
// Tracer Interface
// -----------------------------------------------------------------------------

// Tracer abstracts span creation so dispatch code never depends on the SDK.
//
// # Thread Safety
//
// All implementations must be safe for concurrent use.
type Tracer interface {
	// StartSpan creates a span and returns a context carrying it.
	//
	// # Inputs
	//
	//   - ctx: Parent context (may contain a parent span)
	//   - name: Span name (e.g., SpanRuntimeCall)
	//   - attrs: Attributes attached at start
	//
	// # Outputs
	//
	//   - context.Context: Context with the new span
	//   - func(error): Ends the span; pass nil for success
	//
	// # Example
	//
	//	ctx, finish := tracer.StartSpan(ctx, SpanDispatch,
	//	    map[string]string{"command": "deploy"})
	//	defer finish(nil)
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, func(error))

	// SetAttributes adds attributes to the span carried by ctx, for values
	// only known after the span started (e.g., exit_code).
	SetAttributes(ctx context.Context, attrs map[string]string)

	// GetTraceID returns the hex trace ID of the span in ctx, or "".
	GetTraceID(ctx context.Context) string

	// Shutdown flushes pending spans and releases exporter resources.
	Shutdown(ctx context.Context) error
}

// -----------------------------------------------------------------------------
// NoOpTracer
// -----------------------------------------------------------------------------

// NoOpTracer records nothing. It is the default when no exporter is set.
type NoOpTracer struct{}

// NewNoOpTracer returns a tracer that records nothing.
func NewNoOpTracer() *NoOpTracer {
	return &NoOpTracer{}
}

func (t *NoOpTracer) StartSpan(ctx context.Context, _ string, _ map[string]string) (context.Context, func(error)) {
	return ctx, func(error) {}
}

func (t *NoOpTracer) SetAttributes(context.Context, map[string]string) {}

func (t *NoOpTracer) GetTraceID(context.Context) string { return "" }

func (t *NoOpTracer) Shutdown(context.Context) error { return nil }

// -----------------------------------------------------------------------------
// OTelTracer
// -----------------------------------------------------------------------------

// OTelTracer records spans through the OpenTelemetry SDK.
//
// # Description
//
// Wraps an sdktrace.TracerProvider with a batch span processor. The
// exporter is chosen by OTelConfig: OTLP over gRPC, stdout JSON, or any
// sdktrace.SpanExporter supplied by the caller (tests use an in-memory one).
//
// # Thread Safety
//
// OTelTracer is safe for concurrent use.
type OTelTracer struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
}

// OTelConfig configures an OTelTracer.
type OTelConfig struct {
	// ServiceName is the service.name resource attribute.
	// Default: "stackctl"
	ServiceName string

	// Exporter is ExporterOTLP or ExporterStdout.
	Exporter string

	// Endpoint is the OTLP collector address. An "https://" scheme forces
	// TLS and "http://" forces plaintext; a bare host:port follows Insecure.
	// Default: "localhost:4317"
	Endpoint string

	// Insecure disables TLS for the OTLP connection.
	Insecure bool

	// Writer receives stdout-exported spans. Default: os.Stderr.
	Writer io.Writer

	// SpanExporter overrides Exporter when set.
	SpanExporter sdktrace.SpanExporter
}

// NewOTelTracer creates an SDK-backed tracer.
//
// # Description
//
// Builds the span exporter, a resource carrying service.name, and a
// tracer provider with a batch span processor. The provider is installed
// as the global provider so instrumented libraries join the same trace.
//
// # Inputs
//
//   - ctx: Context for exporter initialization
//   - config: Exporter selection and endpoint
//
// # Outputs
//
//   - *OTelTracer: Ready-to-use tracer
//   - error: Non-nil if the exporter or resource cannot be created
//
// # Example
//
//	tracer, err := NewOTelTracer(ctx, OTelConfig{
//	    Exporter: ExporterOTLP,
//	    Endpoint: "jaeger:4317",
//	    Insecure: true,
//	})
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
// # Limitations
//
//   - The gRPC connection is lazy; an unreachable collector surfaces only
//     as an export error at Shutdown
func NewOTelTracer(ctx context.Context, config OTelConfig) (*OTelTracer, error) {
	if config.ServiceName == "" {
		config.ServiceName = DefaultServiceName
	}

	exporter, err := newSpanExporter(ctx, config)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &OTelTracer{
		tracer:   provider.Tracer(config.ServiceName),
		provider: provider,
	}, nil
}

func newSpanExporter(ctx context.Context, config OTelConfig) (sdktrace.SpanExporter, error) {
	if config.SpanExporter != nil {
		return config.SpanExporter, nil
	}

	switch config.Exporter {
	case ExporterStdout:
		w := config.Writer
		if w == nil {
			w = os.Stderr
		}
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		return exp, nil

	case ExporterOTLP:
		target, plaintext := otlpTarget(config.Endpoint, config.Insecure)
		conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(transportCredentials(plaintext)))
		if err != nil {
			return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
		}
		exp, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		return exp, nil

	default:
		return nil, fmt.Errorf("unknown trace exporter %q", config.Exporter)
	}
}

// StartSpan creates an internal span with string attributes.
func (t *OTelTracer) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, func(error)) {
	ctx, span := t.tracer.Start(ctx, name,
		trace.WithAttributes(toAttributes(attrs)...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)

	finish := func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
	return ctx, finish
}

// SetAttributes adds attributes to the span in ctx.
func (t *OTelTracer) SetAttributes(ctx context.Context, attrs map[string]string) {
	trace.SpanFromContext(ctx).SetAttributes(toAttributes(attrs)...)
}

// GetTraceID returns the W3C trace ID of the span in ctx.
func (t *OTelTracer) GetTraceID(ctx context.Context) string {
	traceID := trace.SpanFromContext(ctx).SpanContext().TraceID()
	if !traceID.IsValid() {
		return ""
	}
	return traceID.String()
}

// Shutdown flushes the batch processor and closes the exporter.
func (t *OTelTracer) Shutdown(ctx context.Context) error {
	if t.provider != nil {
		return t.provider.Shutdown(ctx)
	}
	return nil
}

func toAttributes(attrs map[string]string) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		out = append(out, attribute.String(k, v))
	}
	return out
}

// -----------------------------------------------------------------------------
// Factory
// -----------------------------------------------------------------------------

// Settings selects the tracer built by NewTracer.
type Settings struct {
	Exporter string
	Endpoint string
	Insecure bool
	Writer   io.Writer
}

// NewTracer builds the tracer selected by settings and the environment.
//
// # Description
//
// Exporter "none" (or empty) yields a NoOpTracer unless
// OTEL_EXPORTER_OTLP_ENDPOINT is set, in which case OTLP export to that
// endpoint is used. An explicit endpoint in settings wins over the
// environment.
//
// # Inputs
//
//   - ctx: Context for exporter initialization
//   - settings: Exporter selection, usually from the config file
//   - getenv: Environment reader; nil reads the process environment
//
// # Outputs
//
//   - Tracer: Ready-to-use tracer
//   - error: Non-nil for an unknown exporter or OTel init failure
func NewTracer(ctx context.Context, settings Settings, getenv func(string) string) (Tracer, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	exporter := strings.ToLower(strings.TrimSpace(settings.Exporter))
	endpoint := settings.Endpoint
	if exporter == "" || exporter == ExporterNone {
		envEndpoint := getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
		if envEndpoint == "" {
			return NewNoOpTracer(), nil
		}
		exporter = ExporterOTLP
		if endpoint == "" {
			endpoint = envEndpoint
		}
	}

	return NewOTelTracer(ctx, OTelConfig{
		ServiceName: DefaultServiceName,
		Exporter:    exporter,
		Endpoint:    endpoint,
		Insecure:    settings.Insecure || getenv("OTEL_INSECURE") == "true",
		Writer:      settings.Writer,
	})
}

// otlpTarget splits an endpoint into the grpc.NewClient target and
// whether to dial it without TLS. A scheme overrides the insecure flag.
func otlpTarget(endpoint string, insecureFlag bool) (string, bool) {
	endpoint = strings.TrimSpace(endpoint)
	if rest, ok := strings.CutPrefix(endpoint, "https://"); ok {
		endpoint, insecureFlag = rest, false
	} else if rest, ok := strings.CutPrefix(endpoint, "http://"); ok {
		endpoint, insecureFlag = rest, true
	}
	endpoint = strings.TrimSuffix(endpoint, "/")
	if endpoint == "" {
		endpoint = "localhost:4317"
	}
	return endpoint, insecureFlag
}

// transportCredentials returns plaintext credentials or TLS verified
// against the system roots.
func transportCredentials(plaintext bool) credentials.TransportCredentials {
	if plaintext {
		return insecure.NewCredentials()
	}
	return credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
}

// Compile-time interface compliance checks.
var _ Tracer = (*NoOpTracer)(nil)
var _ Tracer = (*OTelTracer)(nil)
