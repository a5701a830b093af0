// Package telemetry is the process-wide error-telemetry collaborator. It is
// set up once in main and torn down on shutdown; request paths only call
// CaptureException and start spans.
//
// Captured exceptions are recorded on the span carried by the context and
// logged. Spans are exported over OTLP/gRPC when an endpoint is configured.
package telemetry

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"riskproxy/internal/platform/config"
	"riskproxy/pkg/requestcontext"
)

const (
	serviceName = "riskproxy"
	tracerName  = "riskproxy/"
)

// Span attribute keys. Descriptor values, assertions and access tokens are
// never recorded.
const (
	AttrStage      = "proxy.stage"
	AttrMethod     = "http.method"
	AttrPath       = "http.path"
	AttrStatusCode = "http.status_code"
	AttrRiskLevel  = "risk.level"
	AttrTokenPath  = "proxy.token_request"
)

// Telemetry records exceptions and hands out tracers.
type Telemetry struct {
	logger   *slog.Logger
	provider trace.TracerProvider
	shutdown func(context.Context) error
}

// Option customizes New.
type Option func(*options)

type options struct {
	processors []sdktrace.SpanProcessor
}

// WithSpanProcessor adds a span processor, e.g. a tracetest.SpanRecorder.
func WithSpanProcessor(p sdktrace.SpanProcessor) Option {
	return func(o *options) {
		o.processors = append(o.processors, p)
	}
}

// New builds the collaborator. Without an OTLP endpoint and without extra
// span processors tracing is a no-op and exceptions are only logged.
func New(ctx context.Context, cfg config.Telemetry, logger *slog.Logger, opts ...Option) (*Telemetry, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	t := &Telemetry{
		logger:   logger,
		provider: tracenoop.NewTracerProvider(),
		shutdown: func(context.Context) error { return nil },
	}
	if cfg.OTLPEndpoint == "" && len(o.processors) == 0 {
		logger.Info("tracing disabled (no OTEL_EXPORTER_OTLP_ENDPOINT set)")
		return t, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	providerOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.OTLPEndpoint != "" {
		exporter, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, err
		}
		providerOpts = append(providerOpts, sdktrace.WithBatcher(exporter))
		logger.Info("tracing enabled", "endpoint", cfg.OTLPEndpoint)
	}
	for _, p := range o.processors {
		providerOpts = append(providerOpts, sdktrace.WithSpanProcessor(p))
	}

	tp := sdktrace.NewTracerProvider(providerOpts...)
	t.provider = tp
	t.shutdown = tp.Shutdown
	return t, nil
}

// Nop returns a collaborator that neither traces nor logs.
func Nop() *Telemetry {
	return &Telemetry{
		logger:   slog.New(slog.DiscardHandler),
		provider: tracenoop.NewTracerProvider(),
		shutdown: func(context.Context) error { return nil },
	}
}

// Tracer returns a named tracer for the given scope ("proxy", "riskevents", ...).
func (t *Telemetry) Tracer(scope string) trace.Tracer {
	if t == nil {
		return tracenoop.NewTracerProvider().Tracer(tracerName + scope)
	}
	return t.provider.Tracer(tracerName + scope)
}

// CaptureException records err on the active span and logs it. Nil-safe.
func (t *Telemetry) CaptureException(ctx context.Context, err error) {
	if t == nil || err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	t.logger.ErrorContext(ctx, "exception captured",
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
}

// Shutdown flushes and stops span export.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	return t.shutdown(ctx)
}

// SetAttributes sets attributes on the span carried by ctx.
func SetAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}
