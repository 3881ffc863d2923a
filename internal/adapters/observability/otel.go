package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/marketmind/marketmind/internal/core/domain"
	"github.com/marketmind/marketmind/internal/core/ports"
)

// OTel exports query traces through an OTLP gRPC collector. Each agent query
// becomes a root span; generations, tool runs, and named spans attach as
// children created retroactively with explicit timestamps.
type OTel struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	logger   *slog.Logger

	mu    sync.Mutex
	roots map[domain.TraceID]rootSpan
}

type rootSpan struct {
	ctx  context.Context
	span trace.Span
}

func NewOTel(ctx context.Context, endpoint string, logger *slog.Logger) (*OTel, error) {
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating otlp exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String("marketmind"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating otel resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	logger.Info("otel tracing initialized", "endpoint", endpoint)
	return &OTel{
		provider: provider,
		tracer:   provider.Tracer("marketmind/agent"),
		logger:   logger,
		roots:    make(map[domain.TraceID]rootSpan),
	}, nil
}

func (o *OTel) CreateTrace(ctx context.Context, name, userID, sessionID string, _ map[string]interface{}) domain.TraceID {
	spanCtx, span := o.tracer.Start(context.WithoutCancel(ctx), name,
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("session.id", sessionID),
		),
	)
	traceID := domain.TraceID(span.SpanContext().TraceID().String())

	o.mu.Lock()
	o.roots[traceID] = rootSpan{ctx: spanCtx, span: span}
	o.mu.Unlock()
	return traceID
}

func (o *OTel) child(traceID domain.TraceID, name string, start, end time.Time, attrs ...attribute.KeyValue) {
	o.mu.Lock()
	root, ok := o.roots[traceID]
	o.mu.Unlock()
	if !ok {
		return
	}

	_, span := o.tracer.Start(root.ctx, name,
		trace.WithTimestamp(start),
		trace.WithAttributes(attrs...),
	)
	span.End(trace.WithTimestamp(end))
}

func (o *OTel) LogLLMGeneration(_ context.Context, traceID domain.TraceID, model string, input, output interface{}, startTime, endTime time.Time, _ map[string]interface{}) {
	o.child(traceID, "llm.generate", startTime, endTime,
		attribute.String("llm.model", model),
		attribute.String("llm.input", stringify(input)),
		attribute.String("llm.output", stringify(output)),
	)
}

func (o *OTel) LogToolExecution(_ context.Context, traceID domain.TraceID, toolName string, input, output interface{}, startTime, endTime time.Time, success bool) {
	o.child(traceID, "tool."+toolName, startTime, endTime,
		attribute.String("tool.input", stringify(input)),
		attribute.String("tool.output", stringify(output)),
		attribute.Bool("tool.success", success),
	)
}

func (o *OTel) LogSpan(_ context.Context, traceID domain.TraceID, name string, input, output interface{}, startTime, endTime time.Time, _ map[string]interface{}) {
	o.child(traceID, name, startTime, endTime,
		attribute.String("span.input", stringify(input)),
		attribute.String("span.output", stringify(output)),
	)
}

func (o *OTel) CompleteTrace(_ context.Context, traceID domain.TraceID, output interface{}, success bool) {
	o.mu.Lock()
	root, ok := o.roots[traceID]
	delete(o.roots, traceID)
	o.mu.Unlock()
	if !ok {
		return
	}

	root.span.SetAttributes(attribute.String("agent.output", stringify(output)))
	if success {
		root.span.SetStatus(codes.Ok, "")
	} else {
		root.span.SetStatus(codes.Error, "query failed")
	}
	root.span.End()
}

// TraceURL returns "": collector UIs are deployment-specific.
func (o *OTel) TraceURL(domain.TraceID) string { return "" }

func (o *OTel) Flush(ctx context.Context) {
	if err := o.provider.ForceFlush(ctx); err != nil {
		o.logger.Warn("otel flush failed", "error", err)
	}
}

// Shutdown stops the exporter. Called once at process exit.
func (o *OTel) Shutdown(ctx context.Context) error {
	return o.provider.Shutdown(ctx)
}

var _ ports.Observability = (*OTel)(nil)
