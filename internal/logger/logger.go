// Package logger wraps log/slog with optional OpenTelemetry spans. Until Init
// is called every helper logs through slog.Default().
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "marketlens"

var (
	globalLogger   *slog.Logger
	debugEnabled   bool
	tracingEnabled bool
	tracer         trace.Tracer
	tracerProvider *sdktrace.TracerProvider
)

// Config holds logging configuration.
type Config struct {
	Level   string // debug, info, warn, error
	Format  string // json or text
	Tracing bool   // export spans to stdout
	// Output defaults to os.Stdout.
	Output io.Writer
}

// Init installs the global logger and, when requested, the tracer provider.
// A tracer that fails to start is logged and tracing stays off.
func Init(cfg Config) error {
	level := parseLevel(cfg.Level)
	debugEnabled = level <= slog.LevelDebug

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)

	tracingEnabled = false
	if cfg.Tracing {
		if err := initTracer(out); err != nil {
			globalLogger.Warn("tracing disabled", "error", err)
			return nil
		}
		tracingEnabled = true
	}
	return nil
}

func initTracer(out io.Writer) error {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(out), stdouttrace.WithPrettyPrint())
	if err != nil {
		return err
	}
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion("0.1.0"),
		),
	)
	if err != nil {
		return err
	}
	tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	tracer = otel.Tracer(serviceName)
	return nil
}

// Shutdown flushes pending spans.
func Shutdown(ctx context.Context) error {
	if tracerProvider != nil {
		return tracerProvider.Shutdown(ctx)
	}
	return nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func current() *slog.Logger {
	if globalLogger == nil {
		return slog.Default()
	}
	return globalLogger
}

// StartSpan starts a span when tracing is on; otherwise it returns ctx's span.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if !tracingEnabled || tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

func log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if tracingEnabled {
		if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
			args = append([]any{"trace_id", sc.TraceID().String(), "span_id", sc.SpanID().String()}, args...)
		}
	}
	current().Log(ctx, level, msg, args...)
}

// Debug logs at debug level.
func Debug(ctx context.Context, msg string, args ...any) { log(ctx, slog.LevelDebug, msg, args...) }

// Info logs at info level.
func Info(ctx context.Context, msg string, args ...any) { log(ctx, slog.LevelInfo, msg, args...) }

// Warn logs at warn level.
func Warn(ctx context.Context, msg string, args ...any) { log(ctx, slog.LevelWarn, msg, args...) }

// Error logs at error level.
func Error(ctx context.Context, msg string, args ...any) { log(ctx, slog.LevelError, msg, args...) }

// ErrorWithErr logs err and records it on the active span.
func ErrorWithErr(ctx context.Context, msg string, err error, args ...any) {
	if tracingEnabled && err != nil {
		span := trace.SpanFromContext(ctx)
		if span.SpanContext().IsValid() {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
	log(ctx, slog.LevelError, msg, append([]any{"error", err}, args...)...)
}

// Fetch records a market data fetch on the active span and in the log.
func Fetch(ctx context.Context, provider, symbol, period string, bars int, cached bool) {
	if tracingEnabled {
		span := trace.SpanFromContext(ctx)
		if span.SpanContext().IsValid() {
			span.AddEvent("series_fetched", trace.WithAttributes(
				attribute.String("provider", provider),
				attribute.String("symbol", symbol),
				attribute.String("period", period),
				attribute.Int("bars", bars),
				attribute.Bool("cached", cached),
			))
		}
	}
	log(ctx, slog.LevelDebug, "series fetched",
		"provider", provider, "symbol", symbol, "period", period, "bars", bars, "cached", cached)
}

// IsDebugEnabled reports whether debug records are emitted.
func IsDebugEnabled() bool { return debugEnabled }

// OperationTimer measures an operation and closes its span.
type OperationTimer struct {
	ctx    context.Context
	span   trace.Span
	start  time.Time
	fields []any
}

// StartOperation opens a span named operation with fields as attributes.
func StartOperation(ctx context.Context, operation string, fields ...any) *OperationTimer {
	var span trace.Span
	if tracingEnabled {
		ctx, span = StartSpan(ctx, operation)
		span.SetAttributes(toAttributes(fields)...)
	}
	Debug(ctx, "operation started", append([]any{"operation", operation}, fields...)...)
	return &OperationTimer{ctx: ctx, span: span, start: time.Now(), fields: fields}
}

// Context returns the context carrying the operation span.
func (ot *OperationTimer) Context() context.Context { return ot.ctx }

// End closes the operation successfully.
func (ot *OperationTimer) End(extra ...any) {
	elapsed := time.Since(ot.start)
	if ot.span != nil {
		ot.span.SetAttributes(attribute.Int64("duration_ms", elapsed.Milliseconds()))
		ot.span.SetAttributes(toAttributes(extra)...)
		ot.span.SetStatus(codes.Ok, "completed")
		ot.span.End()
	}
	fields := append(append([]any{}, ot.fields...), "duration_ms", elapsed.Milliseconds())
	Debug(ot.ctx, "operation completed", append(fields, extra...)...)
}

// EndWithError closes the operation as failed and logs err.
func (ot *OperationTimer) EndWithError(err error, extra ...any) {
	elapsed := time.Since(ot.start)
	if ot.span != nil {
		ot.span.SetAttributes(attribute.Int64("duration_ms", elapsed.Milliseconds()))
		ot.span.RecordError(err)
		ot.span.SetStatus(codes.Error, err.Error())
		ot.span.End()
	}
	fields := append(append([]any{}, ot.fields...), "duration_ms", elapsed.Milliseconds(), "error", err)
	Error(ot.ctx, "operation failed", append(fields, extra...)...)
}

func toAttributes(fields []any) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		switch v := fields[i+1].(type) {
		case string:
			attrs = append(attrs, attribute.String(key, v))
		case int:
			attrs = append(attrs, attribute.Int(key, v))
		case int64:
			attrs = append(attrs, attribute.Int64(key, v))
		case float64:
			attrs = append(attrs, attribute.Float64(key, v))
		case bool:
			attrs = append(attrs, attribute.Bool(key, v))
		}
	}
	return attrs
}
