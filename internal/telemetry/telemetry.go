// Package telemetry picks the process log handler and installs the tracer
// provider.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	logglobal "go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gopkg.in/natefinch/lumberjack.v2"

	"hotjar/internal/config"
	"hotjar/internal/logsink"
)

type ShutdownFunc func(context.Context) error

// Setup installs the default slog logger. Handlers are tried in order: OTLP,
// the append blob sink, a rotated log file, then text on stderr.
func Setup(ctx context.Context, cfg *config.Config, stderr io.Writer) (ShutdownFunc, error) {
	handler, shutdown, err := NewHandler(ctx, cfg, stderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(handler))
	return shutdown, nil
}

func NewHandler(ctx context.Context, cfg *config.Config, stderr io.Writer) (slog.Handler, ShutdownFunc, error) {
	level := cfg.Logging.LogLevel()

	switch {
	case cfg.Telemetry.Enabled():
		return otlpHandler(ctx, cfg.Telemetry, level)

	case sinkConfig(cfg).Enabled():
		sink, err := logsink.New(ctx, sinkConfig(cfg))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create log sink: %w", err)
		}
		return sink, func(context.Context) error { return sink.Close() }, nil

	case cfg.Logging.File != "":
		lj := &lumberjack.Logger{
			Filename:   cfg.Logging.File,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		h := slog.NewJSONHandler(lj, &slog.HandlerOptions{Level: level})
		return h, func(context.Context) error { return lj.Close() }, nil

	default:
		h := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})
		return h, func(context.Context) error { return nil }, nil
	}
}

func sinkConfig(cfg *config.Config) logsink.Config {
	return logsink.Config{
		AccountName: cfg.Logging.SinkAccount,
		AccountKey:  cfg.Logging.SinkKey,
		Container:   cfg.Logging.SinkContainer,
		Level:       cfg.Logging.LogLevel(),
	}
}

func otlpHandler(ctx context.Context, tc config.TelemetryConfig, level slog.Level) (slog.Handler, ShutdownFunc, error) {
	res := resource.NewSchemaless(attribute.String("service.name", tc.ServiceName))

	logExporter, err := otlploghttp.New(ctx, otlploghttp.WithEndpointURL(tc.OTLPEndpoint))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create otlp log exporter: %w", err)
	}
	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
		sdklog.WithResource(res),
	)
	logglobal.SetLoggerProvider(lp)

	traceExporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(tc.OTLPEndpoint))
	if err != nil {
		return nil, nil, errors.Join(fmt.Errorf("failed to create otlp trace exporter: %w", err), lp.Shutdown(ctx))
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	h := otelslog.NewHandler(tc.ServiceName, otelslog.WithLoggerProvider(lp))
	shutdown := func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), lp.Shutdown(ctx))
	}
	return minLevel{Handler: h, level: level}, shutdown, nil
}

// minLevel drops records below level before they reach the wrapped handler.
type minLevel struct {
	slog.Handler
	level slog.Level
}

func (m minLevel) Enabled(ctx context.Context, l slog.Level) bool {
	return l >= m.level && m.Handler.Enabled(ctx, l)
}

func (m minLevel) WithAttrs(attrs []slog.Attr) slog.Handler {
	return minLevel{Handler: m.Handler.WithAttrs(attrs), level: m.level}
}

func (m minLevel) WithGroup(name string) slog.Handler {
	return minLevel{Handler: m.Handler.WithGroup(name), level: m.level}
}
