package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// Shutdown — корректное завершение провайдера (дослать накопленные спаны).
type Shutdown func(context.Context) error

// Options — параметры OTLP/HTTP экспорта.
type Options struct {
	ServiceName string
	Endpoint    string // host:port коллектора, без схемы
	SampleRatio float64
	// Attributes — дополнительные атрибуты ресурса (например, режим движка).
	Attributes []attribute.KeyValue
}

func (o *Options) normalize() {
	if o.ServiceName == "" {
		o.ServiceName = "kafka-transformer"
	}
	if o.Endpoint == "" {
		o.Endpoint = "localhost:4318"
	}
	if o.SampleRatio < 0 {
		o.SampleRatio = 0
	}
	if o.SampleRatio > 1 {
		o.SampleRatio = 1
	}
}

// SetupTracing настраивает OTLP/HTTP экспорт, семплинг и глобальные пропагаторы.
// Семплер уважает решение родительского спана, корневые спаны — по SampleRatio.
func SetupTracing(ctx context.Context, opts Options) (Shutdown, error) {
	opts.normalize()

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(opts.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}

	attrs := append([]attribute.KeyValue{
		semconv.ServiceName(opts.ServiceName),
		attribute.String("telemetry.sdk", "opentelemetry"),
	}, opts.Attributes...)

	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(opts.SampleRatio))),
		sdktrace.WithResource(resource.NewWithAttributes(semconv.SchemaURL, attrs...)),
	)

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{}, propagation.Baggage{},
		),
	)

	return traceProvider.Shutdown, nil
}
